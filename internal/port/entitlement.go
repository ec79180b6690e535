package port

import "context"

// EntitlementGranter awards an external capability (a role, a tag) to a
// buyer after a committed sale. Grants are best-effort: a failure is
// reported on the receipt but never reverses the sale.
type EntitlementGranter interface {
	Grant(ctx context.Context, userID, entitlementKey string) error
}
