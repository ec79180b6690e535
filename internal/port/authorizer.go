package port

import "context"

// Authorizer answers whether a caller may open or close a tenant's
// market. The check itself lives outside the engine.
type Authorizer interface {
	CanManage(ctx context.Context, tenant, callerID string) (bool, error)
}
