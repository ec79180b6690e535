package auth

import "context"

// StaticAuthorizer allows lifecycle operations for a fixed list of
// principals, for every tenant. Deployments with per-tenant admin
// rosters plug in their own Authorizer.
type StaticAuthorizer struct {
	admins map[string]struct{}
}

func NewStaticAuthorizer(admins []string) *StaticAuthorizer {
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		set[a] = struct{}{}
	}
	return &StaticAuthorizer{admins: set}
}

func (s *StaticAuthorizer) CanManage(ctx context.Context, tenant, callerID string) (bool, error) {
	_ = ctx
	_ = tenant
	_, ok := s.admins[callerID]
	return ok, nil
}
