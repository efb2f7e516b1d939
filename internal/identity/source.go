package identity

import (
	"context"

	"courier-engine/internal/domain/user"
)

// Source is the uniform surface over the upstream identity backends. Both
// calls return the full (already depaginated) active-user list; which backend
// answers is a composition-time decision invisible to callers.
type Source interface {
	FetchAllUsers(ctx context.Context, orgID string, adminsOnly bool) ([]user.User, error)
	FetchGroupUsers(ctx context.Context, orgID string, adminsOnly bool, groupID string) ([]user.User, error)
}

// FetchKey identifies one upstream fetch combination. It keys both the TTL
// cache and the per-resolve memoization.
type FetchKey struct {
	OrgID      string
	AdminsOnly bool
	GroupID    string
}

// AllUsersBackend fetches an org's whole user base. The directory and bulk
// backends are interchangeable implementations.
type AllUsersBackend interface {
	FetchAllUsers(ctx context.Context, orgID string, adminsOnly bool) ([]user.User, error)
}

// RESTSource composes the group client with the configured all-users backend.
type RESTSource struct {
	groups *GroupClient
	users  AllUsersBackend
}

func NewRESTSource(groups *GroupClient, users AllUsersBackend) *RESTSource {
	return &RESTSource{groups: groups, users: users}
}

func (s *RESTSource) FetchAllUsers(ctx context.Context, orgID string, adminsOnly bool) ([]user.User, error) {
	return s.users.FetchAllUsers(ctx, orgID, adminsOnly)
}

func (s *RESTSource) FetchGroupUsers(ctx context.Context, orgID string, adminsOnly bool, groupID string) ([]user.User, error) {
	return s.groups.FetchGroupUsers(ctx, orgID, adminsOnly, groupID)
}
