package recipients

import (
	"context"
	"fmt"
	"sort"

	"courier-engine/internal/domain/recipient"
	"courier-engine/internal/domain/user"
	"courier-engine/internal/identity"
	"courier-engine/pkg/logger"
)

// Resolver turns a declarative set of recipient settings plus subscription
// state into the concrete user set a digest goes to.
type Resolver struct {
	src identity.Source
	log *logger.Logger
}

func NewResolver(src identity.Source, log *logger.Logger) *Resolver {
	return &Resolver{src: src, log: log}
}

// Resolve unions the per-setting pools by username. For each setting the pool
// is the group members (or the whole org), optionally restricted to an
// explicit username list, then filtered by subscription state unless the
// setting bypasses preferences. Upstream failures propagate: an unreachable
// identity source must never read as "zero recipients".
//
// Each distinct (org, adminsOnly[, groupId]) combination is fetched at most
// once per call, however many settings request it.
func (r *Resolver) Resolve(
	ctx context.Context,
	orgID string,
	settings []recipient.Settings,
	subscribed map[string]struct{},
	unsubscribed map[string]struct{},
	optIn bool,
) ([]user.User, error) {
	fetched := make(map[identity.FetchKey][]user.User)
	result := make(map[string]user.User)

	for _, s := range recipient.Dedup(settings) {
		pool, err := r.candidatePool(ctx, orgID, s, fetched)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve recipients for org %s: %w", orgID, err)
		}

		restriction := s.UserSet()
		for _, u := range pool {
			username := user.NormalizeUsername(u.Username)
			if restriction != nil {
				if _, ok := restriction[username]; !ok {
					continue
				}
			}
			if !s.IgnorePreferences {
				if optIn {
					if _, ok := subscribed[username]; !ok {
						continue
					}
				} else {
					if _, ok := unsubscribed[username]; ok {
						continue
					}
				}
			}
			result[username] = u
		}
	}

	users := make([]user.User, 0, len(result))
	for _, u := range result {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return user.NormalizeUsername(users[i].Username) < user.NormalizeUsername(users[j].Username)
	})
	return users, nil
}

func (r *Resolver) candidatePool(
	ctx context.Context,
	orgID string,
	s recipient.Settings,
	fetched map[identity.FetchKey][]user.User,
) ([]user.User, error) {
	key := identity.FetchKey{OrgID: orgID, AdminsOnly: s.AdminsOnly, GroupID: s.GroupID}
	if pool, ok := fetched[key]; ok {
		return pool, nil
	}

	var pool []user.User
	var err error
	if s.GroupID != "" {
		pool, err = r.src.FetchGroupUsers(ctx, orgID, s.AdminsOnly, s.GroupID)
	} else {
		pool, err = r.src.FetchAllUsers(ctx, orgID, s.AdminsOnly)
	}
	if err != nil {
		return nil, err
	}
	fetched[key] = pool
	return pool, nil
}
