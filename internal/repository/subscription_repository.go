package repository

import (
	"context"
	"database/sql"

	"courier-engine/internal/domain/subscription"
	"courier-engine/internal/domain/user"
)

type subscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Subscribers loads every explicit flag for the event type in one query so a
// pass over N payloads of the same event type costs one round trip, not N.
func (r *subscriptionRepository) Subscribers(ctx context.Context, orgID, eventType, subscriptionType string) (map[string]struct{}, map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT username, subscribed
        FROM subscription
        WHERE org_id = $1 AND event_type = $2 AND subscription_type = $3
    `, orgID, eventType, subscriptionType)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	subscribed := make(map[string]struct{})
	unsubscribed := make(map[string]struct{})
	for rows.Next() {
		var username string
		var isSubscribed bool
		if err := rows.Scan(&username, &isSubscribed); err != nil {
			return nil, nil, err
		}
		if isSubscribed {
			subscribed[user.NormalizeUsername(username)] = struct{}{}
		} else {
			unsubscribed[user.NormalizeUsername(username)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return subscribed, unsubscribed, nil
}

// EventTypeDefaults returns the event type's subscription policy. An unknown
// event type falls back to the opt-out model, unlocked.
func (r *subscriptionRepository) EventTypeDefaults(ctx context.Context, eventType string) (subscription.Defaults, error) {
	defaults := subscription.Defaults{
		EventType:           eventType,
		SubscribedByDefault: true,
	}
	err := r.db.QueryRowContext(ctx, `
        SELECT subscribed_by_default, locked
        FROM event_type_defaults
        WHERE event_type = $1
    `, eventType).Scan(&defaults.SubscribedByDefault, &defaults.Locked)
	if err == sql.ErrNoRows {
		return defaults, nil
	}
	if err != nil {
		return subscription.Defaults{}, err
	}
	return defaults, nil
}
