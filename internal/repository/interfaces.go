package repository

import (
	"context"
	"time"

	"courier-engine/internal/domain/aggregation"
	"courier-engine/internal/domain/subscription"
)

// AggregationRepository is the pending-payload queue. Rows are written at
// ingestion time, paged out by the aggregator and destroyed by the purge step.
type AggregationRepository interface {
	// Insert is idempotent: redelivering a row with a known id is a no-op.
	Insert(ctx context.Context, p *aggregation.PendingPayload) error
	// InsertBatch writes one event's per-application fan-out atomically:
	// either every row lands or none do.
	InsertBatch(ctx context.Context, payloads []*aggregation.PendingPayload) error
	FetchWindow(ctx context.Context, key aggregation.Key, start, end time.Time, offset, limit int) ([]aggregation.PendingPayload, error)
	// PurgeUpTo deletes the key's rows with created <= end. Rows created
	// after end must survive, even when they arrived mid-pass.
	PurgeUpTo(ctx context.Context, key aggregation.Key, end time.Time) (int64, error)
}

// SubscriptionRepository is the read side of per-user subscription state.
type SubscriptionRepository interface {
	// Subscribers returns the explicit subscribed and unsubscribed username
	// sets for one event type, in one round trip.
	Subscribers(ctx context.Context, orgID, eventType, subscriptionType string) (subscribed, unsubscribed map[string]struct{}, err error)
	EventTypeDefaults(ctx context.Context, eventType string) (subscription.Defaults, error)
}
