package aggregator

import (
	"context"
	"fmt"
	"time"

	"courier-engine/internal/domain/aggregation"
	"courier-engine/internal/domain/recipient"
	"courier-engine/internal/domain/user"
	"courier-engine/internal/recipients"
	"courier-engine/internal/repository"
	"courier-engine/pkg/logger"
)

// UserContext is one user's finalized aggregated content for a single
// application.
type UserContext struct {
	User    user.User
	Context map[string]any
}

// Aggregator pages a key's pending payloads out of storage, resolves the
// recipients of each payload and folds payloads into per-user accumulators.
type Aggregator struct {
	store    repository.AggregationRepository
	subs     repository.SubscriptionRepository
	resolver *recipients.Resolver
	registry *Registry
	pageSize int
	log      *logger.Logger
}

func NewAggregator(
	store repository.AggregationRepository,
	subs repository.SubscriptionRepository,
	resolver *recipients.Resolver,
	registry *Registry,
	pageSize int,
	log *logger.Logger,
) *Aggregator {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Aggregator{
		store:    store,
		subs:     subs,
		resolver: resolver,
		registry: registry,
		pageSize: pageSize,
		log:      log,
	}
}

// subscriptionState is the per-event-type slice of subscription data, loaded
// once per pass however many payloads carry the event type.
type subscriptionState struct {
	subscribed   map[string]struct{}
	unsubscribed map[string]struct{}
	optIn        bool
}

// Aggregate folds every payload with created in (start, end] into per-user
// contexts keyed by normalized username. Given unchanged storage and
// identical arguments it returns identical results.
func (a *Aggregator) Aggregate(ctx context.Context, key aggregation.Key, subscriptionType string, start, end time.Time) (map[string]UserContext, error) {
	states := make(map[string]subscriptionState)
	accumulators := make(map[string]PayloadAggregator)
	usersByName := make(map[string]user.User)

	offset := 0
	for {
		page, err := a.store.FetchWindow(ctx, key, start, end, offset, a.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch pending payloads for %s: %w", key, err)
		}

		for _, p := range page {
			env, err := aggregation.DecodeEnvelope(p.Payload)
			if err != nil {
				a.log.Warnf("skipping undecodable payload %s for %s: %v", p.ID, key, err)
				continue
			}

			state, err := a.subscriptionState(ctx, key.OrgID, env.EventType, subscriptionType, states)
			if err != nil {
				return nil, err
			}

			settings := env.Recipients
			if len(settings) == 0 {
				settings = []recipient.Settings{{}}
			}
			resolved, err := a.resolver.Resolve(ctx, key.OrgID, settings, state.subscribed, state.unsubscribed, state.optIn)
			if err != nil {
				return nil, err
			}

			for _, u := range resolved {
				name := user.NormalizeUsername(u.Username)
				acc, ok := accumulators[name]
				if !ok {
					acc = a.registry.New(key)
					accumulators[name] = acc
					usersByName[name] = u
				}
				acc.Accumulate(env.Data)
			}
		}

		if len(page) < a.pageSize {
			break
		}
		offset += a.pageSize
	}

	result := make(map[string]UserContext, len(accumulators))
	for name, acc := range accumulators {
		content := acc.Context()
		content["start_time"] = start.UTC().Format(time.RFC3339)
		content["end_time"] = end.UTC().Format(time.RFC3339)
		result[name] = UserContext{User: usersByName[name], Context: content}
	}
	return result, nil
}

func (a *Aggregator) subscriptionState(ctx context.Context, orgID, eventType, subscriptionType string, states map[string]subscriptionState) (subscriptionState, error) {
	if state, ok := states[eventType]; ok {
		return state, nil
	}

	defaults, err := a.subs.EventTypeDefaults(ctx, eventType)
	if err != nil {
		return subscriptionState{}, fmt.Errorf("failed to load defaults for event type %s: %w", eventType, err)
	}
	subscribed, unsubscribed, err := a.subs.Subscribers(ctx, orgID, eventType, subscriptionType)
	if err != nil {
		return subscriptionState{}, fmt.Errorf("failed to load subscribers for event type %s: %w", eventType, err)
	}

	state := subscriptionState{
		subscribed:   subscribed,
		unsubscribed: unsubscribed,
		optIn:        defaults.OptIn(),
	}
	if defaults.Locked {
		// Locked event types ignore opt-out attempts.
		state.optIn = false
		state.unsubscribed = nil
	}
	states[eventType] = state
	return state, nil
}
