package processor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"courier-engine/internal/aggregator"
	"courier-engine/internal/digest"
	"courier-engine/internal/dispatch"
	"courier-engine/internal/domain/aggregation"
	"courier-engine/internal/domain/recipient"
	"courier-engine/internal/metrics"
	"courier-engine/internal/render"
	"courier-engine/internal/repository"
	"courier-engine/pkg/logger"
)

// Config carries the rendering and dispatch knobs.
type Config struct {
	Sender           string
	PrimaryTemplate  string
	FallbackTemplate string
}

// Processor drives one inbound batch through parse, aggregate, group, render,
// dispatch and purge. Failures are isolated per unit of work: a malformed
// sub-command, a failing application or an unrenderable content group never
// aborts its siblings.
type Processor struct {
	agg        *aggregator.Aggregator
	store      repository.AggregationRepository
	renderer   render.Renderer
	dispatcher dispatch.Dispatcher
	cfg        Config
	log        *logger.Logger
}

func NewProcessor(
	agg *aggregator.Aggregator,
	store repository.AggregationRepository,
	renderer render.Renderer,
	dispatcher dispatch.Dispatcher,
	cfg Config,
	log *logger.Logger,
) *Processor {
	return &Processor{
		agg:        agg,
		store:      store,
		renderer:   renderer,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log,
	}
}

// ProcessBatch handles one inbound message, which may carry several
// aggregation commands.
func (p *Processor) ProcessBatch(ctx context.Context, data []byte) {
	commands, rejected, err := aggregation.ParseCommands(data)
	if rejected > 0 {
		metrics.CommandsRejected.Add(float64(rejected))
	}
	if err != nil {
		metrics.CommandsRejected.Inc()
		p.log.Errorf("dropping undecodable aggregation batch: %v", err)
		return
	}
	if len(commands) == 0 {
		return
	}

	type mergeKey struct {
		orgID    string
		username string
	}
	merged := make(map[mergeKey]*digest.UserContent)
	var completed []aggregation.Command

	for _, cmd := range commands {
		cmdCtx := context.WithValue(ctx, logger.OrgIdKey, cmd.Key.OrgID)
		cmdCtx = context.WithValue(cmdCtx, logger.AggregationKeyKey, cmd.Key.String())

		started := time.Now()
		results, err := p.agg.Aggregate(cmdCtx, cmd.Key, cmd.SubscriptionType, cmd.Start, cmd.End)
		metrics.AggregationSeconds.WithLabelValues(cmd.Key.OrgID).Observe(time.Since(started).Seconds())
		if err != nil {
			metrics.AggregationFailures.Inc()
			p.log.WithContext(cmdCtx).Error("aggregation failed", zap.Error(err))
			continue
		}

		for username, uc := range results {
			k := mergeKey{orgID: cmd.Key.OrgID, username: username}
			content, ok := merged[k]
			if !ok {
				content = &digest.UserContent{OrgID: cmd.Key.OrgID, User: uc.User}
				merged[k] = content
			}
			content.Sections = append(content.Sections, digest.Section{
				Application: cmd.Key.Application,
				Context:     uc.Context,
			})
		}
		completed = append(completed, cmd)
	}

	contents := make([]digest.UserContent, 0, len(merged))
	for _, c := range merged {
		contents = append(contents, *c)
	}

	for _, group := range digest.GroupByContent(contents) {
		p.renderAndDispatch(ctx, group)
	}

	// Purge after the dispatch attempt, success or not, so a poisoned window
	// cannot be reprocessed forever. Rows created after each command's end
	// survive.
	for _, cmd := range completed {
		purged, err := p.store.PurgeUpTo(ctx, cmd.Key, cmd.End)
		if err != nil {
			p.log.Errorf("purge failed for %s: %v", cmd.Key, err)
			continue
		}
		metrics.RowsPurged.Add(float64(purged))
	}
}

// renderAndDispatch renders one content group, falling back to the secondary
// template before giving up, then hands the result to the connector.
func (p *Processor) renderAndDispatch(ctx context.Context, group digest.Group) {
	email, err := p.renderer.Render(ctx, p.cfg.PrimaryTemplate, group)
	if err != nil {
		p.log.Warnf("primary template %s failed for org %s: %v", p.cfg.PrimaryTemplate, group.OrgID, err)
		metrics.RenderFallbacks.Inc()
		email, err = p.renderer.Render(ctx, p.cfg.FallbackTemplate, group)
	}
	if err != nil {
		metrics.RenderFailures.Inc()
		p.log.Errorf("dropping content group for org %s, both render paths failed: %v", group.OrgID, err)
		return
	}

	usernames := make([]string, 0, len(group.Users))
	for _, u := range group.Users {
		usernames = append(usernames, u.Username)
	}
	env := dispatch.Envelope{
		ID:         uuid.New(),
		OrgID:      group.OrgID,
		Subject:    email.Subject,
		Body:       email.Body,
		Sender:     p.cfg.Sender,
		Recipients: usernames,
		Settings: recipient.Settings{
			// Recipients are final: the delivery layer must not re-run
			// subscription or opt-in filtering.
			IgnorePreferences: true,
			Users:             usernames,
		},
	}
	if err := p.dispatcher.Send(ctx, env); err != nil {
		metrics.DispatchFailures.Inc()
		p.log.Errorf("dispatch failed for org %s: %v", group.OrgID, err)
		return
	}
	metrics.GroupsDispatched.Inc()
}
