package aggregator

import (
	"fmt"

	"courier-engine/internal/domain/aggregation"
)

// PayloadAggregator folds event payloads into one per-user per-application
// context. Implementations are created per recipient and must be cheap.
type PayloadAggregator interface {
	Accumulate(payload map[string]any)
	Context() map[string]any
}

// Factory builds a fresh accumulator.
type Factory func() PayloadAggregator

// Registry maps a bundle/application pair to its folding strategy. An
// unregistered application falls back to the generic event-type counter.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(bundle, application string, f Factory) {
	r.factories[registryKey(bundle, application)] = f
}

func (r *Registry) New(key aggregation.Key) PayloadAggregator {
	if f, ok := r.factories[registryKey(key.Bundle, key.Application)]; ok {
		return f()
	}
	return NewEventCountAggregator()
}

func registryKey(bundle, application string) string {
	return fmt.Sprintf("%s/%s", bundle, application)
}

// EventCountAggregator is the generic fallback: it counts payloads per event
// type.
type EventCountAggregator struct {
	counts map[string]int
	total  int
}

func NewEventCountAggregator() PayloadAggregator {
	return &EventCountAggregator{counts: make(map[string]int)}
}

func (a *EventCountAggregator) Accumulate(payload map[string]any) {
	eventType, _ := payload["event_type"].(string)
	a.counts[eventType]++
	a.total++
}

func (a *EventCountAggregator) Context() map[string]any {
	counts := make(map[string]any, len(a.counts))
	for eventType, n := range a.counts {
		counts[eventType] = n
	}
	return map[string]any{
		"event_types": counts,
		"total":       a.total,
	}
}

// PoliciesAggregator folds policy-triggered events into per-policy unique
// host counts, the shape the policies digest template consumes.
type PoliciesAggregator struct {
	policies    map[string]*policyEntry
	uniqueHosts map[string]struct{}
}

type policyEntry struct {
	name  string
	hosts map[string]struct{}
}

func NewPoliciesAggregator() PayloadAggregator {
	return &PoliciesAggregator{
		policies:    make(map[string]*policyEntry),
		uniqueHosts: make(map[string]struct{}),
	}
}

func (a *PoliciesAggregator) Accumulate(payload map[string]any) {
	policyID, _ := payload["policy_id"].(string)
	if policyID == "" {
		return
	}
	entry, ok := a.policies[policyID]
	if !ok {
		name, _ := payload["policy_name"].(string)
		entry = &policyEntry{name: name, hosts: make(map[string]struct{})}
		a.policies[policyID] = entry
	}
	if host, _ := payload["host"].(string); host != "" {
		entry.hosts[host] = struct{}{}
		a.uniqueHosts[host] = struct{}{}
	}
}

func (a *PoliciesAggregator) Context() map[string]any {
	policies := make(map[string]any, len(a.policies))
	for id, entry := range a.policies {
		policies[id] = map[string]any{
			"name":         entry.name,
			"unique_hosts": len(entry.hosts),
		}
	}
	return map[string]any{
		"policies":     policies,
		"unique_hosts": len(a.uniqueHosts),
	}
}
