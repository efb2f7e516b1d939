package subscription

// Defaults is the event-type-level subscription policy. Locked event types
// ignore user opt-out attempts.
type Defaults struct {
	EventType           string
	SubscribedByDefault bool
	Locked              bool
}

// OptIn reports whether the event type runs an opt-in model (users must
// explicitly subscribe) rather than the default-subscribed opt-out model.
func (d Defaults) OptIn() bool {
	return !d.SubscribedByDefault
}

// State is one user's explicit subscription flag for an event type within an
// org and subscription type.
type State struct {
	OrgID            string
	EventType        string
	SubscriptionType string
	Username         string
	Subscribed       bool
}
