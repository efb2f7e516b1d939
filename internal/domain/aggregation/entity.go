package aggregation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courier-engine/internal/domain/recipient"
	courier_errors "courier-engine/pkg/errors"
)

// Key partitions the pending-payload queue. Every payload belongs to exactly
// one key.
type Key struct {
	OrgID       string `json:"orgId"`
	Bundle      string `json:"bundle"`
	Application string `json:"application"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.OrgID, k.Bundle, k.Application)
}

// PendingPayload is one queued per-application event payload, written at
// ingestion time and destroyed by the purge step of the next successful
// aggregation pass for its key.
type PendingPayload struct {
	ID      uuid.UUID
	Key     Key
	Created time.Time
	Payload []byte
}

// Envelope is the decoded shape of a pending payload: the event-type tag, an
// optional embedded recipient-settings override, and the rest of the payload
// as opaque data for the folding strategy.
type Envelope struct {
	EventType  string               `json:"event_type"`
	Recipients []recipient.Settings `json:"recipients,omitempty"`
	Data       map[string]any       `json:"-"`
}

// DecodeEnvelope splits a raw payload into its event-type tag, its recipient
// override and the full payload map handed to the folding strategy.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode payload envelope: %w", err)
	}
	if env.EventType == "" {
		return Envelope{}, fmt.Errorf("%w: payload carries no event_type tag", courier_errors.ErrUnknownEventType)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode payload data: %w", err)
	}
	delete(data, "recipients")
	env.Data = data
	return env, nil
}
