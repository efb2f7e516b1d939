package aggregation

import (
	"encoding/json"
	"fmt"
	"time"

	courier_errors "courier-engine/pkg/errors"
)

// Command instructs the engine to aggregate one key's pending payloads over
// the (Start, End] window for one subscription type.
type Command struct {
	Key              Key       `json:"aggregationKey"`
	SubscriptionType string    `json:"subscriptionType"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
}

// Validate rejects commands that cannot identify a queue partition or a
// usable window.
func (c Command) Validate() error {
	if c.Key.OrgID == "" || c.Key.Bundle == "" || c.Key.Application == "" {
		return fmt.Errorf("%w: aggregation key is incomplete: %q", courier_errors.ErrInvalidCommand, c.Key)
	}
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("%w: window bounds missing for key %q", courier_errors.ErrInvalidCommand, c.Key)
	}
	if !c.End.After(c.Start) {
		return fmt.Errorf("%w: window end %s is not after start %s", courier_errors.ErrInvalidCommand, c.End, c.Start)
	}
	return nil
}

// ParseCommands decodes an inbound batch. A malformed sub-command is skipped
// and counted without aborting its siblings; only a batch that is not a JSON
// array at all is a hard error.
func ParseCommands(data []byte) ([]Command, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode command batch: %w", err)
	}

	var commands []Command
	rejected := 0
	for _, msg := range raw {
		var cmd Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			rejected++
			continue
		}
		if err := cmd.Validate(); err != nil {
			rejected++
			continue
		}
		commands = append(commands, cmd)
	}
	return commands, rejected, nil
}
