package aggregation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	courier_errors "courier-engine/pkg/errors"
)

func TestParseCommandsValidBatch(t *testing.T) {
	data := []byte(`[
		{"aggregationKey":{"orgId":"org1","bundle":"rhel","application":"policies"},"subscriptionType":"DAILY","start":"2026-08-31T00:00:00Z","end":"2026-09-01T00:00:00Z"},
		{"aggregationKey":{"orgId":"org2","bundle":"rhel","application":"advisor"},"subscriptionType":"DAILY","start":"2026-08-31T00:00:00Z","end":"2026-09-01T00:00:00Z"}
	]`)

	commands, rejected, err := ParseCommands(data)
	require.NoError(t, err)
	assert.Zero(t, rejected)
	require.Len(t, commands, 2)
	assert.Equal(t, Key{OrgID: "org1", Bundle: "rhel", Application: "policies"}, commands[0].Key)
	assert.Equal(t, "DAILY", commands[0].SubscriptionType)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), commands[0].End)
}

func TestParseCommandsSkipsMalformedElements(t *testing.T) {
	data := []byte(`[
		{"aggregationKey":{"orgId":"org1","bundle":"rhel","application":"policies"},"subscriptionType":"DAILY","start":"2026-08-31T00:00:00Z","end":"2026-09-01T00:00:00Z"},
		{"aggregationKey":"not an object"},
		{"aggregationKey":{"orgId":"","bundle":"rhel","application":"policies"},"subscriptionType":"DAILY","start":"2026-08-31T00:00:00Z","end":"2026-09-01T00:00:00Z"}
	]`)

	commands, rejected, err := ParseCommands(data)
	require.NoError(t, err)
	assert.Equal(t, 2, rejected)
	require.Len(t, commands, 1)
	assert.Equal(t, "org1", commands[0].Key.OrgID)
}

func TestParseCommandsNonArrayIsHardError(t *testing.T) {
	_, _, err := ParseCommands([]byte(`{"aggregationKey":{}}`))
	assert.Error(t, err)

	_, _, err = ParseCommands([]byte(`garbage`))
	assert.Error(t, err)
}

func TestCommandValidateWindow(t *testing.T) {
	base := Command{
		Key:              Key{OrgID: "org1", Bundle: "rhel", Application: "policies"},
		SubscriptionType: "DAILY",
		Start:            time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		End:              time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, base.Validate())

	equalBounds := base
	equalBounds.End = equalBounds.Start
	assert.ErrorIs(t, equalBounds.Validate(), courier_errors.ErrInvalidCommand)

	inverted := base
	inverted.Start, inverted.End = inverted.End, inverted.Start
	assert.ErrorIs(t, inverted.Validate(), courier_errors.ErrInvalidCommand)

	missingStart := base
	missingStart.Start = time.Time{}
	assert.ErrorIs(t, missingStart.Validate(), courier_errors.ErrInvalidCommand)
}

func TestDecodeEnvelopeRequiresEventType(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"policy_id":"p1"}`))
	assert.ErrorIs(t, err, courier_errors.ErrUnknownEventType)

	env, err := DecodeEnvelope([]byte(`{"event_type":"policy-triggered","policy_id":"p1"}`))
	require.NoError(t, err)
	assert.Equal(t, "policy-triggered", env.EventType)
	assert.Equal(t, "p1", env.Data["policy_id"])
}
