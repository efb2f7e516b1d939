package recipient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsKeyIgnoresUserOrderAndCase(t *testing.T) {
	a := Settings{Users: []string{"Alice", "bob"}}
	b := Settings{Users: []string{"BOB", "alice"}}
	assert.Equal(t, a.Key(), b.Key())
}

func TestSettingsKeyDistinguishesFields(t *testing.T) {
	base := Settings{}
	assert.NotEqual(t, base.Key(), Settings{AdminsOnly: true}.Key())
	assert.NotEqual(t, base.Key(), Settings{IgnorePreferences: true}.Key())
	assert.NotEqual(t, base.Key(), Settings{GroupID: "g1"}.Key())
	assert.NotEqual(t, base.Key(), Settings{Users: []string{"alice"}}.Key())
	assert.NotEqual(t, Settings{GroupID: "g1"}.Key(), Settings{GroupID: "g2"}.Key())
}

func TestSettingsKeySurvivesDelimiterCharacters(t *testing.T) {
	// A username containing a separator must not collide with a split list.
	joined := Settings{Users: []string{"a,b"}}
	split := Settings{Users: []string{"a", "b"}}
	assert.NotEqual(t, joined.Key(), split.Key())

	// Nor may a group id absorb neighbouring fields.
	embedded := Settings{GroupID: `g1","users":["x`}
	plain := Settings{GroupID: "g1", Users: []string{"x"}}
	assert.NotEqual(t, embedded.Key(), plain.Key())
}

func TestUserSet(t *testing.T) {
	assert.Nil(t, Settings{}.UserSet())

	set := Settings{Users: []string{"Alice", "ALICE", "bob"}}.UserSet()
	assert.Len(t, set, 2)
	assert.Contains(t, set, "alice")
	assert.Contains(t, set, "bob")
}

func TestDedupPreservesFirstSeenOrder(t *testing.T) {
	in := []Settings{
		{AdminsOnly: true},
		{Users: []string{"bob", "alice"}},
		{AdminsOnly: true},
		{Users: []string{"Alice", "BOB"}},
		{GroupID: "g1"},
	}
	out := Dedup(in)
	assert.Equal(t, []Settings{
		{AdminsOnly: true},
		{Users: []string{"bob", "alice"}},
		{GroupID: "g1"},
	}, out)
}
