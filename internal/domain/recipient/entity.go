package recipient

import (
	"encoding/json"
	"sort"

	"courier-engine/internal/domain/user"
)

// Settings is a declarative descriptor of a candidate user pool: all users of
// an org or the members of one group, optionally restricted to admins or to an
// explicit username list, with an escape hatch that bypasses subscription
// filtering. Two Settings with the same field values are interchangeable.
type Settings struct {
	AdminsOnly        bool     `json:"only_admins"`
	IgnorePreferences bool     `json:"ignore_user_preferences"`
	GroupID           string   `json:"group_id,omitempty"`
	Users             []string `json:"users,omitempty"`
}

// Key returns a canonical identity for the settings, used for value-level
// dedup. The username list is normalized and sorted so ordering never splits
// otherwise-equal settings; JSON encoding keeps field values that contain
// delimiter characters from colliding.
func (s Settings) Key() string {
	users := make([]string, len(s.Users))
	for i, u := range s.Users {
		users[i] = user.NormalizeUsername(u)
	}
	sort.Strings(users)

	data, err := json.Marshal(struct {
		AdminsOnly        bool     `json:"admins_only"`
		IgnorePreferences bool     `json:"ignore_preferences"`
		GroupID           string   `json:"group_id"`
		Users             []string `json:"users"`
	}{s.AdminsOnly, s.IgnorePreferences, s.GroupID, users})
	if err != nil {
		// A struct of bools, strings and a string slice cannot fail to
		// marshal.
		panic(err)
	}
	return string(data)
}

// UserSet returns the explicit username restriction as a normalized set,
// or nil when the settings carry no restriction.
func (s Settings) UserSet() map[string]struct{} {
	if len(s.Users) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(s.Users))
	for _, u := range s.Users {
		set[user.NormalizeUsername(u)] = struct{}{}
	}
	return set
}

// Dedup removes value-equal duplicates, preserving first-seen order.
func Dedup(settings []Settings) []Settings {
	seen := make(map[string]struct{}, len(settings))
	out := settings[:0:0]
	for _, s := range settings {
		k := s.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
