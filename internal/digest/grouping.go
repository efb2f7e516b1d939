package digest

import (
	"encoding/json"
	"sort"

	"courier-engine/internal/domain/user"
)

// Section is one application's aggregated content inside a digest.
type Section struct {
	Application string         `json:"application"`
	Context     map[string]any `json:"context"`
}

// UserContent is everything one user accumulated across the applications
// processed in the same batch.
type UserContent struct {
	OrgID    string
	User     user.User
	Sections []Section
}

// Group is a set of users sharing byte-for-byte identical digest content.
// Rendering is the expensive step, so distinct renders are bounded by
// distinct content sets, not by user count.
type Group struct {
	OrgID    string
	Sections []Section
	Users    []user.User
}

// GroupByContent buckets users whose ordered section lists are deeply equal.
// Sections are ordered by application name ascending; partial overlap never
// merges groups. Groups never span orgs.
func GroupByContent(contents []UserContent) []Group {
	buckets := make(map[string]*Group)
	var order []string

	for _, c := range contents {
		sections := make([]Section, len(c.Sections))
		copy(sections, c.Sections)
		sort.Slice(sections, func(i, j int) bool {
			return sections[i].Application < sections[j].Application
		})

		fp := fingerprint(c.OrgID, sections)
		g, ok := buckets[fp]
		if !ok {
			g = &Group{OrgID: c.OrgID, Sections: sections}
			buckets[fp] = g
			order = append(order, fp)
		}
		g.Users = append(g.Users, c.User)
	}

	sort.Strings(order)
	groups := make([]Group, 0, len(order))
	for _, fp := range order {
		g := buckets[fp]
		sort.Slice(g.Users, func(i, j int) bool {
			return user.NormalizeUsername(g.Users[i].Username) < user.NormalizeUsername(g.Users[j].Username)
		})
		groups = append(groups, *g)
	}
	return groups
}

// fingerprint canonicalizes a section list. encoding/json sorts map keys, so
// structurally equal contexts produce identical fingerprints regardless of
// accumulation order.
func fingerprint(orgID string, sections []Section) string {
	data, err := json.Marshal(struct {
		OrgID    string    `json:"org_id"`
		Sections []Section `json:"sections"`
	}{OrgID: orgID, Sections: sections})
	if err != nil {
		// Contexts are built from decoded JSON; marshalling them back
		// cannot fail.
		panic(err)
	}
	return string(data)
}
