package recipients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier-engine/internal/domain/recipient"
	"courier-engine/internal/domain/user"
	"courier-engine/pkg/logger"
)

type fakeSource struct {
	orgUsers   map[string][]user.User
	groupUsers map[string][]user.User
	allCalls   int
	groupCalls int
	err        error
}

func (f *fakeSource) FetchAllUsers(_ context.Context, orgID string, adminsOnly bool) ([]user.User, error) {
	f.allCalls++
	if f.err != nil {
		return nil, f.err
	}
	return filterAdmins(f.orgUsers[orgID], adminsOnly), nil
}

func (f *fakeSource) FetchGroupUsers(_ context.Context, _ string, adminsOnly bool, groupID string) ([]user.User, error) {
	f.groupCalls++
	if f.err != nil {
		return nil, f.err
	}
	return filterAdmins(f.groupUsers[groupID], adminsOnly), nil
}

func filterAdmins(users []user.User, adminsOnly bool) []user.User {
	if !adminsOnly {
		return users
	}
	var out []user.User
	for _, u := range users {
		if u.Admin {
			out = append(out, u)
		}
	}
	return out
}

func testLogger() *logger.Logger {
	return logger.New(logger.DevelopmentMode)
}

func set(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func usernames(users []user.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func threeUsers() []user.User {
	return []user.User{
		{Username: "user1", Email: "user1@example.com", Active: true},
		{Username: "user2", Email: "user2@example.com", Active: true},
		{Username: "user3", Email: "user3@example.com", Active: true},
	}
}

func TestResolveOptInKeepsOnlySubscribed(t *testing.T) {
	src := &fakeSource{orgUsers: map[string][]user.User{"org1": threeUsers()}}
	r := NewResolver(src, testLogger())

	users, err := r.Resolve(context.Background(), "org1", []recipient.Settings{{}}, set("user1", "user3"), nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"user1", "user3"}, usernames(users))
}

func TestResolveOptOutDropsOnlyUnsubscribed(t *testing.T) {
	src := &fakeSource{orgUsers: map[string][]user.User{"org1": threeUsers()}}
	r := NewResolver(src, testLogger())

	// user1 explicitly subscribed, user2 explicitly unsubscribed, user3 never
	// touched their preferences: the default-subscribed model keeps user3.
	users, err := r.Resolve(context.Background(), "org1", []recipient.Settings{{}}, set("user1"), set("user2"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"user1", "user3"}, usernames(users))
}

func TestResolveUnionLaw(t *testing.T) {
	src := &fakeSource{
		orgUsers: map[string][]user.User{"org1": threeUsers()},
		groupUsers: map[string][]user.User{
			"group1": {{Username: "user2", Active: true}},
		},
	}
	r := NewResolver(src, testLogger())

	s1 := recipient.Settings{Users: []string{"user1"}}
	s2 := recipient.Settings{GroupID: "group1"}

	both, err := r.Resolve(context.Background(), "org1", []recipient.Settings{s1, s2}, nil, nil, false)
	require.NoError(t, err)

	only1, err := r.Resolve(context.Background(), "org1", []recipient.Settings{s1}, nil, nil, false)
	require.NoError(t, err)
	only2, err := r.Resolve(context.Background(), "org1", []recipient.Settings{s2}, nil, nil, false)
	require.NoError(t, err)

	union := set(usernames(only1)...)
	for _, n := range usernames(only2) {
		union[n] = struct{}{}
	}
	assert.Len(t, both, len(union))
	for _, u := range both {
		assert.Contains(t, union, u.Username)
	}
}

func TestResolveSingleUpstreamCallPerCombination(t *testing.T) {
	src := &fakeSource{orgUsers: map[string][]user.User{"org1": threeUsers()}}
	r := NewResolver(src, testLogger())

	// Three settings, all requesting (org1, adminsOnly=false): one fetch.
	settings := []recipient.Settings{
		{},
		{Users: []string{"user1"}},
		{IgnorePreferences: true},
	}
	_, err := r.Resolve(context.Background(), "org1", settings, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, src.allCalls)
	assert.Equal(t, 0, src.groupCalls)
}

func TestResolveDistinctCombinationsFetchSeparately(t *testing.T) {
	src := &fakeSource{
		orgUsers: map[string][]user.User{"org1": threeUsers()},
		groupUsers: map[string][]user.User{
			"group1": {{Username: "user1", Active: true}},
		},
	}
	r := NewResolver(src, testLogger())

	settings := []recipient.Settings{
		{},
		{AdminsOnly: true},
		{GroupID: "group1"},
	}
	_, err := r.Resolve(context.Background(), "org1", settings, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 2, src.allCalls)
	assert.Equal(t, 1, src.groupCalls)
}

func TestResolveExplicitUserRestriction(t *testing.T) {
	src := &fakeSource{orgUsers: map[string][]user.User{"org1": threeUsers()}}
	r := NewResolver(src, testLogger())

	users, err := r.Resolve(context.Background(), "org1",
		[]recipient.Settings{{Users: []string{"USER2"}}}, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"user2"}, usernames(users))
}

func TestResolveIgnorePreferencesBypassesFiltering(t *testing.T) {
	src := &fakeSource{orgUsers: map[string][]user.User{"org1": threeUsers()}}
	r := NewResolver(src, testLogger())

	users, err := r.Resolve(context.Background(), "org1",
		[]recipient.Settings{{IgnorePreferences: true}}, nil, set("user1", "user2", "user3"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"user1", "user2", "user3"}, usernames(users))
}

func TestResolveAdminsOnlyGroupPool(t *testing.T) {
	src := &fakeSource{
		groupUsers: map[string][]user.User{
			"group1": {
				{Username: "admin1", Admin: true, Active: true},
				{Username: "user2", Active: true},
			},
		},
	}
	r := NewResolver(src, testLogger())

	users, err := r.Resolve(context.Background(), "org1",
		[]recipient.Settings{{AdminsOnly: true, GroupID: "group1", IgnorePreferences: true}}, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin1"}, usernames(users))
}

func TestResolveUnknownGroupYieldsEmptyPool(t *testing.T) {
	src := &fakeSource{groupUsers: map[string][]user.User{}}
	r := NewResolver(src, testLogger())

	users, err := r.Resolve(context.Background(), "org1",
		[]recipient.Settings{{GroupID: "missing"}}, nil, nil, false)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestResolveUpstreamFailurePropagates(t *testing.T) {
	upstreamErr := errors.New("identity service down")
	src := &fakeSource{err: upstreamErr}
	r := NewResolver(src, testLogger())

	_, err := r.Resolve(context.Background(), "org1", []recipient.Settings{{}}, nil, nil, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, upstreamErr)
}

func TestResolveValueEqualSettingsDeduped(t *testing.T) {
	src := &fakeSource{orgUsers: map[string][]user.User{"org1": threeUsers()}}
	r := NewResolver(src, testLogger())

	// Two distinct instances with identical field values behave as one.
	settings := []recipient.Settings{
		{Users: []string{"user1", "user2"}},
		{Users: []string{"user2", "user1"}},
	}
	users, err := r.Resolve(context.Background(), "org1", settings, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"user1", "user2"}, usernames(users))
	assert.Equal(t, 1, src.allCalls)
}
