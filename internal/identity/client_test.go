package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	courier_errors "courier-engine/pkg/errors"
)

// pageHandler serves fixed-size pages from a record slice, honoring
// offset/limit query parameters the way the upstream services do.
func pageHandler(t *testing.T, records []map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := offset + limit
		if offset > len(records) {
			offset = len(records)
		}
		if end > len(records) {
			end = len(records)
		}
		if err := json.NewEncoder(w).Encode(records[offset:end]); err != nil {
			t.Fatalf("encode page: %v", err)
		}
	}
}

func bulkRecords(n int) []map[string]any {
	records := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, map[string]any{
			"username":  fmt.Sprintf("user%03d", i),
			"email":     fmt.Sprintf("user%03d@example.com", i),
			"is_active": true,
			"is_admin":  false,
		})
	}
	return records
}

func TestBulkClientPaginatesUntilShortPage(t *testing.T) {
	records := bulkRecords(25)
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/org1/users", r.URL.Path)
		offsets = append(offsets, r.URL.Query().Get("offset"))
		pageHandler(t, records)(w, r)
	}))
	defer srv.Close()

	client := NewBulkClient(srv.URL, "", 10, time.Second)
	users, err := client.FetchAllUsers(context.Background(), "org1", false)
	require.NoError(t, err)

	assert.Len(t, users, 25)
	assert.Equal(t, []string{"0", "10", "20"}, offsets)
	assert.Equal(t, "user000", users[0].Username)
	assert.Equal(t, "user024", users[24].Username)
}

func TestBulkClientFiltersInactiveUsers(t *testing.T) {
	records := []map[string]any{
		{"username": "active1", "is_active": true},
		{"username": "gone", "is_active": false},
		{"username": "active2", "is_active": true},
	}
	srv := httptest.NewServer(pageHandler(t, records))
	defer srv.Close()

	client := NewBulkClient(srv.URL, "", 10, time.Second)
	users, err := client.FetchAllUsers(context.Background(), "org1", false)
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, "active1", users[0].Username)
	assert.Equal(t, "active2", users[1].Username)
}

func TestDirectoryClientExtractsNestedRecords(t *testing.T) {
	records := []map[string]any{
		{"identity": map[string]any{"user": map[string]any{
			"username":     "jdoe",
			"email":        "jdoe@example.com",
			"is_active":    true,
			"is_org_admin": true,
		}}},
		{"identity": map[string]any{"user": map[string]any{
			"username":  "inactive",
			"is_active": false,
		}}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		pageHandler(t, records)(w, r)
	}))
	defer srv.Close()

	client := NewDirectoryClient(srv.URL, "", 10, time.Second)
	users, err := client.FetchAllUsers(context.Background(), "org1", true)
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, "jdoe", users[0].Username)
	assert.Equal(t, "jdoe@example.com", users[0].Email)
	assert.True(t, users[0].Admin)
}

func TestGroupClientUnknownGroupIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewGroupClient(srv.URL, "", 10, time.Second)
	users, err := client.FetchGroupUsers(context.Background(), "org1", false, "missing")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGroupClientFetchesMembersAfterLookup(t *testing.T) {
	members := []map[string]any{
		{"username": "admin1", "is_active": true, "is_admin": true},
		{"username": "user2", "is_active": true},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups/group1":
			json.NewEncoder(w).Encode(map[string]any{"id": "group1", "name": "ops"})
		case "/groups/group1/users":
			pageHandler(t, members)(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewGroupClient(srv.URL, "", 10, time.Second)
	users, err := client.FetchGroupUsers(context.Background(), "org1", false, "group1")
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, "admin1", users[0].Username)
	assert.True(t, users[0].Admin)
}

func TestServerErrorSurfacesAsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewBulkClient(srv.URL, "", 10, time.Second)
	_, err := client.FetchAllUsers(context.Background(), "org1", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, courier_errors.ErrUpstreamUnavailable)
}

func TestBearerTokenIsSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer psk-token", r.Header.Get("Authorization"))
		pageHandler(t, nil)(w, r)
	}))
	defer srv.Close()

	client := NewBulkClient(srv.URL, "psk-token", 10, time.Second)
	_, err := client.FetchAllUsers(context.Background(), "org1", false)
	require.NoError(t, err)
}
