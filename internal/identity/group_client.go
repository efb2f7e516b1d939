package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"courier-engine/internal/domain/user"
)

// GroupClient talks to the group service. An unknown group yields an empty
// pool, not an error: group deletion must not break digests that still
// reference it.
type GroupClient struct {
	http     *httpClient
	pageSize int
}

func NewGroupClient(baseURL, token string, pageSize int, timeout time.Duration) *GroupClient {
	return &GroupClient{
		http:     newHTTPClient(baseURL, token, timeout),
		pageSize: pageSize,
	}
}

type groupRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type groupUserRecord struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Admin    bool   `json:"is_admin"`
	Active   bool   `json:"is_active"`
}

// GetGroup looks up a group within an org. A 404 reports (nil, nil).
func (c *GroupClient) GetGroup(ctx context.Context, orgID, groupID string) (*groupRecord, error) {
	query := url.Values{}
	query.Set("org_id", orgID)
	body, status, err := c.http.get(ctx, "/groups/"+groupID, query)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	var g groupRecord
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, fmt.Errorf("failed to decode group %s: %w", groupID, err)
	}
	return &g, nil
}

// FetchGroupUsers pages through the group membership until a short page,
// filtering inactive users at this boundary.
func (c *GroupClient) FetchGroupUsers(ctx context.Context, orgID string, adminsOnly bool, groupID string) ([]user.User, error) {
	group, err := c.GetGroup(ctx, orgID, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, nil
	}

	var users []user.User
	offset := 0
	for {
		query := url.Values{}
		query.Set("org_id", orgID)
		query.Set("admin_only", strconv.FormatBool(adminsOnly))
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(c.pageSize))

		body, status, err := c.http.get(ctx, "/groups/"+groupID+"/users", query)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, nil
		}

		var page []groupUserRecord
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode group users page: %w", err)
		}
		for _, r := range page {
			if !r.Active {
				continue
			}
			users = append(users, user.User{
				Username: r.Username,
				Email:    r.Email,
				Admin:    r.Admin,
				Active:   true,
			})
		}
		if len(page) < c.pageSize {
			return users, nil
		}
		offset += c.pageSize
	}
}
