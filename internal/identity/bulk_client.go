package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"courier-engine/internal/domain/user"
)

// BulkClient is the bulk-user-service backend: lightweight flat records,
// org-scoped endpoint, larger default pages.
type BulkClient struct {
	http     *httpClient
	pageSize int
}

func NewBulkClient(baseURL, token string, pageSize int, timeout time.Duration) *BulkClient {
	return &BulkClient{
		http:     newHTTPClient(baseURL, token, timeout),
		pageSize: pageSize,
	}
}

type bulkUserRecord struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Admin    bool   `json:"is_admin"`
	Active   bool   `json:"is_active"`
}

func (c *BulkClient) FetchAllUsers(ctx context.Context, orgID string, adminsOnly bool) ([]user.User, error) {
	var users []user.User
	offset := 0
	for {
		query := url.Values{}
		query.Set("admin_only", strconv.FormatBool(adminsOnly))
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(c.pageSize))

		body, _, err := c.http.get(ctx, "/orgs/"+orgID+"/users", query)
		if err != nil {
			return nil, err
		}

		var page []bulkUserRecord
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode bulk users page: %w", err)
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
