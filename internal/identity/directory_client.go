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

// DirectoryClient is the identity-service backend. Its records arrive as a
// nested attribute envelope that needs name/email/permission extraction.
type DirectoryClient struct {
	http     *httpClient
	pageSize int
}

func NewDirectoryClient(baseURL, token string, pageSize int, timeout time.Duration) *DirectoryClient {
	return &DirectoryClient{
		http:     newHTTPClient(baseURL, token, timeout),
		pageSize: pageSize,
	}
}

type directoryRecord struct {
	Identity struct {
		User struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Active   bool   `json:"is_active"`
			OrgAdmin bool   `json:"is_org_admin"`
		} `json:"user"`
	} `json:"identity"`
}

// FetchAllUsers pages through the directory until a short page. The directory
// is already scoped to the caller's org, so orgID is unused here; it is part
// of the signature so the backends stay interchangeable.
func (c *DirectoryClient) FetchAllUsers(ctx context.Context, _ string, adminsOnly bool) ([]user.User, error) {
	var users []user.User
	offset := 0
	for {
		query := url.Values{}
		query.Set("admin_only", strconv.FormatBool(adminsOnly))
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(c.pageSize))

		body, _, err := c.http.get(ctx, "/users", query)
		if err != nil {
			return nil, err
		}

		var page []directoryRecord
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode directory page: %w", err)
		}
		for _, r := range page {
			u := r.Identity.User
			if !u.Active {
				continue
			}
			users = append(users, user.User{
				Username: u.Username,
				Email:    u.Email,
				Admin:    u.OrgAdmin,
				Active:   true,
			})
		}
		if len(page) < c.pageSize {
			return users, nil
		}
		offset += c.pageSize
	}
}
