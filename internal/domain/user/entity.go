package user

import "strings"

// User is a recipient candidate as seen past the identity source boundary.
// Only active users cross that boundary.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Admin    bool   `json:"admin"`
	Active   bool   `json:"active"`
}

// NormalizeUsername lowercases a username for set membership checks.
// Upstream backends are inconsistent about casing.
func NormalizeUsername(username string) string {
	return strings.ToLower(username)
}
