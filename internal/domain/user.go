package domain

import "time"

// UsersCollection stores the accounts allowed to use the service.
const UsersCollection = "users"

// User represents an account allowed to report results. ID is the case-folded
// username so lookups are case-insensitive.
type User struct {
	ID       string     `json:"_id"`
	Username string     `json:"username"`
	Token    string     `json:"token,omitempty"`
	Time     *time.Time `json:"time,omitempty"`
}

// HasSession reports whether a token has been issued to the user.
func (u User) HasSession() bool {
	return u.Token != ""
}
