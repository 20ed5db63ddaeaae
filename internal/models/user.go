package models

import "time"

// User represents a registered chat participant. Accounts are created
// out-of-band (chatctl or an external auth system); this service reads them
// and updates LastSeen only.
type User struct {
	ID           int64      `json:"id"`
	Handle       string     `json:"handle"`
	PasswordHash string     `json:"-"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
