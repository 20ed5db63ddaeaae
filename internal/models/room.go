package models

// Room represents a named broadcast channel with a unique, URL-safe slug.
// Rooms are created out-of-band and are immutable once messages reference
// them.
type Room struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
