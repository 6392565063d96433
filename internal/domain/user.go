package domain

import "time"

// User is a library account. Authentication lives outside this server;
// users exist so visibility rules and annotations have an owner.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rating is a per-user rating/favorite annotation on any entity.
// Rating100 is 0-100; zero with Favorite=false means "rated nothing yet"
// and such rows are normally absent rather than stored.
type Rating struct {
	UserID     string     `json:"user_id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Rating100  int        `json:"rating100"`
	Favorite   bool       `json:"favorite"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// WatchStats is a per-user playback summary for a leaf entity.
type WatchStats struct {
	UserID          string     `json:"user_id"`
	EntityType      EntityType `json:"entity_type"`
	EntityID        string     `json:"entity_id"`
	ViewCount       int        `json:"view_count"`
	PlayDurationSec int        `json:"play_duration_sec"`
	LastViewedAt    *time.Time `json:"last_viewed_at,omitempty"`
}
