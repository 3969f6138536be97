package domain

import "time"

// Subject is the account whose data is being synchronized. Credentials are
// never stored here; they live in configuration and belong to the caller.
type Subject struct {
	TwitterID       string    `json:"twitter_id" gorm:"primaryKey"`
	Username        string    `json:"username" gorm:"index"`
	Name            string    `json:"name"`
	Bio             string    `json:"bio,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	Verified        bool      `json:"verified"`
	FollowersCount  int       `json:"followers_count"`
	FollowingCount  int       `json:"following_count"`
	PostCount       int       `json:"post_count"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Subject) TableName() string {
	return "users"
}
