package domain

import "time"

// Relation types for connection records.
const (
	RelationFollower  = "follower"
	RelationFollowing = "following"
)

// Connection is one edge of the subject's social graph, keyed by
// (subject_id, relation, other_id). A fresh live fetch of a relation list
// fully overwrites the record; the metric snapshot is whatever the remote
// service reported at fetch time.
type Connection struct {
	SubjectID      string    `json:"subject_id" gorm:"primaryKey"`
	Relation       string    `json:"relation" gorm:"primaryKey"`
	OtherID        string    `json:"other_id" gorm:"primaryKey"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	PostCount      int       `json:"post_count"`
	Verified       bool      `json:"verified"`
	UpdatedAt      time.Time `json:"updated_at"`
}
