package domain

import "time"

// Data classes with their own freshness tracking. Posts and the two relation
// lists have dedicated collections; anything else lands in the generic cache.
const (
	ClassPosts         = "recent_posts"
	ClassFollowers     = "followers"
	ClassFollowing     = "following"
	ClassArchiveUpload = "archive_upload"
)

// ClassForRelation maps a connection relation to its freshness data class.
func ClassForRelation(relation string) string {
	if relation == RelationFollower {
		return ClassFollowers
	}
	return ClassFollowing
}

// RelationForClass is the inverse mapping, used when a class age is measured
// from the connections collection.
func RelationForClass(dataClass string) string {
	if dataClass == ClassFollowers {
		return RelationFollower
	}
	return RelationFollowing
}

// CacheEntry is the generic fallback cache row for data classes without a
// dedicated collection, and the fetch stamp for classes that have one.
// Unique on (subject_id, data_class).
type CacheEntry struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	SubjectID string    `json:"subject_id" gorm:"uniqueIndex:idx_subject_class;not null"`
	DataClass string    `json:"data_class" gorm:"uniqueIndex:idx_subject_class;not null"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CacheEntry) TableName() string {
	return "generic_cache"
}
