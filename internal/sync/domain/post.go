package domain

import "time"

// Provenance of a stored post record.
const (
	SourceArchive = "archive"
	SourceLive    = "live"
)

// Post is the canonical post record, keyed by (subject_id, post_id).
// PostedAt is nil when the source carried a date in neither supported format.
type Post struct {
	SubjectID       string     `json:"subject_id" gorm:"primaryKey"`
	PostID          string     `json:"post_id" gorm:"primaryKey"`
	PostedAt        *time.Time `json:"created_at" gorm:"column:created_at;index"`
	Text            string     `json:"text"`
	LikeCount       int        `json:"like_count"`
	RepostCount     int        `json:"repost_count"`
	ReplyCount      int        `json:"reply_count"`
	QuoteCount      int        `json:"quote_count"`
	BookmarkCount   int        `json:"bookmark_count"`
	ImpressionCount int        `json:"impression_count"`
	IsReply         bool       `json:"is_reply"`
	IsRepost        bool       `json:"is_repost"`
	Source          string     `json:"source"`
	SyncedAt        time.Time  `json:"synced_at" gorm:"index"`
}

// Engagement is the sum of active interactions with the post. Impressions
// are views, not engagement, and are excluded.
func (p *Post) Engagement() int {
	return p.LikeCount + p.RepostCount + p.ReplyCount + p.QuoteCount
}
