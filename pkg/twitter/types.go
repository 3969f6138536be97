package twitter

import (
	"io"
	"net/http"
	"time"

	"xlytics-backend/internal/sync/domain"
)

// Both backends return the same normalized JSON envelope: a data payload
// plus an optional meta object carrying the continuation token.

const liveTimeLayout = "2006-01-02T15:04:05.000Z"

type publicMetrics struct {
	FollowersCount  int `json:"followers_count"`
	FollowingCount  int `json:"following_count"`
	TweetCount      int `json:"tweet_count"`
	LikeCount       int `json:"like_count"`
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	QuoteCount      int `json:"quote_count"`
	BookmarkCount   int `json:"bookmark_count"`
	ImpressionCount int `json:"impression_count"`
}

type userJSON struct {
	ID              string        `json:"id"`
	Username        string        `json:"username"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	ProfileImageURL string        `json:"profile_image_url"`
	Verified        bool          `json:"verified"`
	PublicMetrics   publicMetrics `json:"public_metrics"`
}

type tweetJSON struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	CreatedAt     string        `json:"created_at"`
	AuthorID      string        `json:"author_id"`
	PublicMetrics publicMetrics `json:"public_metrics"`
}

type pageMeta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type userEnvelope struct {
	Data userJSON `json:"data"`
}

type tweetsEnvelope struct {
	Data []tweetJSON `json:"data"`
	Meta pageMeta    `json:"meta"`
}

type usersEnvelope struct {
	Data []userJSON `json:"data"`
	Meta pageMeta   `json:"meta"`
}

func toSubject(u userJSON) *domain.Subject {
	return &domain.Subject{
		TwitterID:       u.ID,
		Username:        u.Username,
		Name:            u.Name,
		Bio:             u.Description,
		ProfileImageURL: u.ProfileImageURL,
		Verified:        u.Verified,
		FollowersCount:  u.PublicMetrics.FollowersCount,
		FollowingCount:  u.PublicMetrics.FollowingCount,
		PostCount:       u.PublicMetrics.TweetCount,
	}
}

func toPost(subjectID string, t tweetJSON) domain.Post {
	return domain.Post{
		SubjectID:       subjectID,
		PostID:          t.ID,
		PostedAt:        parseLiveTime(t.CreatedAt),
		Text:            t.Text,
		LikeCount:       t.PublicMetrics.LikeCount,
		RepostCount:     t.PublicMetrics.RetweetCount,
		ReplyCount:      t.PublicMetrics.ReplyCount,
		QuoteCount:      t.PublicMetrics.QuoteCount,
		BookmarkCount:   t.PublicMetrics.BookmarkCount,
		ImpressionCount: t.PublicMetrics.ImpressionCount,
		Source:          domain.SourceLive,
	}
}

func toConnection(subjectID, relation string, u userJSON) domain.Connection {
	return domain.Connection{
		SubjectID:      subjectID,
		Relation:       relation,
		OtherID:        u.ID,
		Username:       u.Username,
		Name:           u.Name,
		FollowersCount: u.PublicMetrics.FollowersCount,
		FollowingCount: u.PublicMetrics.FollowingCount,
		PostCount:      u.PublicMetrics.TweetCount,
		Verified:       u.Verified,
	}
}

func toPosts(subjectID string, tweets []tweetJSON) []domain.Post {
	posts := make([]domain.Post, 0, len(tweets))
	for _, t := range tweets {
		posts = append(posts, toPost(subjectID, t))
	}
	return posts
}

func toConnections(subjectID, relation string, users []userJSON) []domain.Connection {
	conns := make([]domain.Connection, 0, len(users))
	for _, u := range users {
		conns = append(conns, toConnection(subjectID, relation, u))
	}
	return conns
}

// readBody drains a response body, capped at 10 MiB.
func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

// parseLiveTime parses the millisecond UTC format the services return, with
// plain RFC 3339 as a fallback. Unparseable values become nil.
func parseLiveTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{liveTimeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
