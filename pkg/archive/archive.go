package archive

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"xlytics-backend/internal/sync/domain"
)

// Archive exports wrap each dataset in a JS assignment like
// `window.YTD.tweets.part0 = [...]`. The bracket-anchored capture pulls the
// JSON array out of the blob regardless of the entity name or part number.
var blobPattern = regexp.MustCompile(`(?s)window\.YTD\.\w+\.part\d+\s*=\s*(\[.*\])`)

// TimeLayout is the date format used throughout archive exports.
const TimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Export holds everything usable from one unpacked archive directory.
// Missing or malformed files leave the corresponding field empty.
type Export struct {
	Account      *domain.Subject
	Posts        []domain.Post
	FollowerIDs  []string
	FollowingIDs []string
	LikeCount    int
}

type tweetEnvelope struct {
	Tweet tweetRecord `json:"tweet"`
}

// Counts arrive as JSON strings in real exports, so json.Number covers both.
type tweetRecord struct {
	IDStr             string      `json:"id_str"`
	CreatedAt         string      `json:"created_at"`
	FullText          string      `json:"full_text"`
	FavoriteCount     json.Number `json:"favorite_count"`
	RetweetCount      json.Number `json:"retweet_count"`
	InReplyToStatusID *string     `json:"in_reply_to_status_id"`
	Retweeted         bool        `json:"retweeted"`
}

type followerEnvelope struct {
	Follower edgeRecord `json:"follower"`
}

type followingEnvelope struct {
	Following edgeRecord `json:"following"`
}

type edgeRecord struct {
	AccountID string `json:"accountId"`
}

type accountEnvelope struct {
	Account accountRecord `json:"account"`
}

type accountRecord struct {
	AccountID          string `json:"accountId"`
	Username           string `json:"username"`
	AccountDisplayName string `json:"accountDisplayName"`
}

type profileEnvelope struct {
	Profile profileRecord `json:"profile"`
}

type profileRecord struct {
	Description struct {
		Bio string `json:"bio"`
	} `json:"description"`
	AvatarMediaURL string `json:"avatarMediaUrl"`
}

// Load reads an unpacked archive directory and normalizes whatever it finds.
// It never returns an error: files that are missing or do not parse are
// logged and treated as empty datasets.
func Load(dir string) *Export {
	ex := &Export{}

	var tweets []tweetEnvelope
	extract(filepath.Join(dir, "tweets.js"), &tweets)
	for _, env := range tweets {
		if p, ok := toPost(env.Tweet); ok {
			ex.Posts = append(ex.Posts, p)
		}
	}

	var followers []followerEnvelope
	extract(filepath.Join(dir, "follower.js"), &followers)
	for _, env := range followers {
		if env.Follower.AccountID != "" {
			ex.FollowerIDs = append(ex.FollowerIDs, env.Follower.AccountID)
		}
	}

	var following []followingEnvelope
	extract(filepath.Join(dir, "following.js"), &following)
	for _, env := range following {
		if env.Following.AccountID != "" {
			ex.FollowingIDs = append(ex.FollowingIDs, env.Following.AccountID)
		}
	}

	var likes []json.RawMessage
	extract(filepath.Join(dir, "like.js"), &likes)
	ex.LikeCount = len(likes)

	var accounts []accountEnvelope
	extract(filepath.Join(dir, "account.js"), &accounts)
	if len(accounts) > 0 {
		acct := accounts[0].Account
		ex.Account = &domain.Subject{
			TwitterID: acct.AccountID,
			Username:  acct.Username,
			Name:      acct.AccountDisplayName,
		}
	}

	var profiles []profileEnvelope
	extract(filepath.Join(dir, "profile.js"), &profiles)
	if len(profiles) > 0 && ex.Account != nil {
		ex.Account.Bio = profiles[0].Profile.Description.Bio
		ex.Account.ProfileImageURL = profiles[0].Profile.AvatarMediaURL
	}

	return ex
}

// extract reads one wrapped-array file into out. A missing file, a blob
// without the expected assignment, or invalid JSON all leave out untouched.
func extract(path string, out any) {
	content, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("[Archive] file not readable", "path", path, "error", err)
		return
	}
	m := blobPattern.FindSubmatch(content)
	if m == nil {
		slog.Warn("[Archive] no data blob found", "path", path)
		return
	}
	if err := json.Unmarshal(m[1], out); err != nil {
		slog.Warn("[Archive] malformed data blob", "path", path, "error", err)
	}
}

func toPost(t tweetRecord) (domain.Post, bool) {
	if t.IDStr == "" {
		return domain.Post{}, false
	}
	return domain.Post{
		PostID:      t.IDStr,
		PostedAt:    ParseTime(t.CreatedAt),
		Text:        t.FullText,
		LikeCount:   toInt(t.FavoriteCount),
		RepostCount: toInt(t.RetweetCount),
		IsReply:     t.InReplyToStatusID != nil || strings.HasPrefix(t.FullText, "@"),
		IsRepost:    t.Retweeted || strings.HasPrefix(t.FullText, "RT @"),
		Source:      domain.SourceArchive,
	}, true
}

// ParseTime parses the archive date format, returning nil when the value
// does not match.
func ParseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func toInt(n json.Number) int {
	v, err := n.Int64()
	if err != nil {
		return 0
	}
	return int(v)
}
