package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"xlytics-backend/internal/sync/domain"
)

// TokenUpdateFunc is called after a successful token refresh so the caller
// can persist the new credential pair.
type TokenUpdateFunc func(token *oauth2.Token) error

const (
	officialBaseURL  = "https://api.twitter.com/2"
	officialTokenURL = "https://api.twitter.com/2/oauth2/token"

	// 32 pages of 100 posts bounds a timeline fetch at ~3200 posts.
	defaultMaxPages = 32

	userFields  = "id,username,name,description,profile_image_url,public_metrics,verified,created_at"
	tweetFields = "created_at,public_metrics,text,author_id"
)

var errNotFound = errors.New("twitter: not found")

// OfficialClient talks to the official API v2 with an OAuth bearer token.
// A 401 triggers exactly one refresh-and-retry per call; a 429 stops
// pagination and keeps whatever pages were already accumulated.
type OfficialClient struct {
	httpClient   *http.Client
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	maxPages     int

	onTokenRefresh TokenUpdateFunc

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	self         *domain.Subject
}

func NewOfficialClient(clientID, clientSecret, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) *OfficialClient {
	return &OfficialClient{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        officialBaseURL,
		tokenURL:       officialTokenURL,
		clientID:       clientID,
		clientSecret:   clientSecret,
		accessToken:    accessToken,
		refreshToken:   refreshToken,
		maxPages:       defaultMaxPages,
		onTokenRefresh: onTokenRefresh,
	}
}

// get performs one authorized GET. It retries once after refreshing an
// expired token; a second 401, or a failed refresh, yields
// domain.ErrReauthRequired.
func (c *OfficialClient) get(ctx context.Context, path string, query url.Values, out any) error {
	status, body, err := c.do(ctx, path, query)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		if err := c.refreshAccessToken(ctx); err != nil {
			slog.Warn("[OfficialAPI] token refresh failed", "error", err)
			return domain.ErrReauthRequired
		}
		status, body, err = c.do(ctx, path, query)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return domain.ErrReauthRequired
		}
	}

	switch {
	case status == http.StatusOK:
		return json.Unmarshal(body, out)
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case status == http.StatusNotFound:
		return errNotFound
	default:
		var e apiError
		_ = json.Unmarshal(body, &e)
		return fmt.Errorf("twitter: %s returned %d: %s", path, status, e.Detail)
	}
}

func (c *OfficialClient) do(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// refreshAccessToken exchanges the refresh token for a new credential pair
// and notifies the registered callback so it can be persisted.
func (c *OfficialClient) refreshAccessToken(ctx context.Context) error {
	c.mu.Lock()
	refreshToken := c.refreshToken
	c.mu.Unlock()

	if refreshToken == "" {
		return errors.New("no refresh token")
	}

	conf := &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: c.tokenURL},
	}
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.refreshToken = token.RefreshToken
	}
	c.mu.Unlock()

	if c.onTokenRefresh != nil {
		if err := c.onTokenRefresh(token); err != nil {
			slog.Warn("[OfficialAPI] failed to persist refreshed token", "error", err)
		}
	}
	return nil
}

func (c *OfficialClient) GetSelf(ctx context.Context) (*domain.Subject, error) {
	c.mu.Lock()
	cached := c.self
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	query := url.Values{"user.fields": {userFields}}
	var env userEnvelope
	if err := c.get(ctx, "/users/me", query, &env); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	subject := toSubject(env.Data)

	c.mu.Lock()
	c.self = subject
	c.mu.Unlock()
	return subject, nil
}

func (c *OfficialClient) GetByHandle(ctx context.Context, handle string) (*domain.Subject, error) {
	query := url.Values{"user.fields": {userFields}}
	var env userEnvelope
	if err := c.get(ctx, "/users/by/username/"+url.PathEscape(handle), query, &env); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toSubject(env.Data), nil
}

// GetRecentPosts pages through the subject's timeline from the last 90 days,
// up to the page cap.
func (c *OfficialClient) GetRecentPosts(ctx context.Context, subjectID string, maxResults int) ([]domain.Post, error) {
	start := time.Now().UTC().AddDate(0, 0, -90)
	return c.paginateTweets(ctx, subjectID, maxResults, start)
}

// GetAllPostsSince pages through the subject's timeline back to the cutoff,
// up to the page cap.
func (c *OfficialClient) GetAllPostsSince(ctx context.Context, subjectID string, days int) ([]domain.Post, error) {
	start := time.Now().UTC().AddDate(0, 0, -days)
	return c.paginateTweets(ctx, subjectID, 100, start)
}

func (c *OfficialClient) paginateTweets(ctx context.Context, subjectID string, maxResults int, start time.Time) ([]domain.Post, error) {
	pageSize := maxResults
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	var posts []domain.Post
	nextToken := ""
	for page := 0; page < c.maxPages; page++ {
		query := url.Values{
			"max_results":  {strconv.Itoa(pageSize)},
			"start_time":   {start.Format(time.RFC3339)},
			"tweet.fields": {tweetFields},
		}
		if nextToken != "" {
			query.Set("pagination_token", nextToken)
		}

		var env tweetsEnvelope
		err := c.get(ctx, "/users/"+url.PathEscape(subjectID)+"/tweets", query, &env)
		if errors.Is(err, domain.ErrRateLimited) {
			slog.Warn("[OfficialAPI] rate limited, keeping partial results",
				"subject_id", subjectID, "pages", page, "posts", len(posts))
			return posts, nil
		}
		if errors.Is(err, errNotFound) {
			return posts, nil
		}
		if err != nil {
			return posts, err
		}

		posts = append(posts, toPosts(subjectID, env.Data)...)
		nextToken = env.Meta.NextToken
		if nextToken == "" {
			break
		}
	}
	return posts, nil
}

func (c *OfficialClient) GetFollowers(ctx context.Context, subjectID string, maxResults int, cursor string) ([]domain.Connection, string, error) {
	return c.connectionPage(ctx, subjectID, domain.RelationFollower, "/followers", maxResults, cursor)
}

func (c *OfficialClient) GetFollowing(ctx context.Context, subjectID string, maxResults int, cursor string) ([]domain.Connection, string, error) {
	return c.connectionPage(ctx, subjectID, domain.RelationFollowing, "/following", maxResults, cursor)
}

func (c *OfficialClient) connectionPage(ctx context.Context, subjectID, relation, endpoint string, maxResults int, cursor string) ([]domain.Connection, string, error) {
	pageSize := maxResults
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}
	query := url.Values{
		"max_results": {strconv.Itoa(pageSize)},
		"user.fields": {userFields},
	}
	if cursor != "" {
		query.Set("pagination_token", cursor)
	}

	var env usersEnvelope
	err := c.get(ctx, "/users/"+url.PathEscape(subjectID)+endpoint, query, &env)
	if errors.Is(err, errNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return toConnections(subjectID, relation, env.Data), env.Meta.NextToken, nil
}

func (c *OfficialClient) Search(ctx context.Context, q string, maxResults int) ([]domain.Post, error) {
	pageSize := maxResults
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	query := url.Values{
		"query":        {q},
		"max_results":  {strconv.Itoa(pageSize)},
		"tweet.fields": {tweetFields},
	}

	var env tweetsEnvelope
	err := c.get(ctx, "/tweets/search/recent", query, &env)
	if errors.Is(err, errNotFound) || errors.Is(err, domain.ErrRateLimited) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Search results belong to many authors; keep the reported author id.
	posts := make([]domain.Post, 0, len(env.Data))
	for _, t := range env.Data {
		posts = append(posts, toPost(t.AuthorID, t))
	}
	return posts, nil
}
