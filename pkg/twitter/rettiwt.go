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

	"xlytics-backend/internal/sync/domain"
)

// RettiwtClient talks to the sidecar proxy service, which scrapes with
// session cookies instead of OAuth tokens. The proxy keys every lookup by
// handle, so id-based calls go through a handle cache; an id with no cached
// handle fails soft with empty results.
type RettiwtClient struct {
	httpClient *http.Client
	serviceURL string
	username   string
	cookies    string

	mu      sync.Mutex
	self    *domain.Subject
	handles map[string]string // subject id -> handle
}

func NewRettiwtClient(serviceURL, username, cookies string) *RettiwtClient {
	return &RettiwtClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		serviceURL: serviceURL,
		username:   username,
		cookies:    cookies,
		handles:    make(map[string]string),
	}
}

func (c *RettiwtClient) get(ctx context.Context, path string, query url.Values, timeout time.Duration, out any) error {
	u := c.serviceURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.cookies != "" {
		req.Header.Set("X-Rettiwt-Cookies", c.cookies)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return json.Unmarshal(body, out)
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		// The proxy has no refresh path; expired cookies need a new login.
		return domain.ErrReauthRequired
	default:
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return fmt.Errorf("rettiwt: %s returned %d: %s", path, resp.StatusCode, e.Error)
	}
}

// Healthy reports whether the proxy service is reachable.
func (c *RettiwtClient) Healthy(ctx context.Context) bool {
	var out map[string]any
	err := c.get(ctx, "/health", nil, 5*time.Second, &out)
	return err == nil
}

func (c *RettiwtClient) GetSelf(ctx context.Context) (*domain.Subject, error) {
	c.mu.Lock()
	cached := c.self
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	if c.username == "" {
		return nil, nil
	}

	subject, err := c.GetByHandle(ctx, c.username)
	if err != nil || subject == nil {
		return nil, err
	}
	c.mu.Lock()
	c.self = subject
	c.mu.Unlock()
	return subject, nil
}

func (c *RettiwtClient) GetByHandle(ctx context.Context, handle string) (*domain.Subject, error) {
	var env userEnvelope
	err := c.get(ctx, "/api/user/"+url.PathEscape(handle), nil, 0, &env)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	subject := toSubject(env.Data)
	c.mu.Lock()
	c.handles[subject.TwitterID] = subject.Username
	c.mu.Unlock()
	return subject, nil
}

func (c *RettiwtClient) GetRecentPosts(ctx context.Context, subjectID string, maxResults int) ([]domain.Post, error) {
	handle := c.handleForID(subjectID)
	if handle == "" {
		slog.Warn("[Rettiwt] no handle known for subject", "subject_id", subjectID)
		return nil, nil
	}

	query := url.Values{"count": {strconv.Itoa(maxResults)}}
	var env tweetsEnvelope
	err := c.get(ctx, "/api/user/"+url.PathEscape(handle)+"/tweets", query, 0, &env)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toPosts(subjectID, env.Data), nil
}

// GetAllPostsSince delegates pagination to the proxy, which walks its own
// cursor internally. The call is bounded server-side at 500 posts, so the
// timeout is generous.
func (c *RettiwtClient) GetAllPostsSince(ctx context.Context, subjectID string, days int) ([]domain.Post, error) {
	handle := c.handleForID(subjectID)
	if handle == "" {
		slog.Warn("[Rettiwt] no handle known for subject", "subject_id", subjectID)
		return nil, nil
	}

	query := url.Values{
		"days":      {strconv.Itoa(days)},
		"maxTweets": {"500"},
	}
	var env tweetsEnvelope
	err := c.get(ctx, "/api/user/"+url.PathEscape(handle)+"/tweets/all", query, 120*time.Second, &env)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toPosts(subjectID, env.Data), nil
}

func (c *RettiwtClient) GetFollowers(ctx context.Context, subjectID string, maxResults int, cursor string) ([]domain.Connection, string, error) {
	return c.connectionPage(ctx, subjectID, domain.RelationFollower, "/followers", maxResults, cursor)
}

func (c *RettiwtClient) GetFollowing(ctx context.Context, subjectID string, maxResults int, cursor string) ([]domain.Connection, string, error) {
	return c.connectionPage(ctx, subjectID, domain.RelationFollowing, "/following", maxResults, cursor)
}

func (c *RettiwtClient) connectionPage(ctx context.Context, subjectID, relation, endpoint string, maxResults int, cursor string) ([]domain.Connection, string, error) {
	handle := c.handleForID(subjectID)
	if handle == "" {
		slog.Warn("[Rettiwt] no handle known for subject", "subject_id", subjectID)
		return nil, "", nil
	}

	query := url.Values{"count": {strconv.Itoa(maxResults)}}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	var env usersEnvelope
	err := c.get(ctx, "/api/user/"+url.PathEscape(handle)+endpoint, query, 0, &env)
	if errors.Is(err, errNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return toConnections(subjectID, relation, env.Data), env.Meta.NextToken, nil
}

func (c *RettiwtClient) Search(ctx context.Context, q string, maxResults int) ([]domain.Post, error) {
	query := url.Values{
		"query": {q},
		"count": {strconv.Itoa(maxResults)},
	}
	var env tweetsEnvelope
	err := c.get(ctx, "/api/tweets/search", query, 0, &env)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	posts := make([]domain.Post, 0, len(env.Data))
	for _, t := range env.Data {
		posts = append(posts, toPost(t.AuthorID, t))
	}
	return posts, nil
}

// handleForID maps a subject id back to a handle using the lookup cache,
// falling back to the configured login handle.
func (c *RettiwtClient) handleForID(subjectID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[subjectID]; ok {
		return h
	}
	if c.self != nil && c.self.TwitterID == subjectID {
		return c.self.Username
	}
	return c.username
}
