package domain

import "context"

// SocialProvider is the capability contract for the remote service. Exactly
// two implementations exist (official token-bearer API, cookie-bearer proxy
// service); which one is used is decided by configuration at construction.
//
// All methods degrade rather than raise: a missing subject yields empty
// results, a rate limit yields whatever was accumulated so far, and an
// expired credential yields ErrReauthRequired after one refresh attempt.
type SocialProvider interface {
	// GetSelf returns the authenticated subject.
	GetSelf(ctx context.Context) (*Subject, error)

	// GetByHandle resolves a subject by its mutable handle.
	GetByHandle(ctx context.Context, handle string) (*Subject, error)

	// GetRecentPosts returns the subject's posts from the recent window,
	// paginating up to the backend's page cap.
	GetRecentPosts(ctx context.Context, subjectID string, maxResults int) ([]Post, error)

	// GetAllPostsSince returns all posts within the last N days.
	GetAllPostsSince(ctx context.Context, subjectID string, days int) ([]Post, error)

	// GetFollowers returns one page of follower connections plus the
	// continuation token for the next page (empty when exhausted).
	GetFollowers(ctx context.Context, subjectID string, maxResults int, cursor string) ([]Connection, string, error)

	// GetFollowing returns one page of following connections plus the
	// continuation token for the next page (empty when exhausted).
	GetFollowing(ctx context.Context, subjectID string, maxResults int, cursor string) ([]Connection, string, error)

	// Search returns posts matching a free-text query.
	Search(ctx context.Context, query string, maxResults int) ([]Post, error)
}
