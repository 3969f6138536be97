package usecase

import (
	"context"

	"xlytics-backend/internal/analysis"
	"xlytics-backend/internal/sync/domain"
)

// SyncResult reports what one post sync run did.
type SyncResult struct {
	Subject *domain.Subject `json:"subject"`
	Fetched int             `json:"fetched"`
	Created int             `json:"created"`
	Skipped int             `json:"skipped"`
}

// ArchiveResult reports what one archive ingestion did.
type ArchiveResult struct {
	Posts        int `json:"posts"`
	PostsCreated int `json:"posts_created"`
	PostsUpdated int `json:"posts_updated"`
	Followers    int `json:"followers"`
	Following    int `json:"following"`
	Likes        int `json:"likes"`
}

// SyncUsecase is the cache-aware synchronization surface. Reads are served
// from the store while fresh; stale or forced reads fetch live, persist, and
// fall back to whatever the store holds when the fetch fails.
//
// Methods may return data together with domain.ErrReauthRequired; the data
// is valid and the error is a non-fatal signal that credentials expired.
type SyncUsecase interface {
	// ResolveSubject finds a subject by handle, live first, store second.
	ResolveSubject(ctx context.Context, handle string) (*domain.Subject, error)

	// RecentPosts returns the subject's recent posts, live or stored
	// depending on freshness.
	RecentPosts(ctx context.Context, subjectID string, force bool) ([]domain.Post, error)

	// Connections returns the subject's edges for one relation type, live
	// or stored depending on freshness.
	Connections(ctx context.Context, subjectID, relation string, force bool) ([]domain.Connection, error)

	// SyncPosts resolves the handle and pulls all posts from the lookback
	// window into the store.
	SyncPosts(ctx context.Context, handle string, days int) (*SyncResult, error)

	// IngestArchive loads an unpacked archive export directory into the
	// store with the authoritative overwrite policy.
	IngestArchive(ctx context.Context, subjectID, dir string) (*ArchiveResult, error)

	// Reconcile computes the relationship partition and quality metrics
	// from the subject's follower and following sets.
	Reconcile(ctx context.Context, subjectID string, force bool) (*analysis.Reconciliation, error)

	// Summary aggregates engagement over the subject's stored posts.
	Summary(ctx context.Context, subjectID string, force bool) (*analysis.MetricsSummary, error)

	// SearchStoredPosts fuzzy-matches the query against the subject's
	// stored posts, most relevant first.
	SearchStoredPosts(ctx context.Context, subjectID, query string) ([]domain.Post, error)

	// SearchLive runs a free-text search against the remote service.
	SearchLive(ctx context.Context, query string, maxResults int) ([]domain.Post, error)
}
