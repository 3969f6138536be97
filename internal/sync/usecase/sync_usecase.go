package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"xlytics-backend/internal/analysis"
	"xlytics-backend/internal/sync/domain"
	"xlytics-backend/internal/sync/repository"
	"xlytics-backend/pkg/archive"
	"xlytics-backend/pkg/fuzzy"
)

// syncUsecase implements SyncUsecase
type syncUsecase struct {
	provider  domain.SocialProvider
	users     repository.UserRepository
	posts     repository.PostRepository
	conns     repository.ConnectionRepository
	cache     repository.CacheRepository
	freshness *Freshness
}

// NewSyncUsecase creates a new instance of syncUsecase
func NewSyncUsecase(
	provider domain.SocialProvider,
	users repository.UserRepository,
	posts repository.PostRepository,
	conns repository.ConnectionRepository,
	cache repository.CacheRepository,
	freshness *Freshness,
) SyncUsecase {
	return &syncUsecase{
		provider:  provider,
		users:     users,
		posts:     posts,
		conns:     conns,
		cache:     cache,
		freshness: freshness,
	}
}

func (u *syncUsecase) ResolveSubject(ctx context.Context, handle string) (*domain.Subject, error) {
	subject, err := u.provider.GetByHandle(ctx, handle)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		slog.Warn("[Sync] live subject lookup failed, trying store", "handle", handle, "error", err)
	}
	if subject != nil {
		subject.LastSyncedAt = time.Now()
		if upsertErr := u.users.Upsert(subject); upsertErr != nil {
			slog.Warn("[Sync] failed to persist subject", "handle", handle, "error", upsertErr)
		}
		if errors.Is(err, domain.ErrReauthRequired) {
			return subject, err
		}
		return subject, nil
	}

	stored, storeErr := u.users.FindByUsername(handle)
	if storeErr != nil {
		return nil, storeErr
	}
	if stored != nil {
		if errors.Is(err, domain.ErrReauthRequired) {
			return stored, err
		}
		return stored, nil
	}
	return nil, err
}

func (u *syncUsecase) RecentPosts(ctx context.Context, subjectID string, force bool) ([]domain.Post, error) {
	if !u.freshness.Stale(subjectID, domain.ClassPosts, force) {
		return u.posts.FindBySubject(subjectID, 3200)
	}

	fetched, err := u.provider.GetRecentPosts(ctx, subjectID, 100)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		slog.Warn("[Sync] live post fetch failed, falling back to store", "subject_id", subjectID, "error", err)
		return u.fallbackPosts(subjectID)
	}
	if len(fetched) == 0 && err == nil {
		return u.fallbackPosts(subjectID)
	}

	created, skipped, saveErr := u.posts.SaveLive(subjectID, fetched)
	if saveErr != nil {
		slog.Warn("[Sync] failed to persist live posts", "subject_id", subjectID, "error", saveErr)
	} else {
		// A reauth-failed fetch must stay stale so the next read re-signals.
		if err == nil {
			u.stamp(subjectID, domain.ClassPosts, len(fetched))
		}
		slog.Info("[Sync] live posts persisted", "subject_id", subjectID, "fetched", len(fetched), "created", created, "skipped", skipped)
	}

	// Saved or not, the freshest view is the fetched page merged with what
	// the store already held.
	stored, _ := u.posts.FindBySubject(subjectID, 3200)
	if len(stored) >= len(fetched) {
		return stored, err
	}
	return fetched, err
}

func (u *syncUsecase) fallbackPosts(subjectID string) ([]domain.Post, error) {
	stored, err := u.posts.FindBySubject(subjectID, 3200)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (u *syncUsecase) Connections(ctx context.Context, subjectID, relation string, force bool) ([]domain.Connection, error) {
	if relation != domain.RelationFollower && relation != domain.RelationFollowing {
		return nil, fmt.Errorf("unknown relation type: %s", relation)
	}

	dataClass := domain.ClassForRelation(relation)
	if !u.freshness.Stale(subjectID, dataClass, force) {
		return u.conns.FindByRelation(subjectID, relation)
	}

	fetched, err := u.fetchAllConnections(ctx, subjectID, relation)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		slog.Warn("[Sync] live connection fetch failed, falling back to store", "subject_id", subjectID, "relation", relation, "error", err)
		return u.conns.FindByRelation(subjectID, relation)
	}
	if len(fetched) == 0 && err == nil {
		return u.conns.FindByRelation(subjectID, relation)
	}

	created, updated, saveErr := u.conns.Save(subjectID, relation, fetched)
	if saveErr != nil {
		slog.Warn("[Sync] failed to persist connections", "subject_id", subjectID, "relation", relation, "error", saveErr)
	} else {
		if err == nil {
			u.stamp(subjectID, dataClass, len(fetched))
		}
		slog.Info("[Sync] connections persisted", "subject_id", subjectID, "relation", relation, "created", created, "updated", updated)
	}
	return fetched, err
}

// maxConnectionPages is the hard stop for the cursor walk, matching the post
// pagination cap.
const maxConnectionPages = 32

// fetchAllConnections walks the cursor until the backend reports no next
// page or the page cap is hit. A rate limit partway through returns the
// pages already fetched.
func (u *syncUsecase) fetchAllConnections(ctx context.Context, subjectID, relation string) ([]domain.Connection, error) {
	fetch := u.provider.GetFollowers
	if relation == domain.RelationFollowing {
		fetch = u.provider.GetFollowing
	}

	var all []domain.Connection
	cursor := ""
	for page := 0; page < maxConnectionPages; page++ {
		batch, next, err := fetch(ctx, subjectID, 1000, cursor)
		all = append(all, batch...)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				slog.Warn("[Sync] rate limited, keeping partial connection list", "subject_id", subjectID, "relation", relation, "count", len(all))
				return all, nil
			}
			return all, err
		}
		if next == "" {
			return all, nil
		}
		cursor = next
	}
	slog.Warn("[Sync] connection page cap reached", "subject_id", subjectID, "relation", relation, "count", len(all))
	return all, nil
}

func (u *syncUsecase) SyncPosts(ctx context.Context, handle string, days int) (*SyncResult, error) {
	subject, err := u.ResolveSubject(ctx, handle)
	if subject == nil {
		if err != nil {
			return nil, fmt.Errorf("could not resolve subject %q: %w", handle, err)
		}
		return nil, fmt.Errorf("could not resolve subject %q", handle)
	}
	reauth := errors.Is(err, domain.ErrReauthRequired)

	fetched, fetchErr := u.provider.GetAllPostsSince(ctx, subject.TwitterID, days)
	if fetchErr != nil && !errors.Is(fetchErr, domain.ErrReauthRequired) {
		return nil, fetchErr
	}
	if errors.Is(fetchErr, domain.ErrReauthRequired) {
		reauth = true
	}

	created, skipped, saveErr := u.posts.SaveLive(subject.TwitterID, fetched)
	if saveErr != nil {
		return nil, saveErr
	}
	if !reauth {
		u.stamp(subject.TwitterID, domain.ClassPosts, len(fetched))
	}

	result := &SyncResult{Subject: subject, Fetched: len(fetched), Created: created, Skipped: skipped}
	if reauth {
		return result, domain.ErrReauthRequired
	}
	return result, nil
}

func (u *syncUsecase) IngestArchive(ctx context.Context, subjectID, dir string) (*ArchiveResult, error) {
	ex := archive.Load(dir)

	if ex.Account != nil {
		if subjectID == "" {
			subjectID = ex.Account.TwitterID
		}
		ex.Account.LastSyncedAt = time.Now()
		if err := u.users.Upsert(ex.Account); err != nil {
			slog.Warn("[Sync] failed to persist archive account", "error", err)
		}
	}
	if subjectID == "" {
		return nil, fmt.Errorf("archive has no account data and no subject id was given")
	}

	created, updated, err := u.posts.SaveArchive(subjectID, ex.Posts)
	if err != nil {
		return nil, err
	}

	// The edge sets carry bare account IDs. Persisting them as connection
	// records lets reconciliation run on archive data alone; no freshness
	// stamp, so the next live read still refreshes the snapshot.
	saveEdges := func(relation string, ids []string) {
		if len(ids) == 0 {
			return
		}
		conns := make([]domain.Connection, 0, len(ids))
		for _, id := range ids {
			conns = append(conns, domain.Connection{SubjectID: subjectID, Relation: relation, OtherID: id})
		}
		if _, _, err := u.conns.Save(subjectID, relation, conns); err != nil {
			slog.Warn("[Sync] failed to persist archive connections", "subject_id", subjectID, "relation", relation, "error", err)
		}
	}
	saveEdges(domain.RelationFollower, ex.FollowerIDs)
	saveEdges(domain.RelationFollowing, ex.FollowingIDs)

	result := &ArchiveResult{
		Posts:        len(ex.Posts),
		PostsCreated: created,
		PostsUpdated: updated,
		Followers:    len(ex.FollowerIDs),
		Following:    len(ex.FollowingIDs),
		Likes:        ex.LikeCount,
	}
	payload := fmt.Sprintf(`{"posts":%d,"followers":%d,"following":%d,"likes":%d}`,
		result.Posts, result.Followers, result.Following, result.Likes)
	if err := u.cache.Put(subjectID, domain.ClassArchiveUpload, payload); err != nil {
		slog.Warn("[Sync] failed to stamp archive upload", "subject_id", subjectID, "error", err)
	}

	slog.Info("[Sync] archive ingested", "subject_id", subjectID,
		"posts", result.Posts, "created", created, "updated", updated,
		"followers", result.Followers, "following", result.Following)
	return result, nil
}

func (u *syncUsecase) Reconcile(ctx context.Context, subjectID string, force bool) (*analysis.Reconciliation, error) {
	followers, err := u.Connections(ctx, subjectID, domain.RelationFollower, force)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		return nil, err
	}
	following, err2 := u.Connections(ctx, subjectID, domain.RelationFollowing, force)
	if err2 != nil && !errors.Is(err2, domain.ErrReauthRequired) {
		return nil, err2
	}

	followerIDs := make([]string, 0, len(followers))
	for _, c := range followers {
		followerIDs = append(followerIDs, c.OtherID)
	}
	followingIDs := make([]string, 0, len(following))
	for _, c := range following {
		followingIDs = append(followingIDs, c.OtherID)
	}

	result := analysis.Reconcile(followerIDs, followingIDs)
	if errors.Is(err, domain.ErrReauthRequired) || errors.Is(err2, domain.ErrReauthRequired) {
		return result, domain.ErrReauthRequired
	}
	return result, nil
}

func (u *syncUsecase) Summary(ctx context.Context, subjectID string, force bool) (*analysis.MetricsSummary, error) {
	posts, err := u.RecentPosts(ctx, subjectID, force)
	if err != nil && !errors.Is(err, domain.ErrReauthRequired) {
		return nil, err
	}
	summary := analysis.Summarize(posts)
	if errors.Is(err, domain.ErrReauthRequired) {
		return summary, err
	}
	return summary, nil
}

// SearchStoredPosts matches the query against stored post text with typo
// tolerance. The store is the only source here; no live call is made.
func (u *syncUsecase) SearchStoredPosts(ctx context.Context, subjectID, query string) ([]domain.Post, error) {
	posts, err := u.posts.FindBySubject(subjectID, 0)
	if err != nil {
		return nil, err
	}

	var matched []domain.Post
	for _, p := range posts {
		if fuzzy.MatchPost(query, p.Text) {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return fuzzy.RelevanceScore(query, matched[i].Text) > fuzzy.RelevanceScore(query, matched[j].Text)
	})
	return matched, nil
}

// SearchLive passes a free-text query straight to the backend. No caching:
// search results have no subject to key freshness on.
func (u *syncUsecase) SearchLive(ctx context.Context, query string, maxResults int) ([]domain.Post, error) {
	return u.provider.Search(ctx, query, maxResults)
}

// stamp records a successful fetch in the generic cache so freshness checks
// work even when the fetch returned zero records.
func (u *syncUsecase) stamp(subjectID, dataClass string, count int) {
	payload := fmt.Sprintf(`{"count":%d}`, count)
	if err := u.cache.Put(subjectID, dataClass, payload); err != nil {
		slog.Warn("[Sync] failed to stamp cache", "subject_id", subjectID, "class", dataClass, "error", err)
	}
}
