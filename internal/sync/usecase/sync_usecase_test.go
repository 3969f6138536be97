package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"xlytics-backend/internal/sync/domain"
)

type fakeProvider struct {
	subject *domain.Subject
	posts   []domain.Post
	conns   map[string][]domain.Connection
	cursor  string
	err     error

	postCalls int
	connCalls int
}

func (f *fakeProvider) GetSelf(ctx context.Context) (*domain.Subject, error) {
	return f.subject, f.err
}

func (f *fakeProvider) GetByHandle(ctx context.Context, handle string) (*domain.Subject, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.subject, nil
}

func (f *fakeProvider) GetRecentPosts(ctx context.Context, subjectID string, maxResults int) ([]domain.Post, error) {
	f.postCalls++
	return f.posts, f.err
}

func (f *fakeProvider) GetAllPostsSince(ctx context.Context, subjectID string, days int) ([]domain.Post, error) {
	f.postCalls++
	return f.posts, f.err
}

func (f *fakeProvider) GetFollowers(ctx context.Context, subjectID string, maxResults int, cursor string) ([]domain.Connection, string, error) {
	f.connCalls++
	return f.conns[domain.RelationFollower], f.cursor, f.err
}

func (f *fakeProvider) GetFollowing(ctx context.Context, subjectID string, maxResults int, cursor string) ([]domain.Connection, string, error) {
	f.connCalls++
	return f.conns[domain.RelationFollowing], f.cursor, f.err
}

func (f *fakeProvider) Search(ctx context.Context, query string, maxResults int) ([]domain.Post, error) {
	return nil, nil
}

type fakeUserRepo struct {
	byUsername map[string]*domain.Subject
	upserts    int
}

func (f *fakeUserRepo) Upsert(s *domain.Subject) error {
	f.upserts++
	return nil
}

func (f *fakeUserRepo) FindByID(id string) (*domain.Subject, error) { return nil, nil }

func (f *fakeUserRepo) FindByUsername(username string) (*domain.Subject, error) {
	return f.byUsername[username], nil
}

type fakePostRepo struct {
	stored     []domain.Post
	lastSynced time.Time
	liveSaves  int
}

func (f *fakePostRepo) SaveArchive(subjectID string, posts []domain.Post) (int, int, error) {
	f.stored = append(f.stored, posts...)
	return len(posts), 0, nil
}

func (f *fakePostRepo) SaveLive(subjectID string, posts []domain.Post) (int, int, error) {
	f.liveSaves++
	created := 0
	for _, p := range posts {
		exists := false
		for _, s := range f.stored {
			if s.PostID == p.PostID {
				exists = true
				break
			}
		}
		if !exists {
			f.stored = append(f.stored, p)
			created++
		}
	}
	return created, len(posts) - created, nil
}

func (f *fakePostRepo) FindBySubject(subjectID string, limit int) ([]domain.Post, error) {
	return f.stored, nil
}

func (f *fakePostRepo) FindSince(subjectID string, since time.Time) ([]domain.Post, error) {
	return f.stored, nil
}

func (f *fakePostRepo) LastSyncedAt(subjectID string) (time.Time, error) {
	return f.lastSynced, nil
}

func (f *fakePostRepo) CountBySubject(subjectID string) (int64, error) {
	return int64(len(f.stored)), nil
}

type fakeConnRepo struct {
	stored      map[string][]domain.Connection
	lastUpdated time.Time
	saves       int
}

func (f *fakeConnRepo) Save(subjectID, relation string, conns []domain.Connection) (int, int, error) {
	f.saves++
	if f.stored == nil {
		f.stored = make(map[string][]domain.Connection)
	}
	f.stored[relation] = conns
	return len(conns), 0, nil
}

func (f *fakeConnRepo) FindByRelation(subjectID, relation string) ([]domain.Connection, error) {
	return f.stored[relation], nil
}

func (f *fakeConnRepo) LastUpdatedAt(subjectID, relation string) (time.Time, error) {
	return f.lastUpdated, nil
}

type fakeCacheRepo struct {
	entries map[string]*domain.CacheEntry
}

func (f *fakeCacheRepo) Put(subjectID, dataClass, payload string) error {
	if f.entries == nil {
		f.entries = make(map[string]*domain.CacheEntry)
	}
	f.entries[subjectID+"/"+dataClass] = &domain.CacheEntry{
		SubjectID: subjectID,
		DataClass: dataClass,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (f *fakeCacheRepo) Get(subjectID, dataClass string) (*domain.CacheEntry, error) {
	return f.entries[subjectID+"/"+dataClass], nil
}

func (f *fakeCacheRepo) LastUpdatedAt(subjectID, dataClass string) (time.Time, error) {
	if e := f.entries[subjectID+"/"+dataClass]; e != nil {
		return e.UpdatedAt, nil
	}
	return time.Time{}, nil
}

func newTestUsecase(provider *fakeProvider, posts *fakePostRepo, conns *fakeConnRepo) (SyncUsecase, *Freshness) {
	users := &fakeUserRepo{byUsername: map[string]*domain.Subject{}}
	cache := &fakeCacheRepo{}
	freshness := NewFreshness(posts, conns, cache, 15*time.Minute, 60*time.Minute)
	return NewSyncUsecase(provider, users, posts, conns, cache, freshness), freshness
}

func makePosts(n int) []domain.Post {
	posts := make([]domain.Post, n)
	for i := range posts {
		posts[i] = domain.Post{SubjectID: "42", PostID: fmt.Sprintf("p%d", i)}
	}
	return posts
}

func TestFreshDataSkipsProvider(t *testing.T) {
	provider := &fakeProvider{posts: makePosts(5)}
	posts := &fakePostRepo{stored: makePosts(10), lastSynced: time.Now().Add(-time.Minute)}
	uc, _ := newTestUsecase(provider, posts, &fakeConnRepo{})

	got, err := uc.RecentPosts(context.Background(), "42", false)
	if err != nil {
		t.Fatal(err)
	}
	if provider.postCalls != 0 {
		t.Errorf("provider called %d times for fresh data, want 0", provider.postCalls)
	}
	if len(got) != 10 {
		t.Errorf("posts = %d, want the 10 stored", len(got))
	}
}

func TestAgeAtTTLBoundaryIsStale(t *testing.T) {
	provider := &fakeProvider{posts: makePosts(3)}
	posts := &fakePostRepo{stored: makePosts(1)}
	uc, freshness := newTestUsecase(provider, posts, &fakeConnRepo{})

	// Pin age to exactly the TTL.
	now := time.Now()
	posts.lastSynced = now.Add(-15 * time.Minute)
	freshness.now = func() time.Time { return now }

	if _, err := uc.RecentPosts(context.Background(), "42", false); err != nil {
		t.Fatal(err)
	}
	if provider.postCalls != 1 {
		t.Errorf("provider calls = %d, want 1: age == TTL must count as stale", provider.postCalls)
	}
}

func TestForceRefreshBypassesFreshness(t *testing.T) {
	provider := &fakeProvider{posts: makePosts(3)}
	posts := &fakePostRepo{stored: makePosts(2), lastSynced: time.Now()}
	uc, _ := newTestUsecase(provider, posts, &fakeConnRepo{})

	if _, err := uc.RecentPosts(context.Background(), "42", true); err != nil {
		t.Fatal(err)
	}
	if provider.postCalls != 1 {
		t.Errorf("provider calls = %d, want 1 with force", provider.postCalls)
	}
	if posts.liveSaves != 1 {
		t.Errorf("liveSaves = %d, want 1", posts.liveSaves)
	}
}

func TestFetchFailureFallsBackToStore(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection reset")}
	posts := &fakePostRepo{stored: makePosts(40), lastSynced: time.Now().Add(-time.Hour)}
	uc, _ := newTestUsecase(provider, posts, &fakeConnRepo{})

	got, err := uc.RecentPosts(context.Background(), "42", false)
	if err != nil {
		t.Fatalf("transient failure must not propagate: %v", err)
	}
	if len(got) != 40 {
		t.Errorf("posts = %d, want the 40 stored", len(got))
	}
}

func TestEmptyFetchFallsBackToStore(t *testing.T) {
	provider := &fakeProvider{}
	posts := &fakePostRepo{stored: makePosts(7), lastSynced: time.Now().Add(-time.Hour)}
	uc, _ := newTestUsecase(provider, posts, &fakeConnRepo{})

	got, err := uc.RecentPosts(context.Background(), "42", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 7 {
		t.Errorf("posts = %d, want the 7 stored", len(got))
	}
	if posts.liveSaves != 0 {
		t.Errorf("liveSaves = %d, want 0 for an empty fetch", posts.liveSaves)
	}
}

func TestReauthRequiredCarriesData(t *testing.T) {
	// Expired credentials surface as a signal, not a failure, as long as the
	// subject is already on file.
	provider := &fakeProvider{posts: makePosts(5), err: domain.ErrReauthRequired}
	posts := &fakePostRepo{}
	conns := &fakeConnRepo{}
	users := &fakeUserRepo{byUsername: map[string]*domain.Subject{
		"tester": {TwitterID: "42", Username: "tester"},
	}}
	cache := &fakeCacheRepo{}
	freshness := NewFreshness(posts, conns, cache, 15*time.Minute, 60*time.Minute)
	uc := NewSyncUsecase(provider, users, posts, conns, cache, freshness)

	result, err := uc.SyncPosts(context.Background(), "tester", 30)
	if !errors.Is(err, domain.ErrReauthRequired) {
		t.Fatalf("err = %v, want ErrReauthRequired", err)
	}
	if result == nil {
		t.Fatal("expected a result alongside the reauth signal")
	}
	if result.Fetched != 5 || result.Created != 5 {
		t.Errorf("result = %+v, want 5 fetched and created", result)
	}
}

func TestSyncPostsUnresolvableSubject(t *testing.T) {
	provider := &fakeProvider{}
	uc, _ := newTestUsecase(provider, &fakePostRepo{}, &fakeConnRepo{})

	if _, err := uc.SyncPosts(context.Background(), "ghost", 30); err == nil {
		t.Fatal("expected error for unresolvable subject")
	}
}

func TestResolveSubjectStoreFallback(t *testing.T) {
	provider := &fakeProvider{err: errors.New("service down")}
	posts := &fakePostRepo{}
	users := &fakeUserRepo{byUsername: map[string]*domain.Subject{
		"tester": {TwitterID: "42", Username: "tester"},
	}}
	cache := &fakeCacheRepo{}
	freshness := NewFreshness(posts, &fakeConnRepo{}, cache, 15*time.Minute, 60*time.Minute)
	uc := NewSyncUsecase(provider, users, posts, &fakeConnRepo{}, cache, freshness)

	subject, err := uc.ResolveSubject(context.Background(), "tester")
	if err != nil {
		t.Fatalf("a stored subject must satisfy the lookup: %v", err)
	}
	if subject == nil || subject.TwitterID != "42" {
		t.Fatalf("subject = %+v, want stored 42", subject)
	}
}

func TestConnectionsPersistAndStamp(t *testing.T) {
	provider := &fakeProvider{conns: map[string][]domain.Connection{
		domain.RelationFollower: {
			{SubjectID: "42", Relation: domain.RelationFollower, OtherID: "A"},
			{SubjectID: "42", Relation: domain.RelationFollower, OtherID: "B"},
		},
	}}
	conns := &fakeConnRepo{}
	uc, _ := newTestUsecase(provider, &fakePostRepo{}, conns)

	got, err := uc.Connections(context.Background(), "42", domain.RelationFollower, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("connections = %d, want 2", len(got))
	}
	if conns.saves != 1 {
		t.Errorf("saves = %d, want 1", conns.saves)
	}

	// A second read within the TTL serves the store.
	conns.lastUpdated = time.Now()
	if _, err := uc.Connections(context.Background(), "42", domain.RelationFollower, false); err != nil {
		t.Fatal(err)
	}
	if provider.connCalls != 1 {
		t.Errorf("connCalls = %d, want 1", provider.connCalls)
	}
}

func TestConnectionsRejectsUnknownRelation(t *testing.T) {
	uc, _ := newTestUsecase(&fakeProvider{}, &fakePostRepo{}, &fakeConnRepo{})
	if _, err := uc.Connections(context.Background(), "42", "friends", false); err == nil {
		t.Fatal("expected error for unknown relation")
	}
}

func TestReconcileThroughUsecase(t *testing.T) {
	provider := &fakeProvider{conns: map[string][]domain.Connection{
		domain.RelationFollower: {
			{OtherID: "A"}, {OtherID: "B"}, {OtherID: "C"},
		},
		domain.RelationFollowing: {
			{OtherID: "B"}, {OtherID: "C"}, {OtherID: "D"},
		},
	}}
	uc, _ := newTestUsecase(provider, &fakePostRepo{}, &fakeConnRepo{})

	r, err := uc.Reconcile(context.Background(), "42", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Mutual) != 2 || len(r.Fans) != 1 || len(r.NotFollowedBack) != 1 {
		t.Errorf("partition = %d/%d/%d, want 2/1/1", len(r.Mutual), len(r.Fans), len(r.NotFollowedBack))
	}
	if r.ReciprocityRate != 66.7 {
		t.Errorf("reciprocityRate = %v, want 66.7", r.ReciprocityRate)
	}
}

func TestSearchStoredPosts(t *testing.T) {
	posts := &fakePostRepo{stored: []domain.Post{
		{PostID: "1", Text: "shipping the analytics dashboard"},
		{PostID: "2", Text: "quiet tuesday"},
		{PostID: "3", Text: "more anlytics work"},
	}}
	uc, _ := newTestUsecase(&fakeProvider{}, posts, &fakeConnRepo{})

	got, err := uc.SearchStoredPosts(context.Background(), "42", "analytics")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("matches = %d, want 2 (exact and typo)", len(got))
	}
	if got[0].PostID != "1" {
		t.Errorf("first match = %s, want the exact hit ranked first", got[0].PostID)
	}
}

func TestFollowerFreshnessUsesConnectionsTTL(t *testing.T) {
	provider := &fakeProvider{conns: map[string][]domain.Connection{
		domain.RelationFollower: {{OtherID: "X"}},
	}}
	conns := &fakeConnRepo{stored: map[string][]domain.Connection{
		domain.RelationFollower: {{SubjectID: "42", Relation: domain.RelationFollower, OtherID: "A"}},
	}}
	uc, freshness := newTestUsecase(provider, &fakePostRepo{}, conns)

	// 30 minutes old: past the posts TTL, well inside the connections TTL.
	now := time.Now()
	conns.lastUpdated = now.Add(-30 * time.Minute)
	freshness.now = func() time.Time { return now }

	got, err := uc.Connections(context.Background(), "42", domain.RelationFollower, false)
	if err != nil {
		t.Fatal(err)
	}
	if provider.connCalls != 0 {
		t.Errorf("connCalls = %d, want 0: 30m-old followers are still fresh", provider.connCalls)
	}
	if len(got) != 1 || got[0].OtherID != "A" {
		t.Errorf("connections = %+v, want the stored snapshot", got)
	}
}

func TestConnectionStampUsesDataClass(t *testing.T) {
	provider := &fakeProvider{conns: map[string][]domain.Connection{
		domain.RelationFollower: {{OtherID: "A"}},
	}}
	posts := &fakePostRepo{}
	conns := &fakeConnRepo{}
	users := &fakeUserRepo{}
	cache := &fakeCacheRepo{}
	freshness := NewFreshness(posts, conns, cache, 15*time.Minute, 60*time.Minute)
	uc := NewSyncUsecase(provider, users, posts, conns, cache, freshness)

	if _, err := uc.Connections(context.Background(), "42", domain.RelationFollower, false); err != nil {
		t.Fatal(err)
	}
	if cache.entries["42/"+domain.ClassFollowers] == nil {
		t.Errorf("stamp missing under class %q: %v", domain.ClassFollowers, cache.entries)
	}
}

func TestConnectionPaginationStopsAtPageCap(t *testing.T) {
	provider := &fakeProvider{
		cursor: "keep-going",
		conns: map[string][]domain.Connection{
			domain.RelationFollower: {{OtherID: "A"}},
		},
	}
	uc, _ := newTestUsecase(provider, &fakePostRepo{}, &fakeConnRepo{})

	got, err := uc.Connections(context.Background(), "42", domain.RelationFollower, false)
	if err != nil {
		t.Fatal(err)
	}
	if provider.connCalls != maxConnectionPages {
		t.Errorf("connCalls = %d, want the cap of %d", provider.connCalls, maxConnectionPages)
	}
	if len(got) != maxConnectionPages {
		t.Errorf("connections = %d, want one page per call up to the cap", len(got))
	}
}

func TestReauthFetchIsNotMarkedFresh(t *testing.T) {
	provider := &fakeProvider{err: domain.ErrReauthRequired}
	posts := &fakePostRepo{}
	conns := &fakeConnRepo{}
	users := &fakeUserRepo{}
	cache := &fakeCacheRepo{}
	freshness := NewFreshness(posts, conns, cache, 15*time.Minute, 60*time.Minute)
	uc := NewSyncUsecase(provider, users, posts, conns, cache, freshness)

	if _, err := uc.RecentPosts(context.Background(), "42", false); !errors.Is(err, domain.ErrReauthRequired) {
		t.Fatalf("err = %v, want ErrReauthRequired", err)
	}
	if cache.entries["42/"+domain.ClassPosts] != nil {
		t.Error("a reauth-failed fetch must not leave a freshness stamp")
	}

	// The next read inside the TTL window hits the provider again and
	// re-signals instead of serving the store as a success.
	if _, err := uc.RecentPosts(context.Background(), "42", false); !errors.Is(err, domain.ErrReauthRequired) {
		t.Fatalf("second read err = %v, want ErrReauthRequired", err)
	}
	if provider.postCalls != 2 {
		t.Errorf("postCalls = %d, want 2", provider.postCalls)
	}
}

func TestIngestArchiveSupportsReconciliation(t *testing.T) {
	dir := t.TempDir()
	writeArchiveFile(t, dir, "follower.js", `window.YTD.follower.part0 = [
  {"follower": {"accountId": "A"}},
  {"follower": {"accountId": "B"}}
]`)
	writeArchiveFile(t, dir, "following.js", `window.YTD.following.part0 = [
  {"following": {"accountId": "B"}}
]`)

	provider := &fakeProvider{err: errors.New("service down")}
	conns := &fakeConnRepo{}
	uc, _ := newTestUsecase(provider, &fakePostRepo{}, conns)

	result, err := uc.IngestArchive(context.Background(), "42", dir)
	if err != nil {
		t.Fatal(err)
	}
	if result.Followers != 2 || result.Following != 1 {
		t.Errorf("edges = %d/%d, want 2/1", result.Followers, result.Following)
	}
	if len(conns.stored[domain.RelationFollower]) != 2 || len(conns.stored[domain.RelationFollowing]) != 1 {
		t.Fatalf("stored edges = %+v, want the archive sets persisted", conns.stored)
	}

	// With the live backend down, reconciliation runs on the archive edges.
	r, err := uc.Reconcile(context.Background(), "42", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Mutual) != 1 || r.Mutual[0] != "B" {
		t.Errorf("mutual = %v, want [B]", r.Mutual)
	}
	if len(r.Fans) != 1 || r.Fans[0] != "A" {
		t.Errorf("fans = %v, want [A]", r.Fans)
	}
}

func writeArchiveFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFreshnessFallsBackToCacheStamp(t *testing.T) {
	posts := &fakePostRepo{}
	cache := &fakeCacheRepo{}
	f := NewFreshness(posts, &fakeConnRepo{}, cache, 15*time.Minute, time.Hour)

	// No posts stored, but a fetch stamp exists: zero-result fetches still
	// count as fresh until the TTL lapses.
	if err := cache.Put("42", domain.ClassPosts, `{"count":0}`); err != nil {
		t.Fatal(err)
	}
	if f.Stale("42", domain.ClassPosts, false) {
		t.Error("expected fresh from cache stamp")
	}

	if !f.Stale("42", domain.ClassFollowers, false) {
		t.Error("expected stale with no timestamp anywhere")
	}
}
