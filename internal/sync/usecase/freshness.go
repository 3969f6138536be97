package usecase

import (
	"log/slog"
	"time"

	"xlytics-backend/internal/sync/domain"
	"xlytics-backend/internal/sync/repository"
)

// Default TTLs per data class. Post history moves fast; relation lists drift
// slowly.
const (
	DefaultPostsTTL       = 15 * time.Minute
	DefaultConnectionsTTL = 60 * time.Minute
)

// Freshness decides, per (subject, data class), whether stored data is still
// servable or a live fetch is due. The age of a class is measured from the
// most recent record timestamp of its dedicated collection, with the generic
// cache stamp as fallback.
type Freshness struct {
	posts repository.PostRepository
	conns repository.ConnectionRepository
	cache repository.CacheRepository
	ttls  map[string]time.Duration
	now   func() time.Time
}

func NewFreshness(posts repository.PostRepository, conns repository.ConnectionRepository, cache repository.CacheRepository, postsTTL, connsTTL time.Duration) *Freshness {
	if postsTTL <= 0 {
		postsTTL = DefaultPostsTTL
	}
	if connsTTL <= 0 {
		connsTTL = DefaultConnectionsTTL
	}
	return &Freshness{
		posts: posts,
		conns: conns,
		cache: cache,
		ttls: map[string]time.Duration{
			domain.ClassPosts:     postsTTL,
			domain.ClassFollowers: connsTTL,
			domain.ClassFollowing: connsTTL,
		},
		now: time.Now,
	}
}

// TTL returns the configured TTL for a data class. Unknown classes get the
// posts TTL, the shortest one.
func (f *Freshness) TTL(dataClass string) time.Duration {
	if ttl, ok := f.ttls[dataClass]; ok {
		return ttl
	}
	return f.ttls[domain.ClassPosts]
}

// Age returns how long ago the data class was last written for the subject,
// and whether any timestamp was found at all.
func (f *Freshness) Age(subjectID, dataClass string) (time.Duration, bool) {
	var last time.Time
	var err error

	switch dataClass {
	case domain.ClassPosts:
		last, err = f.posts.LastSyncedAt(subjectID)
	case domain.ClassFollowers, domain.ClassFollowing:
		last, err = f.conns.LastUpdatedAt(subjectID, domain.RelationForClass(dataClass))
	}
	if err != nil {
		slog.Warn("[Freshness] timestamp lookup failed", "subject_id", subjectID, "class", dataClass, "error", err)
	}

	if last.IsZero() {
		last, err = f.cache.LastUpdatedAt(subjectID, dataClass)
		if err != nil {
			slog.Warn("[Freshness] cache stamp lookup failed", "subject_id", subjectID, "class", dataClass, "error", err)
		}
	}
	if last.IsZero() {
		return 0, false
	}
	return f.now().Sub(last), true
}

// Stale reports whether the data class needs a live fetch. Data exactly at
// the TTL boundary counts as stale; force always does.
func (f *Freshness) Stale(subjectID, dataClass string, force bool) bool {
	if force {
		return true
	}
	age, ok := f.Age(subjectID, dataClass)
	if !ok {
		return true
	}
	return age >= f.TTL(dataClass)
}
