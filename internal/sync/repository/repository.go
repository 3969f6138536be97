package repository

import (
	"database/sql"
	"fmt"
	"time"

	"xlytics-backend/internal/sync/domain"
)

// UserRepository defines the interface for subject data access
type UserRepository interface {
	// Upsert creates the subject or overwrites its mutable fields,
	// preserving created_at.
	Upsert(subject *domain.Subject) error

	// FindByID finds a subject by its stable identifier
	FindByID(twitterID string) (*domain.Subject, error)

	// FindByUsername finds a subject by its handle
	FindByUsername(username string) (*domain.Subject, error)
}

// PostRepository defines the interface for post data access
type PostRepository interface {
	// SaveArchive writes a batch with the full-overwrite policy: every
	// record is created or fully replaced. Returns (created, updated).
	// Records without a post id are skipped; the batch continues.
	SaveArchive(subjectID string, posts []domain.Post) (int, int, error)

	// SaveLive writes a batch with the insert-only policy: records whose
	// key already exists are left untouched. Returns (created, skipped).
	SaveLive(subjectID string, posts []domain.Post) (int, int, error)

	// FindBySubject returns the subject's posts, newest first. limit <= 0
	// means no limit.
	FindBySubject(subjectID string, limit int) ([]domain.Post, error)

	// FindSince returns posts authored at or after the cutoff, oldest first.
	FindSince(subjectID string, since time.Time) ([]domain.Post, error)

	// LastSyncedAt returns the most recent synced_at among the subject's
	// posts, or the zero time when none exist.
	LastSyncedAt(subjectID string) (time.Time, error)

	// CountBySubject returns the number of stored posts for the subject.
	CountBySubject(subjectID string) (int64, error)
}

// ConnectionRepository defines the interface for social-graph edge access
type ConnectionRepository interface {
	// Save writes a relation batch with the full-overwrite policy (a fresh
	// relation fetch is authoritative for that relation). Returns
	// (created, updated).
	Save(subjectID, relation string, conns []domain.Connection) (int, int, error)

	// FindByRelation returns the stored edges for one relation type.
	FindByRelation(subjectID, relation string) ([]domain.Connection, error)

	// LastUpdatedAt returns the most recent updated_at among the subject's
	// edges of one relation type, or the zero time when none exist.
	LastUpdatedAt(subjectID, relation string) (time.Time, error)
}

// maxTimeLayouts covers the formats a MAX() aggregate comes back in: the
// database/sql string conversion and the sqlite text encodings.
var maxTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// scanMaxTime reads a MAX(timestamp) aggregate. Drivers disagree on the
// column type of an aggregate (postgres reports a timestamp, sqlite a bare
// string), so the value is scanned as text and parsed.
func scanMaxTime(row *sql.Row) (time.Time, error) {
	var raw sql.NullString
	if err := row.Scan(&raw); err != nil {
		return time.Time{}, err
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, nil
	}
	for _, layout := range maxTimeLayouts {
		if ts, err := time.Parse(layout, raw.String); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw.String)
}

// CacheRepository defines the interface for the generic fallback cache
type CacheRepository interface {
	// Put creates or refreshes the entry for (subject, data class).
	Put(subjectID, dataClass, payload string) error

	// Get returns the entry, or nil when absent.
	Get(subjectID, dataClass string) (*domain.CacheEntry, error)

	// LastUpdatedAt returns the entry's updated_at, or the zero time when
	// absent.
	LastUpdatedAt(subjectID, dataClass string) (time.Time, error)
}
