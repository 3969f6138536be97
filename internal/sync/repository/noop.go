package repository

import (
	"time"

	"xlytics-backend/internal/sync/domain"
)

// No-op repositories back the live-only degraded mode: when the store is
// unreachable at startup the rest of the system keeps working, reads come
// back empty and writes count zero. Nothing here ever returns an error.

type noopUserRepository struct{}

// NewNoopUserRepository returns a UserRepository that stores nothing.
func NewNoopUserRepository() UserRepository { return noopUserRepository{} }

func (noopUserRepository) Upsert(*domain.Subject) error                   { return nil }
func (noopUserRepository) FindByID(string) (*domain.Subject, error)       { return nil, nil }
func (noopUserRepository) FindByUsername(string) (*domain.Subject, error) { return nil, nil }

type noopPostRepository struct{}

// NewNoopPostRepository returns a PostRepository that stores nothing.
func NewNoopPostRepository() PostRepository { return noopPostRepository{} }

func (noopPostRepository) SaveArchive(string, []domain.Post) (int, int, error) { return 0, 0, nil }
func (noopPostRepository) SaveLive(string, []domain.Post) (int, int, error)    { return 0, 0, nil }
func (noopPostRepository) FindBySubject(string, int) ([]domain.Post, error)    { return nil, nil }
func (noopPostRepository) FindSince(string, time.Time) ([]domain.Post, error)  { return nil, nil }
func (noopPostRepository) LastSyncedAt(string) (time.Time, error)              { return time.Time{}, nil }
func (noopPostRepository) CountBySubject(string) (int64, error)                { return 0, nil }

type noopConnectionRepository struct{}

// NewNoopConnectionRepository returns a ConnectionRepository that stores nothing.
func NewNoopConnectionRepository() ConnectionRepository { return noopConnectionRepository{} }

func (noopConnectionRepository) Save(string, string, []domain.Connection) (int, int, error) {
	return 0, 0, nil
}
func (noopConnectionRepository) FindByRelation(string, string) ([]domain.Connection, error) {
	return nil, nil
}
func (noopConnectionRepository) LastUpdatedAt(string, string) (time.Time, error) {
	return time.Time{}, nil
}

type noopCacheRepository struct{}

// NewNoopCacheRepository returns a CacheRepository that stores nothing.
func NewNoopCacheRepository() CacheRepository { return noopCacheRepository{} }

func (noopCacheRepository) Put(string, string, string) error                { return nil }
func (noopCacheRepository) Get(string, string) (*domain.CacheEntry, error)  { return nil, nil }
func (noopCacheRepository) LastUpdatedAt(string, string) (time.Time, error) { return time.Time{}, nil }
