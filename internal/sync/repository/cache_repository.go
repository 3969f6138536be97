package repository

import (
	"errors"
	"time"

	"xlytics-backend/internal/sync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cacheRepository implements CacheRepository using GORM
type cacheRepository struct {
	db *gorm.DB
}

// NewCacheRepository creates a new GORM-based CacheRepository
func NewCacheRepository(db *gorm.DB) CacheRepository {
	return &cacheRepository{db: db}
}

func (r *cacheRepository) Put(subjectID, dataClass, payload string) error {
	now := time.Now()
	entry := domain.CacheEntry{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		DataClass: dataClass,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}, {Name: "data_class"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&entry).Error
}

func (r *cacheRepository) Get(subjectID, dataClass string) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	err := r.db.Where("subject_id = ? AND data_class = ?", subjectID, dataClass).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *cacheRepository) LastUpdatedAt(subjectID, dataClass string) (time.Time, error) {
	entry, err := r.Get(subjectID, dataClass)
	if err != nil || entry == nil {
		return time.Time{}, err
	}
	return entry.UpdatedAt, nil
}
