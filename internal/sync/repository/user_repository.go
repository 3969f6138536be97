package repository

import (
	"errors"
	"time"

	"xlytics-backend/internal/sync/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements UserRepository using GORM
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new GORM-based UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Upsert(subject *domain.Subject) error {
	now := time.Now()
	subject.LastSyncedAt = now
	subject.UpdatedAt = now

	// Replace-or-insert on the stable id; created_at survives conflicts.
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "twitter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "name", "bio", "profile_image_url", "verified",
			"followers_count", "following_count", "post_count",
			"last_synced_at", "updated_at",
		}),
	}).Create(subject).Error
}

func (r *userRepository) FindByID(twitterID string) (*domain.Subject, error) {
	var subject domain.Subject
	err := r.db.Where("twitter_id = ?", twitterID).First(&subject).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subject, nil
}

func (r *userRepository) FindByUsername(username string) (*domain.Subject, error) {
	var subject domain.Subject
	err := r.db.Where("username = ?", username).First(&subject).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subject, nil
}
