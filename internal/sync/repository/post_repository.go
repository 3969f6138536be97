package repository

import (
	"log/slog"
	"time"

	"xlytics-backend/internal/sync/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// postRepository implements PostRepository using GORM
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new GORM-based PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// SaveArchive applies the full-overwrite policy: an archive snapshot is
// authoritative and corrects any drift in previously stored records.
func (r *postRepository) SaveArchive(subjectID string, posts []domain.Post) (int, int, error) {
	var created, updated int
	now := time.Now()

	for i := range posts {
		p := posts[i]
		if p.PostID == "" {
			slog.Warn("[Store] skipping archive post without id", "subject_id", subjectID)
			continue
		}
		p.SubjectID = subjectID
		p.Source = domain.SourceArchive
		p.SyncedAt = now

		// Existence check is for counting only; the write itself is a
		// single atomic upsert.
		var count int64
		r.db.Model(&domain.Post{}).
			Where("subject_id = ? AND post_id = ?", subjectID, p.PostID).
			Count(&count)

		err := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "post_id"}},
			UpdateAll: true,
		}).Create(&p).Error
		if err != nil {
			slog.Warn("[Store] failed to upsert archive post", "post_id", p.PostID, "error", err)
			continue
		}
		if count > 0 {
			updated++
		} else {
			created++
		}
	}

	return created, updated, nil
}

// SaveLive applies the insert-only policy: a live fetch returns a capped page
// of recent items and must never overwrite a larger history already on file.
func (r *postRepository) SaveLive(subjectID string, posts []domain.Post) (int, int, error) {
	var created, skipped int
	now := time.Now()

	for i := range posts {
		p := posts[i]
		if p.PostID == "" {
			slog.Warn("[Store] skipping live post without id", "subject_id", subjectID)
			continue
		}
		p.SubjectID = subjectID
		p.Source = domain.SourceLive
		p.SyncedAt = now

		res := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "post_id"}},
			DoNothing: true,
		}).Create(&p)
		if res.Error != nil {
			slog.Warn("[Store] failed to insert live post", "post_id", p.PostID, "error", res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			created++
		} else {
			skipped++
		}
	}

	return created, skipped, nil
}

func (r *postRepository) FindBySubject(subjectID string, limit int) ([]domain.Post, error) {
	var posts []domain.Post
	query := r.db.Where("subject_id = ?", subjectID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&posts).Error
	return posts, err
}

func (r *postRepository) FindSince(subjectID string, since time.Time) ([]domain.Post, error) {
	var posts []domain.Post
	err := r.db.Where("subject_id = ? AND created_at >= ?", subjectID, since).
		Order("created_at ASC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) LastSyncedAt(subjectID string) (time.Time, error) {
	row := r.db.Model(&domain.Post{}).
		Where("subject_id = ?", subjectID).
		Select("MAX(synced_at)").
		Row()
	return scanMaxTime(row)
}

func (r *postRepository) CountBySubject(subjectID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Post{}).Where("subject_id = ?", subjectID).Count(&count).Error
	return count, err
}
