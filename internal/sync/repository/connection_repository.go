package repository

import (
	"log/slog"
	"time"

	"xlytics-backend/internal/sync/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// connectionRepository implements ConnectionRepository using GORM
type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new GORM-based ConnectionRepository
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Save always overwrites: a relation list fetched fresh is the current truth
// for that relation type.
func (r *connectionRepository) Save(subjectID, relation string, conns []domain.Connection) (int, int, error) {
	var created, updated int
	now := time.Now()

	for i := range conns {
		c := conns[i]
		if c.OtherID == "" {
			slog.Warn("[Store] skipping connection without id", "subject_id", subjectID, "relation", relation)
			continue
		}
		c.SubjectID = subjectID
		c.Relation = relation
		c.UpdatedAt = now

		var count int64
		r.db.Model(&domain.Connection{}).
			Where("subject_id = ? AND relation = ? AND other_id = ?", subjectID, relation, c.OtherID).
			Count(&count)

		err := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "relation"}, {Name: "other_id"}},
			UpdateAll: true,
		}).Create(&c).Error
		if err != nil {
			slog.Warn("[Store] failed to upsert connection", "other_id", c.OtherID, "error", err)
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

func (r *connectionRepository) FindByRelation(subjectID, relation string) ([]domain.Connection, error) {
	var conns []domain.Connection
	err := r.db.Where("subject_id = ? AND relation = ?", subjectID, relation).
		Order("followers_count DESC").
		Find(&conns).Error
	return conns, err
}

func (r *connectionRepository) LastUpdatedAt(subjectID, relation string) (time.Time, error) {
	row := r.db.Model(&domain.Connection{}).
		Where("subject_id = ? AND relation = ?", subjectID, relation).
		Select("MAX(updated_at)").
		Row()
	return scanMaxTime(row)
}
