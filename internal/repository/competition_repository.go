package repository

import (
	"context"
	"errors"
	"time"

	"scrap_ctf/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompetitionRepository struct {
	DB *gorm.DB
}

func NewCompetitionRepository(db *gorm.DB) *CompetitionRepository {
	return &CompetitionRepository{DB: db}
}

func (r *CompetitionRepository) WithTx(tx *gorm.DB) *CompetitionRepository {
	return &CompetitionRepository{DB: tx}
}

// Get returns the singleton competition row.
func (r *CompetitionRepository) Get(ctx context.Context) (*model.Competition, error) {
	var competition model.Competition
	err := r.DB.WithContext(ctx).First(&competition, model.CompetitionID).Error
	return &competition, err
}

// Upsert 写入唯一的比赛记录，内容未变化时不做任何修改
func (r *CompetitionRepository) Upsert(ctx context.Context, competition *model.Competition) (bool, error) {
	competition.ID = model.CompetitionID

	existing, err := r.Get(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, r.DB.WithContext(ctx).Create(competition).Error
	}
	if err != nil {
		return false, err
	}

	if existing.Title == competition.Title &&
		existing.Home == competition.Home &&
		sameInstant(existing.Start, competition.Start) &&
		sameInstant(existing.Stop, competition.Stop) {
		return false, nil
	}

	err = r.DB.WithContext(ctx).Model(&model.Competition{ID: model.CompetitionID}).Updates(map[string]interface{}{
		"title": competition.Title,
		"home":  competition.Home,
		"start": competition.Start,
		"stop":  competition.Stop,
	}).Error
	return err == nil, err
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// LockForUpdate reads the competition row with a row lock. Submissions and
// reconciliation take this lock first so their team updates never interleave.
func (r *CompetitionRepository) LockForUpdate(ctx context.Context) (*model.Competition, error) {
	var competition model.Competition
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", model.CompetitionID).
		Take(&competition).Error
	return &competition, err
}
