package repository

import (
	"context"

	"scrap_ctf/internal/model"

	"gorm.io/gorm"
)

type SolveRepository struct {
	DB *gorm.DB
}

func NewSolveRepository(db *gorm.DB) *SolveRepository {
	return &SolveRepository{DB: db}
}

func (r *SolveRepository) WithTx(tx *gorm.DB) *SolveRepository {
	return &SolveRepository{DB: tx}
}

func (r *SolveRepository) Create(ctx context.Context, solve *model.Solve) error {
	return r.DB.WithContext(ctx).Create(solve).Error
}

func (r *SolveRepository) ListByTeam(ctx context.Context, teamID uint) ([]model.Solve, error) {
	var solves []model.Solve
	err := r.DB.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&solves).Error
	return solves, err
}
