package repository

import (
	"context"
	"errors"
	"fmt"

	"scrap_ctf/internal/model"

	"gorm.io/gorm"
)

const challengeSequenceName = "challenge"

type ChallengeRepository struct {
	DB *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{DB: db}
}

func (r *ChallengeRepository) WithTx(tx *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{DB: tx}
}

func (r *ChallengeRepository) ListAll(ctx context.Context) ([]model.Challenge, error) {
	var challenges []model.Challenge
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&challenges).Error
	return challenges, err
}

// ListEnabled returns enabled challenges ordered by slug. Pending rows are excluded.
func (r *ChallengeRepository) ListEnabled(ctx context.Context) ([]model.Challenge, error) {
	var challenges []model.Challenge
	err := r.DB.WithContext(ctx).
		Where("enabled = ?", true).
		Order("slug ASC").
		Find(&challenges).Error
	return challenges, err
}

func (r *ChallengeRepository) FindEnabledBySlug(ctx context.Context, slug string) (*model.Challenge, error) {
	var challenge model.Challenge
	err := r.DB.WithContext(ctx).
		Where("slug = ? AND enabled = ?", slug, true).
		Take(&challenge).Error
	return &challenge, err
}

// SolveCounts maps every stored challenge id to its cumulative solve counter.
func (r *ChallengeRepository) SolveCounts(ctx context.Context) (map[uint]int, error) {
	var rows []model.Challenge
	if err := r.DB.WithContext(ctx).Select("id", "solve_count").Find(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.SolveCount
	}
	return counts, nil
}

func (r *ChallengeRepository) IncrementSolveCount(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Challenge{}).
		Where("id = ?", id).
		UpdateColumn("solve_count", gorm.Expr("solve_count + 1")).
		Error
}

// MarkAllPending 标记所有题目为待确认，本轮未出现的题目随后被删除
func (r *ChallengeRepository) MarkAllPending(ctx context.Context) error {
	return r.DB.WithContext(ctx).Exec("UPDATE challenges SET enabled = NULL").Error
}

func (r *ChallengeRepository) DeletePending(ctx context.Context) (int64, error) {
	res := r.DB.WithContext(ctx).Where("enabled IS NULL").Delete(&model.Challenge{})
	return res.RowsAffected, res.Error
}

// Upsert inserts or updates a challenge by slug. existing is the row as it was
// before the pass marked it pending (nil for a new slug). The id and solve
// counter of an existing row are preserved; new rows draw from the sequence.
func (r *ChallengeRepository) Upsert(ctx context.Context, challenge *model.Challenge, existing *model.Challenge) (created, updated bool, err error) {
	db := r.DB.WithContext(ctx)

	if existing == nil {
		id, err := r.nextID(ctx)
		if err != nil {
			return false, false, err
		}
		if id > model.SolveSetCapacity {
			return false, false, fmt.Errorf("challenge %q would get id %d: %w", challenge.Slug, id, model.ErrChallengeCapacity)
		}
		challenge.ID = id
		challenge.SolveCount = 0
		return true, false, db.Create(challenge).Error
	}

	challenge.ID = existing.ID
	challenge.SolveCount = existing.SolveCount
	challenge.CreatedAt = existing.CreatedAt

	if challenge.SameContent(existing) {
		// 内容未变化时只恢复 enabled，不更新 updated_at
		challenge.UpdatedAt = existing.UpdatedAt
		err := db.Model(&model.Challenge{}).
			Where("id = ?", existing.ID).
			UpdateColumn("enabled", challenge.IsEnabled()).
			Error
		return false, false, err
	}

	err = db.Model(&model.Challenge{ID: existing.ID}).Updates(map[string]interface{}{
		"title":       challenge.Title,
		"author":      challenge.Author,
		"description": challenge.Description,
		"tags":        challenge.Tags,
		"flag":        challenge.Flag,
		"enabled":     challenge.IsEnabled(),
	}).Error
	return false, err == nil, err
}

// nextID hands out the next challenge id from a monotone counter so ids freed
// by deletion are never reused.
func (r *ChallengeRepository) nextID(ctx context.Context) (uint, error) {
	db := r.DB.WithContext(ctx)

	res := db.Model(&model.ChallengeSequence{}).
		Where("name = ?", challengeSequenceName).
		UpdateColumn("last_id", gorm.Expr("last_id + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 1 {
		var seq model.ChallengeSequence
		if err := db.Where("name = ?", challengeSequenceName).Take(&seq).Error; err != nil {
			return 0, err
		}
		return seq.LastID, nil
	}

	// 首次分配：从现有最大 id 起步
	var maxID uint
	if err := db.Model(&model.Challenge{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return 0, err
	}
	seq := model.ChallengeSequence{Name: challengeSequenceName, LastID: maxID + 1}
	if err := db.Create(&seq).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.nextID(ctx)
		}
		return 0, err
	}
	return seq.LastID, nil
}
