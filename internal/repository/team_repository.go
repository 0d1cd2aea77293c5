package repository

import (
	"context"
	"time"

	"scrap_ctf/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeamRepository struct {
	DB *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{DB: db}
}

func (r *TeamRepository) WithTx(tx *gorm.DB) *TeamRepository {
	return &TeamRepository{DB: tx}
}

func (r *TeamRepository) Create(ctx context.Context, team *model.Team) error {
	return r.DB.WithContext(ctx).Create(team).Error
}

func (r *TeamRepository) FindByID(ctx context.Context, id uint) (*model.Team, error) {
	var team model.Team
	err := r.DB.WithContext(ctx).First(&team, id).Error
	return &team, err
}

func (r *TeamRepository) FindByName(ctx context.Context, name string) (*model.Team, error) {
	var team model.Team
	err := r.DB.WithContext(ctx).Where("name = ?", name).Take(&team).Error
	return &team, err
}

// ExistsByNameOrEmail 注册前的冲突检查
func (r *TeamRepository) ExistsByNameOrEmail(ctx context.Context, name, email string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Team{}).
		Where("name = ? OR email = ?", name, email).
		Count(&count).Error
	return count > 0, err
}

func (r *TeamRepository) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Team{}).
		Where("email = ? AND id <> ?", email, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (r *TeamRepository) UpdateProfile(ctx context.Context, id uint, updates map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.Team{ID: id}).Updates(updates).Error
}

// MarkSolved is the guarded write behind "credited at most once": the team's
// bit is set only if it is still clear and the flag matches an enabled
// challenge, all in one statement. It reports whether the bit transitioned.
func (r *TeamRepository) MarkSolved(ctx context.Context, teamID uint, challenge *model.Challenge, flag string, now time.Time) (bool, error) {
	bit, err := model.SolveBit(challenge.ID)
	if err != nil {
		return false, err
	}
	res := r.DB.WithContext(ctx).Model(&model.Team{}).
		Where("id = ? AND (solves & ?) = 0", teamID, bit.Int64()).
		Where("EXISTS (SELECT 1 FROM challenges WHERE challenges.id = ? AND challenges.slug = ? AND challenges.flag = ? AND challenges.enabled = ?)",
			challenge.ID, challenge.Slug, flag, true).
		UpdateColumns(map[string]interface{}{
			"solves":       solvesWithBit(r.DB, bit),
			"submitted_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// solvesWithBit 生成 solves | bit 表达式。MySQL 的位运算结果是无符号的，
// 第 64 题（符号位）写回有符号 BIGINT 会越界，需显式转回 SIGNED。
func solvesWithBit(db *gorm.DB, bit model.SolveSet) clause.Expr {
	if db.Dialector.Name() == "mysql" {
		return gorm.Expr("CAST(solves | ? AS SIGNED)", bit.Int64())
	}
	return gorm.Expr("solves | ?", bit.Int64())
}

func (r *TeamRepository) ListSolves(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	err := r.DB.WithContext(ctx).Select("id", "solves", "score").Find(&teams).Error
	return teams, err
}

func (r *TeamRepository) UpdateScore(ctx context.Context, id uint, score int) error {
	return r.DB.WithContext(ctx).Model(&model.Team{}).
		Where("id = ?", id).
		UpdateColumn("score", score).
		Error
}

// ListRanked orders teams by score, then by who reached it first. Teams that
// never submitted sort after those that did.
func (r *TeamRepository) ListRanked(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	err := r.DB.WithContext(ctx).
		Select("id", "name", "solves", "score", "submitted_at").
		Order("score DESC").
		Order("submitted_at IS NULL").
		Order("submitted_at ASC").
		Order("id ASC").
		Find(&teams).Error
	return teams, err
}
