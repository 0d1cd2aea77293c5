package repository

import (
	"context"

	"scrap_ctf/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	return r.DB.WithContext(ctx).Create(session).Error
}

// LookupTeam resolves a session token to its team id.
func (r *SessionRepository) LookupTeam(ctx context.Context, token string) (uint, error) {
	var session model.Session
	err := r.DB.WithContext(ctx).Where("token = ?", token).Take(&session).Error
	return session.TeamID, err
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error
}
