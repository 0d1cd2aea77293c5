package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"scrap_ctf/internal/model"
	"scrap_ctf/internal/repository"
	"scrap_ctf/internal/util"
	"scrap_ctf/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	TeamRepo    *repository.TeamRepository
	SessionRepo *repository.SessionRepository
}

func NewAuthService(teamRepo *repository.TeamRepository, sessionRepo *repository.SessionRepository) *AuthService {
	return &AuthService{
		TeamRepo:    teamRepo,
		SessionRepo: sessionRepo,
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.Team, error) {
	if err := validateTeamName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword("password", password); err != nil {
		return nil, err
	}

	exists, err := s.TeamRepo.ExistsByNameOrEmail(ctx, name, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrTeamConflict
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	team := &model.Team{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.TeamRepo.Create(ctx, team); err != nil {
		// 并发注册时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrTeamConflict
		}
		return nil, err
	}

	logger.Log.Info("Team registered", zap.Uint("teamID", team.ID), zap.String("name", team.Name))
	return team, nil
}

// Login 校验密码并创建新的会话令牌
func (s *AuthService) Login(ctx context.Context, name, password string) (string, error) {
	if name == "" {
		return "", util.NewFieldError("name", "Team name is required.")
	}
	if password == "" {
		return "", util.NewFieldError("password", "Password is required.")
	}

	team, err := s.TeamRepo.FindByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", util.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(team.Password), []byte(password)); err != nil {
		return "", util.ErrInvalidCredentials
	}

	session := &model.Session{
		Token:  model.GenerateToken(),
		TeamID: team.ID,
	}
	if err := s.SessionRepo.Create(ctx, session); err != nil {
		return "", err
	}
	return session.Token, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.SessionRepo.Delete(ctx, token)
}

func (s *AuthService) LookupTeam(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, util.ErrSessionNotFound
	}
	teamID, err := s.SessionRepo.LookupTeam(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, util.ErrSessionNotFound
	}
	return teamID, err
}

// validateTeamName 队名限 1-64 个可打印 ASCII 字符
func validateTeamName(name string) error {
	if name == "" {
		return util.NewFieldError("name", "Team name is required.")
	}
	if len(name) > util.TeamNameMaxLen {
		return util.NewFieldError("name", "Invalid team name length or characters.")
	}
	for i := 0; i < len(name); i++ {
		if name[i] < ' ' || name[i] > '~' {
			return util.NewFieldError("name", "Invalid team name length or characters.")
		}
	}
	return nil
}

func validatePassword(field, password string) error {
	if password == "" {
		return util.NewFieldError(field, "Password is required.")
	}
	if len(password) > util.PasswordMaxLen {
		return util.NewFieldError(field, "Password must be at most 72 bytes.")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return util.NewFieldError("email", "Email is required.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return util.NewFieldError("email", "Invalid email address.")
	}
	return nil
}
