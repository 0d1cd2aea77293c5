package service

import (
	"context"
	"errors"

	"scrap_ctf/internal/model"
	"scrap_ctf/internal/repository"
	"scrap_ctf/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type TeamService struct {
	TeamRepo  *repository.TeamRepository
	SolveRepo *repository.SolveRepository
}

func NewTeamService(teamRepo *repository.TeamRepository, solveRepo *repository.SolveRepository) *TeamService {
	return &TeamService{
		TeamRepo:  teamRepo,
		SolveRepo: solveRepo,
	}
}

// TeamProfile is the signed-in team's own view.
type TeamProfile struct {
	ID     uint          `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Score  int           `json:"score"`
	Solves []model.Solve `json:"solves"`
}

func (s *TeamService) Profile(ctx context.Context, teamID uint) (*TeamProfile, error) {
	team, err := s.TeamRepo.FindByID(ctx, teamID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}

	solves, err := s.SolveRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if solves == nil {
		solves = []model.Solve{}
	}

	return &TeamProfile{
		ID:     team.ID,
		Name:   team.Name,
		Email:  team.Email,
		Score:  team.Score,
		Solves: solves,
	}, nil
}

// UpdateProfile 修改邮箱，可选修改密码；必须提供当前密码
func (s *TeamService) UpdateProfile(ctx context.Context, teamID uint, email, newPassword, currentPassword string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if newPassword != "" {
		if err := validatePassword("password", newPassword); err != nil {
			return err
		}
	}
	if currentPassword == "" {
		return util.NewFieldError("current_password", "Current password is required.")
	}

	team, err := s.TeamRepo.FindByID(ctx, teamID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrTeamNotFound
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(team.Password), []byte(currentPassword)); err != nil {
		return util.ErrWrongPassword
	}

	if email != team.Email {
		taken, err := s.TeamRepo.EmailTaken(ctx, email, teamID)
		if err != nil {
			return err
		}
		if taken {
			return util.ErrEmailConflict
		}
	}

	updates := map[string]interface{}{"email": email}
	if newPassword != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		updates["password"] = string(hashedPassword)
	}

	if err := s.TeamRepo.UpdateProfile(ctx, teamID, updates); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return util.ErrEmailConflict
		}
		return err
	}
	return nil
}
