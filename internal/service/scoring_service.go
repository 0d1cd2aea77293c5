package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"scrap_ctf/internal/model"
	"scrap_ctf/internal/repository"
	"scrap_ctf/internal/util"
	"scrap_ctf/pkg/logger"
	"scrap_ctf/pkg/monitoring"
	"scrap_ctf/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubmitResult string

const (
	SubmitCredited        SubmitResult = "credited"
	SubmitRejected        SubmitResult = "rejected"
	SubmitUnauthenticated SubmitResult = "unauthenticated"
)

// ChallengeView is a challenge as shown to competitors.
type ChallengeView struct {
	ID          uint     `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Solves      int      `json:"solves"`
	Value       int      `json:"value"`
	Solved      bool     `json:"solved"`
}

type ChallengeColumn struct {
	ID    uint   `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type ScoreboardEntry struct {
	Rank        int        `json:"rank"`
	TeamID      uint       `json:"teamId"`
	Team        string     `json:"team"`
	Solved      []bool     `json:"solved"`
	Score       int        `json:"score"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

type Scoreboard struct {
	Challenges []ChallengeColumn `json:"challenges"`
	Teams      []ScoreboardEntry `json:"teams"`
}

type ScoringService struct {
	DB              *gorm.DB
	CompetitionRepo *repository.CompetitionRepository
	ChallengeRepo   *repository.ChallengeRepository
	TeamRepo        *repository.TeamRepository
	SessionRepo     *repository.SessionRepository
	SolveRepo       *repository.SolveRepository
	Policy          ScoringPolicy
	Cache           ScoreboardCache
	Now             func() time.Time
}

func NewScoringService(
	db *gorm.DB,
	competitionRepo *repository.CompetitionRepository,
	challengeRepo *repository.ChallengeRepository,
	teamRepo *repository.TeamRepository,
	sessionRepo *repository.SessionRepository,
	solveRepo *repository.SolveRepository,
	policy ScoringPolicy,
	cache ScoreboardCache,
) *ScoringService {
	if cache == nil {
		cache = NopScoreboardCache{}
	}
	return &ScoringService{
		DB:              db,
		CompetitionRepo: competitionRepo,
		ChallengeRepo:   challengeRepo,
		TeamRepo:        teamRepo,
		SessionRepo:     sessionRepo,
		SolveRepo:       solveRepo,
		Policy:          policy,
		Cache:           cache,
		Now:             time.Now,
	}
}

// Competition returns the loaded competition.
func (s *ScoringService) Competition(ctx context.Context) (*model.Competition, error) {
	competition, err := s.CompetitionRepo.Get(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCompetitionMissing
	}
	return competition, err
}

// Submit 提交 flag。错误 flag、重复提交、未知题目与比赛时间外的提交对调用方表现一致
func (s *ScoringService) Submit(ctx context.Context, token, slug, flag string) (SubmitResult, error) {
	ctx, span := tracing.Start(ctx, "scoring.Submit")
	defer span.End()

	result, err := s.submit(ctx, token, slug, flag)
	if err != nil {
		monitoring.SubmissionCounter.WithLabelValues("error").Inc()
		return "", err
	}
	monitoring.SubmissionCounter.WithLabelValues(string(result)).Inc()
	return result, nil
}

func (s *ScoringService) submit(ctx context.Context, token, slug, flag string) (SubmitResult, error) {
	teamID, err := s.lookupTeam(ctx, token)
	if errors.Is(err, util.ErrSessionNotFound) {
		return SubmitUnauthenticated, nil
	}
	if err != nil {
		return "", err
	}

	challenge, err := s.ChallengeRepo.FindEnabledBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SubmitRejected, nil
	}
	if err != nil {
		return "", err
	}

	now := s.Now()
	credited := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		competition, err := s.CompetitionRepo.WithTx(tx).LockForUpdate(ctx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !competition.Running(now) {
			return nil
		}

		ok, err := s.TeamRepo.WithTx(tx).MarkSolved(ctx, teamID, challenge, flag, now)
		if err != nil || !ok {
			return err
		}

		if err := s.ChallengeRepo.WithTx(tx).IncrementSolveCount(ctx, challenge.ID); err != nil {
			return err
		}
		values, err := s.RecomputeScores(ctx, tx)
		if err != nil {
			return err
		}
		if err := s.SolveRepo.WithTx(tx).Create(ctx, &model.Solve{
			TeamID:      teamID,
			ChallengeID: challenge.ID,
			Value:       values[challenge.ID],
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		credited = true
		return nil
	})
	if err != nil {
		return "", err
	}

	if !credited {
		return SubmitRejected, nil
	}

	s.Cache.Invalidate(ctx)
	logger.Log.Info("Flag credited",
		zap.Uint("teamID", teamID),
		zap.String("challenge", challenge.Slug),
	)
	return SubmitCredited, nil
}

// RecomputeScores rewrites every team's score from the current solve counts
// and returns the per-challenge values it used. It runs inside the caller's
// transaction.
func (s *ScoringService) RecomputeScores(ctx context.Context, tx *gorm.DB) (map[uint]int, error) {
	counts, err := s.ChallengeRepo.WithTx(tx).SolveCounts(ctx)
	if err != nil {
		return nil, err
	}
	values := make(map[uint]int, len(counts))
	for id, n := range counts {
		values[id] = s.Policy.Value(n)
	}

	teamRepo := s.TeamRepo.WithTx(tx)
	teams, err := teamRepo.ListSolves(ctx)
	if err != nil {
		return nil, err
	}
	for _, team := range teams {
		score := scoreOf(team.Solves, values)
		if score == team.Score {
			continue
		}
		if err := teamRepo.UpdateScore(ctx, team.ID, score); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func scoreOf(solves model.SolveSet, values map[uint]int) int {
	score := 0
	for id, value := range values {
		if solves.Has(id) {
			score += value
		}
	}
	return score
}

// ListChallenges returns enabled challenges, cheapest first. token may be empty.
func (s *ScoringService) ListChallenges(ctx context.Context, token string) ([]ChallengeView, error) {
	competition, err := s.Competition(ctx)
	if err != nil {
		return nil, err
	}
	if !competition.Started(s.Now()) {
		return nil, util.ErrCompetitionNotStarted
	}

	var solves model.SolveSet
	if token != "" {
		teamID, err := s.lookupTeam(ctx, token)
		switch {
		case err == nil:
			team, err := s.TeamRepo.FindByID(ctx, teamID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			solves = team.Solves
		case !errors.Is(err, util.ErrSessionNotFound):
			return nil, err
		}
	}

	challenges, err := s.ChallengeRepo.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]ChallengeView, 0, len(challenges))
	for _, ch := range challenges {
		tags := []string(ch.Tags)
		if tags == nil {
			tags = []string{}
		}
		views = append(views, ChallengeView{
			ID:          ch.ID,
			Slug:        ch.Slug,
			Title:       ch.Title,
			Author:      ch.Author,
			Description: ch.Description,
			Tags:        tags,
			Solves:      ch.SolveCount,
			Value:       s.Policy.Value(ch.SolveCount),
			Solved:      solves.Has(ch.ID),
		})
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Value != views[j].Value {
			return views[i].Value < views[j].Value
		}
		return views[i].Slug < views[j].Slug
	})
	return views, nil
}

// Scoreboard ranks teams by score, earliest last submission first on ties.
// Ranks are positions in that order, computed here and never stored.
func (s *ScoringService) Scoreboard(ctx context.Context) (*Scoreboard, error) {
	competition, err := s.Competition(ctx)
	if err != nil {
		return nil, err
	}
	if !competition.Started(s.Now()) {
		return nil, util.ErrCompetitionNotStarted
	}

	if board, ok := s.Cache.Get(ctx); ok {
		return board, nil
	}

	challenges, err := s.ChallengeRepo.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := s.TeamRepo.ListRanked(ctx)
	if err != nil {
		return nil, err
	}

	board := &Scoreboard{
		Challenges: make([]ChallengeColumn, 0, len(challenges)),
		Teams:      make([]ScoreboardEntry, 0, len(teams)),
	}
	for _, ch := range challenges {
		board.Challenges = append(board.Challenges, ChallengeColumn{ID: ch.ID, Slug: ch.Slug, Title: ch.Title})
	}
	for i, team := range teams {
		solved := make([]bool, len(challenges))
		for j, ch := range challenges {
			solved[j] = team.Solves.Has(ch.ID)
		}
		board.Teams = append(board.Teams, ScoreboardEntry{
			Rank:        i + 1,
			TeamID:      team.ID,
			Team:        team.Name,
			Solved:      solved,
			Score:       team.Score,
			SubmittedAt: team.SubmittedAt,
		})
	}

	s.Cache.Set(ctx, board)
	return board, nil
}

func (s *ScoringService) lookupTeam(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, util.ErrSessionNotFound
	}
	teamID, err := s.SessionRepo.LookupTeam(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, util.ErrSessionNotFound
	}
	return teamID, err
}
