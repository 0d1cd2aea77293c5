package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scrap_ctf/internal/model"
	"scrap_ctf/internal/util"
)

func TestSubmitFirstSolveScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedCompetition(t, env.db, nil, nil)
	seedChallenge(t, env.db, 1, "pwn1", "flag{abc}", true)
	team1, token1 := seedTeam(t, env.db, "team1")
	team2, token2 := seedTeam(t, env.db, "team2")

	res, err := env.scoring.Submit(ctx, token1, "pwn1", "flag{abc}")
	if err != nil || res != SubmitCredited {
		t.Fatalf("Submit() = %v, %v; want credited", res, err)
	}

	pwn1 := loadChallenge(t, env.db, "pwn1")
	if pwn1.SolveCount != 1 {
		t.Errorf("solve count = %d, want 1", pwn1.SolveCount)
	}
	if got := loadTeam(t, env.db, team1); got.Score != 500 || !got.Solves.Has(1) || got.SubmittedAt == nil {
		t.Errorf("team1 = score %d solves %b submitted %v", got.Score, got.Solves, got.SubmittedAt)
	}

	res, err = env.scoring.Submit(ctx, token2, "pwn1", "flag{abc}")
	if err != nil || res != SubmitCredited {
		t.Fatalf("second team Submit() = %v, %v", res, err)
	}

	// 分数按当前分值整体重算
	want := env.scoring.Policy.Value(2)
	if want >= 500 {
		t.Fatalf("value(2) = %d, expected decay below 500", want)
	}
	for _, id := range []uint{team1, team2} {
		if got := loadTeam(t, env.db, id); got.Score != want {
			t.Errorf("team %d score = %d, want %d", id, got.Score, want)
		}
	}

	profile, err := env.teams.Profile(ctx, team1)
	if err != nil {
		t.Fatal(err)
	}
	if len(profile.Solves) != 1 || profile.Solves[0].Value != 500 {
		t.Errorf("team1 solve history = %+v", profile.Solves)
	}
}

func TestSubmitRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedCompetition(t, env.db, nil, nil)
	seedChallenge(t, env.db, 1, "pwn1", "flag{abc}", true)
	seedChallenge(t, env.db, 2, "hidden", "flag{hidden}", false)
	teamID, token := seedTeam(t, env.db, "team1")

	if res, err := env.scoring.Submit(ctx, token, "pwn1", "flag{abc}"); err != nil || res != SubmitCredited {
		t.Fatalf("Submit() = %v, %v", res, err)
	}

	tests := []struct {
		name  string
		token string
		slug  string
		flag  string
		want  SubmitResult
	}{
		{"already solved", token, "pwn1", "flag{abc}", SubmitRejected},
		{"wrong flag", token, "pwn1", "flag{nope}", SubmitRejected},
		{"unknown slug", token, "nope", "flag{abc}", SubmitRejected},
		{"disabled challenge", token, "hidden", "flag{hidden}", SubmitRejected},
		{"no session", "", "pwn1", "flag{abc}", SubmitUnauthenticated},
		{"unknown session", "not-a-token", "pwn1", "flag{abc}", SubmitUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.scoring.Submit(ctx, tt.token, tt.slug, tt.flag)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if res != tt.want {
				t.Errorf("Submit() = %v, want %v", res, tt.want)
			}
		})
	}

	if got := loadChallenge(t, env.db, "pwn1").SolveCount; got != 1 {
		t.Errorf("solve count = %d, want 1", got)
	}
	if got := loadTeam(t, env.db, teamID).Solves; got != model.SolveSet(1) {
		t.Errorf("solves = %b, want 1", got)
	}
}

func TestSubmitOutsideCompetitionWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name        string
		start, stop *time.Time
	}{
		{"not started", &after, nil},
		{"already stopped", nil, &before},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			env.scoring.Now = func() time.Time { return now }

			seedCompetition(t, env.db, tt.start, tt.stop)
			seedChallenge(t, env.db, 1, "pwn1", "flag{abc}", true)
			teamID, token := seedTeam(t, env.db, "team1")

			res, err := env.scoring.Submit(ctx, token, "pwn1", "flag{abc}")
			if err != nil || res != SubmitRejected {
				t.Fatalf("Submit() = %v, %v; want rejected", res, err)
			}
			if got := loadTeam(t, env.db, teamID); got.Solves != 0 || got.Score != 0 {
				t.Errorf("team changed: solves %b score %d", got.Solves, got.Score)
			}
			if got := loadChallenge(t, env.db, "pwn1").SolveCount; got != 0 {
				t.Errorf("solve count = %d, want 0", got)
			}
		})
	}
}

func TestSubmitConcurrentDoubleSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedCompetition(t, env.db, nil, nil)
	seedChallenge(t, env.db, 1, "pwn1", "flag{abc}", true)
	teamID, token := seedTeam(t, env.db, "team1")

	const attempts = 8
	results := make([]SubmitResult, attempts)
	errs := make([]error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = env.scoring.Submit(ctx, token, "pwn1", "flag{abc}")
		}(i)
	}
	close(start)
	wg.Wait()

	credited := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("Submit() error = %v", errs[i])
		}
		if results[i] == SubmitCredited {
			credited++
		} else if results[i] != SubmitRejected {
			t.Errorf("unexpected result %v", results[i])
		}
	}
	if credited != 1 {
		t.Errorf("credited %d times, want exactly 1", credited)
	}
	if got := loadChallenge(t, env.db, "pwn1").SolveCount; got != 1 {
		t.Errorf("solve count = %d, want 1", got)
	}
	if got := loadTeam(t, env.db, teamID); got.Score != 500 {
		t.Errorf("score = %d, want 500", got.Score)
	}
}

func TestSubmitRaceAcrossConnections(t *testing.T) {
	const conns = 8
	env := newTestEnvWithDB(t, openTestDB(t, conns))
	ctx := context.Background()

	seedCompetition(t, env.db, nil, nil)
	seedChallenge(t, env.db, 1, "pwn1", "flag{abc}", true)
	team1, token1 := seedTeam(t, env.db, "team1")
	team2, token2 := seedTeam(t, env.db, "team2")

	tokens := []string{token1, token2}
	results := make([]SubmitResult, 2*conns)
	errs := make([]error, 2*conns)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = env.scoring.Submit(ctx, tokens[i%2], "pwn1", "flag{abc}")
		}(i)
	}
	close(start)
	wg.Wait()

	credited := map[int]int{}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("Submit() error = %v", errs[i])
		}
		if results[i] == SubmitCredited {
			credited[i%2]++
		}
	}
	if credited[0] != 1 || credited[1] != 1 {
		t.Fatalf("credits per team = %v, want one each", credited)
	}
	if got := loadChallenge(t, env.db, "pwn1").SolveCount; got != 2 {
		t.Errorf("solve count = %d, want 2", got)
	}
	// 两队都按 2 次解出后的分值计分
	for _, id := range []uint{team1, team2} {
		if got := loadTeam(t, env.db, id).Score; got != 499 {
			t.Errorf("team %d score = %d, want 499", id, got)
		}
	}
}

func TestScoreboardOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	env.scoring.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	seedCompetition(t, env.db, nil, nil)
	seedChallenge(t, env.db, 1, "web1", "flag{web}", true)
	seedChallenge(t, env.db, 2, "pwn1", "flag{pwn}", true)
	_, early := seedTeam(t, env.db, "early")
	_, late := seedTeam(t, env.db, "late")
	_, idle := seedTeam(t, env.db, "idle")
	_, top := seedTeam(t, env.db, "top")
	_ = idle

	submit := func(token, slug, flag string) {
		t.Helper()
		if res, err := env.scoring.Submit(ctx, token, slug, flag); err != nil || res != SubmitCredited {
			t.Fatalf("Submit(%s) = %v, %v", slug, res, err)
		}
	}
	submit(early, "web1", "flag{web}")
	submit(late, "web1", "flag{web}")
	submit(top, "pwn1", "flag{pwn}")
	submit(top, "web1", "flag{web}")

	board, err := env.scoring.Scoreboard(ctx)
	if err != nil {
		t.Fatalf("Scoreboard() error = %v", err)
	}

	if len(board.Challenges) != 2 || board.Challenges[0].Slug != "pwn1" || board.Challenges[1].Slug != "web1" {
		t.Fatalf("columns = %+v", board.Challenges)
	}

	wantOrder := []string{"top", "early", "late", "idle"}
	if len(board.Teams) != len(wantOrder) {
		t.Fatalf("teams = %+v", board.Teams)
	}
	for i, name := range wantOrder {
		entry := board.Teams[i]
		if entry.Team != name || entry.Rank != i+1 {
			t.Errorf("position %d = %s (rank %d), want %s (rank %d)", i, entry.Team, entry.Rank, name, i+1)
		}
	}
	if board.Teams[1].Score != board.Teams[2].Score {
		t.Errorf("early/late should tie on score: %d vs %d", board.Teams[1].Score, board.Teams[2].Score)
	}
	if s := board.Teams[0].Solved; !s[0] || !s[1] {
		t.Errorf("top solved = %v", s)
	}
	if s := board.Teams[1].Solved; s[0] || !s[1] {
		t.Errorf("early solved = %v", s)
	}
	if board.Teams[3].Score != 0 || board.Teams[3].SubmittedAt != nil {
		t.Errorf("idle = %+v", board.Teams[3])
	}
}

func TestListChallenges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedCompetition(t, env.db, nil, nil)
	seedChallenge(t, env.db, 1, "zeta", "flag{z}", true)
	seedChallenge(t, env.db, 2, "alpha", "flag{a}", true)
	seedChallenge(t, env.db, 3, "beta", "flag{b}", true)
	_, token1 := seedTeam(t, env.db, "team1")
	_, token2 := seedTeam(t, env.db, "team2")

	for _, token := range []string{token1, token2} {
		if res, _ := env.scoring.Submit(ctx, token, "zeta", "flag{z}"); res != SubmitCredited {
			t.Fatalf("Submit(zeta) = %v", res)
		}
	}

	views, err := env.scoring.ListChallenges(ctx, token1)
	if err != nil {
		t.Fatalf("ListChallenges() error = %v", err)
	}
	// zeta 已被解出两次，分值最低排在最前
	wantOrder := []string{"zeta", "alpha", "beta"}
	for i, slug := range wantOrder {
		if views[i].Slug != slug {
			t.Fatalf("order = %v, want %v", views, wantOrder)
		}
	}
	if !views[0].Solved || views[1].Solved || views[0].Solves != 2 || views[0].Value >= 500 {
		t.Errorf("zeta view = %+v", views[0])
	}

	anonymous, err := env.scoring.ListChallenges(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if anonymous[0].Solved {
		t.Error("anonymous view should not mark solves")
	}
}

func TestViewsHiddenBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Now().Add(time.Hour)
	seedCompetition(t, env.db, &start, nil)

	if _, err := env.scoring.ListChallenges(ctx, ""); !errors.Is(err, util.ErrCompetitionNotStarted) {
		t.Errorf("ListChallenges() error = %v, want ErrCompetitionNotStarted", err)
	}
	if _, err := env.scoring.Scoreboard(ctx); !errors.Is(err, util.ErrCompetitionNotStarted) {
		t.Errorf("Scoreboard() error = %v, want ErrCompetitionNotStarted", err)
	}
}

func TestCompetitionMissing(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.scoring.Competition(context.Background()); !errors.Is(err, util.ErrCompetitionMissing) {
		t.Errorf("Competition() error = %v, want ErrCompetitionMissing", err)
	}
}
