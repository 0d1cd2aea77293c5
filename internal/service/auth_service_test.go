package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scrap_ctf/internal/util"
)

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		teamName  string
		email     string
		password  string
		wantField string
	}{
		{"missing name", "", "a@example.com", "pw", "name"},
		{"name too long", strings.Repeat("x", 65), "a@example.com", "pw", "name"},
		{"non ascii name", "队伍", "a@example.com", "pw", "name"},
		{"control character", "team\n1", "a@example.com", "pw", "name"},
		{"missing email", "team", "", "pw", "email"},
		{"bad email", "team", "not-an-email", "pw", "email"},
		{"missing password", "team", "a@example.com", "", "password"},
		{"password too long", "team", "a@example.com", strings.Repeat("a", 73), "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(ctx, tt.teamName, tt.email, tt.password)
			var fieldErr *util.FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("Register() error = %v, want FieldError", err)
			}
			if fieldErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", fieldErr.Field, tt.wantField)
			}
		})
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	team, err := env.auth.Register(ctx, "Team Rocket ~64", "rocket@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if team.Password == "hunter2" {
		t.Error("password stored in plain text")
	}

	conflicts := []struct{ name, email string }{
		{"Team Rocket ~64", "other@example.com"},
		{"Other", "rocket@example.com"},
	}
	for _, c := range conflicts {
		if _, err := env.auth.Register(ctx, c.name, c.email, "pw"); !errors.Is(err, util.ErrTeamConflict) {
			t.Errorf("Register(%s, %s) error = %v, want ErrTeamConflict", c.name, c.email, err)
		}
	}

	if _, err := env.auth.Login(ctx, "Team Rocket ~64", "wrong"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Errorf("Login(wrong password) error = %v", err)
	}
	if _, err := env.auth.Login(ctx, "nobody", "hunter2"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Errorf("Login(unknown team) error = %v", err)
	}

	token, err := env.auth.Login(ctx, "Team Rocket ~64", "hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	teamID, err := env.auth.LookupTeam(ctx, token)
	if err != nil || teamID != team.ID {
		t.Fatalf("LookupTeam() = %d, %v", teamID, err)
	}

	if err := env.auth.Logout(ctx, token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := env.auth.LookupTeam(ctx, token); !errors.Is(err, util.ErrSessionNotFound) {
		t.Errorf("LookupTeam() after logout error = %v", err)
	}
}
