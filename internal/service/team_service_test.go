package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scrap_ctf/internal/util"
)

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	team, err := env.auth.Register(ctx, "alpha", "alpha@example.com", "old-pass")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.auth.Register(ctx, "beta", "beta@example.com", "pw"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		current  string
		want     error
	}{
		{"wrong current password", "new@example.com", "", "nope", util.ErrWrongPassword},
		{"email taken", "beta@example.com", "", "old-pass", util.ErrEmailConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.teams.UpdateProfile(ctx, team.ID, tt.email, tt.password, tt.current)
			if !errors.Is(err, tt.want) {
				t.Errorf("UpdateProfile() error = %v, want %v", err, tt.want)
			}
			profile, _ := env.teams.Profile(ctx, team.ID)
			if profile.Email != "alpha@example.com" {
				t.Errorf("email changed to %q on failure", profile.Email)
			}
		})
	}

	var fieldErr *util.FieldError
	if err := env.teams.UpdateProfile(ctx, team.ID, "new@example.com", "", ""); !errors.As(err, &fieldErr) || fieldErr.Field != "current_password" {
		t.Errorf("missing current password error = %v", err)
	}
	if err := env.teams.UpdateProfile(ctx, team.ID, "new@example.com", strings.Repeat("a", 73), "old-pass"); !errors.As(err, &fieldErr) || fieldErr.Field != "password" {
		t.Errorf("long password error = %v", err)
	}

	if err := env.teams.UpdateProfile(ctx, team.ID, "new@example.com", "new-pass", "old-pass"); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	profile, err := env.teams.Profile(ctx, team.ID)
	if err != nil {
		t.Fatal(err)
	}
	if profile.Email != "new@example.com" {
		t.Errorf("email = %q", profile.Email)
	}
	if _, err := env.auth.Login(ctx, "alpha", "new-pass"); err != nil {
		t.Errorf("Login with new password error = %v", err)
	}
	if _, err := env.auth.Login(ctx, "alpha", "old-pass"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Errorf("old password still accepted: %v", err)
	}
}

func TestProfileUnknownTeam(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.teams.Profile(context.Background(), 42); !errors.Is(err, util.ErrTeamNotFound) {
		t.Errorf("Profile() error = %v, want ErrTeamNotFound", err)
	}
}
