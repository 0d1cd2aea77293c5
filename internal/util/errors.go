package util

import (
	"errors"
	"fmt"
)

var (
	ErrTeamConflict          = errors.New("team name or email conflict")
	ErrEmailConflict         = errors.New("email conflict")
	ErrInvalidCredentials    = errors.New("invalid team name or password")
	ErrWrongPassword         = errors.New("incorrect password")
	ErrSessionNotFound       = errors.New("session not found")
	ErrTeamNotFound          = errors.New("team not found")
	ErrCompetitionNotStarted = errors.New("competition has not started")
	ErrCompetitionMissing    = errors.New("competition not loaded")
)

// FieldError 字段级校验错误
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}
