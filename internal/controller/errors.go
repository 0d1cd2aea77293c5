package controller

import (
	"errors"
	"net/http"

	"scrap_ctf/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 将服务层错误映射为统一响应，未知错误只返回通用信息
func respondError(ctx *gin.Context, err error) {
	var fieldErr *util.FieldError
	switch {
	case errors.As(err, &fieldErr):
		util.ValidationError(ctx, fieldErr)
	case errors.Is(err, util.ErrTeamConflict):
		util.Conflict(ctx, "Team name or email conflict.")
	case errors.Is(err, util.ErrEmailConflict):
		util.Conflict(ctx, "Email conflict.")
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, "Invalid team name or password.")
	case errors.Is(err, util.ErrWrongPassword):
		util.Error(ctx, http.StatusUnauthorized, "Incorrect password.")
	case errors.Is(err, util.ErrSessionNotFound), errors.Is(err, util.ErrTeamNotFound):
		util.Unauthorized(ctx)
	case errors.Is(err, util.ErrCompetitionNotStarted):
		util.Error(ctx, http.StatusForbidden, "Competition has not started.")
	case errors.Is(err, util.ErrCompetitionMissing):
		util.Error(ctx, http.StatusServiceUnavailable, "Competition not loaded.")
	default:
		util.LogInternalError(ctx, err)
	}
}
