package middleware

import (
	"context"
	"errors"
	"strings"

	"scrap_ctf/internal/util"

	"github.com/gin-gonic/gin"
)

// SessionResolver maps a session token to its team.
type SessionResolver interface {
	LookupTeam(ctx context.Context, token string) (uint, error)
}

// SessionToken 优先读取 session Cookie，其次 Authorization: Bearer
func SessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(util.SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func AuthMiddleware(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		teamID, err := resolver.LookupTeam(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, util.ErrSessionNotFound) {
				util.Unauthorized(c)
			} else {
				util.LogInternalError(c, err)
			}
			c.Abort()
			return
		}

		c.Set(util.ContextTeamIDKey, teamID)
		c.Set(util.ContextTokenKey, token)
		c.Next()
	}
}

// TryAuthMiddleware 可选认证：会话无效时按游客继续处理
func TryAuthMiddleware(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token != "" {
			if teamID, err := resolver.LookupTeam(c.Request.Context(), token); err == nil {
				c.Set(util.ContextTeamIDKey, teamID)
				c.Set(util.ContextTokenKey, token)
			}
		}
		c.Next()
	}
}

func CurrentTeamID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(util.ContextTeamIDKey)
	if !ok {
		return 0, false
	}
	teamID, ok := v.(uint)
	return teamID, ok
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(util.ContextTokenKey)
}
