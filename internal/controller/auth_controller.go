package controller

import (
	"net/http"

	"scrap_ctf/internal/middleware"
	"scrap_ctf/internal/service"
	"scrap_ctf/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	IsRelease   bool // 生产环境下 Cookie 仅通过 HTTPS 发送
}

func NewAuthController(authService *service.AuthService, isRelease bool) *AuthController {
	return &AuthController{
		AuthService: authService,
		IsRelease:   isRelease,
	}
}

// swagger:model RegisterRequest
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register godoc
// @Summary 注册队伍
// @Description 队名为 1-64 个可打印 ASCII 字符，队名与邮箱唯一
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "队伍注册信息"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "字段校验失败"
// @Failure 409 {object} util.Response "队名或邮箱冲突"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.InvalidBody(ctx)
		return
	}

	team, err := c.AuthService.Register(ctx.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"id": team.ID, "name": team.Name})
}

// swagger:model LoginRequest
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Login godoc
// @Summary 队伍登录
// @Description 校验队名与密码，创建会话并写入 session Cookie
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "登录凭据"
// @Success 200 {object} util.Response{data=object} "登录成功"
// @Failure 400 {object} util.Response "字段校验失败"
// @Failure 401 {object} util.Response "队名或密码错误"
// @Router /login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.InvalidBody(ctx)
		return
	}

	token, err := c.AuthService.Login(ctx.Request.Context(), req.Name, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(util.SessionCookie, token, util.SessionMaxAge, "/", "", c.IsRelease, true)
	util.Success(ctx, gin.H{"token": token})
}

// Logout godoc
// @Summary 退出登录
// @Description 删除当前会话
// @Tags 认证
// @Produce  json
// @Success 200 {object} util.Response "成功"
// @Router /logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	if err := c.AuthService.Logout(ctx.Request.Context(), middleware.SessionToken(ctx)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(util.SessionCookie, "", -1, "/", "", c.IsRelease, true)
	util.Success(ctx, nil)
}
