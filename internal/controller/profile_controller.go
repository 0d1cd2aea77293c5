package controller

import (
	"scrap_ctf/internal/middleware"
	"scrap_ctf/internal/service"
	"scrap_ctf/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	TeamService *service.TeamService
}

func NewProfileController(teamService *service.TeamService) *ProfileController {
	return &ProfileController{TeamService: teamService}
}

// GetProfile godoc
// @Summary 当前队伍资料
// @Tags 队伍
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.TeamProfile} "成功"
// @Failure 401 {object} util.Response "未登录"
// @Router /profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	teamID, ok := middleware.CurrentTeamID(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.TeamService.Profile(ctx.Request.Context(), teamID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// swagger:model UpdateProfileRequest
type UpdateProfileRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	CurrentPassword string `json:"current_password"`
}

// UpdateProfile godoc
// @Summary 修改队伍资料
// @Description 修改邮箱，password 非空时同时修改密码；需提供当前密码
// @Tags 队伍
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UpdateProfileRequest true "资料"
// @Success 200 {object} util.Response "成功"
// @Failure 400 {object} util.Response "字段校验失败"
// @Failure 401 {object} util.Response "当前密码错误"
// @Failure 409 {object} util.Response "邮箱冲突"
// @Router /profile [put]
func (c *ProfileController) UpdateProfile(ctx *gin.Context) {
	teamID, ok := middleware.CurrentTeamID(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var req UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.InvalidBody(ctx)
		return
	}

	if err := c.TeamService.UpdateProfile(ctx.Request.Context(), teamID, req.Email, req.Password, req.CurrentPassword); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
