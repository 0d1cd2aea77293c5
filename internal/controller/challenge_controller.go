package controller

import (
	"net/http"

	"scrap_ctf/internal/middleware"
	"scrap_ctf/internal/service"
	"scrap_ctf/internal/util"

	"github.com/gin-gonic/gin"
)

type ChallengeController struct {
	ScoringService *service.ScoringService
}

func NewChallengeController(scoringService *service.ScoringService) *ChallengeController {
	return &ChallengeController{ScoringService: scoringService}
}

// ListChallenges godoc
// @Summary 题目列表
// @Description 已启用的题目，按当前分值升序；登录后标记本队已解出的题目。比赛开始前不可见
// @Tags 题目
// @Produce  json
// @Success 200 {object} util.Response{data=[]service.ChallengeView} "成功"
// @Failure 403 {object} util.Response "比赛尚未开始"
// @Router /challenges [get]
func (c *ChallengeController) ListChallenges(ctx *gin.Context) {
	views, err := c.ScoringService.ListChallenges(ctx.Request.Context(), middleware.CurrentToken(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// swagger:model SubmitRequest
type SubmitRequest struct {
	Slug string `json:"slug" binding:"required"`
	Flag string `json:"flag" binding:"required"`
}

// Submit godoc
// @Summary 提交 flag
// @Description 正确且首次提交返回 credited；错误、重复或比赛时间外的提交统一返回 rejected
// @Tags 题目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body SubmitRequest true "提交内容"
// @Success 200 {object} util.Response{data=object} "提交结果"
// @Failure 401 {object} util.Response "未登录"
// @Failure 429 {object} util.Response "请求过于频繁"
// @Router /challenges/submit [post]
func (c *ChallengeController) Submit(ctx *gin.Context) {
	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.InvalidBody(ctx)
		return
	}

	result, err := c.ScoringService.Submit(ctx.Request.Context(), middleware.CurrentToken(ctx), req.Slug, req.Flag)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	switch result {
	case service.SubmitUnauthenticated:
		util.Unauthorized(ctx)
	case service.SubmitCredited:
		util.Success(ctx, gin.H{"result": result, "slug": req.Slug})
	default:
		ctx.JSON(http.StatusOK, util.Response{
			Code:    http.StatusOK,
			Message: "Incorrect flag.",
			Data:    gin.H{"result": result, "slug": req.Slug},
		})
	}
}
