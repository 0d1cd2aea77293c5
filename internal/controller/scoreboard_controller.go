package controller

import (
	"scrap_ctf/internal/service"
	"scrap_ctf/internal/util"

	"github.com/gin-gonic/gin"
)

type ScoreboardController struct {
	ScoringService *service.ScoringService
}

func NewScoreboardController(scoringService *service.ScoringService) *ScoreboardController {
	return &ScoreboardController{ScoringService: scoringService}
}

// Scoreboard godoc
// @Summary 排行榜
// @Description 按分数降序，同分时最后一次有效提交更早者在前；名次实时计算
// @Tags 排行榜
// @Produce  json
// @Success 200 {object} util.Response{data=service.Scoreboard} "成功"
// @Failure 403 {object} util.Response "比赛尚未开始"
// @Router /scoreboard [get]
func (c *ScoreboardController) Scoreboard(ctx *gin.Context) {
	board, err := c.ScoringService.Scoreboard(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, board)
}

// Home godoc
// @Summary 比赛首页
// @Description 比赛标题、渲染后的首页内容与起止时间
// @Tags 比赛
// @Produce  json
// @Success 200 {object} util.Response{data=model.Competition} "成功"
// @Failure 503 {object} util.Response "题库尚未加载"
// @Router /home [get]
func (c *ScoreboardController) Home(ctx *gin.Context) {
	competition, err := c.ScoringService.Competition(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, competition)
}
