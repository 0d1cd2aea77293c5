package app

import (
	"strconv"

	"scrap_ctf/docs"
	"scrap_ctf/internal/middleware"
	"scrap_ctf/pkg/monitoring"
	"scrap_ctf/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 附件下载，本地目录或 MinIO 均经由 AssetStore
	router.GET("/static/files/:hash/:name", c.asset.Download)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.services.auth))
	{
		authGroup.GET("/profile", c.profile.GetProfile)
		authGroup.PUT("/profile", c.profile.UpdateProfile)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/home", c.scoreboard.Home)
		public.GET("/scoreboard", c.scoreboard.Scoreboard)
		public.GET("/challenges", middleware.TryAuthMiddleware(a.services.auth), c.challenge.ListChallenges)

		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.POST("/logout", c.auth.Logout)

		// 先认证再解析请求体；提交按队伍单独限流
		public.POST("/challenges/submit",
			middleware.AuthMiddleware(a.services.auth),
			a.newLimiter(a.Config.RateLimit.SubmitMaxRequests, submitKey).Middleware(),
			c.challenge.Submit,
		)
	}
}

// submitKey 同一队伍的多个会话共享提交额度
func submitKey(c *gin.Context) string {
	if teamID, ok := middleware.CurrentTeamID(c); ok {
		return "team:" + strconv.FormatUint(uint64(teamID), 10)
	}
	return security.ByClientIP(c)
}
