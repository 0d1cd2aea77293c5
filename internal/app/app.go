package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scrap_ctf/internal/config"
	"scrap_ctf/internal/controller"
	"scrap_ctf/internal/repository"
	"scrap_ctf/internal/service"
	"scrap_ctf/pkg/database"
	"scrap_ctf/pkg/logger"
	"scrap_ctf/pkg/monitoring"
	"scrap_ctf/pkg/repowatcher"
	"scrap_ctf/pkg/security"
	"scrap_ctf/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	Scheduler *service.ReloadScheduler
	services  *services
	tracer    *sdktrace.TracerProvider
	limiters  []*security.Limiter
}

type repositories struct {
	competition *repository.CompetitionRepository
	challenge   *repository.ChallengeRepository
	team        *repository.TeamRepository
	session     *repository.SessionRepository
	solve       *repository.SolveRepository
}

type services struct {
	assets  service.AssetStore
	scoring *service.ScoringService
	loader  *service.RepositoryLoader
	auth    *service.AuthService
	team    *service.TeamService
}

type controllers struct {
	auth       *controller.AuthController
	challenge  *controller.ChallengeController
	scoreboard *controller.ScoreboardController
	profile    *controller.ProfileController
	asset      *controller.AssetController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		competition: repository.NewCompetitionRepository(db),
		challenge:   repository.NewChallengeRepository(db),
		team:        repository.NewTeamRepository(db),
		session:     repository.NewSessionRepository(db),
		solve:       repository.NewSolveRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{}

	assets, err := service.NewAssetStore(&cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.assets = assets

	var cache service.ScoreboardCache = service.NopScoreboardCache{}
	if rdb != nil {
		cache = service.NewRedisScoreboardCache(rdb)
	}

	policy := service.NewDecayPolicy(cfg.Scoring.Initial, cfg.Scoring.Floor, cfg.Scoring.Decay)
	s.scoring = service.NewScoringService(db, repos.competition, repos.challenge, repos.team, repos.session, repos.solve, policy, cache)
	s.loader = service.NewRepositoryLoader(cfg.Repository.Path, db, repos.competition, repos.challenge, assets, service.NewDescriptionRenderer(), s.scoring)
	s.auth = service.NewAuthService(repos.team, repos.session)
	s.team = service.NewTeamService(repos.team, repos.solve)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, a.Config.Server.Mode == gin.ReleaseMode),
		challenge:  controller.NewChallengeController(s.scoring),
		scoreboard: controller.NewScoreboardController(s.scoring),
		profile:    controller.NewProfileController(s.team),
		asset:      controller.NewAssetController(s.assets),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.newLimiter(cfg.RateLimit.MaxRequests, security.ByClientIP).Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// newLimiter 创建的限流器由 App 持有，清理协程随 Run 的 ctx 一起退出
func (a *App) newLimiter(maxRequests int, key security.KeyFunc) *security.Limiter {
	l := security.NewLimiter(maxRequests, a.Config.RateLimit.Window(), key)
	a.limiters = append(a.limiters, l)
	return l
}

func NewApp(cfg *config.Config) *App {
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis 仅用于排行榜缓存，可选
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("scrap-ctf", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	app.Scheduler = service.NewReloadScheduler(services.loader)

	// 启动时同步一次题库，失败则无数据可用，直接退出
	if _, err := app.Scheduler.RunOnce(context.Background()); err != nil {
		logger.Log.Fatal("Initial repository load failed",
			zap.String("path", cfg.Repository.Path),
			zap.Error(err),
		)
	}

	if cfg.LoadOnly {
		return app
	}

	controllers := app.initControllers(services, db, rdb)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.Scheduler.Run(ctx)
	for _, l := range a.limiters {
		go l.Run(ctx)
	}
	a.startReloadTriggers(ctx)

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}

// startReloadTriggers 将 SIGHUP 与题库目录变更转为同步请求
func (a *App) startReloadTriggers(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if !a.Scheduler.Trigger() {
					logger.Log.Info("Reload already pending, SIGHUP coalesced")
				}
			}
		}
	}()

	if a.Config.Repository.Watch {
		go func() {
			err := repowatcher.Watch(ctx, a.Config.Repository.Path, repowatcher.DefaultDebounce, func() {
				a.Scheduler.Trigger()
			})
			if err != nil {
				logger.Log.Error("Repository watcher stopped", zap.Error(err))
			}
		}()
	}
}
