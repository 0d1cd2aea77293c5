package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"scrap_ctf/internal/model"
	"scrap_ctf/internal/repository"
	"scrap_ctf/pkg/database"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// 单连接，所有写操作串行执行
	return openTestDB(t, 1)
}

// openTestDB 打开临时 SQLite 库。多连接时使用 WAL 与 BEGIN IMMEDIATE，
// 并发事务靠 busy_timeout 排队而不是直接报 SQLITE_BUSY。
func openTestDB(t *testing.T, maxConns int) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "scrap.db") +
		"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(gormlogger.Silent))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testEnv struct {
	db       *gorm.DB
	scoring  *ScoringService
	auth     *AuthService
	teams    *TeamService
	loader   *RepositoryLoader
	assets   *LocalAssetStore
	repoRoot string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithDB(t, newTestDB(t))
}

func newTestEnvWithDB(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()

	competitionRepo := repository.NewCompetitionRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	solveRepo := repository.NewSolveRepository(db)

	assets, err := NewLocalAssetStore(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("asset store: %v", err)
	}

	scoring := NewScoringService(db, competitionRepo, challengeRepo, teamRepo, sessionRepo, solveRepo,
		NewDecayPolicy(500, 100, 20), nil)
	repoRoot := t.TempDir()

	return &testEnv{
		db:       db,
		scoring:  scoring,
		auth:     NewAuthService(teamRepo, sessionRepo),
		teams:    NewTeamService(teamRepo, solveRepo),
		loader:   NewRepositoryLoader(repoRoot, db, competitionRepo, challengeRepo, assets, NewDescriptionRenderer(), scoring),
		assets:   assets,
		repoRoot: repoRoot,
	}
}

// writeFile creates path (relative to root) with its parent directories.
func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func seedCompetition(t *testing.T, db *gorm.DB, start, stop *time.Time) {
	t.Helper()
	competition := model.Competition{ID: model.CompetitionID, Title: "Test CTF", Home: "<p>hi</p>", Start: start, Stop: stop}
	if err := db.Create(&competition).Error; err != nil {
		t.Fatalf("seed competition: %v", err)
	}
}

func seedChallenge(t *testing.T, db *gorm.DB, id uint, slug, flag string, enabled bool) {
	t.Helper()
	challenge := model.Challenge{
		ID:      id,
		Slug:    slug,
		Title:   slug,
		Flag:    flag,
		Enabled: &enabled,
	}
	if err := db.Create(&challenge).Error; err != nil {
		t.Fatalf("seed challenge %s: %v", slug, err)
	}
}

// seedTeam creates a team with a session and returns the team id and token.
func seedTeam(t *testing.T, db *gorm.DB, name string) (uint, string) {
	t.Helper()
	team := model.Team{Name: name, Email: name + "@example.com", Password: "x"}
	if err := db.Create(&team).Error; err != nil {
		t.Fatalf("seed team %s: %v", name, err)
	}
	session := model.Session{Token: model.GenerateToken(), TeamID: team.ID}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return team.ID, session.Token
}

func loadTeam(t *testing.T, db *gorm.DB, id uint) model.Team {
	t.Helper()
	var team model.Team
	if err := db.First(&team, id).Error; err != nil {
		t.Fatalf("load team %d: %v", id, err)
	}
	return team
}

func loadChallenge(t *testing.T, db *gorm.DB, slug string) model.Challenge {
	t.Helper()
	var challenge model.Challenge
	if err := db.Where("slug = ?", slug).Take(&challenge).Error; err != nil {
		t.Fatalf("load challenge %s: %v", slug, err)
	}
	return challenge
}
