package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scrap_ctf/internal/model"
	"scrap_ctf/internal/repository"
	"scrap_ctf/pkg/logger"
	"scrap_ctf/pkg/monitoring"
	"scrap_ctf/pkg/tracing"

	"github.com/pelletier/go-toml/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CompetitionFile = "ctf.toml"
	ChallengeFile   = "challenge.toml"
)

var ErrDuplicateSlug = errors.New("duplicate challenge slug")

type competitionDefinition struct {
	Title string     `toml:"title"`
	Home  string     `toml:"home"`
	Start *time.Time `toml:"start"`
	Stop  *time.Time `toml:"stop"`
}

type challengeDefinition struct {
	Slug        string   `toml:"slug"`
	Title       string   `toml:"title"`
	Author      string   `toml:"author"`
	Description string   `toml:"description"`
	Tags        []string `toml:"tags"`
	Files       []string `toml:"files"`
	Flag        string   `toml:"flag"`
	Enabled     *bool    `toml:"enabled"`
}

// ReloadResult 一次同步的统计
type ReloadResult struct {
	Challenges    int
	Enabled       int
	Created       int
	Updated       int
	Deleted       int
	AssetsRemoved int
	Duration      time.Duration
}

type RepositoryLoader struct {
	Root            string
	DB              *gorm.DB
	CompetitionRepo *repository.CompetitionRepository
	ChallengeRepo   *repository.ChallengeRepository
	Assets          AssetStore
	Renderer        *DescriptionRenderer
	Scoring         *ScoringService
}

func NewRepositoryLoader(
	root string,
	db *gorm.DB,
	competitionRepo *repository.CompetitionRepository,
	challengeRepo *repository.ChallengeRepository,
	assets AssetStore,
	renderer *DescriptionRenderer,
	scoring *ScoringService,
) *RepositoryLoader {
	return &RepositoryLoader{
		Root:            root,
		DB:              db,
		CompetitionRepo: competitionRepo,
		ChallengeRepo:   challengeRepo,
		Assets:          assets,
		Renderer:        renderer,
		Scoring:         scoring,
	}
}

// Reconcile converges the store to the repository tree. Every definition file
// is parsed before anything is written, so a malformed file or a capacity
// overflow leaves the store untouched. The database work commits as one
// transaction; asset directories no enabled challenge references are swept
// only after that commit. Assets first stored by a failed run are removed
// again, so a failure leaves the asset store as it was too.
func (l *RepositoryLoader) Reconcile(ctx context.Context) (*ReloadResult, error) {
	ctx, span := tracing.Start(ctx, "repository.Reconcile")
	defer span.End()

	start := time.Now()
	result, err := l.reconcile(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return nil, err
	}
	result.Duration = time.Since(start)

	monitoring.ReloadDuration.Observe(result.Duration.Seconds())
	monitoring.ChallengesEnabled.Set(float64(result.Enabled))
	span.SetAttributes(
		attribute.Int("challenges", result.Challenges),
		attribute.Int("assets_removed", result.AssetsRemoved),
	)

	logger.Log.Info("Repository reconciled",
		zap.String("root", l.Root),
		zap.Int("challenges", result.Challenges),
		zap.Int("enabled", result.Enabled),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("assetsRemoved", result.AssetsRemoved),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (l *RepositoryLoader) reconcile(ctx context.Context) (*ReloadResult, error) {
	competition, err := l.loadCompetition()
	if err != nil {
		return nil, err
	}

	definitions, err := l.loadDefinitions()
	if err != nil {
		return nil, err
	}

	challenges := make([]*model.Challenge, 0, len(definitions))
	live := make(map[string]struct{})
	// 本次新写入的附件，同步失败时删除
	var fresh []string
	for _, def := range definitions {
		challenge, assets, err := l.buildChallenge(ctx, def)
		for _, asset := range assets {
			if asset.Fresh {
				fresh = append(fresh, asset.Hash)
			}
		}
		if err != nil {
			l.discardAssets(ctx, fresh)
			return nil, err
		}
		challenges = append(challenges, challenge)
		if challenge.IsEnabled() {
			for _, asset := range assets {
				live[asset.Hash] = struct{}{}
			}
		}
	}

	result := &ReloadResult{Challenges: len(challenges)}
	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		competitionRepo := l.CompetitionRepo.WithTx(tx)
		challengeRepo := l.ChallengeRepo.WithTx(tx)

		if _, err := competitionRepo.LockForUpdate(ctx); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if _, err := competitionRepo.Upsert(ctx, competition); err != nil {
			return fmt.Errorf("upsert competition: %w", err)
		}

		stored, err := challengeRepo.ListAll(ctx)
		if err != nil {
			return err
		}
		existing := make(map[string]*model.Challenge, len(stored))
		for i := range stored {
			existing[stored[i].Slug] = &stored[i]
		}

		if err := challengeRepo.MarkAllPending(ctx); err != nil {
			return err
		}

		for _, challenge := range challenges {
			created, updated, err := challengeRepo.Upsert(ctx, challenge, existing[challenge.Slug])
			if err != nil {
				return fmt.Errorf("upsert challenge %q: %w", challenge.Slug, err)
			}
			if created {
				result.Created++
			}
			if updated {
				result.Updated++
			}
			if challenge.IsEnabled() {
				result.Enabled++
			}
		}

		deleted, err := challengeRepo.DeletePending(ctx)
		if err != nil {
			return err
		}
		result.Deleted = int(deleted)

		_, err = l.Scoring.RecomputeScores(ctx, tx)
		return err
	})
	if err != nil {
		l.discardAssets(ctx, fresh)
		return nil, err
	}

	removed, err := l.Assets.Sweep(ctx, live)
	if err != nil {
		return nil, fmt.Errorf("sweep assets: %w", err)
	}
	result.AssetsRemoved = len(removed)

	l.Scoring.Cache.Invalidate(ctx)
	return result, nil
}

func (l *RepositoryLoader) loadCompetition() (*model.Competition, error) {
	var def competitionDefinition
	path := filepath.Join(l.Root, CompetitionFile)
	if err := decodeDefinition(path, &def); err != nil {
		return nil, err
	}
	if def.Title == "" {
		return nil, fmt.Errorf("%s: title is required", path)
	}

	home, err := l.Renderer.Render(def.Home, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: render home: %w", path, err)
	}
	return &model.Competition{
		Title: def.Title,
		Home:  home,
		Start: utcPtr(def.Start),
		Stop:  utcPtr(def.Stop),
	}, nil
}

type loadedDefinition struct {
	dir string
	def challengeDefinition
}

// loadDefinitions 读取所有一级子目录中的 challenge.toml
func (l *RepositoryLoader) loadDefinitions() ([]loadedDefinition, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, err
	}

	var definitions []loadedDefinition
	slugs := make(map[string]string)
	for _, entry := range entries {
		dir := filepath.Join(l.Root, entry.Name())
		path := filepath.Join(dir, ChallengeFile)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		var def challengeDefinition
		if err := decodeDefinition(path, &def); err != nil {
			return nil, err
		}
		if err := validateDefinition(&def); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if other, ok := slugs[def.Slug]; ok {
			return nil, fmt.Errorf("%w %q in %s and %s", ErrDuplicateSlug, def.Slug, other, dir)
		}
		slugs[def.Slug] = dir
		definitions = append(definitions, loadedDefinition{dir: dir, def: def})
	}

	if len(definitions) > model.SolveSetCapacity {
		return nil, fmt.Errorf("%d challenges in repository: %w", len(definitions), model.ErrChallengeCapacity)
	}
	return definitions, nil
}

func validateDefinition(def *challengeDefinition) error {
	switch {
	case def.Slug == "":
		return errors.New("slug is required")
	case len(def.Slug) > 64:
		return fmt.Errorf("slug %q is longer than 64 bytes", def.Slug)
	case def.Title == "":
		return errors.New("title is required")
	case def.Flag == "":
		return errors.New("flag is required")
	case def.Enabled == nil:
		return errors.New("enabled is required")
	}
	return nil
}

// buildChallenge hashes the declared files, stores them when the challenge is
// enabled and renders the description with links pointing at the stored copies.
// The assets handled so far are returned even on error.
func (l *RepositoryLoader) buildChallenge(ctx context.Context, loaded loadedDefinition) (*model.Challenge, []Asset, error) {
	def := loaded.def
	links := make(map[string]string, len(def.Files))
	assets := make([]Asset, 0, len(def.Files))

	for _, file := range def.Files {
		if !filepath.IsLocal(file) {
			return nil, assets, fmt.Errorf("challenge %q: file %q escapes its directory", def.Slug, file)
		}
		data, err := os.ReadFile(filepath.Join(loaded.dir, file))
		if err != nil {
			return nil, assets, fmt.Errorf("challenge %q: %w", def.Slug, err)
		}

		name := filepath.Base(file)
		var asset Asset
		if *def.Enabled {
			asset, err = l.Assets.Store(ctx, data, name)
		} else {
			asset, err = AssetFor(data, name)
		}
		if err != nil {
			return nil, assets, fmt.Errorf("challenge %q: store %q: %w", def.Slug, file, err)
		}
		links[asset.Name] = asset.URL
		assets = append(assets, asset)
	}

	description, err := l.Renderer.Render(def.Description, links)
	if err != nil {
		return nil, assets, fmt.Errorf("challenge %q: render description: %w", def.Slug, err)
	}

	tags := def.Tags
	if tags == nil {
		tags = []string{}
	}
	enabled := *def.Enabled
	return &model.Challenge{
		Slug:        def.Slug,
		Title:       def.Title,
		Author:      def.Author,
		Description: description,
		Tags:        datatypes.JSONSlice[string](tags),
		Flag:        def.Flag,
		Enabled:     &enabled,
	}, assets, nil
}

// discardAssets 删除失败的同步中新写入的附件，已有的附件不动
func (l *RepositoryLoader) discardAssets(ctx context.Context, hashes []string) {
	for _, hash := range hashes {
		if err := l.Assets.Remove(ctx, hash); err != nil {
			logger.Log.Warn("Failed to discard asset", zap.String("hash", hash), zap.Error(err))
		}
	}
}

func decodeDefinition(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
