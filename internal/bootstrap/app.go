package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/bundles"
	"resume-tailor/internal/generate"
	"resume-tailor/internal/generator"
	"resume-tailor/internal/pipeline"
	"resume-tailor/internal/services/health"
	"resume-tailor/internal/shared/config"
	"resume-tailor/internal/shared/server"
	"resume-tailor/internal/shared/storage/db"
	"resume-tailor/internal/shared/storage/object"
	localstore "resume-tailor/internal/shared/storage/object/local"
	s3store "resume-tailor/internal/shared/storage/object/s3"
	"resume-tailor/resume/compile"
	"resume-tailor/resume/model"
	"resume-tailor/resume/render"
)

// App holds the process-wide dependencies, built once at startup.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Store        object.ObjectStore
	BundleRepo   bundles.Repo
	Renderer     *render.Renderer
	Compiler     *compile.Compiler
	Generator    pipeline.Generator
	Bundler      *bundles.Bundler
	Bundles      *bundles.Store
	Janitor      *bundles.Janitor
	Orchestrator *pipeline.Orchestrator
	Health       *health.Service
}

// Options adjusts Build for non-server callers.
type Options struct {
	// DBOptions overrides the pool defaults; zero uses server defaults.
	DBOptions *db.Options
	// SkipRouter leaves Router nil.
	SkipRouter bool
}

// Build prepares shared dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, DB: sqlDB}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = store

	if err := buildServices(app); err != nil {
		_ = app.Close()
		return nil, err
	}

	if !opts.SkipRouter {
		app.Router = server.NewRouter(cfg, server.Deps{
			Generate: generate.NewHandler(app.Orchestrator),
			Bundles:  bundles.NewHandler(app.Bundles),
			Health:   app.Health,
		})
	}
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory bundle metadata")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	base := db.DefaultServerOptions()
	if opts.DBOptions != nil {
		base = *opts.DBOptions
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(base))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory bundle metadata: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildGenerator(cfg config.Config, rules func(model.Region) generator.RegionRules) (pipeline.Generator, error) {
	m, err := generator.NewModel(generator.ModelOptions{
		Provider: cfg.LLMProvider,
		ModelID:  cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
	})
	switch {
	case errors.Is(err, generator.ErrNoProvider):
		log.Printf("bootstrap: LLM_PROVIDER=none; generation is unavailable")
		return generator.Offline{}, nil
	case err != nil:
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: generation provider unavailable: %v", err)
			return generator.Offline{}, nil
		}
		return nil, err
	}
	return generator.New(m, generator.Options{
		Timeout:     cfg.GenerationTimeout,
		MaxAttempts: cfg.GenerationMaxAttempts,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Rules:       rules,
	}), nil
}

func buildServices(app *App) error {
	cfg := app.Config

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	registry := renderer.Registry()
	rules := func(region model.Region) generator.RegionRules {
		code, spec := registry.Lookup(region)
		return generator.RegionRules{Region: code, Pages: spec.Pages, Style: spec.StyleNote, DateFormat: spec.DateFormat}
	}

	gen, err := buildGenerator(cfg, rules)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("work dir: %w", err)
	}
	compiler := compile.New(compile.Options{
		Cmd:       cfg.CompilerCmd,
		Timeout:   cfg.CompileTimeout,
		WorkRoot:  cfg.WorkDir,
		OutputDir: cfg.OutputDir,
	})

	var repo bundles.Repo
	if app.DB != nil {
		repo = &bundles.PGRepo{DB: app.DB}
	} else {
		repo = bundles.NewMemoryRepo()
	}
	bundleStore := &bundles.Store{Repo: repo, Objects: app.Store}
	janitor := bundles.NewJanitor(bundleStore, cfg.JanitorInterval)
	bundler := &bundles.Bundler{
		Repo:      repo,
		Objects:   app.Store,
		Retention: cfg.BundleRetention,
		OnStored:  func(bundles.ArtifactBundle) { janitor.Trigger() },
	}

	orchestrator := pipeline.New(gen, renderer, compiler, bundler, pipeline.Options{
		MaxInFlight:        cfg.MaxInFlight,
		JobTimeout:         cfg.JobTimeout,
		RequestTimeout:     cfg.RequestTimeout,
		Grace:              cfg.ShutdownGrace,
		FallbackUntailored: cfg.FallbackUntailored,
		PageLimit: func(region model.Region) int {
			_, spec := registry.Lookup(region)
			return spec.Pages
		},
	})

	checks := map[string]health.Check{
		"compiler": func(context.Context) error {
			_, err := exec.LookPath(compiler.Command())
			return err
		},
	}
	if app.DB != nil {
		checks["database"] = app.DB.PingContext
	}
	if _, offline := gen.(generator.Offline); offline {
		checks["generator"] = func(context.Context) error { return generator.ErrNoProvider }
	}

	app.BundleRepo = repo
	app.Renderer = renderer
	app.Compiler = compiler
	app.Generator = gen
	app.Bundler = bundler
	app.Bundles = bundleStore
	app.Janitor = janitor
	app.Orchestrator = orchestrator
	app.Health = health.NewService(checks)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
