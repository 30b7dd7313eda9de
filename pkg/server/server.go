// Package server provides a public API for embedding the STAC search service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/inpe-stac-search/internal/api"
	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/backend/memory"
	"github.com/robert-malhotra/inpe-stac-search/internal/backend/sqlite"
	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
	"github.com/robert-malhotra/inpe-stac-search/internal/config"
	"github.com/robert-malhotra/inpe-stac-search/internal/metrics"
	"github.com/robert-malhotra/inpe-stac-search/internal/search"
	"github.com/robert-malhotra/inpe-stac-search/internal/translate"
)

// BackendType specifies which repository holds the catalog.
type BackendType string

const (
	// BackendSQLite stores the catalog in a SQLite database file.
	BackendSQLite BackendType = config.BackendSQLite
	// BackendMemory keeps the catalog in process memory.
	BackendMemory BackendType = config.BackendMemory
)

// Options configures the STAC search server.
type Options struct {
	// BaseURL is the public-facing URL for self-referential links (required).
	// Example: "https://api.example.com/stac" or "http://localhost:8080"
	BaseURL string

	// Backend specifies which repository to use.
	// Default: BackendSQLite
	Backend BackendType

	// DatabasePath is the SQLite database file.
	// Default: "catalog.db"
	DatabasePath string

	// SeedDir holds collection and item fixtures loaded into an empty repository.
	// Default: "" (no seeding)
	SeedDir string

	// Timeout bounds the repository work of one request.
	// Default: 30s
	Timeout time.Duration

	// PerCollectionCounts computes multi-collection counts with one count per
	// collection instead of a grouped query.
	// Default: false
	PerCollectionCounts bool

	// Title is the STAC API title.
	// Default: "Scene Catalog STAC API"
	Title string

	// Description is the STAC API description.
	// Default: "STAC search over a remote-sensing scene catalog"
	Description string

	// TIFRoot and PNGRoot prefix stored band and thumbnail paths.
	TIFRoot string
	PNGRoot string

	// DefaultLimit is the default number of items per page.
	// Default: 10
	DefaultLimit int

	// MaxLimit is the maximum number of items per page.
	// Default: 1000
	MaxLimit int

	// IDsScope is "global" (default) or "collections".
	IDsScope string

	// SpatialMode is "overlap" (default) or "legacy".
	SpatialMode string

	// EnableSearch enables the /search endpoints.
	EnableSearch bool

	// EnableQueryables enables the /queryables endpoints.
	EnableQueryables bool

	// EnableMetrics enables request metrics and /metrics.
	EnableMetrics bool

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a STAC search server that can be embedded in another application.
type Server struct {
	router chi.Router
	close  func() error
}

// New creates a new server with the given options.
func New(ctx context.Context, opts Options) (*Server, error) {
	// Apply defaults
	if opts.Backend == "" {
		opts.Backend = BackendSQLite
	}
	if opts.DatabasePath == "" {
		opts.DatabasePath = "catalog.db"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Title == "" {
		opts.Title = "Scene Catalog STAC API"
	}
	if opts.Description == "" {
		opts.Description = "STAC search over a remote-sensing scene catalog"
	}
	if opts.DefaultLimit == 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit == 0 {
		opts.MaxLimit = 1000
	}
	if opts.IDsScope == "" {
		opts.IDsScope = config.IDsScopeGlobal
	}
	if opts.SpatialMode == "" {
		opts.SpatialMode = config.SpatialModeOverlap
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	grouped := config.GroupedCountsNative
	if opts.PerCollectionCounts {
		grouped = config.GroupedCountsPerCollection
	}

	// Build internal config
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Backend: config.BackendConfig{
			Type:          string(opts.Backend),
			Path:          opts.DatabasePath,
			SeedDir:       opts.SeedDir,
			Timeout:       opts.Timeout,
			MaxOpenConns:  10,
			GroupedCounts: grouped,
		},
		STAC: config.STACConfig{
			Version:     "1.0.0",
			BaseURL:     opts.BaseURL,
			Title:       opts.Title,
			Description: opts.Description,
		},
		Assets: config.AssetConfig{
			TIFRoot: opts.TIFRoot,
			PNGRoot: opts.PNGRoot,
		},
		Search: config.SearchConfig{
			DefaultLimit: opts.DefaultLimit,
			MaxLimit:     opts.MaxLimit,
			IDsScope:     opts.IDsScope,
			SpatialMode:  opts.SpatialMode,
		},
		Features: config.FeatureConfig{
			EnableSearch:     opts.EnableSearch,
			EnableQueryables: opts.EnableQueryables,
			EnableMetrics:    opts.EnableMetrics,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	return NewFromConfig(ctx, cfg, opts.Logger)
}

// NewFromConfig wires a server from a loaded configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Backend.SeedDir != "" {
		if err := seed(ctx, repo, cfg.Backend.SeedDir, logger); err != nil {
			closeRepo()
			return nil, err
		}
	}

	if cfg.Backend.GroupedCounts == config.GroupedCountsPerCollection {
		repo = backend.NewGrouped(repo)
		logger.Info("using per-collection counts")
	}

	translator := translate.NewTranslator(translate.Options{
		IDsScope:     translate.IDsScope(cfg.Search.IDsScope),
		SpatialMode:  translate.SpatialMode(cfg.Search.SpatialMode),
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	}, logger)

	materializer := translate.NewMaterializer(cfg.STAC.BaseURL, cfg.STAC.Version, translate.AssetRoots{
		TIF: cfg.Assets.TIFRoot,
		PNG: cfg.Assets.PNGRoot,
	})

	instrumenters := search.Instrumenters{search.NewLogInstrumenter(logger)}
	var reg *metrics.Metrics
	if cfg.Features.EnableMetrics {
		reg = metrics.New()
		instrumenters = append(instrumenters, reg)
	}

	service := search.NewService(repo, translator, materializer, search.Options{
		Timeout:      cfg.Backend.Timeout,
		Instrumenter: instrumenters,
	}, logger)

	handlers := api.NewHandlers(cfg, service, logger)
	if reg != nil {
		handlers = handlers.WithMetrics(reg)
	}

	return &Server{
		router: api.NewRouter(handlers, logger),
		close:  closeRepo,
	}, nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backend.Repository, func() error, error) {
	switch cfg.Backend.Type {
	case config.BackendMemory:
		logger.Info("using memory backend")
		return memory.New(), func() error { return nil }, nil
	case config.BackendSQLite:
		repo, err := sqlite.Open(ctx, sqlite.Config{
			Path:         cfg.Backend.Path,
			MaxOpenConns: cfg.Backend.MaxOpenConns,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite backend: %w", err)
		}
		logger.Info("using sqlite backend", "path", cfg.Backend.Path)
		return repo, repo.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
}

// seed loads the fixtures in dir into repo. A repository that already holds
// collections is left alone, so restarting against the same database is safe.
func seed(ctx context.Context, repo backend.Repository, dir string, logger *slog.Logger) error {
	w, ok := repo.(backend.Writer)
	if !ok {
		return errors.New("backend does not accept seed data")
	}

	existing, err := repo.Collections(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect repository: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("repository already populated, skipping seed",
			"dir", dir,
			"collections", len(existing),
		)
		return nil
	}

	ds, err := catalog.LoadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to load seed data: %w", err)
	}
	if err := backend.Seed(ctx, w, ds); err != nil {
		return fmt.Errorf("failed to seed repository: %w", err)
	}

	logger.Info("seeded repository",
		"dir", dir,
		"collections", len(ds.Collections),
		"items", len(ds.Items),
	)
	return nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close releases the repository.
func (s *Server) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}
