package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/realmkeeper/internal/config"
	"github.com/mcoot/realmkeeper/internal/dependencies/clock"
	"github.com/mcoot/realmkeeper/internal/dependencies/ids"
	"github.com/mcoot/realmkeeper/internal/dependencies/random"
	"github.com/mcoot/realmkeeper/internal/realtime"
	"github.com/mcoot/realmkeeper/internal/services/auth"
	"github.com/mcoot/realmkeeper/internal/services/events"
	"github.com/mcoot/realmkeeper/internal/services/generation"
	"github.com/mcoot/realmkeeper/internal/services/kingdom"
	"github.com/mcoot/realmkeeper/internal/services/migration"
	"github.com/mcoot/realmkeeper/internal/services/ownership"
	"github.com/mcoot/realmkeeper/internal/services/token"
	"github.com/mcoot/realmkeeper/internal/storage"
	"github.com/mcoot/realmkeeper/internal/storage/memory"
	redisstorage "github.com/mcoot/realmkeeper/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	IDs    ids.Generator

	// Services
	TokenService     *token.Service
	AuthService      *auth.Service
	Guard            *ownership.Guard
	Hub              *realtime.Hub
	Recorder         *events.Recorder
	KingdomService   *kingdom.Service
	GenerationEngine *generation.Engine
	Migrator         *migration.Migrator
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config

	TokenConfig      token.Config
	AuthConfig       auth.Config
	GenerationConfig generation.Config
	MigrationConfig  migration.Config
}

// ConfigFromEnv maps the server environment onto factory settings
func ConfigFromEnv(cfg config.Config, logger *slog.Logger) Config {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	if cfg.RedisPoolSize > 0 {
		redisCfg.PoolSize = cfg.RedisPoolSize
	}
	return Config{
		Logger:      logger,
		StorageType: cfg.StorageType,
		RedisConfig: &redisCfg,
		TokenConfig: token.Config{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Lifetime: cfg.JWTLifetime,
		},
		AuthConfig: auth.Config{
			BcryptCost:         cfg.BcryptCost,
			SuperAdminUsername: cfg.SuperAdminUsername,
		},
		GenerationConfig: generation.Config{MaxCount: cfg.GenerationMaxCount},
		MigrationConfig: migration.Config{
			AdminUsername: cfg.SuperAdminUsername,
			AdminPassword: cfg.MigrationAdminPassword,
			BcryptCost:    cfg.BcryptCost,
		},
	}
}

// New creates a new application with all dependencies wired.
// The realtime hub is started; call Close to stop it.
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := NewStorage(cfg)
	if err != nil {
		return nil, err
	}

	app, err := newWithDependencies(store, clock.New(), random.New(), ids.New(), cfg, logger)
	if err != nil {
		return nil, err
	}
	go app.Hub.Run()
	return app, nil
}

// NewStorage creates the store selected by cfg.StorageType
func NewStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// The hub is not started.
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, idGen ids.Generator, cfg Config, logger *slog.Logger) (*App, error) {
	tokenService, err := token.New(cfg.TokenConfig, clk, idGen)
	if err != nil {
		return nil, err
	}
	authService := auth.New(store, tokenService, clk, idGen, logger, cfg.AuthConfig)
	guard := ownership.New(store)
	hub := realtime.NewHub(logger)
	recorder := events.NewRecorder(store, hub, clk, idGen, logger)
	kingdomService := kingdom.New(store, store, guard, recorder, clk, idGen, logger)
	engine := generation.New(store, guard, recorder, clk, idGen, rnd, logger, cfg.GenerationConfig)
	migrator := migration.New(store, clk, idGen, logger, cfg.MigrationConfig)

	return &App{
		Storage:          store,
		Clock:            clk,
		Random:           rnd,
		IDs:              idGen,
		TokenService:     tokenService,
		AuthService:      authService,
		Guard:            guard,
		Hub:              hub,
		Recorder:         recorder,
		KingdomService:   kingdomService,
		GenerationEngine: engine,
		Migrator:         migrator,
	}, nil
}

// Ping reports whether the backing store is reachable
func (a *App) Ping(ctx context.Context) error {
	if pinger, ok := a.Storage.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// Close stops the realtime hub and releases the store connection
func (a *App) Close() error {
	a.Hub.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
