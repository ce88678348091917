package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/ballot-consensus-backend/internal/data/db"
	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	apphttp "github.com/yungbote/ballot-consensus-backend/internal/http"
	"github.com/yungbote/ballot-consensus-backend/internal/jobs/worker"
	"github.com/yungbote/ballot-consensus-backend/internal/observability"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
	"github.com/yungbote/ballot-consensus-backend/internal/platform/redislock"
	"github.com/yungbote/ballot-consensus-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics
	Server   *apphttp.Server
	Worker   *worker.Worker

	redis        *goredis.Client
	closeDB      func() error
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// OpenDatabase connects to postgres using cfg.
func OpenDatabase(cfg Config, log *logger.Logger) (*db.PostgresService, error) {
	return db.NewPostgresService(db.PostgresConfig{
		DSN:          cfg.DSN(),
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxOpenConns / 2,
	}, log)
}

// Migrate creates or updates every table and index.
func Migrate(gdb *gorm.DB) error {
	if err := db.AutoMigrateAll(gdb); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := db.EnsureIndexes(gdb); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}

func New(ctx context.Context, cfg Config, log *logger.Logger) (*App, error) {
	pg, err := OpenDatabase(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a, err := build(ctx, cfg, log, pg.DB(), nil)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	a.closeDB = pg.Close
	return a, nil
}

// build wires every component on top of an open database.
func build(ctx context.Context, cfg Config, log *logger.Logger, gdb *gorm.DB, clock services.Clock) (*App, error) {
	if cfg.AutoMigrate {
		log.Info("Running migrations...")
		if err := Migrate(gdb); err != nil {
			return nil, err
		}
	}

	a := &App{Log: log, DB: gdb, Cfg: cfg}

	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    cfg.OtelEndpoint,
		SampleRatio: cfg.OtelSampleRatio,
	})

	if cfg.MetricsEnabled {
		a.Metrics = observability.NewMetrics()
		if err := a.Metrics.RegisterPostgres(gdb); err != nil {
			log.Warn("postgres pool metrics unavailable", "error", err)
		}
	}

	var lock services.RunLock
	if cfg.RedisAddr != "" {
		rdb, err := redislock.NewClient(ctx, redislock.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.redis = rdb
		lock = redislock.New(rdb, cfg.ResolverLockKey, cfg.ResolverLockTTL, log)
		log.Info("resolver runs serialized through redis", "key", cfg.ResolverLockKey)
	}

	a.Repos = wireRepos(gdb, log)
	a.Services = wireServices(gdb, log, cfg, a.Repos, a.Metrics, lock, clock)

	w, err := worker.NewWorker(log, a.Services.Resolver, worker.Config{
		Schedule:   cfg.ResolverSchedule,
		RunOnStart: cfg.ResolverOnStart,
	})
	if err != nil {
		a.closeRedis()
		return nil, err
	}
	a.Worker = w

	a.Server = apphttp.NewServer(cfg.Address(), wireRouterConfig(gdb, log, cfg, a.Services, a.Metrics))
	return a, nil
}

// Start launches the background collectors and the resolver schedule.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.Metrics.StartCaseCollector(ctx, a.Log, a.Cfg.CaseMetricsInterval, func(ctx context.Context) (map[types.CaseStatus]int64, error) {
		return a.Services.Cases.CountByStatus(dbctx.Context{Ctx: ctx})
	})
	if a.redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.redis, 0)
	}
	a.Worker.Start(ctx)
}

// Run serves HTTP until Shutdown.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("server listening", "address", a.Cfg.Address())
	return a.Server.Run()
}

// Shutdown drains HTTP, stops the schedule and releases every connection.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.Worker != nil {
		a.Worker.Stop()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
	}
	a.closeRedis()
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
		a.closeDB = nil
	}
	a.Log.Sync()
	return errors.Join(errs...)
}

func (a *App) closeRedis() {
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
}

// ShutdownTimeout is the grace period given to Shutdown.
func (a *App) ShutdownTimeout() time.Duration {
	if a.Cfg.ShutdownTimeout <= 0 {
		return 30 * time.Second
	}
	return a.Cfg.ShutdownTimeout
}
