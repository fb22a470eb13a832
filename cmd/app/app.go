package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/config"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/db"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/events"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/logger"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository/memstore"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/session"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/tracing"
)

const (
	configPath      = "./cmd/app/config.yml"
	shutdownTimeout = 10 * time.Second
)

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	if err = logger.SetLevel(conf.Logger.Level); err != nil {
		return fmt.Errorf("failed to set log level -> %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, conf.Tracing, conf.API.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing -> %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			zap.L().Warn("failed to flush traces", zap.Error(err))
		}
	}()

	stores, err := openStores(conf)
	if err != nil {
		return fmt.Errorf("failed to initialize storage -> %w", err)
	}

	hub := events.NewHub()
	deps := api.Deps{
		Stores: stores,
		Hub:    hub,
	}

	var relay *events.RedisRelay
	switch conf.Session.Driver {
	case config.SessionDriverRedis:
		rdb, err := session.NewRedisClient(ctx, conf.Session.RedisAddr, conf.Session.RedisPassword, conf.Session.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to initialize redis -> %w", err)
		}
		defer closeRedis(rdb)

		deps.Sessions = session.NewRedisStore(rdb, conf.API.SessionTTL)
		relay = events.NewRedisRelay(rdb, events.DefaultChannel, hub)
		deps.Publisher = relay
	default:
		deps.Sessions = session.NewMemoryStore(conf.API.SessionTTL)
	}

	err = config.Watch(configPath, func(updated *config.AppConfig) {
		if err := logger.SetLevel(updated.Logger.Level); err != nil {
			zap.L().Warn("ignoring log level from reloaded config", zap.Error(err))
			return
		}
		zap.L().Info("config reloaded", zap.String("log_level", updated.Logger.Level))
	}, func(err error) {
		zap.L().Warn("failed to reload config", zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("failed to watch config -> %w", err)
	}

	s := api.NewServer(conf, deps)
	srv := &http.Server{
		Addr:              ":" + s.Config.API.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			if err := relay.Forward(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("relay.Forward -> %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		zap.L().Info(fmt.Sprintf("starting server at %v", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start the server -> %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("srv.Shutdown -> %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStores(conf *config.AppConfig) (api.Stores, error) {
	var (
		gormDB *gorm.DB
		err    error
	)

	switch conf.Storage.Driver {
	case config.StorageDriverMemory:
		zap.L().Warn("using in-memory storage, data is lost on restart")
		return api.NewMemoryStores(memstore.New()), nil
	case config.StorageDriverSQLite:
		gormDB, err = db.OpenSQLite(conf.Storage.SQLitePath)
	default:
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL != "" {
			gormDB, err = db.OpenPostgresWithURL(dbURL)
		} else {
			gormDB, err = db.OpenPostgres(conf.Postgres)
		}
	}
	if err != nil {
		return api.Stores{}, err
	}

	return api.NewGormStores(gormDB), nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		zap.L().Warn("failed to close redis client", zap.Error(err))
	}
}
