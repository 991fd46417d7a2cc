package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ArowuTest/draft-lottery-backend/api/routes"
	"github.com/ArowuTest/draft-lottery-backend/internal/config"
	"github.com/ArowuTest/draft-lottery-backend/internal/handlers"
	"github.com/ArowuTest/draft-lottery-backend/internal/logger"
	"github.com/ArowuTest/draft-lottery-backend/internal/realtime"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories/boltdb"
	mongorepo "github.com/ArowuTest/draft-lottery-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/draft-lottery-backend/internal/services"
	"github.com/ArowuTest/draft-lottery-backend/pkg/jwt"
	"github.com/ArowuTest/draft-lottery-backend/pkg/mongodb"
)

type stores struct {
	sessions repositories.SessionRepository
	users    repositories.UserRepository
	close    func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Init(cfg.Log.Environment, cfg.Log.Level); err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer logger.Sync()

	config.Watch(func(updated *config.Config) {
		if err := logger.SetLevel(updated.Log.Level); err != nil {
			zap.L().Warn("ignoring invalid log level", zap.String("level", updated.Log.Level), zap.Error(err))
			return
		}
		zap.L().Info("log level reloaded", zap.String("level", updated.Log.Level))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		zap.L().Error("server stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			zap.L().Warn("error closing store", zap.Error(err))
		}
	}()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	var publisher realtime.Publisher = hub
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		relay := realtime.NewRedisRelay(client, cfg.Redis.Channel, hub)
		go func() {
			if err := relay.Run(ctx); err != nil {
				zap.L().Error("redis relay stopped", zap.Error(err))
			}
		}()
		publisher = relay
		zap.L().Info("live events relayed through redis", zap.String("addr", cfg.Redis.Addr), zap.String("channel", cfg.Redis.Channel))
	}

	tokens := jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	lotteryService := services.NewLotteryService(st.sessions, publisher, services.LotteryOptions{
		DrawDelay:       cfg.Lottery.DrawDelay,
		MaxDrawAttempts: cfg.Lottery.MaxDrawAttempts,
	})
	authService := services.NewAuthService(st.users, tokens)

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		AuthHandler:    handlers.NewAuthHandler(authService),
		LotteryHandler: handlers.NewLotteryHandler(lotteryService),
		LiveHandler:    handlers.NewLiveHandler(lotteryService, hub, cfg.Server.AllowedOrigins),
		Tokens:         tokens,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zap.L().Info("server exiting")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverBolt:
		db, err := boltdb.Open(cfg.Bolt.Path)
		if err != nil {
			return nil, err
		}
		zap.L().Info("using bolt store", zap.String("path", cfg.Bolt.Path))
		return &stores{
			sessions: boltdb.NewSessionRepository(db),
			users:    boltdb.NewUserRepository(db),
			close:    func(context.Context) error { return db.Close() },
		}, nil
	default:
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDB.Database)
		sessions := mongorepo.NewSessionRepository(db)
		users := mongorepo.NewUserRepository(db)

		indexCtx, cancel := context.WithTimeout(ctx, cfg.MongoDB.Timeout)
		defer cancel()
		if err := sessions.EnsureIndexes(indexCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure session indexes: %w", err)
		}
		if err := users.EnsureIndexes(indexCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure user indexes: %w", err)
		}
		zap.L().Info("using mongodb store", zap.String("database", cfg.MongoDB.Database))
		return &stores{sessions: sessions, users: users, close: client.Disconnect}, nil
	}
}
