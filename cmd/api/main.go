package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wfactory/certclaim/internal/certificate"
	"github.com/wfactory/certclaim/internal/common/handler"
	"github.com/wfactory/certclaim/internal/common/middleware"
	"github.com/wfactory/certclaim/internal/config"
	"github.com/wfactory/certclaim/internal/render"
	"github.com/wfactory/certclaim/pkg/certlock"
	"github.com/wfactory/certclaim/pkg/chain"
	"github.com/wfactory/certclaim/pkg/ethsig"
)

// @title W Factory Certificate Claim API
// @version 1.0
// @description Single-use claim tokens and the two-phase ownership proof for watermarked NFT certificates

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	// 1) Logger
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 2) Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("starting server",
		zap.String("environment", cfg.Server.Environment),
		zap.String("addr", cfg.Server.Addr()),
		zap.Int64("chain_id", cfg.Chain.ChainID),
		zap.String("contract", cfg.Chain.ContractAddress),
		zap.Bool("single_use", cfg.Cert.SingleUse),
	)

	// 3) Once-lock store per configured backend
	lockStore, rdb, db, err := initLockStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize lock store", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}
	if db != nil {
		defer db.Close()
	}

	// 4) Chain reader
	reader, err := chain.NewEthReader(cfg.Chain.RPCURLList(), logger)
	if err != nil {
		logger.Fatal("failed to initialize chain reader", zap.Error(err))
	}

	// 5) Router
	router := setupRouter(cfg, logger, lockStore, reader, rdb, db)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", cfg.Server.Addr()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func initLogger() (*zap.Logger, error) {
	if os.Getenv("ENVIRONMENT") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// initLockStore builds the once-lock store. Single-use disabled always
// yields the no-op store regardless of the configured backend.
func initLockStore(cfg *config.Config, logger *zap.Logger) (certlock.Store, *redis.Client, *sql.DB, error) {
	if !cfg.Cert.SingleUse || cfg.Cert.LockBackend == config.LockBackendDisabled {
		return certlock.NewDisabledStore(), nil, nil, nil
	}

	switch cfg.Cert.LockBackend {
	case config.LockBackendMemory:
		logger.Warn("using in-process lock store; single-use is only enforced within this instance")
		return certlock.NewMemoryStore(), nil, nil, nil

	case config.LockBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return certlock.NewRedisStore(rdb, logger), rdb, nil, nil

	case config.LockBackendMySQL:
		db, err := sql.Open("mysql", cfg.DB.DSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("database ping failed: %w", err)
		}
		return certlock.NewMySQLStore(db, logger), nil, db, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown lock backend %q", cfg.Cert.LockBackend)
	}
}

func setupRouter(cfg *config.Config, logger *zap.Logger, lockStore certlock.Store, reader chain.Reader, rdb *redis.Client, db *sql.DB) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	healthHandler := handler.NewHealthHandler(rdb, db)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	certService := certificate.NewService(certificate.Config{
		Secret:   []byte(cfg.Cert.Secret),
		ChainID:  cfg.Chain.ChainID,
		Contract: cfg.Chain.ContractAddress,
		TokenTTL: cfg.Cert.TokenTTL,
		BaseURL:  cfg.Cert.BaseURL,
	}, lockStore, ethsig.NewEthRecoverer(), reader, render.NewPNGRenderer(cfg.Cert.TemplatePath, logger), logger)

	certHandler := certificate.NewHandler(certService, cfg.Issuer.DevPass)

	v1 := router.Group("/api/v1")
	{
		certHandler.RegisterRoutes(v1)
	}

	return router
}
