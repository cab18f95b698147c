package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plantdoc/internal/auth"
	"plantdoc/internal/cache"
	"plantdoc/internal/config"
	"plantdoc/internal/export"
	"plantdoc/internal/gateway"
	"plantdoc/internal/logging"
	"plantdoc/internal/repository"
	"plantdoc/internal/service"
	"plantdoc/internal/transport/rest"
	"plantdoc/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("PLANTDOC_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "plantdoc server:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping Redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	authn, err := auth.NewAuthenticator(cfg.JWTSecret, 0)
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}

	// Repositories and caches
	exportRepo := repository.NewExportRepo(db)
	if err := exportRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to create export indexes", zap.Error(err))
	}
	sessionCache := cache.NewSessionCache(rdb, cfg.SessionTTL)

	// Services
	client := gateway.NewClient(cfg.Gateway.BaseURL,
		gateway.WithEndpoints(cfg.Gateway.Endpoints),
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithLogger(logger.Named("gateway")))
	backends := service.ClientFactory(client)

	reportSvc := service.NewReportService(backends, exportRepo)
	assessmentSvc := service.NewAssessmentService(backends,
		export.NewExporter(cfg.Export, logger.Named("export")),
		service.WithSessionCache(sessionCache),
		service.WithExportLog(reportSvc),
		service.WithTransitionDelay(cfg.TransitionDelay),
		service.WithLogger(logger.Named("wizard")))

	wsHub := ws.NewHub(logger.Named("ws"))
	defer wsHub.Stop()
	assessmentSvc.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		Auth:              authn,
		AssessmentService: assessmentSvc,
		ReportService:     reportSvc,
		WSHub:             wsHub,
		Logger:            logger.Named("http"),
		CORSOrigins:       cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("gateway", cfg.Gateway.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}
