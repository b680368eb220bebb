package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/feed"
	httpServer "taskboard/internal/http"
	"taskboard/internal/http/handlers"
	"taskboard/internal/http/middleware"
	"taskboard/internal/logger"
	"taskboard/internal/repository"
	"taskboard/internal/service"
	"taskboard/internal/session"
	"taskboard/internal/share"
	"taskboard/internal/tasks"
	"taskboard/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

type taskStore interface {
	tasks.Store
	handlers.Pinger
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker := feed.NewBroker()
	var (
		store    taskStore
		audit    *service.AuditService
		listener *feed.Listener
	)
	if cfg.DatabaseURL != "" {
		dbPool := db.Connect(cfg.DatabaseURL)
		defer dbPool.Close()

		applied, err := db.Migrate(ctx, dbPool)
		if err != nil {
			logger.Fatal("migrations failed", "error", err)
		}
		logger.Info("migrations applied", "count", len(applied))

		store = repository.NewTaskRepository(dbPool, broker)
		audit = service.NewAuditService(repository.NewAuditRepository(dbPool))
		listener = feed.NewListener(dbPool, broker)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory task store")
		store = repository.NewMemoryTaskRepository(broker)
	}

	redisClient := middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	var revocations session.Revocations = session.NewMemoryRevocations()
	if redisClient != nil {
		defer redisClient.Close()
		revocations = session.NewRedisRevocations(redisClient)
	}

	tokens, err := session.NewTokens(cfg.JWTSecret, session.DefaultTTL)
	if err != nil {
		logger.Fatal("session tokens", "error", err)
	}
	var providers []session.Provider
	if cfg.GoogleEnabled() {
		providers = append(providers, session.NewGoogleProvider(
			cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectBaseURL+"/auth/callback/google"))
	} else {
		logger.Warn("google sign-in disabled, GOOGLE_CLIENT_ID/SECRET not set")
	}
	gate := session.NewGate(tokens, revocations, session.GateConfig{
		Landing:      "/",
		SecureCookie: cfg.CookieSecure,
	}, providers...)

	repo := tasks.NewRepository(store)
	resolver := share.NewResolver(cfg.ShareBaseURL, store)
	hub := ws.NewHub(repo, resolver, audit)
	h := handlers.NewHandler(repo, resolver, gate, audit, handlers.HandlerConfig{DevMode: cfg.DevMode})
	health := handlers.NewHealthHandler(store, handlers.RedisPinger(redisClient), version, hub.Len)

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(), middleware.CORS(cfg.AllowedOrigin))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httpServer.RegisterRoutes(r, h, health, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", "port", cfg.AppPort, "version", version, "dev_mode", cfg.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if listener != nil {
		g.Go(func() error {
			return listener.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}
