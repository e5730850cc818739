// Package main is the entry point for the School Archives server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"schoolarchives/internal/cache"
	"schoolarchives/internal/config"
	"schoolarchives/internal/database"
	"schoolarchives/internal/engine"
	"schoolarchives/internal/handlers"
	"schoolarchives/internal/middleware"
	"schoolarchives/internal/realtime"
	"schoolarchives/internal/render"
	"schoolarchives/internal/router"
	"schoolarchives/internal/session"
	"schoolarchives/internal/storage"
	"schoolarchives/internal/store"
)

// cacheLogRetention bounds the invalidation audit trail.
const cacheLogRetention = 90 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Text logs in development, JSON everywhere else.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DSN(), 5)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	valkey, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkey.Close()

	secureCookies := !cfg.IsDev()
	sessions := session.NewStore(valkey, secureCookies)

	st := handlers.Stores{
		Pages:       store.NewPageStore(db),
		Students:    store.NewStudentStore(db),
		Collections: store.NewCollectionStore(db),
		Photos:      store.NewPhotoStore(db),
		Tags:        store.NewTagStore(db),
		Branches:    store.NewBranchStore(db),
		SiteContent: store.NewSiteContentStore(db),
		Social:      store.NewSocialStore(db),
		Users:       store.NewUserStore(db),
		CacheLog:    store.NewCacheLogStore(db),
	}

	// Photo storage is optional; uploads are disabled without it.
	var storageClient *storage.Client
	var imageHosts []string
	if cfg.StorageEnabled() {
		storageClient, err = storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		if cfg.S3PublicURL != "" {
			imageHosts = append(imageHosts, cfg.S3PublicURL)
		}
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, photo uploads disabled")
	}

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}
	eng, err := engine.New(st.Photos, st.Students)
	if err != nil {
		slog.Error("failed to initialize section engine", "error", err)
		os.Exit(1)
	}

	if n, err := st.CacheLog.Prune(ctx, time.Now().Add(-cacheLogRetention)); err != nil {
		slog.Warn("cache log prune failed", "error", err)
	} else if n > 0 {
		slog.Info("cache log pruned", "entries", n)
	}

	pageCache := cache.NewPageCache(valkey, cfg.PageCacheTTL)
	inv := cache.NewInvalidator(pageCache, st.CacheLog)

	hub := realtime.NewHub()
	go hub.Run(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := router.New(router.Deps{
		Sessions:     sessions,
		Branches:     st.Branches,
		Admin:        handlers.NewAdmin(renderer, st, storageClient, inv),
		Auth:         handlers.NewAuth(renderer, sessions, st.Users, middleware.NewRateLimiter(valkey, "login-account", 5, 15*time.Minute)),
		Public:       handlers.NewPublic(renderer, st, eng, pageCache, secureCookies),
		Social:       handlers.NewSocial(st.Photos, st.Social, hub, middleware.NewRateLimiter(valkey, "comment", 10, time.Minute)),
		LoginLimiter: middleware.NewRateLimiter(valkey, "login", cfg.LoginRateLimit, time.Minute),
		Registry:     reg,
		Ping: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			return valkey.Ping(ctx).Err()
		},
		ImageHosts:    imageHosts,
		SecureCookies: secureCookies,
	})

	// Uploads of several large photos need a generous read timeout.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}
