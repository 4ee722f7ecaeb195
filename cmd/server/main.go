package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bizchat/internal/config"
	"bizchat/internal/ratelimit"
	"bizchat/internal/realtime"
	"bizchat/internal/server"
	"bizchat/internal/storage"
	"bizchat/internal/store"
	"bizchat/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var st store.Store
	if cfg.DatabaseURL != "" {
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to init database", "err", err)
			os.Exit(1)
		}
		st = gormStore
		logger.Info("using postgres store")
	} else {
		st = store.NewMemoryStore()
		logger.Warn("no databaseURL configured, using in-memory store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDemoData {
		if err := st.Seed(ctx); err != nil {
			logger.Error("failed to seed demo data", "err", err)
			os.Exit(1)
		}
		logger.Info("demo data seeded", "business", store.SentinelBusinessID)
	}

	files, err := storage.NewFileStore(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		logger.Error("failed to init file storage", "err", err)
		os.Exit(1)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "",
			cfg.APIRateLimit, time.Duration(cfg.APIRateWindowSecs)*time.Second)
		if err != nil {
			logger.Error("failed to init rate limiter", "err", err)
			os.Exit(1)
		}
		logger.Info("api rate limiting enabled", "limit", cfg.APIRateLimit, "window_seconds", cfg.APIRateWindowSecs)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		logger.Error("failed to parse trusted proxies", "err", err)
		os.Exit(1)
	}

	hub := realtime.NewHub(realtime.DefaultTypingTimeout)
	httpServer := server.New(server.Config{
		Store:          st,
		Files:          files,
		Hub:            hub,
		Realtime:       realtime.NewHandler(hub, st, cfg.CORSOrigin),
		Limiter:        limiter,
		TrustedProxies: trusted,
		CORSOrigin:     cfg.CORSOrigin,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("bizchat server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
