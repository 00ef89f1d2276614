package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jmels/kalshi-stream/internal/auth"
	"github.com/jmels/kalshi-stream/internal/book"
	"github.com/jmels/kalshi-stream/internal/config"
	"github.com/jmels/kalshi-stream/internal/connection"
	"github.com/jmels/kalshi-stream/internal/router"
	"github.com/jmels/kalshi-stream/internal/store"
	"github.com/jmels/kalshi-stream/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/streamer.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting streamer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"ws_url", cfg.API.WSURL,
		"subscriptions", len(cfg.Subscriptions),
	)

	signer, err := auth.LoadSigner(cfg.Auth.KeyID, cfg.Auth.PrivateKeyPath)
	if err != nil {
		logger.Error("failed to load signing key", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	books := book.NewStore(logger)

	routerCfg := router.Config{
		EventBufferSize: cfg.Router.EventBufferSize,
		DriftThreshold:  cfg.Router.DriftThreshold,
	}
	rt := router.New(routerCfg, books, logger)

	for _, sub := range cfg.Subscriptions {
		if err := rt.Subscribe(sub.Channel, sub.Markets...); err != nil {
			logger.Error("invalid subscription",
				"channel", sub.Channel,
				"error", err,
			)
			os.Exit(1)
		}
	}

	// When a database is configured the recorder drains the event stream;
	// without one a discard loop keeps the router from backing up.
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		recorder := store.NewRecorder(cfg.Recorder, rt.Events(), pool, logger)
		recorder.Start(ctx)
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			recorder.Stop(stopCtx)
		}()
	} else {
		go func() {
			for range rt.Events() {
			}
		}()
	}

	connCfg := connection.Config{
		URL:              cfg.API.WSURL,
		HandshakeTimeout: cfg.Connection.HandshakeTimeout.Duration(),
		ReadTimeout:      cfg.Connection.ReadTimeout.Duration(),
		WriteTimeout:     cfg.Connection.WriteTimeout.Duration(),
		BackoffBaseWait:  cfg.Connection.BackoffBaseWait.Duration(),
		BackoffMaxWait:   cfg.Connection.BackoffMaxWait.Duration(),
	}
	manager := connection.NewManager(connCfg, signer, rt, logger)

	if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stream ended", "error", err)
		os.Exit(1)
	}

	logger.Info("streamer stopped")
}
