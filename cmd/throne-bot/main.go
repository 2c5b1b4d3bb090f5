package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"throne/internal/api"
	"throne/internal/bot"
	"throne/internal/combat"
	"throne/internal/config"
	"throne/internal/db"
	"throne/internal/discord"
	"throne/internal/economy"
	"throne/internal/lifecycle"
	"throne/internal/store"
	"throne/internal/throne"
	"throne/internal/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBotFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("throne bot failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.BotConfig, logger *slog.Logger) error {
	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()
	st := store.Open(ctx, backend, cfg.StartingBalance, logger.With("component", "store"))

	econ, err := economy.NewEngine(cfg.HouseEdge)
	if err != nil {
		return err
	}
	resolver := combat.NewRandomResolver()
	if cfg.Seed != nil {
		resolver = combat.NewResolver(*cfg.Seed)
		logger.Warn("combat seeded, outcomes are reproducible", "seed", *cfg.Seed)
	}

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}
	client := discord.NewClient(session, logger.With("component", "discord"))

	clock := quartz.NewReal()
	lifecycleMgr := lifecycle.NewManager(client, st, clock, cfg.NoticeTTL, logger.With("component", "lifecycle"))
	svc := throne.NewService(throne.Deps{
		Store:     st,
		Economy:   econ,
		Resolver:  resolver,
		Publisher: lifecycleMgr,
		Perms:     client,
		Renderer:  view.NewRenderer(cfg.ImagePath),
		Clock:     clock,
		Logger:    logger.With("component", "throne"),
	})
	dispatcher := bot.NewDispatcher(svc, client, lifecycleMgr, logger.With("component", "bot"))
	router := discord.NewRouter(ctx, session, dispatcher, lifecycleMgr, logger.With("component", "router"))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.New(logger.With("component", "api"), svc, econ).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return discord.Run(gctx, session, cfg.DiscordGuildID, router, logger)
	})
	g.Go(func() error {
		logger.Info("throne api listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openBackend(ctx context.Context, cfg config.BotConfig, logger *slog.Logger) (store.Backend, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using file store", "path", cfg.StorePath)
		return store.NewFileBackend(cfg.StorePath), func() {}, nil
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	backend := store.NewPostgresBackend(pool)
	if err := backend.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("using postgres store")
	return backend, pool.Close, nil
}
