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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"taskboard/internal/config"
	"taskboard/internal/identity"
	"taskboard/internal/planning"
	"taskboard/internal/server"
	"taskboard/internal/storage/sqlstore"
	"taskboard/internal/task"
)

func main() {
	fs := pflag.NewFlagSet("taskboard", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	store, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	verifier, err := identity.NewGoogleVerifier(ctx, cfg.GoogleClientID)
	if err != nil {
		logger.Error("unable to configure google sign-in", slog.String("error", err.Error()))
		os.Exit(1)
	}
	issuer, err := identity.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("unable to configure token issuer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.New(server.Deps{
		Tasks: task.NewService(task.Stores{
			Tasks:      store,
			Users:      store,
			Statuses:   store,
			Priorities: store,
			Epics:      store,
			Sprints:    store,
		}, logger),
		Planning: planning.NewService(store, logger),
		Identity: identity.NewService(verifier, issuer, store, cfg.AdminEmails, logger),
		Store:    store,
		Registry: registry,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("db", cfg.DBDriver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
