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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/dipclient/internal/config"
	"github.com/DoyleJ11/dipclient/internal/httpapi"
	"github.com/DoyleJ11/dipclient/internal/hub"
	"github.com/DoyleJ11/dipclient/internal/logging"
	"github.com/DoyleJ11/dipclient/internal/room"
	"github.com/DoyleJ11/dipclient/internal/scenario"
)

var envFile = flag.String("env", ".env", "path to a .env file")

func main() {
	flag.Parse()

	cfg, err := config.LoadDevServer(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("dev server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg config.DevServer, logger *zap.Logger) error {
	sc := scenario.Default()
	if cfg.Scenario != "" {
		var err error
		if sc, err = scenario.Load(cfg.Scenario); err != nil {
			return fmt.Errorf("load scenario %s: %w", cfg.Scenario, err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	h := hub.NewHub(ctx, logger)
	reply := make(chan *room.Room, 1)
	h.Inbox() <- hub.CreateRoom{Scenario: sc, Reply: reply}
	<-reply

	// Print a token per seat so clients can be pointed at the lobby directly.
	tokens := httpapi.NewTokens(cfg.Secret, cfg.TokenTTL)
	for _, p := range sc.Players {
		tok, err := tokens.Mint(p.Username)
		if err != nil {
			return err
		}
		logger.Info("player token",
			zap.String("code", sc.Code),
			zap.String("username", p.Username),
			zap.String("power", p.Power),
			zap.String("token", tok),
		)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:      h,
			Tokens:   tokens,
			Template: sc,
			Logger:   logger,
			Registry: reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("code", sc.Code))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
