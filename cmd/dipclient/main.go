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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/dipclient/internal/api"
	"github.com/DoyleJ11/dipclient/internal/config"
	"github.com/DoyleJ11/dipclient/internal/drafts"
	"github.com/DoyleJ11/dipclient/internal/lobbysync"
	"github.com/DoyleJ11/dipclient/internal/logging"
	"github.com/DoyleJ11/dipclient/internal/mapinput"
	"github.com/DoyleJ11/dipclient/internal/notify"
)

var envFile = flag.String("env", ".env", "path to a .env file")

func main() {
	flag.Parse()

	cfg, err := config.LoadClient(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("client stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg config.Client, logger *zap.Logger) error {
	username, err := api.Username(cfg.Token)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	client, err := api.New(cfg.ServerURL, cfg.Token, api.WithLogger(logger), api.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return err
	}

	store, err := drafts.Open(cfg.DraftsPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	s := lobbysync.New(lobbysync.Config{
		Code:           cfg.Code,
		Username:       username,
		Interval:       cfg.PollInterval,
		MaxInterval:    cfg.PollMaxInterval,
		Backoff:        cfg.PollBackoff,
		RequestTimeout: cfg.RequestTimeout,
		NoticeTTL:      cfg.NoticeTTL,
	}, client,
		lobbysync.WithLogger(logger),
		lobbysync.WithDrafts(store),
		lobbysync.WithMetrics(lobbysync.NewMetrics(reg)),
	)

	var layout *mapinput.Layout
	if cfg.MapLayout != "" {
		if layout, err = mapinput.LoadLayout(cfg.MapLayout); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Stop()
	logger.Info("syncing", zap.String("code", cfg.Code), zap.String("username", username))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Feed {
		feed, err := notify.NewFeed(client.BaseURL(), cfg.Code, cfg.Token, s, notify.WithLogger(logger))
		if err != nil {
			return err
		}
		g.Go(func() error { return feed.Run(gctx) })
	}
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	con := &console{sync: s, adapter: mapinput.NewAdapter(layout, s, logger), in: os.Stdin, out: os.Stdout}
	g.Go(func() error {
		err := con.run(gctx)
		cancel()
		return err
	})
	return g.Wait()
}
