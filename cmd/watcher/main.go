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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/xrpwalk/xrpwalk/service/config"
	"github.com/xrpwalk/xrpwalk/service/ledger"
	"github.com/xrpwalk/xrpwalk/service/metrics"
	natspub "github.com/xrpwalk/xrpwalk/service/nats"
	"github.com/xrpwalk/xrpwalk/service/presenter"
	"github.com/xrpwalk/xrpwalk/service/watcher"
	"github.com/xrpwalk/xrpwalk/service/xrpl"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting watcher",
		"xrpl_url", cfg.XRPLWebsocketURL,
		"nats_url", cfg.NATSURL,
		"special_wallet", cfg.SpecialWalletAddress,
		"log_level", cfg.LogLevel,
	)

	// Initialize metrics collectors
	m := metrics.NewMetrics(nil)

	// Directives go to JetStream; the server relays them to browsers
	publisher, err := natspub.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	surface := natspub.NewPublishingSurface(publisher, logger)
	renderer := presenter.NewRenderer(surface, presenter.NewPaymentTracker(), logger)
	analyzer := ledger.NewAnalyzer(cfg.SpecialWalletAddress, cfg.SpecialAmountDrops, cfg.CatAmountDrops, logger)

	feed := xrpl.NewClient(cfg.XRPLWebsocketURL, logger)
	feed.OnStatusChange(func(s xrpl.Status) {
		m.RecordFeedStatus(string(s))
		switch s {
		case xrpl.StatusConnected:
			m.RecordFeedConnect("ok")
		case xrpl.StatusError:
			m.RecordFeedConnect("error")
		}
		renderer.HandleStatus(string(s))
	})

	w := watcher.New(feed, analyzer, renderer, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Metrics and health endpoint for the watcher process
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	metricsServer := &http.Server{
		Addr:         cfg.WatcherAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("metrics endpoint listening", "addr", cfg.WatcherAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return w.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watcher stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("watcher shutdown complete")
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
