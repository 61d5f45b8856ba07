// Package main implements the viewer server: per-session catalog browsing,
// detail views and side-by-side comparison over a remote catalog source.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/carviewer/engine/graph"
	"github.com/WessleyAI/carviewer/engine/session"
	"github.com/WessleyAI/carviewer/engine/upstream"
	"github.com/WessleyAI/carviewer/pkg/config"
	"github.com/WessleyAI/carviewer/pkg/metrics"
	"github.com/WessleyAI/carviewer/pkg/mid"
	"github.com/WessleyAI/carviewer/pkg/natsutil"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := cfg.Log.Logger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// buildSource picks the catalog source for cfg.Upstream.Mode. The static
// mode serves the built-in catalog and needs no upstream at all.
func buildSource(cfg config.Config, nc *nats.Conn, m *metrics.Metrics, logger *slog.Logger) (upstream.Source, error) {
	if cfg.Upstream.Mode == upstream.ModeStatic {
		return upstream.Instrument(upstream.NewStatic(graph.SeedCatalog()), upstream.ModeStatic, m), nil
	}
	return upstream.FromConfig(cfg.Upstream, nc, m, logger)
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New("carviewer_viewer")

	// NATS is only dialed when something needs it: the nats source or
	// catalog change notifications.
	var nc *nats.Conn
	if cfg.Upstream.Mode == upstream.ModeNATS || cfg.NATS.Embedded || cfg.NATS.URL != "" {
		conn, closeNATS, err := natsutil.Dial(natsutil.DialOpts{
			Name:     "carviewer-viewer",
			URL:      cfg.NATS.URL,
			Embedded: cfg.NATS.Embedded,
			Port:     cfg.NATS.Port,
		})
		if err != nil {
			if cfg.Upstream.Mode == upstream.ModeNATS {
				return err
			}
			logger.Warn("nats unavailable, catalog change notifications disabled", "err", err)
		} else {
			defer closeNATS()
			nc = conn
		}
	}

	src, err := buildSource(cfg, nc, m, logger)
	if err != nil {
		return fmt.Errorf("catalog source: %w", err)
	}

	mgr := session.NewManager(src, cfg.Session.IdleTimeout, session.Options{Logger: logger, Metrics: m})
	go mgr.RunSweeper(ctx, sweepInterval)

	if nc != nil {
		_, err := upstream.OnUpdated(nc, func(ctx context.Context, ev upstream.CatalogUpdated) {
			n := mgr.RefreshAll(ctx)
			logger.Info("catalog updated upstream", "cars", ev.Cars, "sessions_refreshed", n)
		})
		if err != nil {
			return fmt.Errorf("subscribe catalog updates: %w", err)
		}
	}

	srv := &server{
		sessions:          mgr,
		cookieName:        cfg.Session.CookieName,
		cookieSecure:      cfg.Session.CookieSecure,
		corsOrigin:        cfg.Server.CORSOrigin,
		requestsPerMinute: cfg.Server.RequestsPerMinute,
		m:                 m,
		log:               logger,
	}
	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mid.Chain(srv.routes(), mid.OTel("viewer")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("viewer server starting", "addr", cfg.Server.Addr, "upstream", cfg.Upstream.Mode)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}
