// Package main implements the catalog API server: it serves cars,
// manufacturers and categories over HTTP and NATS from Neo4j or an
// in-memory catalog, plus similar-car lookups backed by Qdrant.
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
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/engine/graph"
	"github.com/WessleyAI/carviewer/engine/similar"
	"github.com/WessleyAI/carviewer/engine/upstream"
	"github.com/WessleyAI/carviewer/pkg/config"
	"github.com/WessleyAI/carviewer/pkg/metrics"
	"github.com/WessleyAI/carviewer/pkg/mid"
	"github.com/WessleyAI/carviewer/pkg/natsutil"
)

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

// initialCatalog reads path, or returns the built-in catalog when path is empty.
func initialCatalog(path string) (catalog.Catalog, error) {
	if path == "" {
		return graph.SeedCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("read seed file: %w", err)
	}
	c, err := catalog.Decode(data)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return c, nil
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New("carviewer_catalog")
	srv := &server{
		imagesDir:  cfg.Catalog.ImagesDir,
		corsOrigin: cfg.Server.CORSOrigin,
		m:          m,
		log:        logger,
	}

	// --- Catalog storage ---
	var sourceName string
	if cfg.Neo4j.Enabled {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI, neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Password, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(context.Background())
		if err := driver.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("neo4j connect: %w", err)
		}

		g := graph.New(driver, cfg.Neo4j.Database)
		if err := g.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := seedIfEmpty(ctx, g, cfg.Catalog.SeedFile, logger); err != nil {
			return err
		}
		srv.src, srv.writer, srv.stats = g, g, g.Stats
		sourceName = "graph"
	} else {
		c, err := initialCatalog(cfg.Catalog.SeedFile)
		if err != nil {
			return err
		}
		if err := catalog.Validate(c.Cars, c.Manufacturers, c.Categories); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		static := upstream.NewStatic(c)
		srv.src, srv.writer = static, staticWriter{static: static}
		sourceName = "static"
	}
	srv.src = upstream.Instrument(srv.src, sourceName, m)
	logger.Info("catalog storage ready", "source", sourceName)

	// --- Similar-car index ---
	if cfg.Qdrant.Enabled {
		idx, err := similar.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
		if err != nil {
			return err
		}
		defer idx.Close()
		if err := indexCatalog(ctx, idx, srv.src); err != nil {
			// The API is still useful without neighbours.
			logger.Warn("similar-car index unavailable", "err", err)
		} else {
			srv.index = idx
		}
	}

	// --- NATS responder ---
	nc, closeNATS, err := natsutil.Dial(natsutil.DialOpts{
		Name:     "carviewer-catalog",
		URL:      cfg.NATS.URL,
		Embedded: cfg.NATS.Embedded,
		Port:     cfg.NATS.Port,
	})
	if err != nil {
		return err
	}
	defer closeNATS()
	if nc != nil {
		if err := serveNATS(ctx, nc, srv, logger); err != nil {
			return err
		}
	}

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mid.Chain(srv.routes(), mid.OTel("catalog")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("catalog server starting", "addr", cfg.Server.Addr)
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

func seedIfEmpty(ctx context.Context, g *graph.Graph, seedFile string, logger *slog.Logger) error {
	cars, err := g.Cars(ctx)
	if err != nil {
		return fmt.Errorf("read graph catalog: %w", err)
	}
	if len(cars) > 0 {
		return nil
	}
	c, err := initialCatalog(seedFile)
	if err != nil {
		return err
	}
	if err := g.SaveCatalog(ctx, c); err != nil {
		return fmt.Errorf("seed graph: %w", err)
	}
	logger.Info("seeded empty graph", "cars", len(c.Cars))
	return nil
}

func indexCatalog(ctx context.Context, idx *similar.Index, src upstream.Source) error {
	if err := idx.EnsureCollection(ctx); err != nil {
		return err
	}
	cars, err := src.FetchCars(ctx)
	if err != nil {
		return err
	}
	_, err = idx.Upsert(ctx, cars)
	return err
}

func serveNATS(ctx context.Context, nc *nats.Conn, srv *server, logger *slog.Logger) error {
	if _, err := upstream.Serve(nc, srv.src, logger); err != nil {
		return fmt.Errorf("serve catalog over nats: %w", err)
	}
	srv.publish = func(ctx context.Context, ev upstream.CatalogUpdated) error {
		return upstream.PublishUpdated(ctx, nc, ev)
	}
	cars, err := srv.src.FetchCars(ctx)
	if err != nil {
		return err
	}
	logger.Info("serving catalog over nats", "url", nc.ConnectedUrl())
	return srv.publish(ctx, upstream.CatalogUpdated{Cars: len(cars), At: time.Now().UTC()})
}
