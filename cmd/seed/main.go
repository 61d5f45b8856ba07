// Command seed loads a catalog document into Neo4j and indexes its cars in
// Qdrant. Without -file it writes the built-in catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/engine/graph"
	"github.com/WessleyAI/carviewer/engine/similar"
	"github.com/WessleyAI/carviewer/engine/upstream"
	"github.com/WessleyAI/carviewer/pkg/config"
	"github.com/WessleyAI/carviewer/pkg/natsutil"
)

func main() {
	file := flag.String("file", "", "catalog JSON document (normalized or legacy shape)")
	dryRun := flag.Bool("dry-run", false, "validate and report without writing")
	reset := flag.Bool("reset", false, "drop and recreate the vector collection first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := cfg.Log.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := loadCatalog(*file)
	if err != nil {
		logger.Error("load catalog", "err", err)
		os.Exit(1)
	}

	s := &seeder{log: logger, dryRun: *dryRun, reset: *reset}
	if !*dryRun {
		cleanup, err := s.connect(cfg)
		if err != nil {
			logger.Error("connect", "err", err)
			os.Exit(1)
		}
		defer cleanup()
	}

	start := time.Now()
	res, err := s.seed(ctx, c)
	if err != nil {
		logger.Error("seed failed", "err", err)
		os.Exit(1)
	}
	logger.Info("seed complete",
		"cars", res.Cars,
		"manufacturers", res.Manufacturers,
		"categories", res.Categories,
		"indexed", res.Indexed,
		"dry_run", *dryRun,
		"duration", time.Since(start).String(),
	)
}

func loadCatalog(path string) (catalog.Catalog, error) {
	if path == "" {
		return graph.SeedCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := catalog.Decode(data)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return c, nil
}

type catalogWriter interface {
	EnsureSchema(ctx context.Context) error
	SaveCatalog(ctx context.Context, c catalog.Catalog) error
}

type carIndex interface {
	EnsureCollection(ctx context.Context) error
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, cars []catalog.Car) (int, error)
}

type seeder struct {
	writer  catalogWriter
	index   carIndex
	publish func(context.Context, upstream.CatalogUpdated) error
	log     *slog.Logger
	dryRun  bool
	reset   bool
}

type result struct {
	Cars          int
	Manufacturers int
	Categories    int
	Indexed       int
}

// connect opens the stores named by cfg and returns a func closing them.
func (s *seeder) connect(cfg config.Config) (func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI, neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	closers = append(closers, func() { _ = driver.Close(context.Background()) })
	s.writer = graph.New(driver, cfg.Neo4j.Database)

	if cfg.Qdrant.Enabled {
		idx, err := similar.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("qdrant: %w", err)
		}
		closers = append(closers, func() { _ = idx.Close() })
		s.index = idx
	}

	nc, closeNATS, err := natsutil.Dial(natsutil.DialOpts{Name: "carviewer-seed", URL: cfg.NATS.URL})
	if err != nil {
		s.log.Warn("nats unavailable, catalog change will not be announced", "err", err)
	} else if nc != nil {
		closers = append(closers, closeNATS)
		s.publish = func(ctx context.Context, ev upstream.CatalogUpdated) error {
			return upstream.PublishUpdated(ctx, nc, ev)
		}
	}
	return cleanup, nil
}

func (s *seeder) seed(ctx context.Context, c catalog.Catalog) (result, error) {
	res := result{Cars: len(c.Cars), Manufacturers: len(c.Manufacturers), Categories: len(c.Categories)}
	if err := catalog.Validate(c.Cars, c.Manufacturers, c.Categories); err != nil {
		return res, err
	}
	if s.dryRun {
		return res, nil
	}

	// --- Graph ---
	if err := s.writer.EnsureSchema(ctx); err != nil {
		return res, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.writer.SaveCatalog(ctx, c); err != nil {
		return res, fmt.Errorf("save catalog: %w", err)
	}
	s.log.Info("catalog written", "cars", res.Cars)

	// --- Vectors ---
	if s.index != nil {
		if s.reset {
			if err := s.index.Reset(ctx); err != nil {
				return res, fmt.Errorf("reset collection: %w", err)
			}
		}
		if err := s.index.EnsureCollection(ctx); err != nil {
			return res, fmt.Errorf("ensure collection: %w", err)
		}
		n, err := s.index.Upsert(ctx, c.Cars)
		if err != nil {
			return res, fmt.Errorf("index cars: %w", err)
		}
		res.Indexed = n
	}

	if s.publish != nil {
		ev := upstream.CatalogUpdated{Cars: res.Cars, At: time.Now().UTC()}
		if err := s.publish(ctx, ev); err != nil {
			s.log.Warn("announce catalog change", "err", err)
		}
	}
	return res, nil
}
