// Command compare prints a side-by-side comparison of up to three cars
// fetched from the catalog API.
//
//	compare -api http://localhost:8081 1 4 6
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/goccy/go-json"

	"github.com/WessleyAI/carviewer/engine/compare"
	"github.com/WessleyAI/carviewer/engine/session"
	"github.com/WessleyAI/carviewer/engine/upstream"
	"github.com/WessleyAI/carviewer/pkg/config"
	"github.com/WessleyAI/carviewer/pkg/httpx"
)

var errUsage = errors.New("usage: compare [-api URL] [-json] ID [ID [ID]]")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	api := fs.String("api", cfg.Upstream.BaseURL, "catalog API base URL")
	asJSON := fs.Bool("json", false, "print the matrix as JSON")
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	ids := make([]int, 0, fs.NArg())
	for _, a := range fs.Args() {
		id, ok := httpx.PositiveInt(a)
		if !ok {
			return fmt.Errorf("%w: invalid car ID %q", errUsage, a)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 || len(ids) > compare.MaxSelected {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	// Warnings go to stderr; stdout carries only the table.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	upCfg := cfg.Upstream
	upCfg.BaseURL = *api
	src := upstream.NewHTTPFromConfig(upCfg, nil, logger)

	sess := session.New("cli", src, session.Options{Logger: logger})
	if err := sess.Refresh(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	m, err := sess.ComparisonMatrix(ctx, ids)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	return m.WriteText(out)
}
