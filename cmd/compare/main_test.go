package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/WessleyAI/carviewer/engine/compare"
	"github.com/WessleyAI/carviewer/engine/graph"
	"github.com/WessleyAI/carviewer/engine/session"
	"github.com/WessleyAI/carviewer/pkg/config"
	"github.com/WessleyAI/carviewer/pkg/httpx"
)

func catalogAPI(t *testing.T) *httptest.Server {
	t.Helper()
	c := graph.SeedCatalog()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cars", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, c.Cars)
	})
	mux.HandleFunc("GET /api/cars/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		for _, car := range c.Cars {
			if car.ID == id {
				httpx.JSON(w, http.StatusOK, car)
				return
			}
		}
		httpx.Error(w, http.StatusNotFound, "Car not found")
	})
	mux.HandleFunc("GET /api/manufacturers", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, c.Manufacturers)
	})
	mux.HandleFunc("GET /api/categories", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, c.Categories)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Upstream.Retries = 1
	return cfg
}

func TestRun_Text(t *testing.T) {
	api := catalogAPI(t)
	var out bytes.Buffer
	if err := run(context.Background(), testConfig(), []string{"-api", api.URL, "1", "5"}, &out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2+len(compare.Rows) {
		t.Fatalf("expected %d lines, got:\n%s", 2+len(compare.Rows), out.String())
	}
	if !strings.Contains(lines[0], "Audi A4") || !strings.HasSuffix(lines[0], "Toyota Camry") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(out.String(), "8-speed Automatic") {
		t.Fatalf("missing transmission:\n%s", out.String())
	}
}

func TestRun_JSON(t *testing.T) {
	api := catalogAPI(t)
	var out bytes.Buffer
	if err := run(context.Background(), testConfig(), []string{"-api", api.URL, "-json", "6"}, &out); err != nil {
		t.Fatal(err)
	}
	var m compare.Matrix
	if err := json.Unmarshal(out.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if len(m.Columns) != 1 || m.Columns[0].Name != "BMW X5" || m.Rows[3].Cells[0] != "335" {
		t.Fatalf("unexpected matrix %+v", m)
	}
}

func TestRun_Usage(t *testing.T) {
	for _, args := range [][]string{{}, {"1", "2", "3", "4"}, {"x"}, {"-bogus", "1"}} {
		err := run(context.Background(), testConfig(), args, &bytes.Buffer{})
		if !errors.Is(err, errUsage) {
			t.Errorf("args %v: expected usage error, got %v", args, err)
		}
	}
}

func TestRun_UnknownCar(t *testing.T) {
	api := catalogAPI(t)
	err := run(context.Background(), testConfig(), []string{"-api", api.URL, "1", "42"}, &bytes.Buffer{})
	var ce *session.ComparisonError
	if !errors.As(err, &ce) || len(ce.IDs) != 1 || ce.IDs[0] != 42 {
		t.Fatalf("expected comparison error for 42, got %v", err)
	}
}
