package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/engine/graph"
	"github.com/WessleyAI/carviewer/engine/similar"
	"github.com/WessleyAI/carviewer/engine/upstream"
	"github.com/WessleyAI/carviewer/pkg/httpx"
	"github.com/WessleyAI/carviewer/pkg/metrics"
)

type fakeIndex struct {
	upserted []catalog.Car
	matches  []similar.Match
	err      error
}

func (f *fakeIndex) Upsert(_ context.Context, cars []catalog.Car) (int, error) {
	f.upserted = cars
	return len(cars), nil
}

func (f *fakeIndex) Similar(_ context.Context, _ catalog.Car, k int) ([]similar.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.matches) {
		return f.matches[:k], nil
	}
	return f.matches, nil
}

func newTestServer(t *testing.T) (*server, *upstream.Static) {
	t.Helper()
	static := upstream.NewStatic(graph.SeedCatalog())
	return &server{
		src:        static,
		writer:     staticWriter{static: static},
		imagesDir:  t.TempDir(),
		corsOrigin: "*",
		m:          metrics.New("test"),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, static
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()
	var e httpx.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return e
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	handleHealth(rec, httptest.NewRequest("GET", "/api/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body)
	}
}

func TestListEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.routes()

	var cars []catalog.Car
	rec := do(t, h, "GET", "/api/cars", nil)
	if err := json.NewDecoder(rec.Body).Decode(&cars); err != nil || len(cars) != 6 {
		t.Fatalf("expected 6 cars, got %d %v", len(cars), err)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header")
	}

	var mfrs []catalog.Manufacturer
	rec = do(t, h, "GET", "/api/manufacturers", nil)
	if err := json.NewDecoder(rec.Body).Decode(&mfrs); err != nil || len(mfrs) != 4 {
		t.Fatalf("expected 4 manufacturers, got %d %v", len(mfrs), err)
	}

	var cats []catalog.Category
	rec = do(t, h, "GET", "/api/categories", nil)
	if err := json.NewDecoder(rec.Body).Decode(&cats); err != nil || len(cats) != 4 {
		t.Fatalf("expected 4 categories, got %d %v", len(cats), err)
	}
}

func TestCarEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.routes()

	rec := do(t, h, "GET", "/api/cars/5", nil)
	var car catalog.Car
	if err := json.NewDecoder(rec.Body).Decode(&car); err != nil || car.Name != "Toyota Camry" {
		t.Fatalf("expected Toyota Camry, got %+v %v", car, err)
	}

	rec = do(t, h, "GET", "/api/cars/99", nil)
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Message != "Car not found" {
		t.Fatalf("expected 404 Car not found, got %d", rec.Code)
	}

	rec = do(t, h, "GET", "/api/cars/abc", nil)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Message != "Invalid car ID" {
		t.Fatalf("expected 400 Invalid car ID, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.routes(), "GET", "/api/nope", nil)
	e := decodeError(t, rec)
	if rec.Code != http.StatusNotFound || e.Error != "Not Found" || e.Code != 404 {
		t.Fatalf("unexpected envelope %+v", e)
	}
	rec = do(t, s.routes(), "DELETE", "/api/cars", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSimilarEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.routes(), "GET", "/api/cars/1/similar", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without index, got %d", rec.Code)
	}

	s.index = &fakeIndex{matches: []similar.Match{{ID: 4, Name: "Audi Q5"}, {ID: 3}, {ID: 6}, {ID: 2}}}
	h := s.routes()
	var got []similar.Match
	rec = do(t, h, "GET", "/api/cars/1/similar?k=2", nil)
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil || len(got) != 2 || got[0].Name != "Audi Q5" {
		t.Fatalf("unexpected matches %+v %v", got, err)
	}

	if rec = do(t, h, "GET", "/api/cars/1/similar?k=50", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for k=50, got %d", rec.Code)
	}
	if rec = do(t, h, "GET", "/api/cars/42/similar", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown car, got %d", rec.Code)
	}

	s.index = &fakeIndex{err: similar.ErrNoFeatures}
	if rec = do(t, s.routes(), "GET", "/api/cars/1/similar", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestPutCatalog(t *testing.T) {
	s, static := newTestServer(t)
	idx := &fakeIndex{}
	s.index = idx
	var published []upstream.CatalogUpdated
	s.publish = func(_ context.Context, ev upstream.CatalogUpdated) error {
		published = append(published, ev)
		return nil
	}

	doc := `{"cars":[{"id":1,"name":"Honda Civic","manufacturer":"honda","category":"Compact","year":2023,"details":{"horsepower":158}}],
		"manufacturers":[{"id":7,"name":"Honda","country":"Japan","foundingYear":1948}]}`
	rec := do(t, s.routes(), "PUT", "/api/catalog", []byte(doc))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body)
	}
	cars, _ := static.FetchCars(context.Background())
	if len(cars) != 1 || cars[0].ManufacturerID != 7 || cars[0].Specifications.Horsepower != "158" {
		t.Fatalf("unexpected stored cars %+v", cars)
	}
	if len(idx.upserted) != 1 || len(published) != 1 || published[0].Cars != 1 {
		t.Fatalf("expected reindex and publish, got %d/%d", len(idx.upserted), len(published))
	}
}

func TestPutCatalog_Invalid(t *testing.T) {
	s, static := newTestServer(t)
	h := s.routes()

	if rec := do(t, h, "PUT", "/api/catalog", []byte("not json")); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", rec.Code)
	}
	dup := `{"carModels":[{"id":1,"name":"A"},{"id":1,"name":"B"}],"manufacturers":[],"categories":[]}`
	rec := do(t, h, "PUT", "/api/catalog", []byte(dup))
	if rec.Code != http.StatusBadRequest || !strings.Contains(decodeError(t, rec).Message, "duplicate") {
		t.Fatalf("expected duplicate id rejection, got %d", rec.Code)
	}
	cars, _ := static.FetchCars(context.Background())
	if len(cars) != 6 {
		t.Fatalf("previous catalog should be kept, got %d cars", len(cars))
	}
}

type failingWriter struct{}

func (failingWriter) SaveCatalog(context.Context, catalog.Catalog) error {
	return errors.New("neo4j down")
}

func TestPutCatalog_StorageError(t *testing.T) {
	s, _ := newTestServer(t)
	s.writer = failingWriter{}
	rec := do(t, s.routes(), "PUT", "/api/catalog", []byte(`{"carModels":[],"manufacturers":[],"categories":[]}`))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := do(t, s.routes(), "GET", "/api/graph/stats", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without graph, got %d", rec.Code)
	}
	s.stats = func(context.Context) (graph.Stats, error) {
		return graph.Stats{Nodes: map[string]int64{"Car": 6}}, nil
	}
	rec := do(t, s.routes(), "GET", "/api/graph/stats", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Car":6`) {
		t.Fatalf("unexpected stats %d %s", rec.Code, rec.Body)
	}
}

func TestImages(t *testing.T) {
	s, _ := newTestServer(t)
	if err := os.WriteFile(filepath.Join(s.imagesDir, "a4.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := do(t, s.routes(), "GET", "/api/images/a4.jpg", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg" {
		t.Fatalf("unexpected image response %d %q", rec.Code, rec.Body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.routes()
	do(t, h, "GET", "/api/cars/1", nil)
	rec := do(t, h, "GET", "/metrics", nil)
	if !strings.Contains(rec.Body.String(), `route="/api/cars/{id}"`) {
		t.Fatal("expected request metric labelled by route pattern")
	}
}

func TestInitialCatalog(t *testing.T) {
	c, err := initialCatalog("")
	if err != nil || len(c.Cars) != 6 {
		t.Fatalf("expected built-in catalog, got %d %v", len(c.Cars), err)
	}
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := `{"carModels":[{"id":9,"name":"Mazda 3"}],"manufacturers":[],"categories":[]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = initialCatalog(path)
	if err != nil || len(c.Cars) != 1 || c.Cars[0].Name != "Mazda 3" {
		t.Fatalf("unexpected catalog %+v %v", c, err)
	}
	if _, err := initialCatalog(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
