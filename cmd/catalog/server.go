package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/engine/graph"
	"github.com/WessleyAI/carviewer/engine/similar"
	"github.com/WessleyAI/carviewer/engine/upstream"
	"github.com/WessleyAI/carviewer/pkg/httpx"
	"github.com/WessleyAI/carviewer/pkg/metrics"
	"github.com/WessleyAI/carviewer/pkg/mid"
)

const (
	defaultSimilar = 3
	maxSimilar     = 10
	maxCatalogBody = 10 << 20
)

// catalogWriter replaces the served catalog.
type catalogWriter interface {
	SaveCatalog(ctx context.Context, c catalog.Catalog) error
}

// neighbourIndex is the similar-car index.
type neighbourIndex interface {
	Upsert(ctx context.Context, cars []catalog.Car) (int, error)
	Similar(ctx context.Context, car catalog.Car, k int) ([]similar.Match, error)
}

// staticWriter validates and swaps the catalog of an in-memory source.
type staticWriter struct {
	static *upstream.Static
}

func (w staticWriter) SaveCatalog(_ context.Context, c catalog.Catalog) error {
	if err := catalog.Validate(c.Cars, c.Manufacturers, c.Categories); err != nil {
		return err
	}
	w.static.Set(c)
	return nil
}

type server struct {
	src    upstream.Source
	writer catalogWriter
	// Optional collaborators; nil disables the endpoints that need them.
	index   neighbourIndex
	stats   func(context.Context) (graph.Stats, error)
	publish func(context.Context, upstream.CatalogUpdated) error

	imagesDir  string
	corsOrigin string
	m          *metrics.Metrics
	log        *slog.Logger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		mid.RequestID(),
		mid.Recover(s.log),
		mid.Logger(s.log),
		mid.CORS(s.corsOrigin),
		mid.Metrics(s.m),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusNotFound, "The requested resource was not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/api/health", handleHealth)
	r.Handle("/metrics", s.m.Handler())

	r.Get("/api/cars", s.handleCars)
	r.Get("/api/cars/{id}", s.handleCar)
	r.Get("/api/cars/{id}/similar", s.handleSimilar)
	r.Get("/api/manufacturers", s.handleManufacturers)
	r.Get("/api/categories", s.handleCategories)
	r.Put("/api/catalog", s.handlePutCatalog)
	r.Get("/api/graph/stats", s.handleStats)
	r.Handle("/api/images/*", http.StripPrefix("/api/images/", http.FileServer(http.Dir(s.imagesDir))))
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.src.FetchCars(r.Context())
	if err != nil {
		s.sourceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cars)
}

func (s *server) handleManufacturers(w http.ResponseWriter, r *http.Request) {
	mfrs, err := s.src.FetchManufacturers(r.Context())
	if err != nil {
		s.sourceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mfrs)
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.src.FetchCategories(r.Context())
	if err != nil {
		s.sourceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cats)
}

// carParam loads the car named by the {id} path parameter, writing the
// error response itself when it cannot.
func (s *server) carParam(w http.ResponseWriter, r *http.Request) (catalog.Car, bool) {
	id, ok := httpx.PositiveInt(chi.URLParam(r, "id"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Invalid car ID")
		return catalog.Car{}, false
	}
	car, err := s.src.FetchCarByID(r.Context(), id)
	if err != nil {
		s.sourceError(w, err)
		return catalog.Car{}, false
	}
	return car, true
}

func (s *server) handleCar(w http.ResponseWriter, r *http.Request) {
	if car, ok := s.carParam(w, r); ok {
		httpx.JSON(w, http.StatusOK, car)
	}
}

func (s *server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "Similar-car search is not configured")
		return
	}
	k := defaultSimilar
	if v := r.URL.Query().Get("k"); v != "" {
		n, ok := httpx.PositiveInt(v)
		if !ok || n > maxSimilar {
			httpx.Error(w, http.StatusBadRequest, "k must be between 1 and "+strconv.Itoa(maxSimilar))
			return
		}
		k = n
	}
	car, ok := s.carParam(w, r)
	if !ok {
		return
	}
	matches, err := s.index.Similar(r.Context(), car, k)
	switch {
	case errors.Is(err, similar.ErrNoFeatures):
		httpx.Error(w, http.StatusUnprocessableEntity, "Car has no specifications to compare")
	case err != nil:
		s.log.Error("similar search failed", "car", car.ID, "err", err)
		httpx.Error(w, http.StatusBadGateway, "Similar-car search failed")
	default:
		httpx.JSON(w, http.StatusOK, matches)
	}
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "Graph storage is not configured")
		return
	}
	st, err := s.stats(r.Context())
	if err != nil {
		s.log.Error("graph stats failed", "err", err)
		httpx.Error(w, http.StatusServiceUnavailable, "Graph storage unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

type putCatalogResponse struct {
	Cars          int `json:"cars"`
	Manufacturers int `json:"manufacturers"`
	Categories    int `json:"categories"`
	Indexed       int `json:"indexed"`
}

// handlePutCatalog replaces the catalog with a document in either the
// normalized or the legacy shape, reindexes it and announces the change.
func (s *server) handlePutCatalog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCatalogBody))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Could not read request body")
		return
	}
	c, err := catalog.Decode(body)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid catalog document: "+err.Error())
		return
	}
	if err := s.writer.SaveCatalog(r.Context(), c); err != nil {
		if errors.Is(err, catalog.ErrInvalidCatalog) {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("save catalog failed", "err", err)
		httpx.Error(w, http.StatusServiceUnavailable, "Catalog storage unavailable")
		return
	}

	resp := putCatalogResponse{
		Cars:          len(c.Cars),
		Manufacturers: len(c.Manufacturers),
		Categories:    len(c.Categories),
	}
	if s.index != nil {
		n, err := s.index.Upsert(r.Context(), c.Cars)
		if err != nil {
			s.log.Warn("reindex failed", "err", err)
		}
		resp.Indexed = n
	}
	if s.publish != nil {
		ev := upstream.CatalogUpdated{Cars: len(c.Cars), At: time.Now().UTC()}
		if err := s.publish(r.Context(), ev); err != nil {
			s.log.Warn("publish catalog update failed", "err", err)
		}
	}
	s.log.Info("catalog replaced", "cars", resp.Cars, "indexed", resp.Indexed)
	httpx.JSON(w, http.StatusOK, resp)
}

func (s *server) sourceError(w http.ResponseWriter, err error) {
	if errors.Is(err, upstream.ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "Car not found")
		return
	}
	s.log.Error("catalog source failed", "err", err)
	httpx.Error(w, http.StatusServiceUnavailable, "Catalog storage unavailable")
}
