package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/engine/compare"
	"github.com/WessleyAI/carviewer/engine/session"
	"github.com/WessleyAI/carviewer/pkg/httpx"
	"github.com/WessleyAI/carviewer/pkg/metrics"
	"github.com/WessleyAI/carviewer/pkg/mid"
)

type server struct {
	sessions          *session.Manager
	cookieName        string
	cookieSecure      bool
	corsOrigin        string
	requestsPerMinute int
	m                 *metrics.Metrics
	log               *slog.Logger
}

type sessionKey struct{}

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

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
	})
	r.Handle("/metrics", s.m.Handler())

	r.Route("/api/view", func(r chi.Router) {
		if s.requestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(s.requestsPerMinute, time.Minute))
		}
		r.Use(s.withSession)

		r.Get("/cars", s.handleCars)
		r.Get("/cars/{id}", s.handleDetail)
		r.Post("/compare/{id}", s.handleToggle)
		r.Delete("/compare", s.handleClear)
		r.Get("/compare", s.handleSelection)
		r.Get("/compare/matrix", s.handleMatrix)
		r.Post("/refresh", s.handleRefresh)
		r.Delete("/session", s.handleEndSession)
	})
	return r
}

// withSession attaches the caller's session, creating one and setting the
// cookie when the request carries none or an expired one.
func (s *server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cookieName); err == nil {
			id = c.Value
		}
		sess, created := s.sessions.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cookieName,
				Value:    sess.ID(),
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey{}).(*session.Session)
}

// loaded returns the request's session with its catalog loaded, writing a
// 502 when the upstream cannot supply it.
func (s *server) loaded(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess := sessionFrom(r)
	if err := sess.EnsureLoaded(r.Context()); err != nil {
		s.upstreamError(w, err)
		return nil, false
	}
	return sess, true
}

type carsResponse struct {
	Cars     []catalog.ResolvedCar `json:"cars"`
	Selected []int                 `json:"selected"`
}

func (s *server) handleCars(w http.ResponseWriter, r *http.Request) {
	q := catalog.Query{Text: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("manufacturer"); v != "" {
		id, ok := httpx.PositiveInt(v)
		if !ok {
			httpx.Error(w, http.StatusBadRequest, "Invalid manufacturer ID")
			return
		}
		q.ManufacturerID = id
	}
	sess, ok := s.loaded(w, r)
	if !ok {
		return
	}
	cars := sess.FilteredCars(q)
	resp := carsResponse{Cars: make([]catalog.ResolvedCar, len(cars)), Selected: sess.Selection()}
	for i, c := range cars {
		resp.Cars[i] = sess.Resolve(c)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (s *server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PositiveInt(chi.URLParam(r, "id"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Invalid car ID")
		return
	}
	sess, ok := s.loaded(w, r)
	if !ok {
		return
	}
	d, err := sess.Detail(id)
	if errors.Is(err, catalog.ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "Car not found")
		return
	}
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

type toggleResponse struct {
	Selected         bool  `json:"selected"`
	CapacityExceeded bool  `json:"capacityExceeded"`
	IDs              []int `json:"ids"`
}

func (s *server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PositiveInt(chi.URLParam(r, "id"))
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Invalid car ID")
		return
	}
	sess := sessionFrom(r)
	res := sess.ToggleComparison(id)
	status := http.StatusOK
	if res.CapacityExceeded {
		status = http.StatusConflict
	}
	httpx.JSON(w, status, toggleResponse{
		Selected:         res.Selected,
		CapacityExceeded: res.CapacityExceeded,
		IDs:              sess.Selection(),
	})
}

type selectionResponse struct {
	IDs []int `json:"ids"`
	Max int   `json:"max"`
}

func (s *server) handleSelection(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, selectionResponse{IDs: sessionFrom(r).Selection(), Max: compare.MaxSelected})
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.ClearComparison()
	httpx.JSON(w, http.StatusOK, selectionResponse{IDs: sess.Selection(), Max: compare.MaxSelected})
}

// handleMatrix builds the comparison for ?ids=1,2,3, or for the current
// selection when ids is absent. format=text returns the aligned table.
func (s *server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loaded(w, r)
	if !ok {
		return
	}
	ids := sess.Selection()
	if r.URL.Query().Has("ids") {
		var err error
		if ids, err = httpx.IntList(r.URL.Query().Get("ids")); err != nil {
			httpx.Error(w, http.StatusBadRequest, "ids must be a comma-separated list of car IDs")
			return
		}
	}

	m, err := sess.ComparisonMatrix(r.Context(), ids)
	var ce *session.ComparisonError
	switch {
	case errors.Is(err, compare.ErrCapacityExceeded):
		httpx.Error(w, http.StatusConflict, "At most 3 cars can be compared")
		return
	case errors.As(err, &ce):
		s.log.Warn("comparison fetch failed", "ids", ce.IDs, "err", ce.Err)
		httpx.Error(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		s.upstreamError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := m.WriteText(w); err != nil {
			s.log.Warn("write comparison table", "err", err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

type refreshResponse struct {
	Cars          int `json:"cars"`
	Manufacturers int `json:"manufacturers"`
	Categories    int `json:"categories"`
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := sess.Refresh(r.Context()); err != nil {
		s.upstreamError(w, err)
		return
	}
	snap := sess.Store().Snapshot()
	httpx.JSON(w, http.StatusOK, refreshResponse{
		Cars:          len(snap.Cars),
		Manufacturers: len(snap.Manufacturers),
		Categories:    len(snap.Categories),
	})
}

func (s *server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(sessionFrom(r).ID())
	http.SetCookie(w, &http.Cookie{Name: s.cookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// upstreamError maps catalog load failures. Invalid upstream data is still
// the upstream's fault, so both are 502.
func (s *server) upstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.log.Warn("catalog unavailable", "err", err)
	httpx.Error(w, http.StatusBadGateway, "Catalog service unavailable")
}
