// Package session owns the per-user view state: a reference store, a
// comparison selection and the source both are fed from.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/engine/compare"
	"github.com/WessleyAI/carviewer/engine/upstream"
	"github.com/WessleyAI/carviewer/pkg/fn"
	"github.com/WessleyAI/carviewer/pkg/metrics"
)

// ErrNotLoaded is returned by reads that need a loaded store.
var ErrNotLoaded = errors.New("session: catalog not loaded")

// Options configures a Session.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Session is one browsing session.
type Session struct {
	id    string
	src   upstream.Source
	store *catalog.Store
	sel   *compare.Set
	log   *slog.Logger
	m     *metrics.Metrics

	// refreshMu serializes refreshes so two loads never race.
	refreshMu sync.Mutex

	mu       sync.Mutex
	lastSeen time.Time
}

// New creates a session reading from src.
func New(id string, src upstream.Source, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		id:       id,
		src:      src,
		store:    catalog.NewStore(),
		sel:      compare.NewSet(),
		log:      opts.Logger.With("session", id),
		m:        opts.Metrics,
		lastSeen: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Store exposes the session's reference store.
func (s *Session) Store() *catalog.Store { return s.store }

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen reports when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type collections struct {
	cars          []catalog.Car
	manufacturers []catalog.Manufacturer
	categories    []catalog.Category
}

// Refresh fetches all three collections concurrently and loads them. Any
// fetch or validation failure leaves the previous contents in place.
func (s *Session) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) error {
	var got collections
	res := fn.FanOutResult(
		func() fn.Result[struct{}] {
			cars, err := s.src.FetchCars(ctx)
			got.cars = cars
			return fn.FromPair(struct{}{}, err)
		},
		func() fn.Result[struct{}] {
			mfrs, err := s.src.FetchManufacturers(ctx)
			got.manufacturers = mfrs
			return fn.FromPair(struct{}{}, err)
		},
		func() fn.Result[struct{}] {
			cats, err := s.src.FetchCategories(ctx)
			got.categories = cats
			return fn.FromPair(struct{}{}, err)
		},
	)
	if _, err := res.Unwrap(); err != nil {
		s.observeLoad(err)
		s.log.Warn("refresh failed, keeping previous catalog", "err", err)
		return upstream.WrapFetch("catalog", 0, err)
	}
	if err := s.store.Load(got.cars, got.manufacturers, got.categories); err != nil {
		s.observeLoad(err)
		s.log.Warn("refresh rejected invalid catalog", "err", err)
		return fmt.Errorf("session: load: %w", err)
	}
	s.observeLoad(nil)
	if s.m != nil {
		s.m.CatalogCars.Set(float64(len(got.cars)))
	}
	s.log.Info("catalog refreshed",
		"cars", len(got.cars),
		"manufacturers", len(got.manufacturers),
		"categories", len(got.categories),
	)
	return nil
}

func (s *Session) observeLoad(err error) {
	if s.m != nil {
		s.m.CatalogLoads.WithLabelValues(metrics.Outcome(err)).Inc()
	}
}

// EnsureLoaded refreshes once if nothing has been loaded yet.
func (s *Session) EnsureLoaded(ctx context.Context) error {
	if s.store.Loaded() {
		return nil
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	// Another caller may have loaded while we waited.
	if s.store.Loaded() {
		return nil
	}
	return s.refresh(ctx)
}

// FilteredCars returns the loaded cars matching q.
func (s *Session) FilteredCars(q catalog.Query) []catalog.Car {
	return catalog.Filter(s.store.Cars(), q)
}

// Resolve joins car against the loaded reference data.
func (s *Session) Resolve(car catalog.Car) catalog.ResolvedCar {
	return catalog.Resolve(car, s.store)
}

// Detail returns the formatted view of a loaded car.
func (s *Session) Detail(id int) (catalog.DetailView, error) {
	if !s.store.Loaded() {
		return catalog.DetailView{}, ErrNotLoaded
	}
	car, ok := s.store.Car(id)
	if !ok {
		return catalog.DetailView{}, fmt.Errorf("session: car %d: %w", id, catalog.ErrNotFound)
	}
	return catalog.Detail(s.Resolve(car)), nil
}

// ToggleComparison flips id in the comparison selection.
func (s *Session) ToggleComparison(id int) compare.ToggleResult {
	return s.sel.Toggle(id)
}

// ClearComparison empties the comparison selection.
func (s *Session) ClearComparison() { s.sel.Clear() }

// Selection returns the selected ids in insertion order.
func (s *Session) Selection() []int { return s.sel.IDs() }

// ComparisonMatrix fetches every id concurrently, waits for all of them and
// builds the matrix with columns in the order given. If any fetch fails the
// result is a single error naming every failed id and no matrix. The
// reference data must be loaded first; otherwise ErrNotLoaded.
func (s *Session) ComparisonMatrix(ctx context.Context, ids []int) (compare.Matrix, error) {
	if len(ids) > compare.MaxSelected {
		return compare.Matrix{}, compare.ErrCapacityExceeded
	}
	if !s.store.Loaded() {
		return compare.Matrix{}, ErrNotLoaded
	}
	results := fn.ParMapResult(ids, compare.MaxSelected, func(id int) fn.Result[catalog.Car] {
		return fn.FromPair(s.src.FetchCarByID(ctx, id))
	})
	cars, err := fn.CollectAll(results).Unwrap()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.observeBuild(err)
		return compare.Matrix{}, &ComparisonError{IDs: failedIDs(ctx, ids, results), Err: err}
	}
	m, err := compare.BuildChecked(catalog.ResolveAll(cars, s.store))
	s.observeBuild(err)
	return m, err
}

// ComparisonMatrixSelected builds the matrix for the current selection.
func (s *Session) ComparisonMatrixSelected(ctx context.Context) (compare.Matrix, error) {
	return s.ComparisonMatrix(ctx, s.sel.IDs())
}

func (s *Session) observeBuild(err error) {
	if s.m != nil {
		s.m.ComparisonBuilds.WithLabelValues(metrics.Outcome(err)).Inc()
	}
}

func failedIDs(ctx context.Context, ids []int, results []fn.Result[catalog.Car]) []int {
	var out []int
	for i, r := range results {
		if r.IsErr() {
			out = append(out, ids[i])
		}
	}
	if len(out) == 0 && ctx.Err() != nil {
		out = append(out, ids...)
	}
	return out
}

// ComparisonError is the aggregated failure of a comparison fetch.
type ComparisonError struct {
	IDs []int
	Err error
}

func (e *ComparisonError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("session: comparison failed for cars %v: %v", ids, e.Err)
}

func (e *ComparisonError) Unwrap() error { return e.Err }
