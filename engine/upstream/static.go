package upstream

import (
	"context"
	"sync"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/pkg/fn"
)

// Static serves a catalog held in memory.
type Static struct {
	mu  sync.RWMutex
	cat catalog.Catalog
}

// NewStatic returns a source over c.
func NewStatic(c catalog.Catalog) *Static {
	return &Static{cat: c}
}

// Set replaces the served catalog.
func (s *Static) Set(c catalog.Catalog) {
	s.mu.Lock()
	s.cat = c
	s.mu.Unlock()
}

func (s *Static) FetchCars(ctx context.Context) ([]catalog.Car, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapFetch(OpCars, 0, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.Car{}, s.cat.Cars...), nil
}

func (s *Static) FetchCarByID(ctx context.Context, id int) (catalog.Car, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Car{}, WrapFetch(OpCar, id, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	car, ok := fn.Find(s.cat.Cars, func(c catalog.Car) bool { return c.ID == id })
	if !ok {
		return catalog.Car{}, &FetchError{Op: OpCar, ID: id, Status: 404, Err: ErrNotFound}
	}
	return car, nil
}

func (s *Static) FetchManufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapFetch(OpManufacturers, 0, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.Manufacturer{}, s.cat.Manufacturers...), nil
}

func (s *Static) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapFetch(OpCategories, 0, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.Category{}, s.cat.Categories...), nil
}
