// Package upstream is the fetch boundary between the engine and whatever
// serves the catalog: an HTTP API, a NATS responder or an in-memory set.
package upstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/WessleyAI/carviewer/engine/catalog"
)

// Source supplies the three catalog collections and single cars.
type Source interface {
	FetchCars(ctx context.Context) ([]catalog.Car, error)
	// FetchCarByID returns an error matching ErrNotFound when id is unknown.
	FetchCarByID(ctx context.Context, id int) (catalog.Car, error)
	FetchManufacturers(ctx context.Context) ([]catalog.Manufacturer, error)
	FetchCategories(ctx context.Context) ([]catalog.Category, error)
}

// ErrNotFound is the not-found sentinel shared with the catalog package.
var ErrNotFound = catalog.ErrNotFound

// Operation names used in errors and metrics.
const (
	OpCars          = "cars"
	OpCar           = "car"
	OpManufacturers = "manufacturers"
	OpCategories    = "categories"
)

// FetchError reports that the upstream could not supply data.
type FetchError struct {
	Op     string
	ID     int // set for OpCar
	Status int // HTTP-like status when the upstream answered, else 0
	Err    error
}

func (e *FetchError) Error() string {
	target := e.Op
	if e.Op == OpCar {
		target = fmt.Sprintf("car %d", e.ID)
	}
	if e.Status != 0 {
		return fmt.Sprintf("upstream: fetch %s: status %d: %v", target, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream: fetch %s: %v", target, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WrapFetch wraps err in a *FetchError unless it already is one.
func WrapFetch(op string, id int, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Op: op, ID: id, Err: err}
}
