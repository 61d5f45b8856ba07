package upstream

import (
	"context"
	"time"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/pkg/metrics"
)

// Instrumented records call counts and latency for every fetch of a Source.
type Instrumented struct {
	src  Source
	name string
	m    *metrics.Metrics
}

// Instrument wraps src; name labels the metrics (http, nats, graph, static).
func Instrument(src Source, name string, m *metrics.Metrics) *Instrumented {
	return &Instrumented{src: src, name: name, m: m}
}

func (i *Instrumented) FetchCars(ctx context.Context) ([]catalog.Car, error) {
	start := time.Now()
	cars, err := i.src.FetchCars(ctx)
	i.m.ObserveUpstream(i.name, OpCars, start, err)
	return cars, err
}

func (i *Instrumented) FetchCarByID(ctx context.Context, id int) (catalog.Car, error) {
	start := time.Now()
	car, err := i.src.FetchCarByID(ctx, id)
	i.m.ObserveUpstream(i.name, OpCar, start, err)
	return car, err
}

func (i *Instrumented) FetchManufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	start := time.Now()
	mfrs, err := i.src.FetchManufacturers(ctx)
	i.m.ObserveUpstream(i.name, OpManufacturers, start, err)
	return mfrs, err
}

func (i *Instrumented) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	start := time.Now()
	cats, err := i.src.FetchCategories(ctx)
	i.m.ObserveUpstream(i.name, OpCategories, start, err)
	return cats, err
}
