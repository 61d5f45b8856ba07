package catalog

import (
	"sync"

	"github.com/WessleyAI/carviewer/pkg/fn"
)

// Lookup resolves foreign keys. Store satisfies it.
type Lookup interface {
	Manufacturer(id int) (Manufacturer, bool)
	Category(id int) (Category, bool)
}

// Store holds the currently loaded collections. A load replaces all three
// collections at once or nothing at all.
type Store struct {
	mu            sync.RWMutex
	loaded        bool
	cars          []Car
	carsByID      map[int]Car
	manufacturers map[int]Manufacturer
	categories    map[int]Category
	mfrOrder      []Manufacturer
	catOrder      []Category
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		carsByID:      map[int]Car{},
		manufacturers: map[int]Manufacturer{},
		categories:    map[int]Category{},
	}
}

// Load validates the collections and swaps them in. On error the previous
// contents stay in place.
func (s *Store) Load(cars []Car, manufacturers []Manufacturer, categories []Category) error {
	if err := Validate(cars, manufacturers, categories); err != nil {
		return err
	}

	carsCopy := append([]Car(nil), cars...)
	mfrCopy := append([]Manufacturer(nil), manufacturers...)
	catCopy := append([]Category(nil), categories...)
	carsByID := fn.IndexBy(carsCopy, func(c Car) int { return c.ID })
	mfrs := fn.IndexBy(mfrCopy, func(m Manufacturer) int { return m.ID })
	cats := fn.IndexBy(catCopy, func(c Category) int { return c.ID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cars = carsCopy
	s.carsByID = carsByID
	s.manufacturers = mfrs
	s.categories = cats
	s.mfrOrder = mfrCopy
	s.catOrder = catCopy
	s.loaded = true
	return nil
}

// LoadCatalog is Load over a bundled Catalog.
func (s *Store) LoadCatalog(c Catalog) error {
	return s.Load(c.Cars, c.Manufacturers, c.Categories)
}

// Car looks up a car by id.
func (s *Store) Car(id int) (Car, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carsByID[id]
	return c, ok
}

// Manufacturer looks up a manufacturer by id.
func (s *Store) Manufacturer(id int) (Manufacturer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manufacturers[id]
	return m, ok
}

// Category looks up a category by id.
func (s *Store) Category(id int) (Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	return c, ok
}

// Cars returns a copy of the car collection in load order.
func (s *Store) Cars() []Car {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Car{}, s.cars...)
}

// Manufacturers returns a copy of the manufacturers in load order.
func (s *Store) Manufacturers() []Manufacturer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Manufacturer{}, s.mfrOrder...)
}

// Categories returns a copy of the categories in load order.
func (s *Store) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Category{}, s.catOrder...)
}

// Snapshot returns the loaded collections as one Catalog.
func (s *Store) Snapshot() Catalog {
	return Catalog{Cars: s.Cars(), Manufacturers: s.Manufacturers(), Categories: s.Categories()}
}

// Loaded reports whether a load has ever succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
