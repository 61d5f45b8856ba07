package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/engine/upstream"
	"github.com/WessleyAI/carviewer/pkg/fn"
	"github.com/WessleyAI/carviewer/pkg/repo"
)

var errNoNode = errors.New("graph: record has no node n")

// Graph stores the catalog in Neo4j and serves it back as an upstream.Source.
type Graph struct {
	sessions      repo.SessionFactory
	cars          *repo.Neo4jRepo[catalog.Car, int]
	manufacturers *repo.Neo4jRepo[catalog.Manufacturer, int]
	categories    *repo.Neo4jRepo[catalog.Category, int]
}

var _ upstream.Source = (*Graph)(nil)

// New creates a Graph on a live driver.
func New(driver neo4j.DriverWithContext, database string) *Graph {
	return NewWithSessions(repo.DriverSessions(driver, database))
}

// NewWithSessions creates a Graph on any session factory, which lets tests
// substitute an in-memory session.
func NewWithSessions(sessions repo.SessionFactory) *Graph {
	return &Graph{
		sessions: sessions,
		cars: repo.NewNeo4jRepo(sessions, LabelCar,
			func(c catalog.Car) int { return c.ID }, carToMap, carFromRecord),
		manufacturers: repo.NewNeo4jRepo(sessions, LabelManufacturer,
			func(m catalog.Manufacturer) int { return m.ID }, manufacturerToMap, manufacturerFromRecord),
		categories: repo.NewNeo4jRepo(sessions, LabelCategory,
			func(c catalog.Category) int { return c.ID }, categoryToMap, categoryFromRecord),
	}
}

// EnsureSchema creates a uniqueness constraint on every label's id.
func (g *Graph) EnsureSchema(ctx context.Context) error {
	sess := g.sessions(ctx)
	defer sess.Close(ctx)
	for _, label := range []string{LabelCar, LabelManufacturer, LabelCategory} {
		cypher := fmt.Sprintf(
			"CREATE CONSTRAINT %s_id IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			strings.ToLower(label), label)
		if _, err := sess.Run(ctx, cypher, nil); err != nil {
			return fmt.Errorf("graph: constraint %s: %w", label, err)
		}
	}
	return nil
}

func (g *Graph) SaveManufacturer(ctx context.Context, m catalog.Manufacturer) error {
	return g.manufacturers.Upsert(ctx, m)
}

func (g *Graph) SaveCategory(ctx context.Context, c catalog.Category) error {
	return g.categories.Upsert(ctx, c)
}

// SaveCar upserts the car node and relinks it to its manufacturer and
// category. Edges are only drawn to nodes that exist.
func (g *Graph) SaveCar(ctx context.Context, c catalog.Car) error {
	sess := g.sessions(ctx)
	defer sess.Close(ctx)
	return sess.ExecuteWrite(ctx, func(tx repo.Runner) error {
		return g.saveCar(ctx, tx, c)
	})
}

const linkCarCypher = `MATCH (n:Car {id: $id})
OPTIONAL MATCH (n)-[r:MADE_BY|IN_CATEGORY]->()
DELETE r
WITH DISTINCT n
OPTIONAL MATCH (m:Manufacturer {id: $manufacturerId})
FOREACH (_ IN CASE WHEN m IS NULL THEN [] ELSE [1] END | MERGE (n)-[:MADE_BY]->(m))
WITH DISTINCT n
OPTIONAL MATCH (c:Category {id: $categoryId})
FOREACH (_ IN CASE WHEN c IS NULL THEN [] ELSE [1] END | MERGE (n)-[:IN_CATEGORY]->(c))`

func (g *Graph) saveCar(ctx context.Context, tx repo.Runner, c catalog.Car) error {
	if err := g.cars.UpsertWith(ctx, tx, c); err != nil {
		return fmt.Errorf("graph: save car %d: %w", c.ID, err)
	}
	_, err := tx.Run(ctx, linkCarCypher, map[string]any{
		"id":             c.ID,
		"manufacturerId": c.ManufacturerID,
		"categoryId":     c.CategoryID,
	})
	if err != nil {
		return fmt.Errorf("graph: link car %d: %w", c.ID, err)
	}
	return nil
}

const pruneCypher = "MATCH (n:%s) WHERE NOT n.id IN $ids DETACH DELETE n"

// SaveCatalog replaces the stored catalog with c in one write transaction.
// The catalog is validated first; an invalid one leaves the graph untouched.
func (g *Graph) SaveCatalog(ctx context.Context, c catalog.Catalog) error {
	if err := catalog.Validate(c.Cars, c.Manufacturers, c.Categories); err != nil {
		return err
	}
	sess := g.sessions(ctx)
	defer sess.Close(ctx)

	return sess.ExecuteWrite(ctx, func(tx repo.Runner) error {
		for _, m := range c.Manufacturers {
			if err := g.manufacturers.UpsertWith(ctx, tx, m); err != nil {
				return fmt.Errorf("graph: save manufacturer %d: %w", m.ID, err)
			}
		}
		for _, cat := range c.Categories {
			if err := g.categories.UpsertWith(ctx, tx, cat); err != nil {
				return fmt.Errorf("graph: save category %d: %w", cat.ID, err)
			}
		}
		for _, car := range c.Cars {
			if err := g.saveCar(ctx, tx, car); err != nil {
				return err
			}
		}
		prune := []struct {
			label string
			ids   []int
		}{
			{LabelCar, fn.Map(c.Cars, func(x catalog.Car) int { return x.ID })},
			{LabelManufacturer, fn.Map(c.Manufacturers, func(x catalog.Manufacturer) int { return x.ID })},
			{LabelCategory, fn.Map(c.Categories, func(x catalog.Category) int { return x.ID })},
		}
		for _, p := range prune {
			if _, err := tx.Run(ctx, fmt.Sprintf(pruneCypher, p.label), map[string]any{"ids": p.ids}); err != nil {
				return fmt.Errorf("graph: prune %s: %w", p.label, err)
			}
		}
		return nil
	})
}

func (g *Graph) Cars(ctx context.Context) ([]catalog.Car, error) {
	return g.cars.List(ctx)
}

func (g *Graph) CarByID(ctx context.Context, id int) (catalog.Car, error) {
	return g.cars.Get(ctx, id)
}

func (g *Graph) Manufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	return g.manufacturers.List(ctx)
}

func (g *Graph) Categories(ctx context.Context) ([]catalog.Category, error) {
	return g.categories.List(ctx)
}

// DeleteCar removes a car and its edges.
func (g *Graph) DeleteCar(ctx context.Context, id int) error {
	return g.cars.Delete(ctx, id)
}

func (g *Graph) FetchCars(ctx context.Context) ([]catalog.Car, error) {
	cars, err := g.Cars(ctx)
	return cars, upstream.WrapFetch(upstream.OpCars, 0, err)
}

func (g *Graph) FetchCarByID(ctx context.Context, id int) (catalog.Car, error) {
	car, err := g.CarByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return catalog.Car{}, &upstream.FetchError{Op: upstream.OpCar, ID: id, Status: 404, Err: upstream.ErrNotFound}
	}
	return car, upstream.WrapFetch(upstream.OpCar, id, err)
}

func (g *Graph) FetchManufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	mfrs, err := g.Manufacturers(ctx)
	return mfrs, upstream.WrapFetch(upstream.OpManufacturers, 0, err)
}

func (g *Graph) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	cats, err := g.Categories(ctx)
	return cats, upstream.WrapFetch(upstream.OpCategories, 0, err)
}
