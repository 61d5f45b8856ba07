// Package graph persists the car catalog in Neo4j: one node per car,
// manufacturer and category, with MADE_BY and IN_CATEGORY edges.
package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/pkg/repo"
)

// Node labels and relationship types.
const (
	LabelCar          = "Car"
	LabelManufacturer = "Manufacturer"
	LabelCategory     = "Category"

	RelMadeBy     = "MADE_BY"
	RelInCategory = "IN_CATEGORY"
)

func manufacturerToMap(m catalog.Manufacturer) map[string]any {
	return map[string]any{
		"id":            m.ID,
		"name":          m.Name,
		"country":       m.Country,
		"founding_year": m.FoundingYear,
		"logo":          m.Logo,
	}
}

func manufacturerFromRecord(rec *neo4j.Record) (catalog.Manufacturer, error) {
	p, err := nodeProps(rec)
	if err != nil {
		return catalog.Manufacturer{}, err
	}
	return catalog.Manufacturer{
		ID:           repo.IntProp(p, "id"),
		Name:         repo.StrProp(p, "name"),
		Country:      repo.StrProp(p, "country"),
		FoundingYear: repo.IntProp(p, "founding_year"),
		Logo:         repo.StrProp(p, "logo"),
	}, nil
}

func categoryToMap(c catalog.Category) map[string]any {
	return map[string]any{"id": c.ID, "name": c.Name}
}

func categoryFromRecord(rec *neo4j.Record) (catalog.Category, error) {
	p, err := nodeProps(rec)
	if err != nil {
		return catalog.Category{}, err
	}
	return catalog.Category{ID: repo.IntProp(p, "id"), Name: repo.StrProp(p, "name")}, nil
}

// carToMap flattens a car into node properties. Foreign keys are kept as
// properties so a car pointing at a missing manufacturer round-trips.
// A nil availability maps to nil, which removes the property on SET +=.
func carToMap(c catalog.Car) map[string]any {
	m := map[string]any{
		"id":              c.ID,
		"name":            c.Name,
		"year":            c.Year,
		"manufacturer_id": c.ManufacturerID,
		"category_id":     c.CategoryID,
		"image":           c.Image,
		"price":           c.Price,
		"engine":          c.Specifications.Engine,
		"horsepower":      c.Specifications.Horsepower,
		"transmission":    c.Specifications.Transmission,
		"drivetrain":      c.Specifications.Drivetrain,
		"availability":    nil,
	}
	if c.Availability != nil {
		m["availability"] = *c.Availability
	}
	return m
}

func carFromRecord(rec *neo4j.Record) (catalog.Car, error) {
	p, err := nodeProps(rec)
	if err != nil {
		return catalog.Car{}, err
	}
	return catalog.Car{
		ID:             repo.IntProp(p, "id"),
		Name:           repo.StrProp(p, "name"),
		Year:           repo.IntProp(p, "year"),
		ManufacturerID: repo.IntProp(p, "manufacturer_id"),
		CategoryID:     repo.IntProp(p, "category_id"),
		Image:          repo.StrProp(p, "image"),
		Price:          repo.StrProp(p, "price"),
		Availability:   repo.BoolProp(p, "availability"),
		Specifications: catalog.Specifications{
			Engine:       repo.StrProp(p, "engine"),
			Horsepower:   repo.StrProp(p, "horsepower"),
			Transmission: repo.StrProp(p, "transmission"),
			Drivetrain:   repo.StrProp(p, "drivetrain"),
		},
	}, nil
}

func nodeProps(rec *neo4j.Record) (map[string]any, error) {
	p, ok := repo.Props(rec, "n")
	if !ok {
		return nil, errNoNode
	}
	return p, nil
}
