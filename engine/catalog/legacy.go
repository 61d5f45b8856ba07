package catalog

import (
	"strings"

	"github.com/goccy/go-json"
)

// LegacyCar is the older embedded shape: manufacturer and category are names
// and specifications sit under "details".
type LegacyCar struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Manufacturer string          `json:"manufacturer"`
	Category     string          `json:"category"`
	Year         int             `json:"year"`
	Price        json.RawMessage `json:"price,omitempty"`
	ImageURL     string          `json:"imageUrl"`
	Details      Specifications  `json:"details"`
}

// Normalize converts legacy cars into normalized cars and categories.
// Manufacturers are matched by name, case-insensitively, against the given
// list; an unmatched name leaves the car unlinked (manufacturer id 0).
// Categories get sequential ids in first-seen order.
func Normalize(legacy []LegacyCar, manufacturers []Manufacturer) ([]Car, []Category, error) {
	mfrByName := make(map[string]int, len(manufacturers))
	for _, m := range manufacturers {
		mfrByName[strings.ToLower(m.Name)] = m.ID
	}

	catByName := map[string]int{}
	var categories []Category
	cars := make([]Car, 0, len(legacy))
	for _, lc := range legacy {
		price, err := scalarText(lc.Price)
		if err != nil {
			return nil, nil, err
		}
		car := Car{
			ID:             lc.ID,
			Name:           lc.Name,
			Year:           lc.Year,
			ManufacturerID: mfrByName[strings.ToLower(lc.Manufacturer)],
			Image:          lc.ImageURL,
			Price:          price,
			Specifications: lc.Details,
		}
		if name := strings.TrimSpace(lc.Category); name != "" {
			id, ok := catByName[name]
			if !ok {
				id = len(categories) + 1
				catByName[name] = id
				categories = append(categories, Category{ID: id, Name: name})
			}
			car.CategoryID = id
		}
		cars = append(cars, car)
	}
	return cars, categories, nil
}

// LegacyDocument is a catalog file in the older shape.
type LegacyDocument struct {
	Cars          []LegacyCar    `json:"cars"`
	Manufacturers []Manufacturer `json:"manufacturers"`
}

// Decode reads a catalog document in either shape. A document with a
// "carModels" key is normalized already; one with "cars" is legacy.
func Decode(data []byte) (Catalog, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Catalog{}, err
	}
	if _, ok := probe["carModels"]; ok {
		var c Catalog
		if err := json.Unmarshal(data, &c); err != nil {
			return Catalog{}, err
		}
		return c, nil
	}
	var doc LegacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Catalog{}, err
	}
	cars, cats, err := Normalize(doc.Cars, doc.Manufacturers)
	if err != nil {
		return Catalog{}, err
	}
	return Catalog{Cars: cars, Manufacturers: doc.Manufacturers, Categories: cats}, nil
}
