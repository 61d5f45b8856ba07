// Package catalog defines the normalized car catalog (cars, manufacturers,
// categories linked by integer ids) and the pure operations over it: the
// reference store, resolution of foreign keys and list filtering.
package catalog

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Unknown is substituted for any attribute reached through a missing reference.
const Unknown = "Unknown"

// NotAvailable is the presentation fallback for an absent specification value.
const NotAvailable = "N/A"

// Car is a single car model. ManufacturerID and CategoryID are foreign keys
// and may point at nothing; CategoryID 0 means no category.
type Car struct {
	ID             int            `json:"id" validate:"gt=0"`
	Name           string         `json:"name" validate:"required"`
	Year           int            `json:"year"`
	ManufacturerID int            `json:"manufacturerId" validate:"gte=0"`
	CategoryID     int            `json:"categoryId,omitempty" validate:"gte=0"`
	Image          string         `json:"image,omitempty"`
	Price          string         `json:"price,omitempty"`
	Availability   *bool          `json:"availability,omitempty"`
	Specifications Specifications `json:"specifications"`
}

// Specifications are the technical details nested inside a car. Values are
// kept as text; an empty string means the value is absent.
type Specifications struct {
	Engine       string `json:"engine,omitempty"`
	Horsepower   string `json:"horsepower,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	Drivetrain   string `json:"drivetrain,omitempty"`
}

// HorsepowerValue parses Horsepower as an integer.
func (s Specifications) HorsepowerValue() (int, bool) {
	hp, err := strconv.Atoi(strings.TrimSpace(s.Horsepower))
	if err != nil {
		return 0, false
	}
	return hp, true
}

// UnmarshalJSON accepts strings or numbers for every field.
func (s *Specifications) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Specifications{}
	for key, val := range raw {
		text, err := scalarText(val)
		if err != nil {
			return err
		}
		switch strings.ToLower(key) {
		case "engine":
			s.Engine = text
		case "horsepower":
			s.Horsepower = text
		case "transmission":
			s.Transmission = text
		case "drivetrain":
			s.Drivetrain = text
		}
	}
	return nil
}

// scalarText renders a JSON scalar as text. Strings are kept as given;
// null becomes "".
func scalarText(val json.RawMessage) (string, error) {
	val = bytes.TrimSpace(val)
	if len(val) == 0 || bytes.Equal(val, []byte("null")) {
		return "", nil
	}
	if val[0] == '"' {
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(val, &n); err == nil {
		return n.String(), nil
	}
	var b bool
	if err := json.Unmarshal(val, &b); err == nil {
		return strconv.FormatBool(b), nil
	}
	return "", fmt.Errorf("catalog: unsupported value %s", val)
}

// carWire is the tolerant decoding shape for Car. Price may arrive as a
// number or a string and the image under "image" or "imageUrl".
type carWire struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Year           int             `json:"year"`
	ManufacturerID int             `json:"manufacturerId"`
	CategoryID     int             `json:"categoryId"`
	Image          string          `json:"image"`
	ImageURL       string          `json:"imageUrl"`
	Price          json.RawMessage `json:"price"`
	Availability   *bool           `json:"availability"`
}

// specKeys are the keys the nested block may arrive under, in priority order.
var specKeys = []string{"specifications", "Specifications", "details"}

// UnmarshalJSON decodes both the current and the older car payload shapes.
func (c *Car) UnmarshalJSON(data []byte) error {
	var w carWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	price, err := scalarText(w.Price)
	if err != nil {
		return err
	}
	*c = Car{
		ID:             w.ID,
		Name:           w.Name,
		Year:           w.Year,
		ManufacturerID: w.ManufacturerID,
		CategoryID:     w.CategoryID,
		Image:          w.Image,
		Price:          price,
		Availability:   w.Availability,
	}
	if c.Image == "" {
		c.Image = w.ImageURL
	}
	for _, key := range specKeys {
		block, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(block, &c.Specifications); err != nil {
			return fmt.Errorf("catalog: car %d %s: %w", w.ID, key, err)
		}
		break
	}
	return nil
}

// Manufacturer is immutable reference data.
type Manufacturer struct {
	ID           int    `json:"id" validate:"gt=0"`
	Name         string `json:"name" validate:"required"`
	Country      string `json:"country"`
	FoundingYear int    `json:"foundingYear"`
	Logo         string `json:"logo,omitempty"`
}

// Category is immutable reference data.
type Category struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"name" validate:"required"`
}

// ResolvedCar is a car with its foreign keys replaced by the referenced
// values, or Unknown where the reference is missing. It is derived on demand.
type ResolvedCar struct {
	Car
	ManufacturerName    string `json:"manufacturerName"`
	ManufacturerCountry string `json:"manufacturerCountry"`
	// ManufacturerFoundingYear is text so it can hold Unknown.
	ManufacturerFoundingYear string `json:"manufacturerFoundingYear"`
	CategoryName             string `json:"categoryName"`
}

// UnmarshalJSON decodes both the car and the resolved names. Without it the
// embedded Car's decoder would take over the whole object.
func (r *ResolvedCar) UnmarshalJSON(data []byte) error {
	if err := r.Car.UnmarshalJSON(data); err != nil {
		return err
	}
	var names struct {
		ManufacturerName         string `json:"manufacturerName"`
		ManufacturerCountry      string `json:"manufacturerCountry"`
		ManufacturerFoundingYear string `json:"manufacturerFoundingYear"`
		CategoryName             string `json:"categoryName"`
	}
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	r.ManufacturerName = names.ManufacturerName
	r.ManufacturerCountry = names.ManufacturerCountry
	r.ManufacturerFoundingYear = names.ManufacturerFoundingYear
	r.CategoryName = names.CategoryName
	return nil
}

// Catalog bundles the three collections as they travel together on the wire
// and on disk.
type Catalog struct {
	Cars          []Car          `json:"carModels"`
	Manufacturers []Manufacturer `json:"manufacturers"`
	Categories    []Category     `json:"categories"`
}
