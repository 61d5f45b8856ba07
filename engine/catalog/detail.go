package catalog

import "strconv"

// OrNA returns v, or NotAvailable when v is empty.
func OrNA(v string) string {
	if v == "" {
		return NotAvailable
	}
	return v
}

// DetailView is the formatted single-car view.
type DetailView struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	Year         string `json:"year"`
	Manufacturer string `json:"manufacturer"`
	Country      string `json:"country"`
	FoundingYear string `json:"foundingYear"`
	Category     string `json:"category"`
	Engine       string `json:"engine"`
	Horsepower   string `json:"horsepower"`
	Transmission string `json:"transmission"`
	Drivetrain   string `json:"drivetrain"`
	Price        string `json:"price"`
	Availability string `json:"availability"`
}

// Detail formats a resolved car for display. Absent values become N/A and
// horsepower is rendered as "<n> HP".
func Detail(rc ResolvedCar) DetailView {
	spec := rc.Specifications
	hp := NotAvailable
	if n, ok := spec.HorsepowerValue(); ok {
		hp = strconv.Itoa(n) + " HP"
	} else if spec.Horsepower != "" {
		hp = spec.Horsepower
	}
	availability := NotAvailable
	if rc.Availability != nil {
		availability = "Out of stock"
		if *rc.Availability {
			availability = "Available"
		}
	}
	return DetailView{
		ID:           rc.ID,
		Name:         rc.Name,
		Image:        rc.Image,
		Year:         strconv.Itoa(rc.Year),
		Manufacturer: rc.ManufacturerName,
		Country:      rc.ManufacturerCountry,
		FoundingYear: rc.ManufacturerFoundingYear,
		Category:     rc.CategoryName,
		Engine:       OrNA(spec.Engine),
		Horsepower:   hp,
		Transmission: OrNA(spec.Transmission),
		Drivetrain:   OrNA(spec.Drivetrain),
		Price:        OrNA(rc.Price),
		Availability: availability,
	}
}
