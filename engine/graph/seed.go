package graph

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/WessleyAI/carviewer/engine/catalog"
)

var seedManufacturers = []catalog.Manufacturer{
	{ID: 1, Name: "Audi", Country: "Germany", FoundingYear: 1909, Logo: "🅰️"},
	{ID: 2, Name: "Mercedes-Benz", Country: "Germany", FoundingYear: 1926, Logo: "⭐"},
	{ID: 3, Name: "BMW", Country: "Germany", FoundingYear: 1916, Logo: "🔵"},
	{ID: 4, Name: "Toyota", Country: "Japan", FoundingYear: 1937, Logo: "🔴"},
}

func seedCar(id int, name, mfr, category string, price int, image string, spec catalog.Specifications) catalog.LegacyCar {
	return catalog.LegacyCar{
		ID:           id,
		Name:         name,
		Manufacturer: mfr,
		Category:     category,
		Year:         2024,
		Price:        json.RawMessage(fmt.Sprint(price)),
		ImageURL:     image,
		Details:      spec,
	}
}

var seedCars = []catalog.LegacyCar{
	seedCar(1, "Audi A4", "Audi", "Sedan", 42000,
		"https://images.unsplash.com/photo-1606664515524-ed2f786a0bd6?w=400",
		catalog.Specifications{Engine: "2.0L Inline-4", Horsepower: "201", Transmission: "7-speed Automatic", Drivetrain: "All-Wheel Drive"}),
	seedCar(2, "Mercedes-Benz E-Class", "Mercedes-Benz", "Luxury Sedan", 62000,
		"https://images.unsplash.com/photo-1618843479313-40f8afb4b4d8?w=400",
		catalog.Specifications{Engine: "2.0L Inline-4 Turbo", Horsepower: "255", Transmission: "9-speed Automatic", Drivetrain: "Rear-Wheel Drive"}),
	seedCar(3, "BMW 3 Series", "BMW", "Sport Sedan", 45000,
		"https://images.unsplash.com/photo-1555215695-3004980ad54e?w=400",
		catalog.Specifications{Engine: "2.0L Inline-4 Turbo", Horsepower: "255", Transmission: "8-speed Automatic", Drivetrain: "Rear-Wheel Drive"}),
	seedCar(4, "Audi Q5", "Audi", "SUV", 48000,
		"https://images.unsplash.com/photo-1609521263047-f8f205293f24?w=400",
		catalog.Specifications{Engine: "2.0L Inline-4 Turbo", Horsepower: "261", Transmission: "7-speed Automatic", Drivetrain: "All-Wheel Drive"}),
	seedCar(5, "Toyota Camry", "Toyota", "Sedan", 28000,
		"https://images.unsplash.com/photo-1621007947382-bb3c3994e3fb?w=400",
		catalog.Specifications{Engine: "2.5L Inline-4", Horsepower: "203", Transmission: "8-speed Automatic", Drivetrain: "Front-Wheel Drive"}),
	seedCar(6, "BMW X5", "BMW", "SUV", 65000,
		"https://images.unsplash.com/photo-1627454820516-1cf4b8f1ec30?w=400",
		catalog.Specifications{Engine: "3.0L Inline-6 Turbo", Horsepower: "335", Transmission: "8-speed Automatic", Drivetrain: "All-Wheel Drive"}),
}

// SeedCatalog returns the default catalog: four manufacturers and six 2024
// models in four categories.
func SeedCatalog() catalog.Catalog {
	cars, cats, err := catalog.Normalize(seedCars, seedManufacturers)
	if err != nil {
		// Static data; only reachable if Normalize's contract changes.
		panic(fmt.Sprintf("graph: seed catalog: %v", err))
	}
	return catalog.Catalog{
		Cars:          cars,
		Manufacturers: append([]catalog.Manufacturer{}, seedManufacturers...),
		Categories:    cats,
	}
}

// Seed writes SeedCatalog into the graph, replacing what is there.
func (g *Graph) Seed(ctx context.Context) error {
	return g.SaveCatalog(ctx, SeedCatalog())
}
