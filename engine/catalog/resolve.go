package catalog

import "strconv"

// Resolve joins a car against its manufacturer and category. Missing
// references become Unknown; specification values are copied untouched.
func Resolve(car Car, lookup Lookup) ResolvedCar {
	rc := ResolvedCar{
		Car:                      car,
		ManufacturerName:         Unknown,
		ManufacturerCountry:      Unknown,
		ManufacturerFoundingYear: Unknown,
		CategoryName:             Unknown,
	}
	if lookup == nil {
		return rc
	}
	if m, ok := lookup.Manufacturer(car.ManufacturerID); ok {
		rc.ManufacturerName = m.Name
		rc.ManufacturerCountry = m.Country
		rc.ManufacturerFoundingYear = strconv.Itoa(m.FoundingYear)
	}
	if c, ok := lookup.Category(car.CategoryID); ok {
		rc.CategoryName = c.Name
	}
	return rc
}

// ResolveAll resolves cars in order.
func ResolveAll(cars []Car, lookup Lookup) []ResolvedCar {
	out := make([]ResolvedCar, len(cars))
	for i, c := range cars {
		out[i] = Resolve(c, lookup)
	}
	return out
}
