package catalog

import (
	"strings"

	"github.com/WessleyAI/carviewer/pkg/fn"
)

// Query selects cars for the grid. Zero values select everything.
type Query struct {
	Text           string
	ManufacturerID int
}

// Filter returns the cars whose name contains q.Text case-insensitively and,
// when q.ManufacturerID is set, whose manufacturer matches. Input order is
// kept and the input slice is never modified or aliased.
func Filter(cars []Car, q Query) []Car {
	needle := strings.ToLower(q.Text)
	return fn.Filter(cars, func(c Car) bool {
		if q.ManufacturerID != 0 && c.ManufacturerID != q.ManufacturerID {
			return false
		}
		return strings.Contains(strings.ToLower(c.Name), needle)
	})
}
