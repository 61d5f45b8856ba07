package compare

import (
	"strconv"

	"github.com/WessleyAI/carviewer/engine/catalog"
)

// FeatureHeader labels the row-name column.
const FeatureHeader = "Feature"

// Row describes one attribute row of the matrix.
type Row struct {
	Label string
	Value func(catalog.ResolvedCar) string
}

// Rows is the fixed, ordered row specification.
var Rows = []Row{
	{Label: "Year", Value: func(c catalog.ResolvedCar) string { return strconv.Itoa(c.Year) }},
	{Label: "Category", Value: func(c catalog.ResolvedCar) string { return c.CategoryName }},
	{Label: "Engine", Value: func(c catalog.ResolvedCar) string { return catalog.OrNA(c.Specifications.Engine) }},
	{Label: "Horsepower", Value: func(c catalog.ResolvedCar) string { return catalog.OrNA(c.Specifications.Horsepower) }},
	{Label: "Transmission", Value: func(c catalog.ResolvedCar) string { return catalog.OrNA(c.Specifications.Transmission) }},
}

// Column is the header cell of one compared car.
type Column struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// MatrixRow is one attribute row; Cells align with Matrix.Columns.
type MatrixRow struct {
	Label string   `json:"label"`
	Cells []string `json:"cells"`
}

// Matrix is the comparison grid.
type Matrix struct {
	Header  string      `json:"header"`
	Columns []Column    `json:"columns"`
	Rows    []MatrixRow `json:"rows"`
}

// Build lays out cars as columns in the given order with one row per entry
// of Rows. Zero cars yield a header-only grid.
func Build(cars []catalog.ResolvedCar) Matrix {
	m := Matrix{
		Header:  FeatureHeader,
		Columns: make([]Column, len(cars)),
		Rows:    make([]MatrixRow, len(Rows)),
	}
	for j, c := range cars {
		m.Columns[j] = Column{ID: c.ID, Name: c.Name, Image: c.Image}
	}
	for i, r := range Rows {
		cells := make([]string, len(cars))
		for j, c := range cars {
			cells[j] = r.Value(c)
		}
		m.Rows[i] = MatrixRow{Label: r.Label, Cells: cells}
	}
	return m
}

// BuildChecked is Build that refuses more than MaxSelected cars.
func BuildChecked(cars []catalog.ResolvedCar) (Matrix, error) {
	if len(cars) > MaxSelected {
		return Matrix{}, ErrCapacityExceeded
	}
	return Build(cars), nil
}
