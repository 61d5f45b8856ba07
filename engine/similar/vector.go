// Package similar indexes cars as small feature vectors in Qdrant and finds
// the nearest neighbours of a car.
package similar

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/WessleyAI/carviewer/engine/catalog"
)

// Dims is the vector size: year, horsepower, displacement, drivetrain.
const Dims = 4

const (
	minYear         = 1990
	yearSpan        = 50
	maxHorsepower   = 800
	maxDisplacement = 8.0
)

var displacementRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[lL]\b`)

// Displacement extracts the engine size in liters from text like
// "2.0L Inline-4 Turbo".
func Displacement(engine string) (float64, bool) {
	m := displacementRe.FindStringSubmatch(engine)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// drivetrainScore orders layouts so that similar ones sit close together.
func drivetrainScore(d string) float64 {
	d = strings.ToLower(d)
	switch {
	case strings.Contains(d, "all-wheel"), strings.Contains(d, "awd"),
		strings.Contains(d, "four-wheel"), strings.Contains(d, "4wd"):
		return 1
	case strings.Contains(d, "rear"), strings.Contains(d, "rwd"):
		return 0.66
	case strings.Contains(d, "front"), strings.Contains(d, "fwd"):
		return 0.33
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Vector returns the unit-length feature vector of car. Missing features
// contribute zero. A car with no usable feature yields the zero vector.
func Vector(car catalog.Car) []float32 {
	raw := [Dims]float64{}
	if car.Year > 0 {
		raw[0] = clamp01(float64(car.Year-minYear) / yearSpan)
	}
	if hp, ok := car.Specifications.HorsepowerValue(); ok {
		raw[1] = clamp01(float64(hp) / maxHorsepower)
	}
	if l, ok := Displacement(car.Specifications.Engine); ok {
		raw[2] = clamp01(l / maxDisplacement)
	}
	raw[3] = drivetrainScore(car.Specifications.Drivetrain)

	var norm float64
	for _, v := range raw {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, Dims)
	if norm == 0 {
		return out
	}
	for i, v := range raw {
		out[i] = float32(v / norm)
	}
	return out
}
