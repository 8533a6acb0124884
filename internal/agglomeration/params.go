package agglomeration

import "github.com/sells-group/popframe/internal/model"

// Params are the growth constants of the builder.
type Params struct {
	// BaseTime is the travel budget in minutes of the densest tier.
	BaseTime float64
	// TimeStep is removed from the budget for every tier below TopLevel.
	TimeStep float64
	// MinPopulation is the smallest population that can anchor a seed.
	MinPopulation int
	// RadiusUnit converts each remaining minute into buffer distance.
	RadiusUnit float64
	// QuadSegments is the buffer circle resolution per quarter.
	QuadSegments int
	// TopLevel is the densest rank of the hierarchy in use.
	TopLevel model.Level
}

// DefaultParams returns the standard constants.
func DefaultParams() Params {
	return Params{
		BaseTime:      80,
		TimeStep:      10,
		MinPopulation: 15000,
		RadiusUnit:    500,
		QuadSegments:  16,
		TopLevel:      10,
	}
}

// MaxTime returns the travel budget for an anchor at level l.
func (p Params) MaxTime(l model.Level) float64 {
	return p.BaseTime - p.TimeStep*float64(p.TopLevel-l)
}

// Level maps an agglomeration population to its 1-5 class.
func Level(population int) int {
	switch {
	case population <= 250000:
		return 1
	case population <= 500000:
		return 2
	case population <= 1000000:
		return 3
	case population <= 5000000:
		return 4
	default:
		return 5
	}
}
