package l3stokes

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ComponentStats summarises one Stokes component over a field.
type ComponentStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"` // population standard deviation
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// FieldStats summarises every component of a field.
type FieldStats struct {
	Samples int            `json:"samples"`
	S0      ComponentStats `json:"s0"`
	S1      ComponentStats `json:"s1"`
	S2      ComponentStats `json:"s2"`
}

// Stats computes per-component summary statistics. An empty field yields
// zero values.
func (f *Field) Stats() FieldStats {
	fs := FieldStats{Samples: f.Len()}
	if f.Len() == 0 {
		return fs
	}
	fs.S0 = componentStats(f.Values(ComponentS0))
	fs.S1 = componentStats(f.Values(ComponentS1))
	fs.S2 = componentStats(f.Values(ComponentS2))
	return fs
}

// Component returns the stats for c.
func (fs FieldStats) Component(c Component) ComponentStats {
	switch c {
	case ComponentS1:
		return fs.S1
	case ComponentS2:
		return fs.S2
	default:
		return fs.S0
	}
}

func componentStats(values []float64) ComponentStats {
	mean, std := stat.PopMeanStdDev(values, nil)
	return ComponentStats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}
