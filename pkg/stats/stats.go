// Package stats summarizes metric distributions across analyzed functions.
package stats

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Distribution describes a set of observations of one metric.
type Distribution struct {
	Mean float64 `json:"mean" yaml:"mean" toon:"mean"`
	P50  float64 `json:"p50" yaml:"p50" toon:"p50"`
	P90  float64 `json:"p90" yaml:"p90" toon:"p90"`
	Max  float64 `json:"max" yaml:"max" toon:"max"`
}

// Describe computes the distribution of values. An empty input yields the
// zero Distribution. values is not modified.
func Describe(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Distribution{
		Mean: stat.Mean(sorted, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:  stat.Quantile(0.9, stat.Empirical, sorted, nil),
		Max:  sorted[len(sorted)-1],
	}
}

// DescribeInts is Describe over integer observations.
func DescribeInts(values []int) Distribution {
	f := make([]float64, len(values))
	for i, v := range values {
		f[i] = float64(v)
	}
	return Describe(f)
}
