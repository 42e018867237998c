// Package stats provides the mean/stddev/coefficient-of-variation primitives
// shared by every pipeline, backed by gonum for the underlying moments.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev returns the population standard deviation of values (not the
// sample/Bessel-corrected variant gonum's stat.StdDev computes by default;
// callers in this module treat a run's samples as the full population for
// that run, so the correction is undone here).
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sampleVariance := stat.Variance(values, nil)
	// stat.Variance divides by (n-1); rescale to a population (n) divisor.
	populationVariance := sampleVariance * float64(n-1) / float64(n)
	return math.Sqrt(populationVariance)
}

// CV is the coefficient of variation: StdDev/Mean when mean > 0, +Inf
// otherwise — a sequence with zero or negative mean has an undefined,
// maximally unstable CV rather than a misleadingly small one.
func CV(values []float64) float64 {
	mean := Mean(values)
	if mean <= 0 {
		return math.Inf(1)
	}
	return StdDev(values) / mean
}

// Max returns the largest finite value in values, or 0 if none are finite.
func Max(values []float64) float64 {
	max := 0.0
	found := false
	for _, v := range values {
		if !IsFinite(v) {
			continue
		}
		if !found || v > max {
			max = v
			found = true
		}
	}
	return max
}

// Min returns the smallest finite value in values, or 0 if none are finite.
func Min(values []float64) float64 {
	min := 0.0
	found := false
	for _, v := range values {
		if !IsFinite(v) {
			continue
		}
		if !found || v < min {
			min = v
			found = true
		}
	}
	return min
}

// RMS returns the root-mean-square of values, or 0 for an empty slice.
func RMS(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether v is neither NaN nor +/-Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SafePositive returns v if it is finite and strictly positive, else 0.
func SafePositive(v float64) float64 {
	if !IsFinite(v) || v <= 0 {
		return 0
	}
	return v
}
