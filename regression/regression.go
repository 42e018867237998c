// Package regression implements the centered-coordinates quadratic fit,
// optimum extraction, R², and the confidence/warning classification that
// sits on top of it.
package regression

import (
	"math"
	"sort"

	"github.com/wattshift/tirepressure-core/model"
)

// Options tunes a single Fit call.
type Options struct {
	AllowTwoPoint bool
	PowerCV       *float64 // optional cross-lap power-CV statistic
	Config        model.Config
}

// Fit runs the full regression pipeline over points: outlier trim, centered
// quadratic fit, optimum extraction, R², vibration-reduction, and
// confidence tagging.
func Fit(points []model.RegressionPoint, opts Options) model.RegressionResult {
	cfg := opts.Config
	minPoints := cfg.MinQuadraticPoints
	if minPoints <= 0 {
		minPoints = 3
	}

	if len(points) < 2 {
		return model.RegressionResult{
			Confidence: model.ConfidenceLow,
			Warning:    "fewer than 2 data points",
			Err:        "insufficient data",
		}
	}

	used, trimmed := trimOutliers(points)

	if len(used) < minPoints {
		if opts.AllowTwoPoint && len(used) >= 2 {
			return lowDataFallback(used, trimmed)
		}
		return model.RegressionResult{
			Confidence:    model.ConfidenceLow,
			Warning:       "insufficient data for a quadratic fit",
			Err:           "insufficient data",
			PointsUsed:    used,
			PointsTrimmed: trimmed,
		}
	}

	a, b, c, ok := centeredQuadraticFit(used)
	if !ok {
		if opts.AllowTwoPoint {
			return lowDataFallback(used, trimmed)
		}
		return model.RegressionResult{
			Confidence:    model.ConfidenceLow,
			Warning:       "degenerate fit",
			Err:           "degenerate fit: singular normal-equations matrix",
			PointsUsed:    used,
			PointsTrimmed: trimmed,
		}
	}

	optimalX := -b / (2 * a)
	if !isFinitePositive(optimalX) {
		if opts.AllowTwoPoint {
			return lowDataFallback(used, trimmed)
		}
		return model.RegressionResult{
			A: a, B: b, C: c,
			Confidence:    model.ConfidenceLow,
			Warning:       "vertex outside the valid pressure axis",
			Err:           "degenerate fit: optimum not on a valid axis",
			PointsUsed:    used,
			PointsTrimmed: trimmed,
		}
	}

	r2 := rSquared(points, a, b, c)

	maxX := points[0].X
	for _, p := range points {
		if p.X > maxX {
			maxX = p.X
		}
	}
	yAtOptimum := evalQuadratic(a, b, c, optimalX)
	yAtMax := evalQuadratic(a, b, c, maxX)
	vibrationReduction := 0.0
	if yAtMax != 0 {
		vibrationReduction = math.Abs(yAtOptimum-yAtMax) / math.Abs(yAtMax) * 100
	}

	confidence, warning := Classify(r2, opts.PowerCV, cfg, len(used))

	return model.RegressionResult{
		A: a, B: b, C: c,
		OptimalX:              optimalX,
		R2:                    r2,
		VibrationReductionPct: vibrationReduction,
		Confidence:            confidence,
		Warning:               warning,
		PointsUsed:            used,
		PointsTrimmed:         trimmed,
	}
}

// trimOutliers drops the single lowest- and highest-y point when there are
// at least 4 points; otherwise returns all points untrimmed.
func trimOutliers(points []model.RegressionPoint) (used, trimmed []model.RegressionPoint) {
	if len(points) < 4 {
		return append([]model.RegressionPoint(nil), points...), nil
	}
	sorted := make([]model.RegressionPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	trimmed = []model.RegressionPoint{sorted[0], sorted[len(sorted)-1]}
	used = append([]model.RegressionPoint(nil), sorted[1:len(sorted)-1]...)
	return used, trimmed
}

// centeredQuadraticFit solves the normal equations for y-ybar =
// a*xtilde^2 + b*xtilde + c' by Cramer's rule on the centered-moment
// matrix, then maps the coefficients back to the original x axis.
func centeredQuadraticFit(points []model.RegressionPoint) (a, b, c float64, ok bool) {
	n := float64(len(points))
	if n == 0 {
		return 0, 0, 0, false
	}

	xbar, ybar := 0.0, 0.0
	for _, p := range points {
		xbar += p.X
		ybar += p.Y
	}
	xbar /= n
	ybar /= n

	var sx2, sx3, sx4, sy, sxy, sx2y float64
	for _, p := range points {
		xt := p.X - xbar
		yt := p.Y - ybar
		xt2 := xt * xt
		sx2 += xt2
		sx3 += xt2 * xt
		sx4 += xt2 * xt2
		sy += yt
		sxy += xt * yt
		sx2y += xt2 * yt
	}

	// Normal equations in (a, b, c') for centered x, centered y:
	//   [sx4 sx3 sx2] [a ]   [sx2y]
	//   [sx3 sx2 0  ] [b ] = [sxy ]
	//   [sx2 0   n  ] [c']   [sy  ]
	m := [3][3]float64{
		{sx4, sx3, sx2},
		{sx3, sx2, 0},
		{sx2, 0, n},
	}
	v := [3]float64{sx2y, sxy, sy}

	det := det3(m)
	if math.Abs(det) < 1e-10 {
		return 0, 0, 0, false
	}

	a = det3(withColumn(m, 0, v)) / det
	b = det3(withColumn(m, 1, v)) / det
	cPrime := det3(withColumn(m, 2, v)) / det

	if !isFinite(a) || !isFinite(b) || !isFinite(cPrime) {
		return 0, 0, 0, false
	}

	// Map back to the original x axis: a unchanged, b adjusted by
	// -2*a*xbar, c by ybar - b_orig*xbar - a*xbar^2.
	bOrig := b - 2*a*xbar
	cOrig := ybar + cPrime - bOrig*xbar - a*xbar*xbar
	return a, bOrig, cOrig, true
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

func withColumn(m [3][3]float64, col int, v [3]float64) [3][3]float64 {
	out := m
	for row := 0; row < 3; row++ {
		out[row][col] = v[row]
	}
	return out
}

func evalQuadratic(a, b, c, x float64) float64 {
	return a*x*x + b*x + c
}

func rSquared(points []model.RegressionPoint, a, b, c float64) float64 {
	if len(points) == 0 {
		return 0
	}
	ybar := 0.0
	for _, p := range points {
		ybar += p.Y
	}
	ybar /= float64(len(points))

	ssTot, ssRes := 0.0, 0.0
	for _, p := range points {
		fitted := evalQuadratic(a, b, c, p.X)
		ssRes += (p.Y - fitted) * (p.Y - fitted)
		ssTot += (p.Y - ybar) * (p.Y - ybar)
	}
	if ssTot == 0 {
		return 0
	}
	r2 := 1 - ssRes/ssTot
	if r2 < 0 {
		return 0
	}
	if r2 > 1 {
		return 1
	}
	return r2
}

func lowDataFallback(used, trimmed []model.RegressionPoint) model.RegressionResult {
	best := used[0]
	for _, p := range used[1:] {
		if p.Y > best.Y {
			best = p
		}
	}
	return model.RegressionResult{
		OptimalX:      best.X,
		Confidence:    model.ConfidenceLow,
		Warning:       fmt2(len(used)),
		PointsUsed:    used,
		PointsTrimmed: trimmed,
	}
}

func fmt2(n int) string {
	if n == 2 {
		return "Only 2 data points"
	}
	return "too few data points for a reliable fit"
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isFinitePositive(v float64) bool {
	return isFinite(v) && v >= 0
}

// Classify applies the confidence thresholds: R^2 cutpoints first, then a
// one-step demotion if powerCV exceeds the configured warn threshold, then
// the unconditional LOW floor for point counts below minQuadraticPoints.
func Classify(r2 float64, powerCV *float64, cfg model.Config, pointCount int) (model.Confidence, string) {
	highR2 := cfg.HighR2
	if highR2 <= 0 {
		highR2 = 0.85
	}
	mediumR2 := cfg.MediumR2
	if mediumR2 <= 0 {
		mediumR2 = 0.70
	}
	warnThreshold := cfg.PowerCVWarnThreshold
	if warnThreshold <= 0 {
		warnThreshold = 0.25
	}
	minPoints := cfg.MinQuadraticPoints
	if minPoints <= 0 {
		minPoints = 3
	}

	var confidence model.Confidence
	var warning string
	switch {
	case r2 >= highR2:
		confidence = model.ConfidenceHigh
	case r2 >= mediumR2:
		confidence = model.ConfidenceMedium
	default:
		confidence = model.ConfidenceLow
		warning = "data noisy, results may be unreliable"
	}

	if powerCV != nil && *powerCV > warnThreshold {
		confidence = demote(confidence)
		if warning != "" {
			warning += "; "
		}
		warning += "power varied across runs, confidence reduced"
	}

	if pointCount < minPoints {
		confidence = model.ConfidenceLow
	}

	return confidence, warning
}

func demote(c model.Confidence) model.Confidence {
	switch c {
	case model.ConfidenceHigh:
		return model.ConfidenceMedium
	case model.ConfidenceMedium:
		return model.ConfidenceLow
	default:
		return model.ConfidenceLow
	}
}
