package model

// BikeType selects the CdA and front/rear pressure-distribution defaults a
// run was recorded on.
type BikeType string

const (
	BikeRoad     BikeType = "road"
	BikeTT       BikeType = "tt"
	BikeGravel   BikeType = "gravel"
	BikeMountain BikeType = "mountain"
)

// Config is every tunable the source's global/module-level state used to
// hold, passed explicitly instead. All previously-global configuration
// (CdA, air density, bike-type ratio, confidence thresholds, detector
// tolerances) lives here so the analysis core stays a value its caller
// constructs and owns.
type Config struct {
	// CdAByBikeType is drag area (m^2) per bike type, used by the
	// aero-corrected rolling-resistance residual.
	CdAByBikeType map[BikeType]float64
	// Rho is atmospheric density (kg/m^3); defaults to sea-level, 20C.
	Rho float64
	// SilcaRatioByBikeType is the empirical front/rear pressure
	// distribution ratio: front = ratio * rear.
	SilcaRatioByBikeType map[BikeType]float64

	// PowerCVWarnThreshold demotes confidence one step when the supplied
	// power-CV statistic exceeds it.
	PowerCVWarnThreshold float64
	// MinQuadraticPoints is the floor below which regression fits no
	// quadratic: it uses the low-data fallback when two-point results are
	// allowed and reports insufficient data otherwise.
	MinQuadraticPoints int

	// StartGPSRadiusM is the start-point clustering radius for coast-down
	// runs.
	StartGPSRadiusM float64
	// GPSZoneRadiusM is the start-point clustering radius for
	// constant-power zone matching.
	GPSZoneRadiusM float64
	// ZonePowerTolPct is the max allowed average-power disagreement (as a
	// fraction of the larger) between two constant-power segments for them
	// to be considered the same zone.
	ZonePowerTolPct float64
	// MinSegmentDistanceM is the minimum length a fully-covered
	// constant-power interval must have to emit a MatchedSegment.
	MinSegmentDistanceM float64

	// MinAltitudeDropM is the minimum total altitude drop a coast-down
	// candidate must show to validate.
	MinAltitudeDropM float64
	// MaxAltitudeErrorRate is the maximum fraction of samples in a
	// coast-down candidate whose altitude does not strictly drop to the
	// next sample.
	MaxAltitudeErrorRate float64

	// SegmentCVThreshold is the constant-power detector's stability bound.
	SegmentCVThreshold float64
	// MinWindow is the constant-power detector's seed window length.
	MinWindow int

	// SignatureMatchRadiusM is the route-signature dedup/reuse radius.
	SignatureMatchRadiusM float64
	// KSigma scales the route-signature mean +/- k*sigma envelope.
	KSigma float64

	// HighR2 / MediumR2 are the R^2 cutpoints for HIGH/MEDIUM confidence;
	// below MediumR2 is LOW.
	HighR2   float64
	MediumR2 float64

	CoastDown CoastDownConfig
}

// CoastDownConfig groups the coast-down extractor's start/end detection
// thresholds separately, since they're specific to that one pipeline and
// otherwise crowd the shared Config.
type CoastDownConfig struct {
	StartSpeedThresholdMPS float64 // 0.3
	PushOffIgnoreSeconds   int     // 2
	PowerSpikeLookaheadS   int     // 1
	PowerSpikeThresholdW   float64 // 80

	BrakingDecelMPS2     float64 // -1.25, applied as a negative threshold
	BrakingFracOf2s      float64 // 0.22
	FlatCounterThreshold int     // 3
	FlatSpeedThresholdMPS float64 // 1.0

	TurnaroundMinSamples   int     // 10
	TurnaroundDistanceM    float64 // 50
	TurnaroundFraction     float64 // 0.5
}

// DefaultConfig returns the literal tunable defaults the analysis core ships
// with, before any TOML overrides are applied.
func DefaultConfig() Config {
	return Config{
		CdAByBikeType: map[BikeType]float64{
			BikeRoad:     0.320,
			BikeTT:       0.240,
			BikeGravel:   0.380,
			BikeMountain: 0.500,
		},
		Rho: 1.204,
		SilcaRatioByBikeType: map[BikeType]float64{
			BikeRoad:     0.923,
			BikeTT:       1.0,
			BikeGravel:   0.887,
			BikeMountain: 0.869,
		},
		PowerCVWarnThreshold:  0.25,
		MinQuadraticPoints:    3,
		StartGPSRadiusM:       50,
		GPSZoneRadiusM:        50,
		ZonePowerTolPct:       0.20,
		MinSegmentDistanceM:   20,
		MinAltitudeDropM:      5,
		MaxAltitudeErrorRate:  0.20,
		SegmentCVThreshold:    0.10,
		MinWindow:             10,
		SignatureMatchRadiusM: 1000,
		KSigma:                1.5,
		HighR2:                0.85,
		MediumR2:              0.70,
		CoastDown: CoastDownConfig{
			StartSpeedThresholdMPS: 0.3,
			PushOffIgnoreSeconds:   2,
			PowerSpikeLookaheadS:   1,
			PowerSpikeThresholdW:   80,
			BrakingDecelMPS2:       -1.25,
			BrakingFracOf2s:        0.22,
			FlatCounterThreshold:   3,
			FlatSpeedThresholdMPS:  1.0,
			TurnaroundMinSamples:   10,
			TurnaroundDistanceM:    50,
			TurnaroundFraction:     0.5,
		},
	}
}

// CdA returns the configured drag area for bt, or the road default if bt is
// unrecognized.
func (c Config) CdA(bt BikeType) float64 {
	if v, ok := c.CdAByBikeType[bt]; ok {
		return v
	}
	return c.CdAByBikeType[BikeRoad]
}

// SilcaRatio returns the configured front/rear ratio for bt, or the road
// default if bt is unrecognized.
func (c Config) SilcaRatio(bt BikeType) float64 {
	if v, ok := c.SilcaRatioByBikeType[bt]; ok {
		return v
	}
	return c.SilcaRatioByBikeType[BikeRoad]
}
