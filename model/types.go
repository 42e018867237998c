// Package model holds the data entities shared by every pipeline package:
// the sensor record model, detector/aggregator outputs, the cross-lap
// matched point set, the regression input/output pair, and the persisted
// route signature. Types here are value-like and, once constructed,
// immutable — callers build a new value rather than mutate one in place.
package model

import (
	"sort"
	"time"
)

// Record is one 1Hz sample owned by the lap that produced it.
type Record struct {
	Timestamp    time.Time
	WheelSpeedKMH float64
	CadenceRPM   float64
	PowerW       float64
	DistanceM    float64 // cumulative, lap-local
	AltitudeM    float64
	GPS          Point
	VibrationG   *float64
}

// Point is re-declared here rather than imported from geo to keep model
// dependency-free of the math packages; align.go converts between the two
// at its boundary.
type Point struct {
	Lat float64
	Lon float64
}

// IsZero reports whether p is the "no fix yet" sentinel.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lon == 0
}

// VibrationStats is a per-lap vibration summary, when the recording layer
// supplied one directly instead of raw per-sample vibration.
type VibrationStats struct {
	Avg         float64
	Min         float64
	Max         float64
	StdDev      float64
	SampleCount int
}

// LapMetadata describes one run/lap: its pressures and start time.
type LapMetadata struct {
	LapIndex      int
	FrontPressure float64
	RearPressure  float64
	StartTime     time.Time
	Vibration     *VibrationStats
}

// IngestedSession is the ingest component's output: every lap's ordered
// records plus its metadata. Keys are the union across both maps — a lap
// with samples but no metadata line gets a zero-pressure LapMetadata (a
// downstream warning, not a failure).
type IngestedSession struct {
	Records  map[int][]Record
	Metadata map[int]LapMetadata
	// MalformedLines counts non-blank lines that failed to parse as JSON or
	// carried no lapIndex; they are skipped, not fatal.
	MalformedLines int
}

// LapIndices returns the session's lap indices in ascending order.
func (s IngestedSession) LapIndices() []int {
	seen := make(map[int]struct{}, len(s.Records)+len(s.Metadata))
	for k := range s.Records {
		seen[k] = struct{}{}
	}
	for k := range s.Metadata {
		seen[k] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// ConstantPowerSegment is one stable-power window detected within a lap.
type ConstantPowerSegment struct {
	LapIndex     int
	SegmentIndex int
	Pressure     float64
	StartGPS     Point
	AvgPowerW    float64
	PowerCV      float64
	AvgSpeedKMH  float64
	DistanceM    float64
	// StartDistanceM and EndDistanceM are the lap-local cumulative-distance
	// bounds the segment actually spans, read from the underlying records.
	// Distinct from DistanceM (the estimated distance from avg speed x
	// duration) — these two are the ones the aligner intersects.
	StartDistanceM float64
	EndDistanceM   float64
	DurationS    float64
	Efficiency   float64
	SampleCount  int
	StartIndex   int
	EndIndex     int
	StartTime    time.Time
	EndTime      time.Time
}

// CircleLap is one full-lap aggregate from the circle (lap-efficiency)
// pipeline.
type CircleLap struct {
	LapIndex       int
	Pressure       float64
	AvgPowerW      float64
	MaxPowerW      float64
	MinPowerW      float64
	PowerCV        float64
	SpeedCV        float64
	VibrationRMS   float64
	DurationS      float64
	DistanceM      float64
	SampleCount    int
	DataQuality    float64
	Valid          bool
	Efficiency     float64
	RollingResidual float64 // aero-corrected CRR-equivalent residual
}

// CoastDescent is the coast-down extractor's raw, untrimmed output for one
// run: full per-sample arrays plus the detected coasting window.
type CoastDescent struct {
	LapIndex    int
	Pressure    float64
	Timestamps  []time.Time
	AltitudeM   []float64
	SpeedMPS    []float64
	DistanceM   []float64
	GPS         []Point
	PowerW      []float64
	StartIndex  int
	EndIndex    int
}

// DescentSegment is the coast-down pipeline's gate-trimmed output for one
// run, after cross-lap alignment. RearPressure is set by the aligner;
// FrontPressure is filled in afterward by the caller holding lap metadata
// (the aligner only sees the rear pressure value the detector carried on
// CoastDescent).
type DescentSegment struct {
	LapIndex     int
	FrontPressure float64
	RearPressure  float64
	AltitudeDropM float64
	DurationS     float64
	AvgSpeedMPS   float64
	MaxSpeedMPS   float64
	GateLengthM   float64
	StartGPS      Point
	EndGPS        Point
	CRR           float64
	Efficiency    float64
	SampleCount   int
}

// MatchedSegment is a cross-lap aligned point set from constant-power
// matching: one cluster of laps that shared a start point and one
// fully-covered distance interval, with exactly one (pressure, efficiency)
// pair contributed per lap.
type MatchedSegment struct {
	ClusterID   string
	ByLap       map[int]int // lap index -> index into Pressures/Efficiencies
	Pressures   []float64
	Efficiencies []float64
}

// RegressionPoint is one (pressure, efficiency-or-residual) sample fed to
// the quadratic regression. The regression is protocol-agnostic: Y may be
// efficiency (constant-power, coast-down) or an aero-corrected residual
// (circle).
type RegressionPoint struct {
	X float64 // pressure
	Y float64 // efficiency or residual
}

// Confidence labels the trustworthiness of a RegressionResult.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// RegressionResult is the fitted quadratic plus the optimum and its
// diagnostics.
type RegressionResult struct {
	A, B, C            float64 // y = A*x^2 + B*x + C, original coordinates
	OptimalX           float64
	R2                 float64
	VibrationReductionPct float64
	Confidence         Confidence
	Warning            string
	Err                string // non-empty iff the fit was rejected
	PointsUsed         []RegressionPoint
	PointsTrimmed      []RegressionPoint
}

// RouteSignature is a persisted statistical fingerprint of a previously
// validated coast-down descent at a GPS location.
type RouteSignature struct {
	ID                 string
	Center             Point
	LearnedAt          time.Time
	SampleCount        int
	MeanAltitudeDropM  float64
	StdDevAltitudeDropM float64
	MeanDurationS      float64
	StdDevDurationS    float64
	MeanSpeedMPS       float64
	StdDevSpeedMPS     float64
}

// Envelope is the min/max band at mean +/- k*sigma for one of the three
// route-signature quantities.
type Envelope struct {
	Min float64
	Max float64
}

// AltitudeDropEnvelope returns the mean +/- kSigma*sigma band for altitude
// drop.
func (s RouteSignature) AltitudeDropEnvelope(kSigma float64) Envelope {
	return envelope(s.MeanAltitudeDropM, s.StdDevAltitudeDropM, kSigma)
}

// DurationEnvelope returns the mean +/- kSigma*sigma band for duration.
func (s RouteSignature) DurationEnvelope(kSigma float64) Envelope {
	return envelope(s.MeanDurationS, s.StdDevDurationS, kSigma)
}

// SpeedEnvelope returns the mean +/- kSigma*sigma band for average speed.
func (s RouteSignature) SpeedEnvelope(kSigma float64) Envelope {
	return envelope(s.MeanSpeedMPS, s.StdDevSpeedMPS, kSigma)
}

func envelope(mean, stddev, kSigma float64) Envelope {
	return Envelope{Min: mean - kSigma*stddev, Max: mean + kSigma*stddev}
}
