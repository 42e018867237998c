// Package tirepressure is the analysis core's top-level entry point: it
// wires ingest, the three detection/aggregation pipelines, GPS alignment,
// energy balance, route-signature persistence, and quadratic regression into
// a single Analyze call, and packages the result as a Recommendation.
package tirepressure

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wattshift/tirepressure-core/align"
	"github.com/wattshift/tirepressure-core/coast"
	"github.com/wattshift/tirepressure-core/ingest"
	"github.com/wattshift/tirepressure-core/lap"
	"github.com/wattshift/tirepressure-core/model"
	"github.com/wattshift/tirepressure-core/regression"
	"github.com/wattshift/tirepressure-core/segment"
	"github.com/wattshift/tirepressure-core/signature"
	"github.com/wattshift/tirepressure-core/stats"
)

// Config is the full set of analysis tunables; see model.Config for field
// documentation.
type Config = model.Config

// DefaultConfig returns the literal defaults for every Config field.
func DefaultConfig() model.Config { return model.DefaultConfig() }

// Protocol selects which of the three pipelines a run of records was
// recorded under.
type Protocol string

const (
	ProtocolConstantPower Protocol = "constant_power"
	ProtocolCircle        Protocol = "circle"
	ProtocolCoastDown     Protocol = "coast_down"
)

// IngestFile reads a line-delimited JSON session file.
func IngestFile(path string, logger zerolog.Logger) (model.IngestedSession, error) {
	return ingest.File(path, logger)
}

// AnalyzeOptions tunes a single Analyze call.
type AnalyzeOptions struct {
	BikeType      model.BikeType
	AllowTwoPoint bool
	Logger        zerolog.Logger
	// SignatureStore receives the route signature learned from a successful
	// coast-down run; other protocols do not touch it, and Analyze never
	// reads signatures back from it. A nil store simply skips that step. A
	// store error is logged and never fails the analysis.
	SignatureStore *signature.Store
}

// Diagnostics reports per-pipeline counts so a caller can explain which run
// was the weak link.
type Diagnostics struct {
	LapsIngested      int
	CandidatesFound   int // segments/descents/laps produced by the detector
	CandidatesUsable  int // survived validity/alignment gates
	MalformedLines    int
	CrossLapWarnings  []string
	SignatureWarning  string
}

// Recommendation is the packaged result of a full analysis run.
type Recommendation struct {
	RunID       string
	GeneratedAt time.Time
	Protocol    Protocol
	BikeType    model.BikeType

	Regression model.RegressionResult
	// RearPressure/FrontPressure are the optimum pressures in the caller's
	// configured unit; FrontPressure = SilcaRatio(BikeType) * RearPressure.
	RearPressure  float64
	FrontPressure float64

	Diagnostics Diagnostics
}

// Analyze runs one protocol's pipeline over session, aligns its runs,
// applies the energy-balance correction, regresses the resulting
// (pressure, efficiency) points, and packages the optimum.
func Analyze(session model.IngestedSession, protocol Protocol, cfg model.Config, opts AnalyzeOptions) (Recommendation, error) {
	rec := Recommendation{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Protocol:    protocol,
		BikeType:    opts.BikeType,
		Diagnostics: Diagnostics{
			LapsIngested:   len(session.LapIndices()),
			MalformedLines: session.MalformedLines,
		},
	}

	pressures := rearPressures(session)

	var points []model.RegressionPoint
	var powerCV *float64
	var err error

	switch protocol {
	case ProtocolConstantPower:
		points, powerCV, err = analyzeConstantPower(session, pressures, cfg, &rec.Diagnostics)
	case ProtocolCircle:
		points, powerCV, err = analyzeCircle(session, pressures, opts.BikeType, cfg, &rec.Diagnostics)
	case ProtocolCoastDown:
		points, err = analyzeCoastDown(session, pressures, cfg, opts, &rec.Diagnostics)
	default:
		err = model.Wrap(model.StageAlign, "analyze", fmt.Errorf("unrecognized protocol %q", protocol))
	}
	if err != nil {
		return rec, err
	}

	rec.Regression = regression.Fit(points, regression.Options{
		AllowTwoPoint: opts.AllowTwoPoint,
		PowerCV:       powerCV,
		Config:        cfg,
	})

	if rec.Regression.Err == "" {
		rec.RearPressure = rec.Regression.OptimalX
		rec.FrontPressure = cfg.SilcaRatio(opts.BikeType) * rec.RearPressure
	}

	return rec, nil
}

// rearPressures pulls each lap's rear pressure, the regression's X axis
// (front is always derived from it via the bike-type ratio, never
// independently regressed).
func rearPressures(session model.IngestedSession) map[int]float64 {
	out := make(map[int]float64, len(session.Metadata))
	for lap, meta := range session.Metadata {
		out[lap] = meta.RearPressure
	}
	return out
}

func analyzeConstantPower(session model.IngestedSession, pressures map[int]float64, cfg model.Config, diag *Diagnostics) ([]model.RegressionPoint, *float64, error) {
	segments := segment.Detect(session.Records, pressures, cfg)
	diag.CandidatesFound = len(segments)
	if len(segments) == 0 {
		return nil, nil, model.Wrap(model.StageSegment, "detect", &model.ErrInsufficientData{What: "constant-power segments", Got: 0, Need: 3})
	}

	matched := align.ConstantPower(segments, pressures, cfg)
	if len(matched) == 0 {
		return nil, nil, model.Wrap(model.StageAlign, "constant_power", &model.ErrInsufficientData{What: "aligned constant-power segments", Got: 0, Need: 3})
	}

	var points []model.RegressionPoint
	powers := make([]float64, 0, len(segments))
	for _, s := range segments {
		powers = append(powers, s.AvgPowerW)
	}
	for _, ms := range matched {
		diag.CandidatesUsable += len(ms.ByLap)
		for i := range ms.Pressures {
			points = append(points, model.RegressionPoint{X: ms.Pressures[i], Y: ms.Efficiencies[i]})
		}
	}

	cv := stats.CV(powers)
	return points, &cv, nil
}

func analyzeCircle(session model.IngestedSession, pressures map[int]float64, bt model.BikeType, cfg model.Config, diag *Diagnostics) ([]model.RegressionPoint, *float64, error) {
	laps := lap.Aggregate(session.Records, pressures, bt, cfg)
	diag.CandidatesFound = len(laps)
	diag.CrossLapWarnings = lap.CrossLapWarnings(laps)

	var points []model.RegressionPoint
	powers := make([]float64, 0, len(laps))
	for _, l := range laps {
		if !l.Valid {
			continue
		}
		diag.CandidatesUsable++
		points = append(points, model.RegressionPoint{X: l.Pressure, Y: l.RollingResidual})
		powers = append(powers, l.AvgPowerW)
	}
	if len(points) < 2 {
		return nil, nil, model.Wrap(model.StageLap, "aggregate", &model.ErrInsufficientData{What: "valid circle laps", Got: len(points), Need: 2})
	}

	cv := stats.CV(powers)
	return points, &cv, nil
}

func analyzeCoastDown(session model.IngestedSession, pressures map[int]float64, cfg model.Config, opts AnalyzeOptions, diag *Diagnostics) ([]model.RegressionPoint, error) {
	var descents []model.CoastDescent
	for _, lapIdx := range session.LapIndices() {
		d, ok := coast.Extract(session.Records[lapIdx], lapIdx, pressures[lapIdx], cfg)
		if !ok {
			continue
		}
		descents = append(descents, d)
	}
	diag.CandidatesFound = len(descents)
	if len(descents) < 3 {
		return nil, model.Wrap(model.StageCoast, "extract", &model.ErrInsufficientData{What: "coast-down descents", Got: len(descents), Need: 3})
	}

	segments, ok := align.CoastDown(descents, cfg)
	if !ok {
		return nil, model.Wrap(model.StageAlign, "coast_down", &model.ErrInsufficientData{What: "aligned coast-down segments", Got: 0, Need: 3})
	}
	diag.CandidatesUsable = len(segments)

	for i := range segments {
		if meta, found := session.Metadata[segments[i].LapIndex]; found {
			segments[i].FrontPressure = meta.FrontPressure
		}
	}

	if opts.SignatureStore != nil {
		if sig, learned := signature.Learn(segments, time.Now().UTC()); learned {
			if err := opts.SignatureStore.Store(sig, cfg.SignatureMatchRadiusM); err != nil {
				diag.SignatureWarning = err.Error()
				opts.Logger.Warn().Err(err).Msg("route signature persistence failed")
			}
		}
	}

	points := make([]model.RegressionPoint, 0, len(segments))
	for _, s := range segments {
		points = append(points, model.RegressionPoint{X: s.RearPressure, Y: s.Efficiency})
	}
	return points, nil
}
