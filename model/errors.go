package model

import "fmt"

// Stage names a pipeline stage for error tagging.
type Stage string

const (
	StageIngest     Stage = "ingest"
	StageSegment    Stage = "segment"
	StageLap        Stage = "lap"
	StageCoast      Stage = "coast"
	StageAlign      Stage = "align"
	StageEnergy     Stage = "energy"
	StageSignature  Stage = "signature"
	StageRegression Stage = "regression"
	StageConfig     Stage = "config"
)

// StageError wraps an underlying error with the pipeline stage it occurred
// in, so a caller several layers up can still tell an ingest failure from a
// regression failure without string-matching.
type StageError struct {
	Stage Stage
	Op    string
	Err   error
}

func (e *StageError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Op, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Wrap tags err with stage and op, or returns nil if err is nil.
func Wrap(stage Stage, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Op: op, Err: err}
}

// ErrInputMissing means a required input file or field could not be found.
type ErrInputMissing struct {
	What string
}

func (e *ErrInputMissing) Error() string { return fmt.Sprintf("input missing: %s", e.What) }

// ErrInsufficientData means a stage ran but did not have enough valid
// samples or points to produce a result.
type ErrInsufficientData struct {
	What string
	Got  int
	Need int
}

func (e *ErrInsufficientData) Error() string {
	return fmt.Sprintf("insufficient data: %s (got %d, need %d)", e.What, e.Got, e.Need)
}

// ErrDegenerateFit means a regression was attempted but the underlying
// normal-equations system was singular or produced a non-finite result.
type ErrDegenerateFit struct {
	Reason string
}

func (e *ErrDegenerateFit) Error() string { return fmt.Sprintf("degenerate fit: %s", e.Reason) }

// ErrSignatureStoreUnavailable means the route-signature persistence layer
// could not be reached or used. Callers treat this as non-fatal: the
// analysis proceeds without the benefit of route memory.
type ErrSignatureStoreUnavailable struct {
	Err error
}

func (e *ErrSignatureStoreUnavailable) Error() string {
	return fmt.Sprintf("signature store unavailable: %v", e.Err)
}

func (e *ErrSignatureStoreUnavailable) Unwrap() error { return e.Err }

// SkippedSample describes one per-sample parse error that ingest continued
// past rather than failing on. Ingest itself does not build SkippedSample
// values: it only counts skipped lines on IngestedSession.MalformedLines.
type SkippedSample struct {
	Line   int
	Reason string
}
