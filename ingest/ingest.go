// Package ingest parses the line-delimited JSON companion file a run
// recording produces into per-lap sample and metadata maps.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/wattshift/tirepressure-core/model"
)

// maxLineBytes bounds a single JSON line; generous for the flat field set
// this format uses.
const maxLineBytes = 1 << 20

// rawLine is the tolerant, unknown-field-ignoring shape every ingest line is
// decoded into. All fields are optional; only lapIndex is required.
type rawLine struct {
	LapIndex *int `json:"lapIndex"`

	TS        *time.Time `json:"ts"`
	Timestamp *time.Time `json:"timestamp"`

	Power     *float64 `json:"power"`
	SpeedKMH  *float64 `json:"speed_kmh"`
	Speed     *float64 `json:"speed"`
	Cadence   *float64 `json:"cadence"`
	Distance  *float64 `json:"distance"`
	Altitude  *float64 `json:"altitude"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Vibration *float64 `json:"vibration"`
	VibRMS    *float64 `json:"vibrationRms"`

	FrontPressure *float64 `json:"frontPressure"`
	RearPressure  *float64 `json:"rearPressure"`

	VibrationAvg         *float64 `json:"vibrationAvg"`
	VibrationMin         *float64 `json:"vibrationMin"`
	VibrationMax         *float64 `json:"vibrationMax"`
	VibrationStdDev      *float64 `json:"vibrationStdDev"`
	VibrationSampleCount *int     `json:"vibrationSampleCount"`
}

func (r rawLine) timestamp() (time.Time, bool) {
	if r.TS != nil {
		return *r.TS, true
	}
	if r.Timestamp != nil {
		return *r.Timestamp, true
	}
	return time.Time{}, false
}

func (r rawLine) vibration() *float64 {
	if r.Vibration != nil {
		return r.Vibration
	}
	return r.VibRMS
}

func (r rawLine) isSample() bool {
	_, hasTS := r.timestamp()
	return hasTS || r.Power != nil
}

func (r rawLine) isMetadata() bool {
	return r.FrontPressure != nil
}

// File parses path into an IngestedSession, opening and closing the file
// itself. It is the entry point named in the ingest contract.
func File(path string, logger zerolog.Logger) (model.IngestedSession, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.IngestedSession{}, model.Wrap(model.StageIngest, "open", &model.ErrInputMissing{What: path})
		}
		return model.IngestedSession{}, model.Wrap(model.StageIngest, "open", err)
	}
	defer f.Close()

	session, err := Reader(f, logger)
	if err != nil {
		return model.IngestedSession{}, err
	}
	return session, nil
}

// Reader parses from an already-open reader, for callers that have the
// content in memory or under a different transport than a local file.
func Reader(r io.Reader, logger zerolog.Logger) (model.IngestedSession, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	records := make(map[int][]model.Record)
	metadata := make(map[int]model.LapMetadata)
	malformed := 0
	usableSamples := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var raw rawLine
		if err := json.Unmarshal(line, &raw); err != nil {
			malformed++
			logger.Debug().Int("line", lineNo).Err(err).Msg("ingest: skipping malformed line")
			continue
		}
		if raw.LapIndex == nil {
			malformed++
			logger.Debug().Int("line", lineNo).Msg("ingest: skipping line without lapIndex")
			continue
		}
		lap := *raw.LapIndex

		if raw.isSample() {
			rec := model.Record{
				CadenceRPM: valueOr(raw.Cadence, 0),
				PowerW:     valueOr(raw.Power, 0),
				DistanceM:  valueOr(raw.Distance, 0),
				AltitudeM:  valueOr(raw.Altitude, 0),
			}
			if ts, ok := raw.timestamp(); ok {
				rec.Timestamp = ts
			}
			// speed_kmh wins over speed when a line carries both.
			if raw.SpeedKMH != nil {
				rec.WheelSpeedKMH = *raw.SpeedKMH
			} else if raw.Speed != nil {
				rec.WheelSpeedKMH = *raw.Speed
			}
			if raw.Lat != nil && raw.Lon != nil {
				rec.GPS = model.Point{Lat: *raw.Lat, Lon: *raw.Lon}
			}
			if v := raw.vibration(); v != nil {
				rec.VibrationG = v
			}
			records[lap] = append(records[lap], rec)
			usableSamples++
		}

		if raw.isMetadata() {
			meta := metadata[lap]
			meta.LapIndex = lap
			meta.FrontPressure = valueOr(raw.FrontPressure, meta.FrontPressure)
			meta.RearPressure = valueOr(raw.RearPressure, meta.RearPressure)
			if ts, ok := raw.timestamp(); ok && meta.StartTime.IsZero() {
				meta.StartTime = ts
			}
			if raw.VibrationAvg != nil || raw.VibrationMin != nil || raw.VibrationMax != nil ||
				raw.VibrationStdDev != nil || raw.VibrationSampleCount != nil {
				vs := derefVibrationStats(meta.Vibration)
				vs.Avg = valueOr(raw.VibrationAvg, vs.Avg)
				vs.Min = valueOr(raw.VibrationMin, vs.Min)
				vs.Max = valueOr(raw.VibrationMax, vs.Max)
				vs.StdDev = valueOr(raw.VibrationStdDev, vs.StdDev)
				if raw.VibrationSampleCount != nil {
					vs.SampleCount = *raw.VibrationSampleCount
				}
				meta.Vibration = &vs
			}
			metadata[lap] = meta
		}
	}
	if err := scanner.Err(); err != nil {
		return model.IngestedSession{}, model.Wrap(model.StageIngest, "scan", err)
	}

	// Every lap index referenced by either map gets an entry in both: a
	// missing metadata line defaults to zeroed pressures (§3 invariant).
	for lap := range records {
		if _, ok := metadata[lap]; !ok {
			metadata[lap] = model.LapMetadata{LapIndex: lap}
		}
	}
	for lap := range metadata {
		if _, ok := records[lap]; !ok {
			records[lap] = nil
		}
	}

	if usableSamples == 0 {
		return model.IngestedSession{}, model.Wrap(model.StageIngest, "parse",
			&model.ErrInputMissing{What: "no usable sample records"})
	}

	logger.Info().
		Int("laps", len(records)).
		Int("samples", usableSamples).
		Int("malformed_lines", malformed).
		Msg("ingest complete")

	return model.IngestedSession{
		Records:        records,
		Metadata:       metadata,
		MalformedLines: malformed,
	}, nil
}

func derefVibrationStats(v *model.VibrationStats) model.VibrationStats {
	if v == nil {
		return model.VibrationStats{}
	}
	return *v
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// Diagnostics is a human-readable summary of one ingest call.
type Diagnostics struct {
	Laps           int
	Samples        int
	MalformedLines int
}

// Summarize builds Diagnostics from a completed session.
func Summarize(session model.IngestedSession) Diagnostics {
	samples := 0
	for _, recs := range session.Records {
		samples += len(recs)
	}
	return Diagnostics{
		Laps:           len(session.Records),
		Samples:        samples,
		MalformedLines: session.MalformedLines,
	}
}

func (d Diagnostics) String() string {
	return fmt.Sprintf("laps=%d samples=%d malformed_lines=%d", d.Laps, d.Samples, d.MalformedLines)
}
