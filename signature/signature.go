// Package signature persists route signatures — statistical fingerprints
// of previously-validated coast-down clusters — keyed by GPS proximity, so
// a later analysis at the same location can reuse what was learned.
package signature

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wattshift/tirepressure-core/geo"
	"github.com/wattshift/tirepressure-core/model"
	"github.com/wattshift/tirepressure-core/stats"
)

// Store is a SQLite-backed route signature table. The zero value is not
// usable; construct with Open.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the signature database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, model.Wrap(model.StageSignature, "open", &model.ErrSignatureStoreUnavailable{Err: err})
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS route_signatures_v2 (
			id TEXT PRIMARY KEY,
			center_lat DOUBLE NOT NULL,
			center_lon DOUBLE NOT NULL,
			learned_at TIMESTAMP NOT NULL,
			sample_count INTEGER NOT NULL,
			mean_altitude_drop DOUBLE NOT NULL,
			stddev_altitude_drop DOUBLE NOT NULL,
			mean_duration DOUBLE NOT NULL,
			stddev_duration DOUBLE NOT NULL,
			mean_speed DOUBLE NOT NULL,
			stddev_speed DOUBLE NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, model.Wrap(model.StageSignature, "migrate", &model.ErrSignatureStoreUnavailable{Err: err})
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadNearby returns the first stored signature within matchRadiusM of
// (lat, lon), or ok=false if none qualifies. A query failure is reported
// as a signature-store-unavailable error, never fatal to the caller.
func (s *Store) LoadNearby(lat, lon, matchRadiusM float64) (sig model.RouteSignature, ok bool, err error) {
	rows, err := s.db.Query(`SELECT id, center_lat, center_lon, learned_at, sample_count,
		mean_altitude_drop, stddev_altitude_drop, mean_duration, stddev_duration,
		mean_speed, stddev_speed FROM route_signatures_v2`)
	if err != nil {
		return model.RouteSignature{}, false, model.Wrap(model.StageSignature, "query", &model.ErrSignatureStoreUnavailable{Err: err})
	}
	defer rows.Close()

	target := geo.Point{Lat: lat, Lon: lon}
	for rows.Next() {
		candidate, scanErr := scanSignature(rows)
		if scanErr != nil {
			return model.RouteSignature{}, false, model.Wrap(model.StageSignature, "scan", &model.ErrSignatureStoreUnavailable{Err: scanErr})
		}
		d := geo.HaversineMeters(target, geo.Point{Lat: candidate.Center.Lat, Lon: candidate.Center.Lon})
		if d <= matchRadiusM {
			return candidate, true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return model.RouteSignature{}, false, model.Wrap(model.StageSignature, "rows", &model.ErrSignatureStoreUnavailable{Err: err})
	}
	return model.RouteSignature{}, false, nil
}

// Store inserts sig, replacing any existing signature whose center lies
// within matchRadiusM (dedup-by-proximity, §4.7/§3 invariant).
func (s *Store) Store(sig model.RouteSignature, matchRadiusM float64) error {
	existing, found, err := s.LoadNearby(sig.Center.Lat, sig.Center.Lon, matchRadiusM)
	if err != nil {
		return err
	}
	if found {
		sig.ID = existing.ID
		if _, err := s.db.Exec(`DELETE FROM route_signatures_v2 WHERE id = ?`, existing.ID); err != nil {
			return model.Wrap(model.StageSignature, "delete", &model.ErrSignatureStoreUnavailable{Err: err})
		}
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}

	_, err = s.db.Exec(`INSERT INTO route_signatures_v2
		(id, center_lat, center_lon, learned_at, sample_count, mean_altitude_drop,
		 stddev_altitude_drop, mean_duration, stddev_duration, mean_speed, stddev_speed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.Center.Lat, sig.Center.Lon, sig.LearnedAt.UTC().Format(time.RFC3339),
		sig.SampleCount, sig.MeanAltitudeDropM, sig.StdDevAltitudeDropM,
		sig.MeanDurationS, sig.StdDevDurationS, sig.MeanSpeedMPS, sig.StdDevSpeedMPS)
	if err != nil {
		return model.Wrap(model.StageSignature, "insert", &model.ErrSignatureStoreUnavailable{Err: err})
	}
	return nil
}

func scanSignature(rows *sql.Rows) (model.RouteSignature, error) {
	var sig model.RouteSignature
	var learnedAt string
	if err := rows.Scan(&sig.ID, &sig.Center.Lat, &sig.Center.Lon, &learnedAt, &sig.SampleCount,
		&sig.MeanAltitudeDropM, &sig.StdDevAltitudeDropM, &sig.MeanDurationS, &sig.StdDevDurationS,
		&sig.MeanSpeedMPS, &sig.StdDevSpeedMPS); err != nil {
		return model.RouteSignature{}, err
	}
	t, err := time.Parse(time.RFC3339, learnedAt)
	if err != nil {
		return model.RouteSignature{}, fmt.Errorf("parse learned_at: %w", err)
	}
	sig.LearnedAt = t
	return sig, nil
}

// Learn builds a RouteSignature from a validated coast-down cluster of at
// least 3 DescentSegments, computing mean/stddev over altitude drop,
// duration, and average speed plus the centroid start point. learnedAt is
// the caller's clock reading, since this package never calls time.Now
// itself (callers own wall-clock access so results stay reproducible in
// tests).
func Learn(segments []model.DescentSegment, learnedAt time.Time) (model.RouteSignature, bool) {
	if len(segments) < 3 {
		return model.RouteSignature{}, false
	}

	altDrops := make([]float64, len(segments))
	durations := make([]float64, len(segments))
	speeds := make([]float64, len(segments))
	var centerLat, centerLon float64
	for i, s := range segments {
		altDrops[i] = s.AltitudeDropM
		durations[i] = s.DurationS
		speeds[i] = s.AvgSpeedMPS
		centerLat += s.StartGPS.Lat
		centerLon += s.StartGPS.Lon
	}
	n := float64(len(segments))

	return model.RouteSignature{
		Center:              model.Point{Lat: centerLat / n, Lon: centerLon / n},
		LearnedAt:           learnedAt,
		SampleCount:         len(segments),
		MeanAltitudeDropM:   stats.Mean(altDrops),
		StdDevAltitudeDropM: stats.StdDev(altDrops),
		MeanDurationS:       stats.Mean(durations),
		StdDevDurationS:     stats.StdDev(durations),
		MeanSpeedMPS:        stats.Mean(speeds),
		StdDevSpeedMPS:      stats.StdDev(speeds),
	}, true
}
