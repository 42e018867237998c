// Package coast implements the coast-down extractor: locating the
// gravity-only coasting window within a run via shove-off/power-spike
// start detection and brake/flat/turnaround end detection.
package coast

import (
	"time"

	"github.com/wattshift/tirepressure-core/model"
)

// sample is the extractor's internal parallel-array view, built once per
// run from its records.
type sample struct {
	altitude []float64
	speed    []float64 // m/s
	distance []float64
	gps      []model.Point
	power    []float64
}

func toSample(recs []model.Record) sample {
	s := sample{
		altitude: make([]float64, len(recs)),
		speed:    make([]float64, len(recs)),
		distance: make([]float64, len(recs)),
		gps:      make([]model.Point, len(recs)),
		power:    make([]float64, len(recs)),
	}
	for i, r := range recs {
		s.altitude[i] = r.AltitudeM
		s.speed[i] = r.WheelSpeedKMH / 3.6
		s.distance[i] = r.DistanceM
		s.gps[i] = r.GPS
		s.power[i] = r.PowerW
	}
	return s
}

// Extract locates the coasting window in recs and validates it, returning
// the raw CoastDescent on success. ok is false when no candidate start was
// found or the candidate failed validation (§4.4's three-part gate).
func Extract(recs []model.Record, lapIndex int, pressure float64, cfg model.Config) (model.CoastDescent, bool) {
	s := toSample(recs)
	cd := cfg.CoastDown

	start, ok := findStart(s, cd)
	if !ok {
		return model.CoastDescent{}, false
	}

	end := findEnd(s, start, cd)
	if !validate(s, start, end, cfg) {
		return model.CoastDescent{}, false
	}

	return model.CoastDescent{
		LapIndex:   lapIndex,
		Pressure:   pressure,
		Timestamps: timestamps(recs),
		AltitudeM:  s.altitude,
		SpeedMPS:   s.speed,
		DistanceM:  s.distance,
		GPS:        s.gps,
		PowerW:     s.power,
		StartIndex: start,
		EndIndex:   end,
	}, true
}

func timestamps(recs []model.Record) []time.Time {
	out := make([]time.Time, len(recs))
	for i, r := range recs {
		out[i] = r.Timestamp
	}
	return out
}

func findStart(s sample, cfg model.CoastDownConfig) (int, bool) {
	candidate := -1
	for i, v := range s.speed {
		if v > cfg.StartSpeedThresholdMPS {
			candidate = i
			break
		}
	}
	if candidate < 0 {
		return 0, false
	}

	candidate += cfg.PushOffIgnoreSeconds
	if candidate >= len(s.speed) {
		return 0, false
	}

	lookahead := cfg.PowerSpikeLookaheadS
	for i := candidate; i < len(s.power); i++ {
		if !hasPowerSpike(s.power, i, lookahead, cfg.PowerSpikeThresholdW) {
			return i, true
		}
	}
	return 0, false
}

func hasPowerSpike(power []float64, i, lookahead int, threshold float64) bool {
	lo := i - lookahead
	if lo < 0 {
		lo = 0
	}
	hi := i + lookahead
	if hi >= len(power) {
		hi = len(power) - 1
	}
	for j := lo; j <= hi; j++ {
		if power[j] > threshold {
			return true
		}
	}
	return false
}

func findEnd(s sample, start int, cfg model.CoastDownConfig) int {
	flatCounter := 0
	for i := start + 1; i < len(s.speed); i++ {
		if isBraking(s.speed, i, cfg) {
			return i
		}

		flat := false
		if s.altitude[i] >= s.altitude[i-1] {
			flat = true
		}
		if s.speed[i] < cfg.FlatSpeedThresholdMPS {
			flat = true
		}
		if flat {
			flatCounter++
		} else {
			flatCounter = 0
		}
		if flatCounter >= cfg.FlatCounterThreshold {
			return i
		}

		if i-start > cfg.TurnaroundMinSamples && isTurnaround(s.distance, s.gps, start, i, cfg) {
			return i
		}
	}
	return len(s.speed)
}

func isBraking(speed []float64, i int, cfg model.CoastDownConfig) bool {
	delta := speed[i] - speed[i-1]
	if delta <= cfg.BrakingDecelMPS2 {
		return true
	}

	lo := i - 2
	if lo < 0 {
		lo = 0
	}
	window := speed[lo:i]
	if len(window) == 0 {
		return false
	}
	maxRecent := window[0]
	for _, v := range window {
		if v > maxRecent {
			maxRecent = v
		}
	}
	if maxRecent <= 0 {
		return false
	}
	return (maxRecent-speed[i])/maxRecent >= cfg.BrakingFracOf2s
}

func isTurnaround(distance []float64, gps []model.Point, start, i int, cfg model.CoastDownConfig) bool {
	distFromStart := func(idx int) float64 {
		return distance[idx] - distance[start]
	}

	lookback := i - cfg.TurnaroundMinSamples
	if lookback < start {
		lookback = start
	}
	maxRecent := 0.0
	for j := lookback; j < i; j++ {
		if d := distFromStart(j); d > maxRecent {
			maxRecent = d
		}
	}
	if maxRecent <= cfg.TurnaroundDistanceM {
		return false
	}
	current := distFromStart(i)
	return current < cfg.TurnaroundFraction*maxRecent
}

func validate(s sample, start, end int, cfg model.Config) bool {
	if end-start <= 3 {
		return false
	}

	nonDropping := 0
	total := 0
	for i := start; i < end-1; i++ {
		total++
		if s.altitude[i+1] >= s.altitude[i] {
			nonDropping++
		}
	}
	if total == 0 {
		return false
	}
	if float64(nonDropping)/float64(total) > cfg.MaxAltitudeErrorRate {
		return false
	}

	totalDrop := s.altitude[start] - s.altitude[end-1]
	return totalDrop >= cfg.MinAltitudeDropM
}
