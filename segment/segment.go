// Package segment implements the constant-power growing-window detector:
// within each lap, grow stable-power windows forward while a coefficient-
// of-variation bound holds, instead of scanning fixed-width windows that
// would fragment a long steady effort.
package segment

import (
	"sort"

	"github.com/wattshift/tirepressure-core/model"
	"github.com/wattshift/tirepressure-core/stats"
)

// Detect scans every lap in records, in increasing lap-index order, and
// returns the constant-power segments found, tagged with pressure and lap
// index. An empty lap, or one whose power is entirely zero, contributes no
// segments.
func Detect(records map[int][]model.Record, pressures map[int]float64, cfg model.Config) []model.ConstantPowerSegment {
	laps := make([]int, 0, len(records))
	for lap := range records {
		laps = append(laps, lap)
	}
	sort.Ints(laps)

	var out []model.ConstantPowerSegment
	for _, lap := range laps {
		segs := detectLap(records[lap], cfg)
		for i := range segs {
			segs[i].LapIndex = lap
			segs[i].SegmentIndex = i
			segs[i].Pressure = pressures[lap]
		}
		out = append(out, segs...)
	}
	return out
}

func detectLap(recs []model.Record, cfg model.Config) []model.ConstantPowerSegment {
	minWindow := cfg.MinWindow
	if minWindow <= 0 {
		minWindow = 10
	}
	threshold := cfg.SegmentCVThreshold
	if threshold <= 0 {
		threshold = 0.10
	}

	var segs []model.ConstantPowerSegment
	i := 0
	for i+minWindow <= len(recs) {
		window := recs[i : i+minWindow]
		if !seedIsStable(window, minWindow, threshold) {
			i++
			continue
		}

		end := i + minWindow
		for end < len(recs) && recs[end].PowerW > 0 {
			extended := recs[i : end+1]
			if cvOfPositivePower(extended) >= threshold {
				break
			}
			end++
		}

		seg := buildSegment(recs[i:end])
		seg.StartIndex = i
		seg.EndIndex = end
		segs = append(segs, seg)
		i = end
	}
	return segs
}

func seedIsStable(window []model.Record, minWindow int, threshold float64) bool {
	positive := countPositive(window)
	if positive < minWindow/2 {
		return false
	}
	return cvOfPositivePower(window) < threshold
}

func countPositive(recs []model.Record) int {
	n := 0
	for _, r := range recs {
		if r.PowerW > 0 {
			n++
		}
	}
	return n
}

func cvOfPositivePower(recs []model.Record) float64 {
	var powers []float64
	for _, r := range recs {
		if r.PowerW > 0 {
			powers = append(powers, r.PowerW)
		}
	}
	return stats.CV(powers)
}

func buildSegment(recs []model.Record) model.ConstantPowerSegment {
	var powers, speeds []float64
	var start model.Point
	for _, r := range recs {
		if r.PowerW > 0 {
			powers = append(powers, r.PowerW)
		}
		speeds = append(speeds, r.WheelSpeedKMH)
		if start.IsZero() && !r.GPS.IsZero() {
			start = r.GPS
		}
	}

	avgPower := stats.Mean(powers)
	avgSpeed := stats.Mean(speeds)
	duration := float64(len(recs))
	distance := (avgSpeed / 3.6) * duration

	efficiency := 0.0
	if avgPower > 0 {
		efficiency = avgSpeed / avgPower
	}

	seg := model.ConstantPowerSegment{
		StartGPS:    start,
		AvgPowerW:   avgPower,
		PowerCV:     stats.CV(powers),
		AvgSpeedKMH: avgSpeed,
		DistanceM:   distance,
		DurationS:   duration,
		Efficiency:  efficiency,
		SampleCount: len(recs),
	}
	if len(recs) > 0 {
		seg.StartTime = recs[0].Timestamp
		seg.EndTime = recs[len(recs)-1].Timestamp
		seg.StartDistanceM = recs[0].DistanceM
		seg.EndDistanceM = recs[len(recs)-1].DistanceM
	}
	return seg
}
