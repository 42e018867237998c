// Package lap implements the circle (lap-efficiency) aggregator: one
// CircleLap summary per full lap, with validity gates and the
// aero-corrected rolling-resistance residual, plus cross-lap warnings.
package lap

import (
	"fmt"
	"sort"

	"github.com/wattshift/tirepressure-core/energy"
	"github.com/wattshift/tirepressure-core/model"
	"github.com/wattshift/tirepressure-core/stats"
)

// Aggregate builds one CircleLap per lap in records, in increasing
// lap-index order, tagging each with its pressure from pressures. bt selects
// the CdA input to the aero-corrected residual; rho comes from cfg.
func Aggregate(records map[int][]model.Record, pressures map[int]float64, bt model.BikeType, cfg model.Config) []model.CircleLap {
	laps := make([]int, 0, len(records))
	for lap := range records {
		laps = append(laps, lap)
	}
	sort.Ints(laps)

	out := make([]model.CircleLap, 0, len(laps))
	for _, lap := range laps {
		cl := aggregateLap(records[lap], cfg.CdA(bt), cfg.Rho)
		cl.LapIndex = lap
		cl.Pressure = pressures[lap]
		out = append(out, cl)
	}
	return out
}

func aggregateLap(recs []model.Record, cda, rho float64) model.CircleLap {
	n := len(recs)
	if n == 0 {
		return model.CircleLap{}
	}

	powers := make([]float64, n)
	speedsKMH := make([]float64, n)
	speedsMPS := make([]float64, n)
	vibration := make([]float64, 0, n)
	for i, r := range recs {
		powers[i] = r.PowerW
		speedsKMH[i] = r.WheelSpeedKMH
		speedsMPS[i] = r.WheelSpeedKMH / 3.6
		if r.VibrationG != nil {
			vibration = append(vibration, *r.VibrationG)
		}
	}

	avgPower := stats.Mean(powers)
	avgSpeed := stats.Mean(speedsKMH)
	powerCV := stats.CV(powers)
	speedCV := stats.CV(speedsKMH)

	distance := 0.0
	for _, v := range speedsMPS {
		distance += v // 1 s cadence assumed
	}

	efficiency := 0.0
	if avgPower > 0 {
		efficiency = avgSpeed / avgPower
	}

	dataQuality := stats.Clamp(float64(n)/60, 0.5, 1.0) *
		(1 / (1 + 2*powerCV)) *
		(1 / (1 + speedCV))

	valid := n >= 30 && avgPower >= 50 && powerCV <= 0.25

	return model.CircleLap{
		AvgPowerW:       avgPower,
		MaxPowerW:       stats.Max(powers),
		MinPowerW:       stats.Min(powers),
		PowerCV:         powerCV,
		SpeedCV:         speedCV,
		VibrationRMS:    stats.RMS(vibration),
		DurationS:       float64(n),
		DistanceM:       distance,
		SampleCount:     n,
		DataQuality:     dataQuality,
		Valid:           valid,
		Efficiency:      efficiency,
		RollingResidual: energy.AeroCorrectedResidual(powers, speedsMPS, cda, rho),
	}
}

// CrossLapWarnings reports non-fatal cross-lap discrepancies: duration
// drift against the first valid lap, and power-spread drift across every
// valid lap. Both are informational; the aero correction still applies.
func CrossLapWarnings(laps []model.CircleLap) []string {
	var valid []model.CircleLap
	for _, l := range laps {
		if l.Valid {
			valid = append(valid, l)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	var warnings []string
	first := valid[0]
	for _, l := range valid[1:] {
		if first.DurationS <= 0 {
			continue
		}
		drift := (l.DurationS - first.DurationS) / first.DurationS
		if drift < 0 {
			drift = -drift
		}
		if drift > 0.10 {
			warnings = append(warnings, fmt.Sprintf(
				"lap %d duration differs from reference lap %d by %.1f%%", l.LapIndex, first.LapIndex, drift*100))
			break
		}
	}

	maxPower, minPower := valid[0].AvgPowerW, valid[0].AvgPowerW
	for _, l := range valid[1:] {
		if l.AvgPowerW > maxPower {
			maxPower = l.AvgPowerW
		}
		if l.AvgPowerW < minPower {
			minPower = l.AvgPowerW
		}
	}
	if maxPower > 0 {
		spread := (maxPower - minPower) / maxPower
		if spread > 0.10 {
			warnings = append(warnings, fmt.Sprintf(
				"cross-lap power spread is %.1f%% — pacing varied, aero correction still applied", spread*100))
		}
	}

	return warnings
}
