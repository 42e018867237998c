package align

import (
	"sort"

	"github.com/google/uuid"

	"github.com/wattshift/tirepressure-core/energy"
	"github.com/wattshift/tirepressure-core/geo"
	"github.com/wattshift/tirepressure-core/model"
	"github.com/wattshift/tirepressure-core/stats"
)

// CoastDown clusters a set of coast-down descents by shared start point and
// gate-trims the winning cluster into one DescentSegment per lap. ok is
// false when fewer than 3 descents share a start point within the
// configured radius.
func CoastDown(descents []model.CoastDescent, cfg model.Config) ([]model.DescentSegment, bool) {
	candidates := make([]candidate, 0, len(descents))
	byLap := make(map[int]model.CoastDescent, len(descents))
	for _, d := range descents {
		if d.StartIndex >= len(d.GPS) {
			continue
		}
		candidates = append(candidates, candidate{
			Lap:      d.LapIndex,
			StartGPS: d.GPS[d.StartIndex],
		})
		byLap[d.LapIndex] = d
	}

	cluster := Cluster(candidates, cfg.StartGPSRadiusM, 0, false)
	if len(cluster) < 3 {
		return nil, false
	}

	entry := 0.0
	exit := 0.0
	first := true
	for _, c := range cluster {
		d := byLap[c.Lap]
		startDist := d.DistanceM[d.StartIndex]
		endIdx := d.EndIndex
		if endIdx >= len(d.DistanceM) {
			endIdx = len(d.DistanceM) - 1
		}
		endDist := d.DistanceM[endIdx]
		if first {
			entry, exit = startDist, endDist
			first = false
			continue
		}
		if startDist > entry {
			entry = startDist
		}
		if endDist < exit {
			exit = endDist
		}
	}
	if exit <= entry {
		return nil, false
	}
	gateLength := exit - entry

	var out []model.DescentSegment
	for _, c := range cluster {
		d := byLap[c.Lap]
		seg, ok := trimDescent(d, entry, exit, gateLength, cfg)
		if !ok {
			continue
		}
		out = append(out, seg)
	}
	if len(out) < 3 {
		return nil, false
	}
	return out, true
}

func trimDescent(d model.CoastDescent, entry, exit, gateLength float64, cfg model.Config) (model.DescentSegment, bool) {
	entrySpeed, entryAlt, entryGPS, ok1 := InterpolateAt(d.DistanceM, d.SpeedMPS, d.AltitudeM, d.GPS, entry)
	exitSpeed, exitAlt, exitGPS, ok2 := InterpolateAt(d.DistanceM, d.SpeedMPS, d.AltitudeM, d.GPS, exit)
	if !ok1 || !ok2 {
		return model.DescentSegment{}, false
	}

	entryIdx, _ := geo.BracketIndex(d.DistanceM, entry)
	exitIdx, _ := geo.BracketIndex(d.DistanceM, exit)
	entryFrac := fraction(d.DistanceM, entryIdx, entry)
	exitFrac := fraction(d.DistanceM, exitIdx, exit)
	duration := float64(exitIdx-entryIdx) + exitFrac - entryFrac

	altDrop := entryAlt - exitAlt

	maxSpeed := entrySpeed
	sumSpeed := 0.0
	n := 0
	lo, hi := entryIdx, exitIdx
	if hi > len(d.SpeedMPS)-1 {
		hi = len(d.SpeedMPS) - 1
	}
	for i := lo; i <= hi; i++ {
		sumSpeed += d.SpeedMPS[i]
		n++
		if d.SpeedMPS[i] > maxSpeed {
			maxSpeed = d.SpeedMPS[i]
		}
	}
	avgSpeed := entrySpeed
	if n > 0 {
		avgSpeed = sumSpeed / float64(n)
	}
	if exitSpeed > maxSpeed {
		maxSpeed = exitSpeed
	}

	efficiency := 0.0
	if maxSpeed > 0 {
		efficiency = gateLength / maxSpeed
	}

	crr := energy.CoastDownCRR(altDrop, entrySpeed, exitSpeed, gateLength)

	return model.DescentSegment{
		LapIndex:      d.LapIndex,
		RearPressure:  d.Pressure,
		AltitudeDropM: altDrop,
		DurationS:     duration,
		AvgSpeedMPS:   avgSpeed,
		MaxSpeedMPS:   maxSpeed,
		GateLengthM:   gateLength,
		StartGPS:      entryGPS,
		EndGPS:        exitGPS,
		CRR:           crr,
		Efficiency:    efficiency,
		SampleCount:   n,
	}, true
}

func fraction(dist []float64, i int, target float64) float64 {
	if i+1 >= len(dist) {
		return 0
	}
	span := dist[i+1] - dist[i]
	if span == 0 {
		return 0
	}
	f := (target - dist[i]) / span
	return stats.Clamp(f, 0, 1)
}

// ConstantPower clusters constant-power segments by shared start point and
// power agreement, then emits one MatchedSegment per fully-covered
// distance interval of at least minSegmentDistanceM.
func ConstantPower(segments []model.ConstantPowerSegment, pressures map[int]float64, cfg model.Config) []model.MatchedSegment {
	byLap := make(map[int][]model.ConstantPowerSegment)
	for _, s := range segments {
		byLap[s.LapIndex] = append(byLap[s.LapIndex], s)
	}

	laps := make([]int, 0, len(byLap))
	for lap := range byLap {
		laps = append(laps, lap)
	}
	sort.Ints(laps)

	candidates := make([]candidate, 0, len(byLap))
	for _, lap := range laps {
		segs := byLap[lap]
		var start model.Point
		avgPower := 0.0
		var intervals []Interval
		powers := make([]float64, 0, len(segs))
		for _, s := range segs {
			if start.IsZero() && !s.StartGPS.IsZero() {
				start = s.StartGPS
			}
			intervals = append(intervals, Interval{Start: s.StartDistanceM, End: s.EndDistanceM})
			powers = append(powers, s.AvgPowerW)
		}
		avgPower = stats.Mean(powers)
		candidates = append(candidates, candidate{Lap: lap, StartGPS: start, AvgPower: avgPower, Intervals: intervals})
	}

	cluster := Cluster(candidates, cfg.GPSZoneRadiusM, cfg.ZonePowerTolPct, true)
	if len(cluster) < 3 {
		return nil
	}

	perLap := make(map[int][]Interval, len(cluster))
	for _, c := range cluster {
		perLap[c.Lap] = c.Intervals
	}

	covered := FullyCoveredIntervals(perLap, len(cluster))

	var out []model.MatchedSegment
	for _, iv := range covered {
		if iv.End-iv.Start < cfg.MinSegmentDistanceM {
			continue
		}
		ms := model.MatchedSegment{
			ClusterID: uuid.NewString(),
			ByLap:     make(map[int]int, len(cluster)),
		}
		complete := true
		for _, c := range cluster {
			segs := byLap[c.Lap]
			eff, ok := efficiencyAt(segs, iv)
			if !ok {
				complete = false
				break
			}
			ms.ByLap[c.Lap] = len(ms.Pressures)
			ms.Pressures = append(ms.Pressures, pressures[c.Lap])
			ms.Efficiencies = append(ms.Efficiencies, eff)
		}
		if complete {
			out = append(out, ms)
		}
	}
	return out
}

// efficiencyAt picks the segment (among a lap's constant-power segments)
// whose distance span covers iv, and returns its efficiency. A lap may have
// produced several segments; the fully-covered interval always lies inside
// exactly one that contributed to the sweep.
func efficiencyAt(segs []model.ConstantPowerSegment, iv Interval) (float64, bool) {
	mid := (iv.Start + iv.End) / 2
	for _, s := range segs {
		if s.StartDistanceM <= mid && mid <= s.EndDistanceM {
			return s.Efficiency, true
		}
	}
	return 0, false
}
