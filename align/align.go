// Package align implements the GPS/distance aligner: greedy start-point
// clustering across runs, sweep-line intersection of per-lap distance
// coverage intervals, and linear interpolation at the resulting shared
// gates.
package align

import (
	"sort"

	"github.com/wattshift/tirepressure-core/geo"
	"github.com/wattshift/tirepressure-core/model"
)

// Interval is a closed coverage range [Start, End] on a lap's distance axis.
type Interval struct {
	Start, End float64
}

// candidate is one lap's clustering input: its start GPS fix, a comparison
// value used for the optional power-agreement gate, and its intervals.
type candidate struct {
	Lap       int
	StartGPS  model.Point
	AvgPower  float64
	Intervals []Interval
}

// Cluster greedily partitions candidates into groups whose start points lie
// within radiusM of every other member already in the group (the growing
// cluster must remain a clique, not just a chain). When requirePowerMatch is
// true (constant-power matching), two candidates may only share a cluster if
// their average powers agree within powerTolPct of the larger. Each
// candidate is consumed by the first cluster it joins, so the partition
// never lets one run contribute to two different clusters. Returns the
// single largest resulting cluster with at least 3 members, or nil if none
// qualifies.
func Cluster(candidates []candidate, radiusM, powerTolPct float64, requirePowerMatch bool) []candidate {
	used := make([]bool, len(candidates))
	var best []candidate

	for i := range candidates {
		if used[i] {
			continue
		}
		cluster := []int{i}
		for j := i + 1; j < len(candidates); j++ {
			if used[j] {
				continue
			}
			if joinsCluster(candidates, cluster, j, radiusM, powerTolPct, requirePowerMatch) {
				cluster = append(cluster, j)
			}
		}
		for _, ci := range cluster {
			used[ci] = true
		}
		if len(cluster) >= 3 && len(cluster) > len(best) {
			best = indicesToCandidates(candidates, cluster)
		}
	}
	return best
}

func joinsCluster(candidates []candidate, cluster []int, j int, radiusM, powerTolPct float64, requirePowerMatch bool) bool {
	for _, ci := range cluster {
		a, b := candidates[ci], candidates[j]
		d := geo.HaversineMeters(toGeoPoint(a.StartGPS), toGeoPoint(b.StartGPS))
		if d > radiusM {
			return false
		}
		if requirePowerMatch {
			larger := a.AvgPower
			if b.AvgPower > larger {
				larger = b.AvgPower
			}
			if larger <= 0 {
				return false
			}
			diff := a.AvgPower - b.AvgPower
			if diff < 0 {
				diff = -diff
			}
			if diff/larger > powerTolPct {
				return false
			}
		}
	}
	return true
}

func indicesToCandidates(candidates []candidate, idx []int) []candidate {
	out := make([]candidate, len(idx))
	for i, ix := range idx {
		out[i] = candidates[ix]
	}
	return out
}

func toGeoPoint(p model.Point) geo.Point {
	return geo.Point{Lat: p.Lat, Lon: p.Lon}
}

// event is one sweep-line endpoint.
type event struct {
	pos    float64
	isOpen bool
	lap    int
}

// FullyCoveredIntervals runs the sweep line described in §4.5 over perLap's
// merged intervals, returning every maximal interval during which all
// required laps are simultaneously open.
func FullyCoveredIntervals(perLap map[int][]Interval, requiredLaps int) []Interval {
	merged := make(map[int][]Interval, len(perLap))
	for lap, ivs := range perLap {
		merged[lap] = mergeIntervals(ivs)
	}

	var events []event
	for lap, ivs := range merged {
		for _, iv := range ivs {
			events = append(events, event{pos: iv.Start, isOpen: true, lap: lap})
			events = append(events, event{pos: iv.End, isOpen: false, lap: lap})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		// Closes deferred after opens at ties.
		return events[i].isOpen && !events[j].isOpen
	})

	open := make(map[int]bool)
	var out []Interval
	var coverStart float64
	covering := false

	for _, e := range events {
		wasFull := len(open) >= requiredLaps
		if e.isOpen {
			open[e.lap] = true
		} else {
			delete(open, e.lap)
		}
		isFull := len(open) >= requiredLaps

		if !wasFull && isFull {
			coverStart = e.pos
			covering = true
		} else if wasFull && !isFull && covering {
			if e.pos > coverStart {
				out = append(out, Interval{Start: coverStart, End: e.pos})
			}
			covering = false
		}
	}
	return out
}

func mergeIntervals(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// InterpolateAt samples speed/altitude/lat/lon for a lap's distance axis at
// target, per §4.5's boundary-interpolation rule.
func InterpolateAt(dist, speed, altitude []float64, gps []model.Point, target float64) (speedAt, altAt float64, gpsAt model.Point, ok bool) {
	i, found := geo.BracketIndex(dist, target)
	if !found {
		return 0, 0, model.Point{}, false
	}
	if i+1 >= len(dist) {
		return speed[i], altitude[i], gps[i], true
	}
	f := geo.InterpFraction(dist[i], dist[i+1], target)
	speedAt = geo.Lerp(speed[i], speed[i+1], f)
	altAt = geo.Lerp(altitude[i], altitude[i+1], f)
	gpsGeo := geo.LerpPoint(toGeoPoint(gps[i]), toGeoPoint(gps[i+1]), f)
	gpsAt = model.Point{Lat: gpsGeo.Lat, Lon: gpsGeo.Lon}
	return speedAt, altAt, gpsAt, true
}
