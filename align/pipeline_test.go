package align

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wattshift/tirepressure-core/model"
)

// TestClusterPartitionsCandidatesOnce builds a case where candidate 1 is
// compatible with both an early pair {0,1} and a later, larger group
// {1,3,4,5}. Once 1 is consumed by the {0,1} exploration it must not be
// available to seed or join a second cluster — if it were (the dead `used`
// bug), the larger, overlapping {1,3,4,5} group would incorrectly win.
func TestClusterPartitionsCandidatesOnce(t *testing.T) {
	origin := model.Point{Lat: 45, Lon: 7}
	powers := map[int]float64{
		0: 80,
		1: 100,
		2: 500, // incompatible with everyone, a loner
		3: 118,
		4: 122,
		5: 120,
	}

	candidates := make([]candidate, 0, len(powers))
	for i := 0; i <= 5; i++ {
		candidates = append(candidates, candidate{Lap: i, StartGPS: origin, AvgPower: powers[i]})
	}

	got := Cluster(candidates, 1e9, 0.20, true)

	var laps []int
	for _, c := range got {
		laps = append(laps, c.Lap)
	}
	require.Equal(t, []int{3, 4, 5}, laps,
		"candidate 1 was already claimed by the {0,1} pair and must not seed a second, overlapping cluster")
}

func TestClusterReturnsNilBelowThreeMembers(t *testing.T) {
	origin := model.Point{Lat: 45, Lon: 7}
	candidates := []candidate{
		{Lap: 0, StartGPS: origin, AvgPower: 100},
		{Lap: 1, StartGPS: origin, AvgPower: 101},
	}
	require.Nil(t, Cluster(candidates, 1e9, 0.20, true))
}

func segAt(lap int, startDist, endDist, efficiency, avgPower float64) model.ConstantPowerSegment {
	return model.ConstantPowerSegment{
		LapIndex:       lap,
		StartGPS:       model.Point{Lat: 45, Lon: 7},
		StartDistanceM: startDist,
		EndDistanceM:   endDist,
		AvgPowerW:      avgPower,
		Efficiency:     efficiency,
	}
}

// TestConstantPowerSweepWithHoleYieldsTwoSegments builds three laps whose
// constant-power coverage each has a gap in the middle, at different
// boundaries. The sweep line over their intersection should recover exactly
// the two stretches all three laps cover simultaneously.
func TestConstantPowerSweepWithHoleYieldsTwoSegments(t *testing.T) {
	segments := []model.ConstantPowerSegment{
		segAt(0, 0, 50, 0.10, 200), segAt(0, 80, 130, 0.11, 200),
		segAt(1, 0, 60, 0.12, 205), segAt(1, 70, 120, 0.13, 205),
		segAt(2, 0, 55, 0.09, 195), segAt(2, 75, 125, 0.08, 195),
	}
	pressures := map[int]float64{0: 60, 1: 70, 2: 80}

	matched := ConstantPower(segments, pressures, model.DefaultConfig())

	require.Len(t, matched, 2)
	require.Equal(t, []float64{60, 70, 80}, matched[0].Pressures)
	require.Equal(t, []float64{0.10, 0.12, 0.09}, matched[0].Efficiencies)
	require.Equal(t, []float64{60, 70, 80}, matched[1].Pressures)
	require.Equal(t, []float64{0.11, 0.13, 0.08}, matched[1].Efficiencies)
}

func TestConstantPowerFewerThanThreeLapsYieldsNothing(t *testing.T) {
	segments := []model.ConstantPowerSegment{
		segAt(0, 0, 50, 0.10, 200),
		segAt(1, 0, 50, 0.11, 200),
	}
	matched := ConstantPower(segments, map[int]float64{0: 60, 1: 70}, model.DefaultConfig())
	require.Empty(t, matched)
}

func descentAt(lap int, pressure float64, startIdx, endIdx int) model.CoastDescent {
	n := 11
	dist := make([]float64, n)
	speed := make([]float64, n)
	altitude := make([]float64, n)
	gps := make([]model.Point, n)
	for i := 0; i < n; i++ {
		dist[i] = float64(i) * 10
		speed[i] = 30 - float64(i)
		altitude[i] = 200 - 10*float64(i)
		gps[i] = model.Point{Lat: 45, Lon: 7}
	}
	return model.CoastDescent{
		LapIndex:   lap,
		Pressure:   pressure,
		AltitudeM:  altitude,
		SpeedMPS:   speed,
		DistanceM:  dist,
		GPS:        gps,
		StartIndex: startIdx,
		EndIndex:   endIdx,
	}
}

// TestCoastDownGateTrim exercises the clustering + gate-intersection path
// end to end: three descents sharing a start point, each with a different
// start/end window, should trim to the shared [max(start), min(end)] gate.
func TestCoastDownGateTrim(t *testing.T) {
	descents := []model.CoastDescent{
		descentAt(0, 60, 1, 9), // [10, 90]
		descentAt(1, 70, 2, 10), // [20, 100]
		descentAt(2, 80, 0, 8), // [0, 80]
	}

	segments, ok := CoastDown(descents, model.DefaultConfig())
	require.True(t, ok)
	require.Len(t, segments, 3)

	for _, s := range segments {
		require.Equal(t, 60.0, s.GateLengthM, "shared gate is [20,80]")
		require.InDelta(t, 6.0, s.DurationS, 1e-9)
		require.Greater(t, s.Efficiency, 0.0)
		require.GreaterOrEqual(t, s.CRR, 0.002)
		require.LessOrEqual(t, s.CRR, 0.020)
	}

	pressures := map[float64]bool{}
	for _, s := range segments {
		pressures[s.RearPressure] = true
	}
	require.True(t, pressures[60] && pressures[70] && pressures[80])
}

func TestCoastDownFewerThanThreeClusteredDescentsFails(t *testing.T) {
	descents := []model.CoastDescent{
		descentAt(0, 60, 0, 8),
		descentAt(1, 70, 0, 8),
	}
	_, ok := CoastDown(descents, model.DefaultConfig())
	require.False(t, ok)
}
