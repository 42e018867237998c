package align

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFullyCoveredIntervalsWithHoles(t *testing.T) {
	perLap := map[int][]Interval{
		0: {{Start: 0, End: 50}, {Start: 80, End: 120}},
		1: {{Start: 10, End: 100}},
		2: {{Start: 20, End: 90}},
	}
	got := FullyCoveredIntervals(perLap, 3)
	require.Equal(t, []Interval{{Start: 20, End: 50}, {Start: 80, End: 90}}, got)
}

func TestFullyCoveredIntervalsSimpleIntersection(t *testing.T) {
	perLap := map[int][]Interval{
		0: {{Start: 0, End: 100}},
		1: {{Start: 10, End: 90}},
		2: {{Start: 5, End: 95}},
	}
	got := FullyCoveredIntervals(perLap, 3)
	require.Equal(t, []Interval{{Start: 10, End: 90}}, got)
}

func TestFullyCoveredIntervalsEmptyWhenDisjoint(t *testing.T) {
	perLap := map[int][]Interval{
		0: {{Start: 0, End: 10}},
		1: {{Start: 20, End: 30}},
	}
	require.Empty(t, FullyCoveredIntervals(perLap, 2))
}

func TestMergeIntervalsCombinesOverlaps(t *testing.T) {
	got := mergeIntervals([]Interval{{Start: 0, End: 10}, {Start: 5, End: 15}, {Start: 20, End: 30}})
	require.Equal(t, []Interval{{Start: 0, End: 15}, {Start: 20, End: 30}}, got)
}
