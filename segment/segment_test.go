package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wattshift/tirepressure-core/model"
)

func buildRecords(powers []float64, speed float64) []model.Record {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	recs := make([]model.Record, len(powers))
	for i, p := range powers {
		recs[i] = model.Record{
			Timestamp:     base.Add(time.Duration(i) * time.Second),
			PowerW:        p,
			WheelSpeedKMH: speed,
			GPS:           model.Point{Lat: 48.85 + float64(i)*0.0001, Lon: 2.35},
		}
	}
	return recs
}

func TestDetectStableWindowGrowsAndStops(t *testing.T) {
	cfg := model.DefaultConfig()
	powers := make([]float64, 0, 30)
	for i := 0; i < 20; i++ {
		powers = append(powers, 200)
	}
	// Sharp power change should end the segment before it can absorb it.
	for i := 0; i < 10; i++ {
		powers = append(powers, 400)
	}
	recs := buildRecords(powers, 30)

	segs := detectLap(recs, cfg)
	require.NotEmpty(t, segs)
	require.Equal(t, 20, segs[0].SampleCount)
	require.InDelta(t, 200, segs[0].AvgPowerW, 1e-9)
}

func TestDetectEmptyLapYieldsNoSegments(t *testing.T) {
	cfg := model.DefaultConfig()
	require.Empty(t, detectLap(nil, cfg))
}

func TestDetectAllZeroPowerYieldsNoSegments(t *testing.T) {
	cfg := model.DefaultConfig()
	recs := buildRecords(make([]float64, 15), 20)
	require.Empty(t, detectLap(recs, cfg))
}

func TestDetectAssignsLapAndPressure(t *testing.T) {
	cfg := model.DefaultConfig()
	powers := make([]float64, 12)
	for i := range powers {
		powers[i] = 200
	}
	records := map[int][]model.Record{3: buildRecords(powers, 30)}
	pressures := map[int]float64{3: 65}

	segs := Detect(records, pressures, cfg)
	require.Len(t, segs, 1)
	require.Equal(t, 3, segs[0].LapIndex)
	require.Equal(t, 65.0, segs[0].Pressure)
	require.Equal(t, 0, segs[0].SegmentIndex)
}
