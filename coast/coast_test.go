package coast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wattshift/tirepressure-core/model"
)

func descentRecords() []model.Record {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	var recs []model.Record
	// Stationary/shove-off.
	for i := 0; i < 3; i++ {
		recs = append(recs, model.Record{Timestamp: base.Add(time.Duration(i) * time.Second), WheelSpeedKMH: 0, AltitudeM: 100, PowerW: 150})
	}
	// Coasting descent: speed rising, altitude dropping, zero power.
	altitude := 100.0
	speed := 2.0
	for i := 0; i < 20; i++ {
		altitude -= 1.0
		speed += 0.2
		recs = append(recs, model.Record{
			Timestamp:     base.Add(time.Duration(3+i) * time.Second),
			WheelSpeedKMH: speed * 3.6,
			AltitudeM:     altitude,
			DistanceM:     float64(i) * 5,
			PowerW:        0,
		})
	}
	// Braking: sharp speed drop.
	last := recs[len(recs)-1]
	for i := 0; i < 5; i++ {
		last.WheelSpeedKMH = last.WheelSpeedKMH * 0.5
		last.Timestamp = last.Timestamp.Add(time.Second)
		recs = append(recs, last)
	}
	return recs
}

func TestExtractFindsCoastingWindow(t *testing.T) {
	cfg := model.DefaultConfig()
	desc, ok := Extract(descentRecords(), 0, 65, cfg)
	require.True(t, ok)
	require.Greater(t, desc.EndIndex, desc.StartIndex)
	require.Greater(t, desc.StartIndex, 0)
}

func TestExtractRejectsNoCoastWindow(t *testing.T) {
	cfg := model.DefaultConfig()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	var flat []model.Record
	for i := 0; i < 20; i++ {
		flat = append(flat, model.Record{Timestamp: base.Add(time.Duration(i) * time.Second), WheelSpeedKMH: 20, AltitudeM: 100, PowerW: 150})
	}
	_, ok := Extract(flat, 0, 65, cfg)
	require.False(t, ok, "constant altitude and power should never validate as a descent")
}

func TestExtractRejectsNoSpeedAboveThreshold(t *testing.T) {
	cfg := model.DefaultConfig()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	var still []model.Record
	for i := 0; i < 10; i++ {
		still = append(still, model.Record{Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	_, ok := Extract(still, 0, 65, cfg)
	require.False(t, ok)
}
