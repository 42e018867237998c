package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversineSymmetryAndIdentity(t *testing.T) {
	london := Point{Lat: 51.5074, Lon: -0.1278}
	paris := Point{Lat: 48.8566, Lon: 2.3522}

	d1 := HaversineMeters(london, paris)
	d2 := HaversineMeters(paris, london)
	require.InDelta(t, d1, d2, 1e-6, "haversine must be symmetric")
	require.InDelta(t, 0, HaversineMeters(london, london), 1e-6, "distance to self must be zero")

	const londonParisKm = 344.0
	require.InDelta(t, londonParisKm*1000, d1, 1000, "London-Paris distance should be ~344km")
}

func TestInterpolationEndpoints(t *testing.T) {
	dist := []float64{0, 10, 25, 40}
	arr := []float64{1, 2, 3, 4}

	for i, d := range dist {
		v, ok := InterpAt(dist, arr, d)
		require.True(t, ok)
		require.InDelta(t, arr[i], v, 1e-9)
	}

	v, ok := InterpAt(dist, arr, 17.5)
	require.True(t, ok)
	require.InDelta(t, 2.5, v, 1e-9)

	_, ok = InterpAt(dist, arr, -1)
	require.False(t, ok)
	_, ok = InterpAt(dist, arr, 41)
	require.False(t, ok)
}

func TestInterpFractionZeroSpan(t *testing.T) {
	require.Equal(t, 0.0, InterpFraction(5, 5, 5))
}
