package signature

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wattshift/tirepressure-core/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signatures.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func descents(centerLat, centerLon float64, n int) []model.DescentSegment {
	out := make([]model.DescentSegment, n)
	for i := 0; i < n; i++ {
		out[i] = model.DescentSegment{
			StartGPS:      model.Point{Lat: centerLat, Lon: centerLon},
			AltitudeDropM: 12.0 + float64(i)*0.1,
			DurationS:     30.0 + float64(i)*0.2,
			AvgSpeedMPS:   8.0 + float64(i)*0.05,
		}
	}
	return out
}

func TestLearnRequiresAtLeastThreeSegments(t *testing.T) {
	_, ok := Learn(descents(45.0, -122.0, 2), time.Unix(0, 0))
	require.False(t, ok)

	sig, ok := Learn(descents(45.0, -122.0, 3), time.Unix(0, 0))
	require.True(t, ok)
	require.Equal(t, 3, sig.SampleCount)
	require.InDelta(t, 45.0, sig.Center.Lat, 1e-9)
	require.Greater(t, sig.MeanAltitudeDropM, 0.0)
}

func TestStoreAndLoadNearby(t *testing.T) {
	store := openTestStore(t)

	sig, ok := Learn(descents(45.5, -122.5, 4), time.Unix(1700000000, 0))
	require.True(t, ok)
	require.NoError(t, store.Store(sig, 1000))

	// ~50m away (roughly 0.00045 degrees of latitude) should still match.
	nearby, found, err := store.LoadNearby(45.50045, -122.5, 1000)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, sig.SampleCount, nearby.SampleCount)

	// Over 1km away should not match.
	_, found, err = store.LoadNearby(45.52, -122.5, 1000)
	require.NoError(t, err)
	require.False(t, found)
}

func TestStoreDedupesWithinMatchRadius(t *testing.T) {
	store := openTestStore(t)

	first, _ := Learn(descents(40.0, -105.0, 3), time.Unix(1700000000, 0))
	require.NoError(t, store.Store(first, 1000))

	// A second cluster centered ~100m away should replace, not duplicate.
	second, _ := Learn(descents(40.0009, -105.0, 5), time.Unix(1700000100, 0))
	require.NoError(t, store.Store(second, 1000))

	found, ok, err := store.LoadNearby(40.0, -105.0, 1000)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, found.SampleCount)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM route_signatures_v2`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestStoreKeepsSeparateSignaturesOutsideMatchRadius(t *testing.T) {
	store := openTestStore(t)

	a, _ := Learn(descents(10.0, 10.0, 3), time.Unix(1700000000, 0))
	b, _ := Learn(descents(10.1, 10.0, 3), time.Unix(1700000000, 0)) // ~11km away
	require.NoError(t, store.Store(a, 1000))
	require.NoError(t, store.Store(b, 1000))

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM route_signatures_v2`).Scan(&count))
	require.Equal(t, 2, count)
}
