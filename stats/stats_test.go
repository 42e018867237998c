package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCVIdentity(t *testing.T) {
	constant := []float64{42, 42, 42, 42}
	require.InDelta(t, 0, CV(constant), 1e-9)

	zeroMean := []float64{-3, 0, 3}
	require.True(t, math.IsInf(CV(zeroMean), 1))
}

func TestMeanStdDevEmpty(t *testing.T) {
	require.Equal(t, 0.0, Mean(nil))
	require.Equal(t, 0.0, StdDev(nil))
	require.Equal(t, 0.0, StdDev([]float64{7}))
}

func TestClamp(t *testing.T) {
	require.Equal(t, 0.0, Clamp(-5, 0, 1))
	require.Equal(t, 1.0, Clamp(5, 0, 1))
	require.Equal(t, 0.5, Clamp(0.5, 0, 1))
}

func TestSafePositive(t *testing.T) {
	require.Equal(t, 0.0, SafePositive(-1))
	require.Equal(t, 0.0, SafePositive(math.NaN()))
	require.Equal(t, 2.5, SafePositive(2.5))
}
