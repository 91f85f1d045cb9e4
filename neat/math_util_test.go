package neat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatFunctions(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	require.Equal(t, 2.5, Mean(values))
	require.Equal(t, 10.0, Sum(values))
	require.Equal(t, 4.0, MaxFloat(values))
	require.Equal(t, 1.0, MinFloat(values))
	require.Equal(t, 2.5, Median(values))
	require.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	require.InDelta(t, 1.2909944487, Stdev(values), 1e-9)
}

func TestStatFunctionsEmptyInput(t *testing.T) {
	require.Equal(t, 0.0, Mean(nil))
	require.Equal(t, 0.0, Stdev([]float64{5}))
	require.Equal(t, 0.0, Sum(nil))
	require.True(t, math.IsInf(MaxFloat(nil), -1))
	require.True(t, math.IsInf(MinFloat(nil), 1))
	require.True(t, math.IsNaN(Median(nil)))
}

func TestStatFunctionsRegistry(t *testing.T) {
	for _, name := range []string{"mean", "stdev", "sum", "max", "min", "median"} {
		require.Contains(t, StatFunctions, name)
	}
}

func TestClamp(t *testing.T) {
	require.Equal(t, 1.0, clamp(5, -1, 1))
	require.Equal(t, -1.0, clamp(-5, -1, 1))
	require.Equal(t, 0.3, clamp(0.3, -1, 1))
}
