package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_SingleSample(t *testing.T) {
	acc := NewAccumulator()
	acc.Push(42.5)

	assert.Equal(t, 1, acc.Count())
	assert.Equal(t, 42.5, acc.Min())
	assert.Equal(t, 42.5, acc.Max())
	assert.Equal(t, 42.5, acc.Mean())
	assert.Equal(t, 0.0, acc.StdDev())
	assert.Equal(t, 0.0, acc.RelStdDev())
}

func TestAccumulator_KnownDistribution(t *testing.T) {
	acc := NewAccumulator()

	// Population of 2, 4, 4, 4, 5, 5, 7, 9: mean 5, stddev 2.
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		acc.Push(v)
	}

	assert.Equal(t, 8, acc.Count())
	assert.Equal(t, 2.0, acc.Min())
	assert.Equal(t, 9.0, acc.Max())
	assert.InDelta(t, 5.0, acc.Mean(), 1e-9)
	assert.InDelta(t, 2.0, acc.StdDev(), 1e-9)
	assert.InDelta(t, 0.4, acc.RelStdDev(), 1e-9)
}

func TestAccumulator_IdenticalSamples(t *testing.T) {
	acc := NewAccumulator()

	for i := 0; i < 5; i++ {
		acc.Push(10)
	}

	assert.Equal(t, 10.0, acc.Min())
	assert.Equal(t, 10.0, acc.Max())
	assert.Equal(t, 10.0, acc.Mean())
	assert.Equal(t, 0.0, acc.StdDev())
	assert.Equal(t, 0.0, acc.RelStdDev())
}

func TestAccumulator_ZeroMean(t *testing.T) {
	acc := NewAccumulator()
	acc.Push(0)
	acc.Push(0)
	acc.Push(0)

	require.Equal(t, 0.0, acc.Mean())
	assert.NotPanics(t, func() {
		assert.Equal(t, 0.0, acc.RelStdDev())
	})
}

func TestAccumulator_Ordering(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
	}{
		{name: "ascending", samples: []float64{1, 2, 3, 4, 5}},
		{name: "descending", samples: []float64{9.5, 3.2, 1.1}},
		{name: "mixed", samples: []float64{100, 0.5, 42, 17, 0.5, 88}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator()
			for _, v := range tt.samples {
				acc.Push(v)
			}

			assert.LessOrEqual(t, acc.Min(), acc.Mean())
			assert.LessOrEqual(t, acc.Mean(), acc.Max())
			assert.GreaterOrEqual(t, acc.StdDev(), 0.0)
			assert.Equal(t, len(tt.samples), acc.Count())
		})
	}
}
