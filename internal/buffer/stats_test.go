package buffer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Push(t *testing.T) {

	l := 1001

	type test struct {
		transform func(i int) float64
		avg       float64
		count     int
		min, max  float64
		stDev     float64
		variance  float64
		sum       float64
	}

	tests := map[string]test{
		"monotonically-increasing-+": {
			transform: func(i int) float64 {
				return float64(i)
			},
			avg:      float64(l / 2),
			count:    l,
			sum:      float64(l) * 500,
			min:      0,
			max:      float64(l - 1),
			stDev:    289,
			variance: 83500,
		},
		"monotonically-increasing-0": {
			transform: func(i int) float64 {
				return float64(-1*l/2) + float64(i)
			},
			avg:   0,
			count: l,
			sum:   0,
			min:   -500,
			max:   500,
			// NOTE : these are the same as the one above
			stDev:    289,
			variance: 83500,
		},
		"monotonically-decreasing--": {
			transform: func(i int) float64 {
				return -1 * float64(i)
			},
			avg:      -1 * float64(l/2),
			count:    l,
			sum:      -1 * float64(l) * 500,
			min:      -1000,
			max:      0,
			stDev:    289,
			variance: 83500,
		},
		"abs-+": {
			transform: func(i int) float64 {
				return math.Abs(-1*float64(l/2) + float64(i))
			},
			avg:   float64(l / 4),
			count: l,
			sum:   250500,
			min:   0,
			max:   500,
			// NOTE : these are half of the monotonical case
			stDev:    289 / 2,
			variance: 83500 / 4,
		},
		"all-negative": {
			transform: func(i int) float64 {
				return -10 - float64(i%2)
			},
			avg:      -11,
			count:    l,
			sum:      -10511,
			min:      -11,
			max:      -10,
			stDev:    0,
			variance: 0,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			stats := NewStats()
			for i := 0; i < l; i++ {
				v := tt.transform(i)
				stats.Push(v)
			}
			assert.Equal(t, tt.avg, math.Round(stats.Avg()))
			assert.Equal(t, tt.count, stats.Count())
			assert.Equal(t, tt.sum, math.Round(stats.Sum()))
			assert.Equal(t, tt.min, stats.Min())
			assert.Equal(t, tt.max, stats.Max())
			assert.Equal(t, tt.stDev, math.Round(stats.StDev()))
			assert.Equal(t, tt.variance, math.Round(stats.Variance()))
		})
	}
}

func TestStats_Empty(t *testing.T) {
	stats := NewStats()
	assert.Equal(t, 0.0, stats.Variance())
	assert.Equal(t, 0.0, stats.SampleVariance())
	assert.Equal(t, Summary{}, stats.Summary())

	stats.Push(3)
	assert.Equal(t, Summary{Count: 1, Mean: 3, Min: 3, Max: 3}, stats.Summary())
}

func TestStatsCollector(t *testing.T) {
	sc := NewStatsCollector(2)
	sc.Push(1, 10)
	sc.Push(3, 30)
	assert.Equal(t, 2, sc.Size())

	summary := sc.Summary()
	require.Len(t, summary, 2)
	assert.Equal(t, Summary{Count: 2, Mean: 2, StDev: 1, Min: 1, Max: 3}, summary[0])
	assert.Equal(t, Summary{Count: 2, Mean: 20, StDev: 10, Min: 10, Max: 30}, summary[1])

	assert.Panics(t, func() {
		sc.Push(1)
	})
}

func TestGroups(t *testing.T) {
	g := NewGroups(1)
	g.Push(2, 1)
	g.Push(0, 5)
	g.Push(2, 3)

	assert.Equal(t, []int{0, 2}, g.Keys())

	sc, ok := g.Get(2)
	require.True(t, ok)
	assert.Equal(t, 2, sc.Size())
	assert.Equal(t, 2.0, sc.Stats()[0].Avg())

	_, ok = g.Get(1)
	assert.False(t, ok)
}
