package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestBlobs(t *testing.T) {
	centers := [][]float64{{0, 0}, {10, 10}, {-10, 10}}
	points, labels := Blobs(centers, 50, 0.5, 7)
	require.Len(t, points, 150)
	require.Len(t, labels, 150)

	counts := make(map[int]int)
	for i, p := range points {
		counts[labels[i]]++
		c := centers[labels[i]]
		assert.InDelta(t, c[0], p[0], 3)
		assert.InDelta(t, c[1], p[1], 3)
	}
	assert.Equal(t, map[int]int{0: 50, 1: 50, 2: 50}, counts)

	again, _ := Blobs(centers, 50, 0.5, 7)
	assert.Equal(t, points, again)
}

func TestStandardize(t *testing.T) {
	rows := [][]float64{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
		{4, 40, 5},
	}
	m, scaler, err := Standardize(rows)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 25, 5}, scaler.Mean)

	r, c := m.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)
	col := make([]float64, r)
	for j := 0; j < 2; j++ {
		mat.Col(col, j, m)
		var sum, sq float64
		for _, v := range col {
			sum += v
			sq += v * v
		}
		assert.InDelta(t, 0, sum, 1e-12)
		assert.InDelta(t, 1, sq/float64(r), 1e-12)
	}
	// constant column is centered only
	mat.Col(col, 2, m)
	assert.Equal(t, []float64{0, 0, 0, 0}, col)
}

func TestStandardize_Invalid(t *testing.T) {
	type test struct {
		rows [][]float64
	}

	tests := map[string]test{
		"no-rows":        {rows: [][]float64{}},
		"no-features":    {rows: [][]float64{{}, {}}},
		"first-empty":    {rows: [][]float64{{}, {1, 2}}},
		"inconsistent":   {rows: [][]float64{{1, 2}, {3}}},
		"wider-than-fit": {rows: [][]float64{{1}, {2, 3}}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m, _, err := Standardize(tt.rows)
			assert.Error(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestMatrix(t *testing.T) {
	type test struct {
		rows [][]float64
		err  bool
	}

	tests := map[string]test{
		"empty":        {rows: [][]float64{}, err: true},
		"inconsistent": {rows: [][]float64{{1, 2}, {3}}, err: true},
		"ok":           {rows: [][]float64{{1, 2}, {3, 4}}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := Matrix(tt.rows)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rows, Rows(m))
		})
	}
}
