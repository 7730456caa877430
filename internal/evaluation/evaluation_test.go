package evaluation

import (
	"errors"
	"testing"

	"github.com/drakos74/go-ex-machina/xmath"
	"github.com/drakos74/latent-cluster/internal/cluster"
	coinmath "github.com/drakos74/latent-cluster/internal/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func partition(t *testing.T, k int, labels ...int) cluster.Partition {
	p, err := cluster.NewPartition("test", k, labels)
	require.NoError(t, err)
	return p
}

func TestEvaluate(t *testing.T) {
	type test struct {
		data   []float64
		labels []int
		report Report
	}

	tests := map[string]test{
		"two-pairs": {
			data:   []float64{0, 1, 10, 11},
			labels: []int{0, 0, 1, 1},
			report: Report{
				Algorithm:        "test",
				Clusters:         2,
				Silhouette:       (9.5/10.5 + 8.5/9.5) / 2,
				CalinskiHarabasz: 200,
				DaviesBouldin:    0.1,
			},
		},
		"zero-dispersion": {
			data:   []float64{0, 0, 5, 5},
			labels: []int{1, 1, 0, 0},
			report: Report{
				Algorithm:        "test",
				Clusters:         2,
				Silhouette:       1,
				CalinskiHarabasz: 1,
				DaviesBouldin:    0,
			},
		},
		"singleton": {
			data:   []float64{0, 1, 10},
			labels: []int{0, 0, 1},
			report: Report{
				Algorithm:        "test",
				Clusters:         2,
				Silhouette:       (9.0/10 + 8.0/9) / 3,
				CalinskiHarabasz: (2*361.0/36 + 361.0/9) / 0.5,
				DaviesBouldin:    0.5 / 9.5,
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			data := mat.NewDense(len(tt.data), 1, tt.data)
			p := partition(t, 3, tt.labels...)
			report, err := Evaluate(data, p)
			require.NoError(t, err)
			assert.Equal(t, tt.report.Algorithm, report.Algorithm)
			assert.Equal(t, tt.report.Clusters, report.Clusters)
			assert.InDelta(t, tt.report.Silhouette, report.Silhouette, 1e-9)
			assert.InDelta(t, tt.report.CalinskiHarabasz, report.CalinskiHarabasz, 1e-9)
			assert.InDelta(t, tt.report.DaviesBouldin, report.DaviesBouldin, 1e-9)
			// the partition is left untouched
			assert.Equal(t, tt.labels, p.Labels())
		})
	}
}

func TestEvaluate_Degenerate(t *testing.T) {
	type test struct {
		data *mat.Dense
		p    cluster.Partition
	}

	data := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	tests := map[string]test{
		"one-cluster": {
			data: data,
			p:    partition(t, 2, 1, 1, 1, 1),
		},
		"cluster-per-row": {
			data: data,
			p:    partition(t, 4, 0, 1, 2, 3),
		},
		"row-mismatch": {
			data: data,
			p:    partition(t, 2, 0, 1, 1),
		},
		"no-rows": {
			data: &mat.Dense{},
			p:    partition(t, 2, 0, 1),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Evaluate(tt.data, tt.p)
			assert.True(t, errors.Is(err, ErrDegeneratePartition))
			_, err = Silhouette(tt.data, tt.p)
			assert.True(t, errors.Is(err, ErrDegeneratePartition))
			_, err = CalinskiHarabasz(tt.data, tt.p)
			assert.True(t, errors.Is(err, ErrDegeneratePartition))
			_, err = DaviesBouldin(tt.data, tt.p)
			assert.True(t, errors.Is(err, ErrDegeneratePartition))
		})
	}
}

func TestSilhouette_Separated(t *testing.T) {
	points, labels := coinmath.Blobs([][]float64{{0, 0, 0}, {20, 20, 20}}, 100, 0.5, 5)
	data, err := coinmath.Matrix(points)
	require.NoError(t, err)

	s, err := Silhouette(data, partition(t, 2, labels...))
	require.NoError(t, err)
	assert.Greater(t, s, 0.9)

	// a wrong partition scores much lower
	swapped := make([]int, len(labels))
	for i := range labels {
		swapped[i] = labels[i]
		if i%2 == 0 {
			swapped[i] = 1 - labels[i]
		}
	}
	w, err := Silhouette(data, partition(t, 2, swapped...))
	require.NoError(t, err)
	assert.Less(t, w, 0.1)

	ch, err := CalinskiHarabasz(data, partition(t, 2, labels...))
	require.NoError(t, err)
	db, err := DaviesBouldin(data, partition(t, 2, labels...))
	require.NoError(t, err)
	assert.Greater(t, ch, 100.0)
	assert.Less(t, db, 0.2)
}

func TestReport_Scores(t *testing.T) {
	r := Report{Silhouette: 0.5, CalinskiHarabasz: 10, DaviesBouldin: 0.3}
	assert.Equal(t, map[string]float64{
		SilhouetteName:       0.5,
		CalinskiHarabaszName: 10,
		DaviesBouldinName:    0.3,
	}, r.Scores())
}

func TestDistance(t *testing.T) {
	v := xmath.Vec(3).With(1, 2, 3)
	w := xmath.Vec(3).With(4, 6, 3)
	assert.Equal(t, 5.0, distance(v, w))
	assert.Equal(t, 0.0, distance(v, v))
	allocs := testing.AllocsPerRun(100, func() {
		distance(v, w)
	})
	assert.Zero(t, allocs)
}
