package cluster

import (
	"errors"
	"fmt"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

const (
	GaussianMixtureName = "gaussian_mixture"
	KMeansName          = "kmeans"
	AgglomerativeName   = "agglomerative"
	SpectralName        = "spectral"
)

var (
	ErrInvalidInput     = errors.New("invalid clustering input")
	ErrInvalidPartition = errors.New("invalid partition")
	ErrStrategyFailed   = errors.New("clustering strategy failed")
	ErrUnknownStrategy  = errors.New("unknown clustering strategy")
)

// Strategy partitions the rows of an encoded matrix into k clusters.
// Strategies share no mutable state, so they can run concurrently on the same matrix.
type Strategy interface {
	Name() string
	Fit(data *mat.Dense, k int) (Partition, error)
}

// DefaultStrategies returns the four strategies with their default settings.
func DefaultStrategies(seed uint64, workers int) []Strategy {
	return []Strategy{
		NewGaussianMixture(seed),
		NewKMeans(seed),
		NewAgglomerative(workers),
		NewSpectral(seed, workers),
	}
}

// Lookup returns the strategy with the given name.
func Lookup(name string, seed uint64, workers int) (Strategy, error) {
	for _, s := range DefaultStrategies(seed, workers) {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("'%s': %w", name, ErrUnknownStrategy)
}

// check validates the input of a fit.
func check(data *mat.Dense, k int) error {
	if data == nil || data.IsEmpty() {
		return fmt.Errorf("no rows to cluster: %w", ErrInvalidInput)
	}
	n, _ := data.Dims()
	if k < 2 || k > n-1 {
		return fmt.Errorf("cluster count %d must be in [2,%d]: %w", k, n-1, ErrInvalidInput)
	}
	return nil
}

// points copies the rows of the matrix.
func points(data mat.Matrix) [][]float64 {
	r, c := data.Dims()
	pts := make([][]float64, r)
	for i := range pts {
		pts[i] = make([]float64, c)
		mat.Row(pts[i], i, data)
	}
	return pts
}

func sqDist(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func clone(v []float64) []float64 {
	w := make([]float64, len(v))
	copy(w, v)
	return w
}

func workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
