package cluster

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// epsilon is the float64 machine epsilon, keeping empty components away from a zero weight.
const epsilon = 2.220446049250313e-16

// GaussianMixture is the mixture-model strategy: a full covariance gaussian mixture
// fitted by expectation-maximisation, restarted from k-means initialisations.
// Every row is assigned to its most probable component.
type GaussianMixture struct {
	Restarts       int
	Tolerance      float64
	MaxIterations  int
	Regularization float64
	Seed           uint64
}

// NewGaussianMixture creates a new mixture-model strategy with 10 restarts.
func NewGaussianMixture(seed uint64) *GaussianMixture {
	return &GaussianMixture{
		Restarts:       10,
		Tolerance:      1e-4,
		MaxIterations:  100,
		Regularization: 1e-6,
		Seed:           seed,
	}
}

func (g *GaussianMixture) Name() string {
	return GaussianMixtureName
}

type mixture struct {
	weights    []float64
	components []*distmv.Normal
	bound      float64
	converged  bool
	iterations int
	labels     []int
}

func (g *GaussianMixture) Fit(data *mat.Dense, k int) (Partition, error) {
	if err := check(data, k); err != nil {
		return Partition{}, err
	}
	pts := points(data)

	restarts := g.Restarts
	if restarts < 1 {
		restarts = 1
	}
	var best *mixture
	var lastErr error
	for r := 0; r < restarts; r++ {
		init := &KMeans{
			Restarts:      1,
			Tolerance:     g.Tolerance,
			MaxIterations: 300,
			Seed:          g.Seed + uint64(r),
		}
		start, err := init.cluster(pts, k)
		if err != nil {
			lastErr = err
			continue
		}
		m, err := g.em(pts, k, start.labels)
		if err != nil {
			log.Debug().Err(err).Int("restart", r).Msg("discarding mixture restart")
			lastErr = err
			continue
		}
		if best == nil || m.bound > best.bound {
			best = &m
		}
	}
	if best == nil {
		return Partition{}, fmt.Errorf("no valid mixture after %d restarts: %v: %w", restarts, lastErr, ErrStrategyFailed)
	}
	if !best.converged {
		log.Warn().
			Int("iterations", best.iterations).
			Float64("bound", best.bound).
			Msg("gaussian mixture did not converge")
	}
	return NewPartition(g.Name(), k, best.labels)
}

// em runs expectation-maximisation starting from hard initial labels.
func (g *GaussianMixture) em(pts [][]float64, k int, labels []int) (mixture, error) {
	resp := make([][]float64, len(pts))
	for i := range resp {
		resp[i] = make([]float64, k)
		resp[i][labels[i]] = 1
	}
	m, err := g.maximize(pts, resp, k)
	if err != nil {
		return m, err
	}
	prev := math.Inf(-1)
	var converged bool
	var iterations int
	for iterations < g.MaxIterations {
		iterations++
		bound := expect(pts, m, resp)
		m, err = g.maximize(pts, resp, k)
		if err != nil {
			return m, err
		}
		if math.Abs(bound-prev) < g.Tolerance {
			converged = true
			break
		}
		prev = bound
	}
	m.converged, m.iterations = converged, iterations
	// final expectation, so that the labels agree with the last parameters
	m.bound = expect(pts, m, resp)
	if math.IsNaN(m.bound) || math.IsInf(m.bound, 0) {
		return m, fmt.Errorf("non-finite likelihood bound: %w", ErrStrategyFailed)
	}
	m.labels = make([]int, len(pts))
	for i, r := range resp {
		m.labels[i] = floats.MaxIdx(r)
	}
	return m, nil
}

// maximize estimates weights, means and covariances from the responsibilities.
func (g *GaussianMixture) maximize(pts [][]float64, resp [][]float64, k int) (mixture, error) {
	n, dim := len(pts), len(pts[0])
	m := mixture{
		weights:    make([]float64, k),
		components: make([]*distmv.Normal, k),
	}
	for c := 0; c < k; c++ {
		nk := 10 * epsilon
		mean := make([]float64, dim)
		for i, p := range pts {
			nk += resp[i][c]
			floats.AddScaled(mean, resp[i][c], p)
		}
		floats.Scale(1/nk, mean)

		cov := mat.NewSymDense(dim, nil)
		diff := make([]float64, dim)
		for i, p := range pts {
			w := resp[i][c]
			if w == 0 {
				continue
			}
			floats.SubTo(diff, p, mean)
			for a := 0; a < dim; a++ {
				for b := a; b < dim; b++ {
					cov.SetSym(a, b, cov.At(a, b)+w*diff[a]*diff[b])
				}
			}
		}
		for a := 0; a < dim; a++ {
			for b := a; b < dim; b++ {
				v := cov.At(a, b) / nk
				if a == b {
					v += g.Regularization
				}
				cov.SetSym(a, b, v)
			}
		}

		normal, ok := distmv.NewNormal(mean, cov, nil)
		if !ok {
			return m, fmt.Errorf("covariance of component %d is not positive definite: %w", c, ErrStrategyFailed)
		}
		m.components[c] = normal
		m.weights[c] = nk / float64(n)
	}
	return m, nil
}

// expect updates the responsibilities in place and returns the mean log-likelihood.
func expect(pts [][]float64, m mixture, resp [][]float64) float64 {
	k := len(m.components)
	logProb := make([]float64, k)
	var total float64
	for i, p := range pts {
		for c, component := range m.components {
			logProb[c] = math.Log(m.weights[c]) + component.LogProb(p)
		}
		norm := floats.LogSumExp(logProb)
		for c := 0; c < k; c++ {
			resp[i][c] = math.Exp(logProb[c] - norm)
		}
		total += norm
	}
	return total / float64(len(pts))
}
