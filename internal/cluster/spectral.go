package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// DefaultDenseRows is the largest row count the laplacian is decomposed densely for.
const DefaultDenseRows = 2000

// Spectral is the graph-spectral strategy.
// Rows are embedded through the eigenvectors of the normalized laplacian
// of their nearest neighbour affinity graph, and the embedding is clustered with k-means.
type Spectral struct {
	Neighbors int
	Restarts  int
	Seed      uint64
	Workers   int
	// DenseRows bounds the full eigen decomposition, larger inputs use subspace iteration
	// on the sparse laplacian.
	DenseRows int
	// MaxIterations and Tolerance bound the subspace iteration.
	MaxIterations int
	Tolerance     float64
}

// NewSpectral creates a new spectral strategy over a 10 nearest neighbour graph.
func NewSpectral(seed uint64, workers int) *Spectral {
	return &Spectral{
		Neighbors:     10,
		Restarts:      10,
		Seed:          seed,
		Workers:       workers,
		DenseRows:     DefaultDenseRows,
		MaxIterations: 1000,
		Tolerance:     1e-10,
	}
}

func (s *Spectral) Name() string {
	return SpectralName
}

func (s *Spectral) Fit(data *mat.Dense, k int) (Partition, error) {
	if err := check(data, k); err != nil {
		return Partition{}, err
	}
	embedding, err := s.embed(points(data), k)
	if err != nil {
		return Partition{}, err
	}
	km := &KMeans{
		Restarts:      s.Restarts,
		Tolerance:     1e-5,
		MaxIterations: 300,
		Seed:          s.Seed,
	}
	result, err := km.cluster(embedding, k)
	if err != nil {
		return Partition{}, err
	}
	return NewPartition(s.Name(), k, result.labels)
}

type arc struct {
	to     int
	weight float64
}

// affinity is the normalized affinity D^-1/2 A D^-1/2 of a neighbour graph, kept as adjacency lists.
type affinity struct {
	arcs [][]arc
	// root holds the square root of every degree.
	root []float64
}

func newAffinity(g *simple.WeightedUndirectedGraph, n int) (*affinity, error) {
	arcs := make([][]arc, n)
	edges := g.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		u, v := int(e.From().ID()), int(e.To().ID())
		arcs[u] = append(arcs[u], arc{to: v, weight: e.Weight()})
		arcs[v] = append(arcs[v], arc{to: u, weight: e.Weight()})
	}
	root := make([]float64, n)
	for i, aa := range arcs {
		sort.Slice(aa, func(a, b int) bool { return aa[a].to < aa[b].to })
		var degree float64
		for _, a := range aa {
			degree += a.weight
		}
		if degree == 0 {
			return nil, fmt.Errorf("row %d is isolated in the affinity graph: %w", i, ErrStrategyFailed)
		}
		root[i] = math.Sqrt(degree)
	}
	for i, aa := range arcs {
		for j := range aa {
			aa[j].weight /= root[i] * root[aa[j].to]
		}
	}
	return &affinity{arcs: arcs, root: root}, nil
}

// shiftedMul writes (I + D^-1/2 A D^-1/2)·x into dst.
// Its spectrum is 2 minus the spectrum of the normalized laplacian, in [0,2].
func (a *affinity) shiftedMul(dst, x []float64) {
	for i, aa := range a.arcs {
		v := x[i]
		for _, e := range aa {
			v += e.weight * x[e.to]
		}
		dst[i] = v
	}
}

// embed returns the spectral embedding of the rows in k dimensions.
func (s *Spectral) embed(pts [][]float64, k int) ([][]float64, error) {
	n := len(pts)
	g := knnGraph(pts, s.Neighbors, workers(s.Workers))
	a, err := newAffinity(g, n)
	if err != nil {
		return nil, err
	}

	var vectors [][]float64
	if n <= s.DenseRows {
		vectors, err = a.smallestDense(k)
	} else {
		vectors, err = a.smallestIterative(k, s.MaxIterations, s.Tolerance, s.Seed)
	}
	if err != nil {
		return nil, err
	}

	embedding := make([][]float64, n)
	for i := range embedding {
		embedding[i] = make([]float64, k)
	}
	for c, v := range vectors {
		sign, peak := 1.0, 0.0
		for _, x := range v {
			if math.Abs(x) > peak {
				peak = math.Abs(x)
				sign = math.Copysign(1, x)
			}
		}
		for i, x := range v {
			embedding[i][c] = sign * x / a.root[i]
		}
	}
	return embedding, nil
}

// smallestDense returns the k eigenvectors of the laplacian with the smallest eigenvalues
// through a full decomposition.
func (a *affinity) smallestDense(k int) ([][]float64, error) {
	n := len(a.arcs)
	// L = I - D^-1/2 A D^-1/2
	laplacian := mat.NewSymDense(n, nil)
	for i, aa := range a.arcs {
		laplacian.SetSym(i, i, 1)
		for _, e := range aa {
			laplacian.SetSym(i, e.to, -e.weight)
		}
	}
	var eigen mat.EigenSym
	if ok := eigen.Factorize(laplacian, true); !ok {
		return nil, fmt.Errorf("eigen decomposition of the laplacian did not converge: %w", ErrStrategyFailed)
	}
	var q mat.Dense
	eigen.VectorsTo(&q)

	// eigenvalues come in ascending order, the first k columns are the smoothest
	vectors := make([][]float64, k)
	for c := range vectors {
		vectors[c] = mat.Col(nil, c, &q)
	}
	return vectors, nil
}

// smallestIterative returns the k eigenvectors of the laplacian with the smallest eigenvalues
// through subspace iteration on the shifted affinity, with a Rayleigh-Ritz step per iteration.
// Memory stays linear in the rows.
func (a *affinity) smallestIterative(k, maxIterations int, tol float64, seed uint64) ([][]float64, error) {
	n := len(a.arcs)
	// extra columns speed up the convergence of the k wanted ones
	p := min(2*k+2, n)
	rng := rand.New(rand.NewPCG(seed, seed))
	basis := make([][]float64, p)
	for c := range basis {
		basis[c] = make([]float64, n)
		for i := range basis[c] {
			basis[c][i] = rng.NormFloat64()
		}
	}
	if err := orthonormalize(basis); err != nil {
		return nil, err
	}

	image := make([][]float64, p)
	for c := range image {
		image[c] = make([]float64, n)
	}
	values := make([]float64, p)
	previous := make([]float64, p)
	var ritz [][]float64
	for it := 0; it < maxIterations; it++ {
		for c := range basis {
			a.shiftedMul(image[c], basis[c])
		}
		// rayleigh-ritz on the projected operator
		h := mat.NewSymDense(p, nil)
		for i := 0; i < p; i++ {
			for j := i; j < p; j++ {
				h.SetSym(i, j, floats.Dot(basis[i], image[j]))
			}
		}
		var eigen mat.EigenSym
		if ok := eigen.Factorize(h, true); !ok {
			return nil, fmt.Errorf("projected eigen decomposition did not converge: %w", ErrStrategyFailed)
		}
		eigen.Values(values)
		var u mat.Dense
		eigen.VectorsTo(&u)

		// the largest shifted values are the smallest laplacian ones
		ritz = make([][]float64, p)
		for c := 0; c < p; c++ {
			col := p - 1 - c
			ritz[c] = make([]float64, n)
			for j := 0; j < p; j++ {
				floats.AddScaled(ritz[c], u.At(j, col), image[j])
			}
		}

		var shift float64
		for c := 0; c < k; c++ {
			shift = math.Max(shift, math.Abs(values[p-1-c]-previous[p-1-c]))
		}
		copy(previous, values)
		basis = ritz
		if err := orthonormalize(basis); err != nil {
			return nil, err
		}
		if it > 0 && shift < tol {
			break
		}
	}
	return basis[:k], nil
}

// orthonormalize applies modified gram-schmidt to the vectors in place.
func orthonormalize(vv [][]float64) error {
	for c := range vv {
		for prev := 0; prev < c; prev++ {
			floats.AddScaled(vv[c], -floats.Dot(vv[prev], vv[c]), vv[prev])
		}
		norm := floats.Norm(vv[c], 2)
		if norm == 0 || math.IsNaN(norm) {
			return fmt.Errorf("subspace basis collapsed at column %d: %w", c, ErrStrategyFailed)
		}
		floats.Scale(1/norm, vv[c])
	}
	return nil
}
