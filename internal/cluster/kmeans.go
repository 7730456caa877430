package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// KMeans is the centroid strategy: lloyd iterations from k-means++ seeds,
// repeated for a number of restarts, keeping the run with the lowest inertia.
// For the same seed and input the result is identical.
type KMeans struct {
	Restarts      int
	Tolerance     float64
	MaxIterations int
	Seed          uint64
}

// NewKMeans creates a new centroid strategy with 50 restarts.
func NewKMeans(seed uint64) *KMeans {
	return &KMeans{
		Restarts:      50,
		Tolerance:     1e-5,
		MaxIterations: 300,
		Seed:          seed,
	}
}

func (km *KMeans) Name() string {
	return KMeansName
}

func (km *KMeans) Fit(data *mat.Dense, k int) (Partition, error) {
	if err := check(data, k); err != nil {
		return Partition{}, err
	}
	result, err := km.cluster(points(data), k)
	if err != nil {
		return Partition{}, err
	}
	return NewPartition(km.Name(), k, result.labels)
}

type kmeansResult struct {
	labels     []int
	centers    [][]float64
	inertia    float64
	iterations int
}

func (km *KMeans) cluster(pts [][]float64, k int) (kmeansResult, error) {
	rng := rand.New(rand.NewPCG(km.Seed, km.Seed))
	// the tolerance is relative to the spread of the data
	tol := km.Tolerance * meanVariance(pts)
	restarts := km.Restarts
	if restarts < 1 {
		restarts = 1
	}
	best := kmeansResult{inertia: math.Inf(1)}
	for r := 0; r < restarts; r++ {
		result := lloyd(pts, seedCenters(pts, k, rng), tol, km.MaxIterations)
		if result.inertia < best.inertia {
			best = result
		}
	}
	if best.labels == nil {
		return best, fmt.Errorf("no finite inertia after %d restarts: %w", restarts, ErrStrategyFailed)
	}
	return best, nil
}

// seedCenters picks k initial centers with the k-means++ scheme,
// each next center drawn with probability proportional to its squared distance from the closest one.
func seedCenters(pts [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(pts)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(pts[rng.IntN(n)]))
	closest := make([]float64, n)
	for i, p := range pts {
		closest[i] = sqDist(p, centers[0])
	}
	for len(centers) < k {
		var total float64
		last := -1
		for i, d := range closest {
			total += d
			if d > 0 {
				last = i
			}
		}
		next := last
		if last < 0 {
			// all points coincide with a center
			next = rng.IntN(n)
		} else {
			target := rng.Float64() * total
			var acc float64
			for i, d := range closest {
				acc += d
				if acc > target {
					next = i
					break
				}
			}
		}
		c := clone(pts[next])
		centers = append(centers, c)
		for i, p := range pts {
			if d := sqDist(p, c); d < closest[i] {
				closest[i] = d
			}
		}
	}
	return centers
}

// lloyd alternates assignment and center updates until the centers move less than tol.
func lloyd(pts [][]float64, centers [][]float64, tol float64, maxIterations int) kmeansResult {
	k := len(centers)
	labels := make([]int, len(pts))
	iterations := 0
	for iterations < maxIterations {
		iterations++
		assign(pts, centers, labels)
		next := means(pts, labels, centers)
		var shift float64
		for c := 0; c < k; c++ {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if shift <= tol {
			break
		}
	}
	inertia := assign(pts, centers, labels)
	return kmeansResult{
		labels:     labels,
		centers:    centers,
		inertia:    inertia,
		iterations: iterations,
	}
}

// assign labels every point with its nearest center and returns the inertia.
func assign(pts [][]float64, centers [][]float64, labels []int) float64 {
	var inertia float64
	for i, p := range pts {
		best, bestDist := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
		inertia += bestDist
	}
	return inertia
}

// means computes the new centers.
// An empty cluster is re-seeded with the point farthest from its new center,
// which is then removed from the mean of the cluster it leaves.
func means(pts [][]float64, labels []int, centers [][]float64) [][]float64 {
	k, dim := len(centers), len(pts[0])
	next := make([][]float64, k)
	counts := make([]int, k)
	for c := range next {
		next[c] = make([]float64, dim)
	}
	for i, p := range pts {
		c := labels[i]
		counts[c]++
		for j, v := range p {
			next[c][j] += v
		}
	}
	for c := range next {
		if counts[c] == 0 {
			continue
		}
		for j := range next[c] {
			next[c][j] /= float64(counts[c])
		}
	}
	for c := range next {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, p := range pts {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := sqDist(p, next[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			next[c] = clone(centers[c])
			continue
		}
		donor := labels[far]
		m := float64(counts[donor])
		for j, v := range pts[far] {
			next[donor][j] = (m*next[donor][j] - v) / (m - 1)
		}
		counts[donor]--
		labels[far] = c
		counts[c] = 1
		next[c] = clone(pts[far])
	}
	return next
}

// meanVariance returns the average over the features of the population variance.
func meanVariance(pts [][]float64) float64 {
	dim := len(pts[0])
	col := make([]float64, len(pts))
	var total float64
	for j := 0; j < dim; j++ {
		for i, p := range pts {
			col[i] = p[j]
		}
		_, variance := stat.PopMeanVariance(col, nil)
		total += variance
	}
	return total / float64(dim)
}
