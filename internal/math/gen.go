package math

import (
	"math/rand/v2"

	"github.com/drakos74/go-ex-machina/xmath"
)

// Blobs generates isotropic gaussian blobs around the given centers.
// It returns the points together with the index of the center each point was drawn around.
func Blobs(centers [][]float64, perCenter int, std float64, seed uint64) ([][]float64, []int) {
	rng := rand.New(rand.NewPCG(seed, seed))
	points := make([][]float64, 0, len(centers)*perCenter)
	labels := make([]int, 0, len(centers)*perCenter)
	for c, center := range centers {
		for i := 0; i < perCenter; i++ {
			noise := xmath.Vec(len(center))
			for j := range noise {
				noise[j] = rng.NormFloat64() * std
			}
			points = append(points, xmath.Vec(len(center)).With(center...).Add(noise))
			labels = append(labels, c)
		}
	}
	// interleave the blobs, so that no consumer can rely on the row order
	rng.Shuffle(len(points), func(i, j int) {
		points[i], points[j] = points[j], points[i]
		labels[i], labels[j] = labels[j], labels[i]
	})
	return points, labels
}
