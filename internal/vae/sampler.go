package vae

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Reparameterize computes z = mu + exp(0.5 * logVar) * eps.
// All randomness lives in eps, so z is differentiable w.r.t. mu and logVar.
func Reparameterize(mu, logVar, eps *mat.Dense) *mat.Dense {
	r, c := mu.Dims()
	z := mat.NewDense(r, c, nil)
	z.Apply(func(i, j int, m float64) float64 {
		return m + math.Exp(0.5*logVar.At(i, j))*eps.At(i, j)
	}, mu)
	return z
}

// Sampler draws latent codes from the encoder distribution.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler creates a sampler on top of the given random source.
func NewSampler(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// Noise draws a fresh standard normal matrix of the given shape.
func (s *Sampler) Noise(rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = s.rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

// Sample draws z for the given distribution parameters.
// The noise is returned along with the sample, as backpropagation needs it.
func (s *Sampler) Sample(mu, logVar *mat.Dense) (z, eps *mat.Dense) {
	eps = s.Noise(mu.Dims())
	return Reparameterize(mu, logVar, eps), eps
}
