package vae

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestDivergence(t *testing.T) {
	type test struct {
		mu     []float64
		logVar []float64
		zero   bool
	}

	tests := map[string]test{
		"prior-1":      {mu: []float64{0}, logVar: []float64{0}, zero: true},
		"prior-2":      {mu: []float64{0, 0}, logVar: []float64{0, 0}, zero: true},
		"prior-16":     {mu: make([]float64, 16), logVar: make([]float64, 16), zero: true},
		"shifted-mean": {mu: []float64{0.1, 0}, logVar: []float64{0, 0}},
		"negative":     {mu: []float64{0, -3}, logVar: []float64{0, 0}},
		"narrow":       {mu: []float64{0, 0}, logVar: []float64{-0.5, 0}},
		"wide":         {mu: []float64{0, 0}, logVar: []float64{0, 2}},
		"both":         {mu: []float64{1, -1}, logVar: []float64{1, -1}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			kl := Divergence(tt.mu, tt.logVar)
			if tt.zero {
				assert.Equal(t, 0.0, kl)
				return
			}
			assert.Greater(t, kl, 0.0)
		})
	}
}

func TestDivergence_Closed(t *testing.T) {
	// for a single dimension 0.5 * (mu^2 + s^2 - 1 - log s^2)
	mu, logVar := 1.5, math.Log(0.25)
	expected := 0.5 * (mu*mu + 0.25 - 1 - logVar)
	assert.InDelta(t, expected, Divergence([]float64{mu}, []float64{logVar}), 1e-12)
}

func TestReconstruction(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	xHat := []float64{1, 1, 3, 6}
	// mse = (0 + 1 + 0 + 4) / 4, scaled by the 4 features
	assert.InDelta(t, 5.0, Reconstruction(x, xHat), 1e-12)
	assert.Equal(t, 0.0, Reconstruction(x, x))
}

func TestCompose_PermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	random := func(r, c int) *mat.Dense {
		data := make([]float64, r*c)
		for i := range data {
			data[i] = rng.NormFloat64()
		}
		return mat.NewDense(r, c, data)
	}
	x, xHat := random(16, 5), random(16, 5)
	mu, logVar := random(16, 2), random(16, 2)

	loss := Compose(x, xHat, mu, logVar)

	perm := rng.Perm(16)
	permuted := Compose(gather(x, perm), gather(xHat, perm), gather(mu, perm), gather(logVar, perm))
	assert.InDelta(t, loss.Reconstruction, permuted.Reconstruction, 1e-12)
	assert.InDelta(t, loss.Divergence, permuted.Divergence, 1e-12)
	assert.InDelta(t, loss.Total, permuted.Total, 1e-12)
	assert.InDelta(t, loss.Reconstruction+loss.Divergence, loss.Total, 1e-12)
}

func TestReparameterize(t *testing.T) {
	mu := mat.NewDense(2, 2, []float64{0, 1, -2, 3})
	logVar := mat.NewDense(2, 2, []float64{0, math.Log(4), math.Log(0.25), -1})
	eps := mat.NewDense(2, 2, []float64{1, -1, 2, 0.5})

	z := Reparameterize(mu, logVar, eps)
	expected := mat.NewDense(2, 2, []float64{
		0 + 1*1, 1 + 2*-1,
		-2 + 0.5*2, 3 + math.Exp(-0.5)*0.5,
	})
	assert.True(t, mat.EqualApprox(expected, z, 1e-12))

	// same inputs, same output
	assert.True(t, mat.Equal(z, Reparameterize(mu, logVar, eps)))
}

func TestSampler_FreshNoise(t *testing.T) {
	s := NewSampler(rand.New(rand.NewPCG(1, 1)))
	mu := mat.NewDense(3, 2, nil)
	logVar := mat.NewDense(3, 2, nil)

	z1, eps1 := s.Sample(mu, logVar)
	z2, eps2 := s.Sample(mu, logVar)
	assert.False(t, mat.Equal(eps1, eps2))
	// with a standard normal distribution the sample is the noise itself
	assert.True(t, mat.Equal(z1, eps1))
	assert.True(t, mat.Equal(z2, eps2))
}
