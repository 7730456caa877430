package vae

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Loss is the training objective of a batch, split into its components.
type Loss struct {
	Total          float64 `json:"total"`
	Reconstruction float64 `json:"reconstruction"`
	Divergence     float64 `json:"divergence"`
	Penalty        float64 `json:"penalty"`
}

// Finite reports whether the total loss is a finite number.
func (l Loss) Finite() bool {
	return !math.IsNaN(l.Total) && !math.IsInf(l.Total, 0)
}

// Reconstruction is the mean squared error over the features multiplied by the number of features,
// i.e. the sum of squared errors.
func Reconstruction(x, xHat []float64) float64 {
	var sse float64
	for j := range x {
		d := xHat[j] - x[j]
		sse += d * d
	}
	return float64(len(x)) * (sse / float64(len(x)))
}

// Divergence is the kl divergence of N(mu, exp(logVar)) from the standard normal prior.
func Divergence(mu, logVar []float64) float64 {
	var s float64
	for i := range mu {
		s += 1 + logVar[i] - mu[i]*mu[i] - math.Exp(logVar[i])
	}
	return -0.5 * s
}

// Compose averages reconstruction and divergence over the batch rows.
func Compose(x, xHat, mu, logVar *mat.Dense) Loss {
	r, _ := x.Dims()
	var loss Loss
	for i := 0; i < r; i++ {
		loss.Reconstruction += Reconstruction(x.RawRowView(i), xHat.RawRowView(i))
		loss.Divergence += Divergence(mu.RawRowView(i), logVar.RawRowView(i))
	}
	n := float64(r)
	loss.Reconstruction /= n
	loss.Divergence /= n
	loss.Total = loss.Reconstruction + loss.Divergence
	return loss
}

// gradients returns the derivatives of the batch loss w.r.t. the reconstruction
// and the divergence w.r.t. the latent mean and log-variance.
func gradients(x, xHat, mu, logVar *mat.Dense) (gXHat, gMu, gLogVar *mat.Dense) {
	r, c := x.Dims()
	n := float64(r)
	gXHat = mat.NewDense(r, c, nil)
	gXHat.Apply(func(i, j int, v float64) float64 {
		return 2 * (v - x.At(i, j)) / n
	}, xHat)

	lr, lc := mu.Dims()
	gMu = mat.NewDense(lr, lc, nil)
	gMu.Scale(1/n, mu)
	gLogVar = mat.NewDense(lr, lc, nil)
	gLogVar.Apply(func(i, j int, v float64) float64 {
		return 0.5 * (math.Exp(v) - 1) / n
	}, logVar)
	return gXHat, gMu, gLogVar
}

// reparameterizeBackward chains the gradient w.r.t. z through the sampling step.
func reparameterizeBackward(gz, logVar, eps *mat.Dense) (gMu, gLogVar *mat.Dense) {
	r, c := gz.Dims()
	gMu = mat.NewDense(r, c, nil)
	gMu.Copy(gz)
	gLogVar = mat.NewDense(r, c, nil)
	gLogVar.Apply(func(i, j int, g float64) float64 {
		return g * 0.5 * math.Exp(0.5*logVar.At(i, j)) * eps.At(i, j)
	}, gz)
	return gMu, gLogVar
}
