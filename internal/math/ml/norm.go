package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultMomentum is the decay of the running batch statistics.
	DefaultMomentum = 0.99
	// DefaultEpsilon keeps the normalisation away from a zero variance.
	DefaultEpsilon = 1e-3
)

// BatchNorm normalises each feature to zero mean and unit variance over the batch,
// followed by a learnable scale and shift.
// In training mode it uses the batch statistics and tracks a running average of them,
// at inference it uses the running averages.
type BatchNorm struct {
	dim      int
	momentum float64
	epsilon  float64
	Gamma    *Param
	Beta     *Param
	mean     []float64
	variance []float64
	// cached by a training pass for the backward pass
	xHat   *mat.Dense
	invStd []float64
}

// NewBatchNorm creates a new batch normalisation layer for the given feature width.
func NewBatchNorm(name string, dim int, momentum float64) *BatchNorm {
	gamma := make([]float64, dim)
	variance := make([]float64, dim)
	for i := range gamma {
		gamma[i] = 1
		variance[i] = 1
	}
	return &BatchNorm{
		dim:      dim,
		momentum: momentum,
		epsilon:  DefaultEpsilon,
		Gamma:    NewParam(fmt.Sprintf("%s/gamma", name), 1, dim, gamma),
		Beta:     NewParam(fmt.Sprintf("%s/beta", name), 1, dim, nil),
		mean:     make([]float64, dim),
		variance: variance,
	}
}

// Running returns a copy of the running mean and variance.
func (b *BatchNorm) Running() (mean, variance []float64) {
	mean = make([]float64, b.dim)
	variance = make([]float64, b.dim)
	copy(mean, b.mean)
	copy(variance, b.variance)
	return mean, variance
}

func (b *BatchNorm) Forward(x *mat.Dense, train bool) *mat.Dense {
	r, c := x.Dims()
	if c != b.dim {
		panic(fmt.Sprintf("batch-norm: input width %d does not match layer width %d", c, b.dim))
	}
	xHat := mat.NewDense(r, c, nil)
	invStd := make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mean, variance := b.mean[j], b.variance[j]
		if train {
			mat.Col(col, j, x)
			mean, variance = stat.PopMeanVariance(col, nil)
			b.mean[j] = b.momentum*b.mean[j] + (1-b.momentum)*mean
			b.variance[j] = b.momentum*b.variance[j] + (1-b.momentum)*variance
		}
		invStd[j] = 1 / math.Sqrt(variance+b.epsilon)
		for i := 0; i < r; i++ {
			xHat.Set(i, j, (x.At(i, j)-mean)*invStd[j])
		}
	}
	if train {
		b.xHat, b.invStd = xHat, invStd
	}

	gamma := b.Gamma.Value.RawRowView(0)
	beta := b.Beta.Value.RawRowView(0)
	y := mat.NewDense(r, c, nil)
	y.Apply(func(i, j int, v float64) float64 {
		return gamma[j]*v + beta[j]
	}, xHat)
	return y
}

func (b *BatchNorm) Backward(grad *mat.Dense) *mat.Dense {
	r, c := grad.Dims()
	gamma := b.Gamma.Value.RawRowView(0)
	gGamma := b.Gamma.Grad.RawRowView(0)
	gBeta := b.Beta.Grad.RawRowView(0)

	dx := mat.NewDense(r, c, nil)
	m := float64(r)
	for j := 0; j < c; j++ {
		var sumDy, sumDyXHat float64
		for i := 0; i < r; i++ {
			dy := grad.At(i, j)
			sumDy += dy
			sumDyXHat += dy * b.xHat.At(i, j)
		}
		gBeta[j] += sumDy
		gGamma[j] += sumDyXHat

		scale := gamma[j] * b.invStd[j]
		for i := 0; i < r; i++ {
			dy := grad.At(i, j)
			xh := b.xHat.At(i, j)
			dx.Set(i, j, scale*(dy-sumDy/m-xh*sumDyXHat/m))
		}
	}
	return dx
}

func (b *BatchNorm) Params() []*Param {
	return []*Param{b.Gamma, b.Beta}
}
