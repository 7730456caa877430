package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Param is a learnable tensor together with its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// NewParam creates a new param of the given shape.
// data may be nil, in which case the value is zero-initialised.
func NewParam(name string, rows, cols int, data []float64) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, data),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// ZeroGrad resets the accumulated gradient.
func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// Size returns the number of scalar values held by the param.
func (p *Param) Size() int {
	r, c := p.Value.Dims()
	return r * c
}

// SquaredNorm returns the sum of the squared values of the param.
func (p *Param) SquaredNorm() float64 {
	data := p.Value.RawMatrix().Data
	return floats.Dot(data, data)
}

// ZeroGrads resets the gradients of all the given params.
func ZeroGrads(params []*Param) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// glorot returns a glorot-uniform initialised weight slice for a fan-in / fan-out pair.
func glorot(in, out int, uniform func() float64) []float64 {
	limit := math.Sqrt(6.0 / float64(in+out))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = (uniform()*2 - 1) * limit
	}
	return w
}
