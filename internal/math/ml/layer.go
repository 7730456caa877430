package ml

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Layer is a differentiable transformation over a batch of row vectors.
// A training Forward caches whatever Backward needs, so the two must alternate.
// An inference Forward does not write to the layer and is safe for concurrent use.
type Layer interface {
	Forward(x *mat.Dense, train bool) *mat.Dense
	Backward(grad *mat.Dense) *mat.Dense
	Params() []*Param
}

// Dense is a fully connected linear layer y = x·W + b.
type Dense struct {
	in, out int
	W       *Param
	B       *Param
	x       *mat.Dense
}

// NewDense creates a new dense layer with glorot-uniform weights and zero biases.
func NewDense(name string, in, out int, rng *rand.Rand) *Dense {
	return &Dense{
		in:  in,
		out: out,
		W:   NewParam(fmt.Sprintf("%s/kernel", name), in, out, glorot(in, out, rng.Float64)),
		B:   NewParam(fmt.Sprintf("%s/bias", name), 1, out, nil),
	}
}

// In returns the input width of the layer.
func (d *Dense) In() int {
	return d.in
}

// Out returns the output width of the layer.
func (d *Dense) Out() int {
	return d.out
}

func (d *Dense) Forward(x *mat.Dense, train bool) *mat.Dense {
	r, c := x.Dims()
	if c != d.in {
		panic(fmt.Sprintf("dense: input width %d does not match layer width %d", c, d.in))
	}
	y := mat.NewDense(r, d.out, nil)
	y.Mul(x, d.W.Value)
	bias := d.B.Value.RawRowView(0)
	for i := 0; i < r; i++ {
		floats.Add(y.RawRowView(i), bias)
	}
	if train {
		d.x = x
	}
	return y
}

func (d *Dense) Backward(grad *mat.Dense) *mat.Dense {
	var gw mat.Dense
	gw.Mul(d.x.T(), grad)
	d.W.Grad.Add(d.W.Grad, &gw)

	r, _ := grad.Dims()
	gb := d.B.Grad.RawRowView(0)
	for i := 0; i < r; i++ {
		floats.Add(gb, grad.RawRowView(i))
	}

	dx := mat.NewDense(r, d.in, nil)
	dx.Mul(grad, d.W.Value.T())
	return dx
}

func (d *Dense) Params() []*Param {
	return []*Param{d.W, d.B}
}

// ReLU is the rectified linear activation.
type ReLU struct {
	mask *mat.Dense
}

// NewReLU creates a new relu activation layer.
func NewReLU() *ReLU {
	return &ReLU{}
}

func (a *ReLU) Forward(x *mat.Dense, train bool) *mat.Dense {
	r, c := x.Dims()
	y := mat.NewDense(r, c, nil)
	mask := mat.NewDense(r, c, nil)
	y.Apply(func(i, j int, v float64) float64 {
		if v > 0 {
			mask.Set(i, j, 1)
			return v
		}
		return 0
	}, x)
	if train {
		a.mask = mask
	}
	return y
}

func (a *ReLU) Backward(grad *mat.Dense) *mat.Dense {
	r, c := grad.Dims()
	dx := mat.NewDense(r, c, nil)
	dx.MulElem(grad, a.mask)
	return dx
}

func (a *ReLU) Params() []*Param {
	return nil
}

// Dropout zeroes a fraction of the activations during training and rescales the rest.
// It is the identity at inference.
type Dropout struct {
	rate float64
	rng  *rand.Rand
	mask *mat.Dense
}

// NewDropout creates a new dropout layer with the given drop rate.
func NewDropout(rate float64, rng *rand.Rand) *Dropout {
	return &Dropout{
		rate: rate,
		rng:  rng,
	}
}

func (d *Dropout) Forward(x *mat.Dense, train bool) *mat.Dense {
	r, c := x.Dims()
	y := mat.NewDense(r, c, nil)
	if !train {
		y.Copy(x)
		return y
	}
	if d.rate <= 0 {
		d.mask = nil
		y.Copy(x)
		return y
	}
	keep := 1 - d.rate
	d.mask = mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if d.rng.Float64() < keep {
				d.mask.Set(i, j, 1/keep)
			}
		}
	}
	y.MulElem(x, d.mask)
	return y
}

func (d *Dropout) Backward(grad *mat.Dense) *mat.Dense {
	r, c := grad.Dims()
	dx := mat.NewDense(r, c, nil)
	if d.mask == nil {
		dx.Copy(grad)
		return dx
	}
	dx.MulElem(grad, d.mask)
	return dx
}

func (d *Dropout) Params() []*Param {
	return nil
}

// Sequential chains layers, feeding the output of each into the next.
type Sequential struct {
	layers []Layer
}

// NewSequential creates a new sequential stack out of the given layers.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Add appends layers to the stack.
func (s *Sequential) Add(layers ...Layer) *Sequential {
	s.layers = append(s.layers, layers...)
	return s
}

// Layers returns the layers of the stack.
func (s *Sequential) Layers() []Layer {
	return s.layers
}

func (s *Sequential) Forward(x *mat.Dense, train bool) *mat.Dense {
	out := x
	for _, l := range s.layers {
		out = l.Forward(out, train)
	}
	return out
}

func (s *Sequential) Backward(grad *mat.Dense) *mat.Dense {
	g := grad
	for i := len(s.layers) - 1; i >= 0; i-- {
		g = s.layers[i].Backward(g)
	}
	return g
}

func (s *Sequential) Params() []*Param {
	params := make([]*Param, 0)
	for _, l := range s.layers {
		params = append(params, l.Params()...)
	}
	return params
}
