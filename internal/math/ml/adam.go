package ml

import (
	"math"
)

// Adam is the adaptive moment estimation optimizer.
// It keeps a first and second moment estimate per scalar parameter.
type Adam struct {
	rate    float64
	beta1   float64
	beta2   float64
	epsilon float64
	t       int
	m       map[*Param][]float64
	v       map[*Param][]float64
}

// NewAdam creates a new adam optimizer with the usual defaults for the moment decay rates.
func NewAdam(rate float64) *Adam {
	return &Adam{
		rate:    rate,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-7,
		m:       make(map[*Param][]float64),
		v:       make(map[*Param][]float64),
	}
}

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int {
	return a.t
}

// Step applies one update to each param based on its accumulated gradient.
func (a *Adam) Step(params []*Param) {
	a.t++
	correction1 := 1 - math.Pow(a.beta1, float64(a.t))
	correction2 := 1 - math.Pow(a.beta2, float64(a.t))
	rate := a.rate * math.Sqrt(correction2) / correction1
	for _, p := range params {
		value := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(value))
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = make([]float64, len(value))
			a.v[p] = v
		}
		for i, g := range grad {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
			value[i] -= rate * m[i] / (math.Sqrt(v[i]) + a.epsilon)
		}
	}
}
