package vae

import (
	"fmt"
	"math/rand/v2"

	"github.com/drakos74/latent-cluster/internal/math/ml"
	"gonum.org/v1/gonum/mat"
)

// block is a hidden layer: dense -> relu -> batch-norm -> dropout.
func block(name string, in, out int, cfg Config, rng *rand.Rand) (*ml.Dense, []ml.Layer) {
	dense := ml.NewDense(name, in, out, rng)
	return dense, []ml.Layer{
		dense,
		ml.NewReLU(),
		ml.NewBatchNorm(fmt.Sprintf("%s/norm", name), out, cfg.Momentum),
		ml.NewDropout(cfg.DropoutRate, rng),
	}
}

// Encoder maps feature vectors to the parameters of the latent distribution.
type Encoder struct {
	features int
	latent   int
	first    *ml.Dense
	body     *ml.Sequential
	mean     *ml.Dense
	logVar   *ml.Dense
}

// NewEncoder creates a new encoder for the given feature width.
func NewEncoder(features int, cfg Config, rng *rand.Rand) *Encoder {
	body := ml.NewSequential()
	var first *ml.Dense
	in := features
	for i, width := range cfg.hidden() {
		dense, layers := block(fmt.Sprintf("encoder/hidden_%d", i), in, width, cfg, rng)
		if first == nil {
			first = dense
		}
		body.Add(layers...)
		in = width
	}
	return &Encoder{
		features: features,
		latent:   cfg.LatentDim,
		first:    first,
		body:     body,
		mean:     ml.NewDense("encoder/z_mean", in, cfg.LatentDim, rng),
		logVar:   ml.NewDense("encoder/z_log_var", in, cfg.LatentDim, rng),
	}
}

// Forward returns the latent mean and log-variance for every row of x.
func (e *Encoder) Forward(x *mat.Dense, train bool) (mu, logVar *mat.Dense) {
	h := e.body.Forward(x, train)
	return e.mean.Forward(h, train), e.logVar.Forward(h, train)
}

// Backward propagates the gradients of the two heads through the encoder.
func (e *Encoder) Backward(gMu, gLogVar *mat.Dense) {
	var gh mat.Dense
	gh.Add(e.mean.Backward(gMu), e.logVar.Backward(gLogVar))
	e.body.Backward(&gh)
}

// Penalty returns the l2 penalty on the first layer weights.
func (e *Encoder) Penalty(l2 float64) float64 {
	return l2 * e.first.W.SquaredNorm()
}

// penaltyBackward adds the gradient of the l2 penalty to the first layer weights.
func (e *Encoder) penaltyBackward(l2 float64) {
	var g mat.Dense
	g.Scale(2*l2, e.first.W.Value)
	e.first.W.Grad.Add(e.first.W.Grad, &g)
}

func (e *Encoder) Params() []*ml.Param {
	params := e.body.Params()
	params = append(params, e.mean.Params()...)
	return append(params, e.logVar.Params()...)
}

// Decoder maps latent codes back to the feature space.
type Decoder struct {
	latent   int
	features int
	net      *ml.Sequential
}

// NewDecoder creates a decoder mirroring the encoder hidden layers.
func NewDecoder(features int, cfg Config, rng *rand.Rand) *Decoder {
	net := ml.NewSequential()
	hidden := cfg.hidden()
	in := cfg.LatentDim
	for i := len(hidden) - 1; i >= 0; i-- {
		_, layers := block(fmt.Sprintf("decoder/hidden_%d", len(hidden)-1-i), in, hidden[i], cfg, rng)
		net.Add(layers...)
		in = hidden[i]
	}
	// no output activation, the reconstruction is an unbounded standardized value
	net.Add(ml.NewDense("decoder/output", in, features, rng))
	return &Decoder{
		latent:   cfg.LatentDim,
		features: features,
		net:      net,
	}
}

// Forward reconstructs the feature vectors for the given latent codes.
func (d *Decoder) Forward(z *mat.Dense, train bool) *mat.Dense {
	return d.net.Forward(z, train)
}

// Backward propagates the reconstruction gradient and returns the gradient w.r.t. the latent code.
func (d *Decoder) Backward(grad *mat.Dense) *mat.Dense {
	return d.net.Backward(grad)
}

func (d *Decoder) Params() []*ml.Param {
	return d.net.Params()
}
