package vae

import (
	"math/rand/v2"

	"github.com/drakos74/latent-cluster/internal/math/ml"
	"gonum.org/v1/gonum/mat"
)

// Model is the encoder / decoder pair of the variational autoencoder.
type Model struct {
	features int
	latent   int
	encoder  *Encoder
	decoder  *Decoder
}

// NewModel creates a new randomly initialised model for the given feature width.
func NewModel(features int, cfg Config, rng *rand.Rand) *Model {
	return &Model{
		features: features,
		latent:   cfg.LatentDim,
		encoder:  NewEncoder(features, cfg, rng),
		decoder:  NewDecoder(features, cfg, rng),
	}
}

// Features returns the width of the feature vectors.
func (m *Model) Features() int {
	return m.features
}

// Latent returns the width of the latent codes.
func (m *Model) Latent() int {
	return m.latent
}

// Encode returns the deterministic latent mean for every row of x.
// This is the embedding used downstream, it never goes through the sampler.
func (m *Model) Encode(x *mat.Dense) *mat.Dense {
	mu, _ := m.encoder.Forward(x, false)
	return mu
}

// Distribution returns the latent mean and log-variance for every row of x in inference mode.
func (m *Model) Distribution(x *mat.Dense) (mu, logVar *mat.Dense) {
	return m.encoder.Forward(x, false)
}

// Reconstruct decodes the latent mean of every row of x.
func (m *Model) Reconstruct(x *mat.Dense) *mat.Dense {
	return m.decoder.Forward(m.Encode(x), false)
}

// Params returns all learnable params of the encoder and decoder.
func (m *Model) Params() []*ml.Param {
	return append(m.encoder.Params(), m.decoder.Params()...)
}

// backward runs a training forward pass with the given noise and accumulates
// the gradients of the total loss on the params.
func (m *Model) backward(x, eps *mat.Dense, l2 float64) Loss {
	mu, logVar := m.encoder.Forward(x, true)
	z := Reparameterize(mu, logVar, eps)
	xHat := m.decoder.Forward(z, true)

	loss := Compose(x, xHat, mu, logVar)
	loss.Penalty = m.encoder.Penalty(l2)
	loss.Total += loss.Penalty

	gXHat, gMu, gLogVar := gradients(x, xHat, mu, logVar)
	gz := m.decoder.Backward(gXHat)
	gzMu, gzLogVar := reparameterizeBackward(gz, logVar, eps)
	gMu.Add(gMu, gzMu)
	gLogVar.Add(gLogVar, gzLogVar)
	m.encoder.Backward(gMu, gLogVar)
	m.encoder.penaltyBackward(l2)
	return loss
}
