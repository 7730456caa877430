package vae

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	coinmath "github.com/drakos74/latent-cluster/internal/math"
	"github.com/drakos74/latent-cluster/internal/math/ml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.HiddenDim = 16
	cfg.Epochs = 30
	cfg.BatchSize = 32
	return cfg
}

func blobs(t *testing.T, perCenter int) *mat.Dense {
	centers := [][]float64{
		{0, 0, 0, 0},
		{8, 8, 0, -8},
		{-8, 8, 8, 0},
	}
	points, _ := coinmath.Blobs(centers, perCenter, 0.5, 3)
	m, _, err := coinmath.Standardize(points)
	require.NoError(t, err)
	return m
}

func forwardLoss(m *Model, x, eps *mat.Dense, l2 float64) float64 {
	mu, logVar := m.encoder.Forward(x, true)
	xHat := m.decoder.Forward(Reparameterize(mu, logVar, eps), true)
	loss := Compose(x, xHat, mu, logVar)
	return loss.Total + m.encoder.Penalty(l2)
}

func TestModel_Gradients(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HiddenDim = 4
	cfg.DropoutRate = 0
	cfg.L2 = 0.01

	rng := rand.New(rand.NewPCG(21, 22))
	m := NewModel(3, cfg, rng)
	x := NewSampler(rng).Noise(6, 3)
	eps := NewSampler(rng).Noise(6, cfg.LatentDim)

	params := m.Params()
	ml.ZeroGrads(params)
	loss := m.backward(x, eps, cfg.L2)
	assert.InDelta(t, forwardLoss(m, x, eps, cfg.L2), loss.Total, 1e-12)

	const h = 1e-6
	for _, p := range params {
		data := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		for k := range data {
			orig := data[k]
			data[k] = orig + h
			plus := forwardLoss(m, x, eps, cfg.L2)
			data[k] = orig - h
			minus := forwardLoss(m, x, eps, cfg.L2)
			data[k] = orig
			assert.InDelta(t, (plus-minus)/(2*h), grad[k], 1e-4, "param %s [%d]", p.Name, k)
		}
	}
}

func TestModel_Shapes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HiddenDim = 8
	cfg.LatentDim = 3
	m := NewModel(5, cfg, rand.New(rand.NewPCG(1, 1)))
	assert.Equal(t, 5, m.Features())
	assert.Equal(t, 3, m.Latent())

	x := NewSampler(rand.New(rand.NewPCG(2, 2))).Noise(7, 5)
	mu, logVar := m.Distribution(x)
	r, c := mu.Dims()
	assert.Equal(t, 7, r)
	assert.Equal(t, 3, c)
	r, c = logVar.Dims()
	assert.Equal(t, 7, r)
	assert.Equal(t, 3, c)

	r, c = m.Reconstruct(x).Dims()
	assert.Equal(t, 7, r)
	assert.Equal(t, 5, c)

	// inference mode is deterministic
	assert.True(t, mat.Equal(m.Encode(x), m.Encode(x)))
	assert.True(t, mat.Equal(mu, m.Encode(x)))
}

func TestModel_ConcurrentInference(t *testing.T) {
	x := blobs(t, 50)
	trainer, err := NewTrainer(4, smallConfig())
	require.NoError(t, err)
	_, err = trainer.Fit(x)
	require.NoError(t, err)
	m := trainer.Model()

	mu := m.Encode(x)
	xHat := m.Reconstruct(x)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, mat.Equal(mu, m.Encode(x)))
			assert.True(t, mat.Equal(xHat, m.Reconstruct(x)))
			distMu, _ := m.Distribution(x)
			assert.True(t, mat.Equal(mu, distMu))
		}()
	}
	wg.Wait()
}

func TestTrainer_Invalid(t *testing.T) {
	type test struct {
		features int
		cfg      func(cfg Config) Config
		data     *mat.Dense
	}

	tests := map[string]test{
		"no-features": {
			features: 0,
			cfg:      func(cfg Config) Config { return cfg },
			data:     mat.NewDense(64, 1, nil),
		},
		"bad-config": {
			features: 4,
			cfg: func(cfg Config) Config {
				cfg.ValidationSplit = 1
				return cfg
			},
			data: mat.NewDense(64, 4, nil),
		},
		"no-rows": {
			features: 4,
			cfg:      func(cfg Config) Config { return cfg },
			data:     nil,
		},
		"fewer-rows-than-batch": {
			features: 4,
			cfg:      func(cfg Config) Config { return cfg },
			data:     mat.NewDense(31, 4, nil),
		},
		"feature-mismatch": {
			features: 4,
			cfg:      func(cfg Config) Config { return cfg },
			data:     mat.NewDense(64, 3, nil),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			trainer, err := NewTrainer(tt.features, tt.cfg(smallConfig()))
			if err == nil {
				_, err = trainer.Fit(tt.data)
			}
			assert.True(t, errors.Is(err, ErrInvalidConfig), "unexpected error %v", err)
		})
	}
}

func TestTrainer_Fit(t *testing.T) {
	data := blobs(t, 100)
	trainer, err := NewTrainer(4, smallConfig())
	require.NoError(t, err)

	history, err := trainer.Fit(data)
	require.NoError(t, err)
	require.Len(t, history.Epochs, 30)

	first := history.Epochs[0]
	last, ok := history.Last()
	require.True(t, ok)
	assert.Less(t, last.Train.Total, first.Train.Total)
	require.NotNil(t, last.Validation)
	assert.True(t, last.Validation.Finite())
	for i, e := range history.Epochs {
		assert.Equal(t, i, e.Index)
		assert.True(t, e.Train.Finite())
	}

	mu := trainer.Model().Encode(data)
	r, c := mu.Dims()
	assert.Equal(t, 300, r)
	assert.Equal(t, 2, c)

	_, err = trainer.Fit(data)
	assert.True(t, errors.Is(err, ErrTrained))
}

func TestTrainer_Reproducible(t *testing.T) {
	data := blobs(t, 40)
	cfg := smallConfig()
	cfg.Epochs = 5

	encode := func() *mat.Dense {
		trainer, err := NewTrainer(4, cfg)
		require.NoError(t, err)
		_, err = trainer.Fit(data)
		require.NoError(t, err)
		return trainer.Model().Encode(data)
	}
	assert.True(t, mat.Equal(encode(), encode()))
}

func TestTrainer_NonFinite(t *testing.T) {
	data := mat.NewDense(64, 2, nil)
	for i := 0; i < 64; i++ {
		data.Set(i, 1, float64(1-2*(i%2))*1e308)
	}
	cfg := smallConfig()
	cfg.Epochs = 2
	trainer, err := NewTrainer(2, cfg)
	require.NoError(t, err)

	_, err = trainer.Fit(data)
	assert.True(t, errors.Is(err, ErrNonFiniteLoss), "unexpected error %v", err)
}
