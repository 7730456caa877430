package vae

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/drakos74/latent-cluster/internal/math/ml"
	"github.com/drakos74/latent-cluster/internal/metrics"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Epoch is the training record of one pass over the data.
type Epoch struct {
	Index      int   `json:"index"`
	Train      Loss  `json:"train"`
	Validation *Loss `json:"validation,omitempty"`
}

// History is the per-epoch record of a training run.
type History struct {
	Epochs   []Epoch       `json:"epochs"`
	Duration time.Duration `json:"duration"`
}

// Last returns the last recorded epoch.
func (h History) Last() (Epoch, bool) {
	if len(h.Epochs) == 0 {
		return Epoch{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

// Trainer owns a model and optimises its params by mini-batch gradient descent.
// A trainer fits exactly once, the model is read-only afterwards.
type Trainer struct {
	cfg       Config
	features  int
	model     *Model
	sampler   *Sampler
	optimizer *ml.Adam
	rng       *rand.Rand
	trained   bool
}

// NewTrainer creates a new trainer with a freshly initialised model.
func NewTrainer(features int, cfg Config) (*Trainer, error) {
	if features < 1 {
		return nil, fmt.Errorf("feature width must be positive, got %d: %w", features, ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	return &Trainer{
		cfg:       cfg,
		features:  features,
		model:     NewModel(features, cfg, rng),
		sampler:   NewSampler(rng),
		optimizer: ml.NewAdam(cfg.LearningRate),
		rng:       rng,
	}, nil
}

// Model returns the model of the trainer.
func (t *Trainer) Model() *Model {
	return t.model
}

// Check verifies that a dataset of the given shape can be trained on.
func (t *Trainer) Check(rows, cols int) error {
	if rows == 0 {
		return fmt.Errorf("no rows to train on: %w", ErrInvalidConfig)
	}
	if cols != t.features {
		return fmt.Errorf("data has %d features, model expects %d: %w", cols, t.features, ErrInvalidConfig)
	}
	if rows < t.cfg.BatchSize {
		return fmt.Errorf("%d rows are fewer than the batch size %d: %w", rows, t.cfg.BatchSize, ErrInvalidConfig)
	}
	if rows-int(t.cfg.ValidationSplit*float64(rows)) < 1 {
		return fmt.Errorf("validation split %f leaves no training rows: %w", t.cfg.ValidationSplit, ErrInvalidConfig)
	}
	return nil
}

// Fit trains the model for the configured number of epochs.
func (t *Trainer) Fit(data *mat.Dense) (History, error) {
	var history History
	if t.trained {
		return history, ErrTrained
	}
	if data == nil || data.IsEmpty() {
		return history, fmt.Errorf("no rows to train on: %w", ErrInvalidConfig)
	}
	n, d := data.Dims()
	if err := t.Check(n, d); err != nil {
		return history, err
	}
	t.trained = true

	order := t.rng.Perm(n)
	split := n - int(t.cfg.ValidationSplit*float64(n))
	train, validation := order[:split], order[split:]

	start := time.Now()
	params := t.model.Params()
	for e := 0; e < t.cfg.Epochs; e++ {
		t.rng.Shuffle(len(train), func(i, j int) {
			train[i], train[j] = train[j], train[i]
		})

		epoch := Epoch{Index: e}
		var rows int
		for b := 0; b < len(train); b += t.cfg.BatchSize {
			end := b + t.cfg.BatchSize
			if end > len(train) {
				end = len(train)
			}
			loss, err := t.step(gather(data, train[b:end]), params)
			if err != nil {
				return history, fmt.Errorf("epoch %d batch %d: %w", e, b/t.cfg.BatchSize, err)
			}
			w := float64(end - b)
			epoch.Train.Total += w * loss.Total
			epoch.Train.Reconstruction += w * loss.Reconstruction
			epoch.Train.Divergence += w * loss.Divergence
			epoch.Train.Penalty += w * loss.Penalty
			rows += end - b
		}
		epoch.Train.Total /= float64(rows)
		epoch.Train.Reconstruction /= float64(rows)
		epoch.Train.Divergence /= float64(rows)
		epoch.Train.Penalty /= float64(rows)
		metrics.Observer.TrainingLoss("train", epoch.Train.Total)

		if len(validation) > 0 {
			loss := t.evaluate(gather(data, validation))
			epoch.Validation = &loss
			metrics.Observer.TrainingLoss("validation", loss.Total)
		}
		metrics.Observer.EpochDone()

		history.Epochs = append(history.Epochs, epoch)
		event := log.Debug().
			Int("epoch", e).
			Float64("loss", epoch.Train.Total).
			Float64("reconstruction", epoch.Train.Reconstruction).
			Float64("divergence", epoch.Train.Divergence)
		if epoch.Validation != nil {
			event = event.Float64("val_loss", epoch.Validation.Total)
		}
		event.Msg("epoch")
	}
	history.Duration = time.Since(start)

	last, _ := history.Last()
	log.Info().
		Int("epochs", len(history.Epochs)).
		Int("rows", len(train)).
		Int("validation", len(validation)).
		Float64("loss", last.Train.Total).
		Str("duration", history.Duration.String()).
		Msg("training complete")
	return history, nil
}

// step runs forward and backward passes on one batch and updates the params.
func (t *Trainer) step(x *mat.Dense, params []*ml.Param) (Loss, error) {
	r, _ := x.Dims()
	eps := t.sampler.Noise(r, t.cfg.LatentDim)

	ml.ZeroGrads(params)
	loss := t.model.backward(x, eps, t.cfg.L2)
	if !loss.Finite() {
		return loss, fmt.Errorf("loss %f: %w", loss.Total, ErrNonFiniteLoss)
	}
	t.optimizer.Step(params)
	return loss, nil
}

// evaluate computes the loss in inference mode without touching the params.
func (t *Trainer) evaluate(x *mat.Dense) Loss {
	mu, logVar := t.model.encoder.Forward(x, false)
	z, _ := t.sampler.Sample(mu, logVar)
	xHat := t.model.decoder.Forward(z, false)
	loss := Compose(x, xHat, mu, logVar)
	loss.Penalty = t.model.encoder.Penalty(t.cfg.L2)
	loss.Total += loss.Penalty
	return loss
}

// gather copies the given rows into a new matrix.
func gather(data *mat.Dense, rows []int) *mat.Dense {
	_, c := data.Dims()
	batch := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		batch.SetRow(i, data.RawRowView(r))
	}
	return batch
}
