package vae

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for configurations or inputs the model cannot be trained on.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrNonFiniteLoss is returned when training produces a NaN or infinite loss.
	ErrNonFiniteLoss = errors.New("non-finite loss")
	// ErrTrained is returned when fitting a trainer that already completed its training.
	ErrTrained = errors.New("model already trained")
)

// Config holds the model and training hyper-parameters.
type Config struct {
	LatentDim       int     `json:"latent_dim"`
	HiddenDim       int     `json:"hidden_dim"`
	Epochs          int     `json:"epochs"`
	BatchSize       int     `json:"batch_size"`
	ValidationSplit float64 `json:"validation_split"`
	LearningRate    float64 `json:"learning_rate"`
	DropoutRate     float64 `json:"dropout_rate"`
	// L2 is the weight of the penalty on the first encoder layer.
	L2       float64 `json:"l2"`
	Momentum float64 `json:"momentum"`
	Seed     uint64  `json:"seed"`
}

// DefaultConfig returns the default training configuration.
func DefaultConfig() Config {
	return Config{
		LatentDim:       2,
		HiddenDim:       128,
		Epochs:          100,
		BatchSize:       256,
		ValidationSplit: 0.2,
		LearningRate:    0.001,
		DropoutRate:     0.2,
		L2:              1e-3,
		Momentum:        0.99,
		Seed:            42,
	}
}

// Validate checks the hyper-parameter ranges.
func (c Config) Validate() error {
	if c.LatentDim < 1 {
		return fmt.Errorf("latent dimension must be positive, got %d: %w", c.LatentDim, ErrInvalidConfig)
	}
	if c.HiddenDim < 1 {
		return fmt.Errorf("hidden dimension must be positive, got %d: %w", c.HiddenDim, ErrInvalidConfig)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("epochs must be positive, got %d: %w", c.Epochs, ErrInvalidConfig)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig)
	}
	if c.ValidationSplit < 0 || c.ValidationSplit >= 1 {
		return fmt.Errorf("validation split must be in [0,1), got %f: %w", c.ValidationSplit, ErrInvalidConfig)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %f: %w", c.LearningRate, ErrInvalidConfig)
	}
	if c.DropoutRate < 0 || c.DropoutRate >= 1 {
		return fmt.Errorf("dropout rate must be in [0,1), got %f: %w", c.DropoutRate, ErrInvalidConfig)
	}
	if c.L2 < 0 {
		return fmt.Errorf("l2 penalty must not be negative, got %f: %w", c.L2, ErrInvalidConfig)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return fmt.Errorf("momentum must be in [0,1), got %f: %w", c.Momentum, ErrInvalidConfig)
	}
	return nil
}

// hidden returns the widths of the encoder hidden layers, the decoder uses them reversed.
func (c Config) hidden() []int {
	second := c.HiddenDim / 2
	if second < c.LatentDim {
		second = c.LatentDim
	}
	return []int{c.HiddenDim, second}
}
