package pipeline

import (
	"fmt"

	"github.com/drakos74/latent-cluster/internal/cluster"
	"github.com/drakos74/latent-cluster/internal/vae"
)

// Key is the configuration key of the pipeline under infra/config.
const Key = "pipeline"

// Config is the configuration of a full run.
type Config struct {
	Model    vae.Config `json:"model"`
	Clusters int        `json:"clusters"`
	// Algorithms are the clustering strategies to run, all of them when empty.
	Algorithms []string `json:"algorithms"`
	// Workers bounds the neighbour search fan-out, the number of cpus when 0.
	Workers int    `json:"workers"`
	Seed    uint64 `json:"seed"`
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		Model:    vae.DefaultConfig(),
		Clusters: 10,
		Algorithms: []string{
			cluster.GaussianMixtureName,
			cluster.KMeansName,
			cluster.AgglomerativeName,
			cluster.SpectralName,
		},
		Seed: 42,
	}
}

// Validate checks the configuration against a dataset of the given shape.
func (c Config) Validate(rows, cols int) error {
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if rows == 0 || cols == 0 {
		return fmt.Errorf("empty dataset of %dx%d: %w", rows, cols, vae.ErrInvalidConfig)
	}
	if rows < c.Model.BatchSize {
		return fmt.Errorf("%d rows are fewer than the batch size %d: %w", rows, c.Model.BatchSize, vae.ErrInvalidConfig)
	}
	if c.Clusters < 2 {
		return fmt.Errorf("cluster count must be at least 2, got %d: %w", c.Clusters, vae.ErrInvalidConfig)
	}
	if rows <= c.Clusters {
		return fmt.Errorf("%d rows cannot form %d clusters: %w", rows, c.Clusters, vae.ErrInvalidConfig)
	}
	if _, err := c.strategies(); err != nil {
		return fmt.Errorf("%v: %w", err, vae.ErrInvalidConfig)
	}
	return nil
}

func (c Config) strategies() ([]cluster.Strategy, error) {
	if len(c.Algorithms) == 0 {
		return cluster.DefaultStrategies(c.Seed, c.Workers), nil
	}
	strategies := make([]cluster.Strategy, 0, len(c.Algorithms))
	seen := make(map[string]bool)
	for _, name := range c.Algorithms {
		if seen[name] {
			continue
		}
		seen[name] = true
		s, err := cluster.Lookup(name, c.Seed, c.Workers)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}
