package cluster

import (
	"fmt"
	"time"

	"github.com/drakos74/latent-cluster/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Outcome is the result of one strategy.
// Either the Partition or the Err is set.
type Outcome struct {
	Algorithm string
	Partition Partition
	Err       error
	Duration  time.Duration
}

// Engine runs a set of strategies on the same encoded matrix.
type Engine struct {
	strategies []Strategy
}

// NewEngine creates a new engine for the given strategies.
func NewEngine(strategies ...Strategy) *Engine {
	return &Engine{strategies: strategies}
}

// Strategies returns the names of the engine strategies in run order.
func (e *Engine) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// Run fits all strategies concurrently and returns one outcome per strategy, in strategy order.
// The strategies only read the matrix; a failing strategy does not affect the others.
func (e *Engine) Run(data *mat.Dense, k int) []Outcome {
	outcomes := make([]Outcome, len(e.strategies))
	var g errgroup.Group
	for i, s := range e.strategies {
		i, s := i, s
		g.Go(func() error {
			outcomes[i] = fit(s, data, k)
			return nil
		})
	}
	// failures are recorded on the outcomes
	_ = g.Wait()
	return outcomes
}

func fit(s Strategy, data *mat.Dense, k int) (outcome Outcome) {
	outcome.Algorithm = s.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome.Partition = Partition{}
			outcome.Err = fmt.Errorf("panic in '%s': %v: %w", outcome.Algorithm, r, ErrStrategyFailed)
		}
		outcome.Duration = time.Since(start)
		metrics.Observer.Fit(outcome.Algorithm, outcome.Duration, outcome.Err)
		if outcome.Err != nil {
			log.Error().
				Err(outcome.Err).
				Str("algorithm", outcome.Algorithm).
				Dur("duration", outcome.Duration).
				Msg("clustering failed")
			return
		}
		log.Info().
			Str("algorithm", outcome.Algorithm).
			Int("k", k).
			Ints("sizes", outcome.Partition.Sizes()).
			Dur("duration", outcome.Duration).
			Msg("clustering done")
	}()
	outcome.Partition, outcome.Err = s.Fit(data, k)
	return outcome
}
