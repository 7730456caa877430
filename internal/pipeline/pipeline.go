package pipeline

import (
	"fmt"
	"time"

	"github.com/drakos74/latent-cluster/internal/buffer"
	"github.com/drakos74/latent-cluster/internal/cluster"
	"github.com/drakos74/latent-cluster/internal/evaluation"
	coinmath "github.com/drakos74/latent-cluster/internal/math"
	"github.com/drakos74/latent-cluster/internal/metrics"
	"github.com/drakos74/latent-cluster/internal/storage"
	"github.com/drakos74/latent-cluster/internal/vae"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Profile holds the descriptive statistics of one cluster.
type Profile struct {
	Cluster  int              `json:"cluster"`
	Size     int              `json:"size"`
	Features []buffer.Summary `json:"features"`
	Latent   []buffer.Summary `json:"latent"`
}

// ClusterResult is the outcome of one clustering strategy and its evaluation.
// A failed evaluation leaves the partition in place.
type ClusterResult struct {
	Algorithm string             `json:"algorithm"`
	Partition *cluster.Partition `json:"partition,omitempty"`
	Report    *evaluation.Report `json:"report,omitempty"`
	Profiles  []Profile          `json:"profiles,omitempty"`
	Error     string             `json:"error,omitempty"`
	Duration  time.Duration      `json:"duration"`
	err       error
}

// Err returns the clustering or evaluation error of the result.
func (c ClusterResult) Err() error {
	return c.err
}

// Result is the full output of a run.
type Result struct {
	ID      string      `json:"id"`
	Config  Config      `json:"config"`
	History vae.History `json:"history"`
	// Embedding holds the latent mean of every row.
	Embedding      [][]float64     `json:"embedding"`
	Reconstruction float64         `json:"reconstruction"`
	Clusters       []ClusterResult `json:"clusters"`
}

// Run trains the model on the standardized data, clusters the latent means and evaluates every partition.
// original holds the rows in their source units for the cluster profiles, the data is used when nil.
func Run(cfg Config, data *mat.Dense, original [][]float64) (*Result, error) {
	if data == nil || data.IsEmpty() {
		return nil, fmt.Errorf("no data: %w", vae.ErrInvalidConfig)
	}
	n, d := data.Dims()
	if err := cfg.Validate(n, d); err != nil {
		return nil, err
	}
	if original == nil {
		original = coinmath.Rows(data)
	}
	if len(original) != n {
		return nil, fmt.Errorf("%d original rows for %d data rows: %w", len(original), n, vae.ErrInvalidConfig)
	}
	for i, row := range original {
		if len(row) != len(original[0]) {
			return nil, fmt.Errorf("inconsistent original row width at %d: %w", i, vae.ErrInvalidConfig)
		}
	}
	strategies, err := cfg.strategies()
	if err != nil {
		return nil, err
	}

	result := &Result{
		ID:     uuid.New().String(),
		Config: cfg,
	}
	logger := log.With().Str("run", result.ID).Logger()

	trainer, err := vae.NewTrainer(d, cfg.Model)
	if err != nil {
		return nil, err
	}
	history, err := trainer.Fit(data)
	if err != nil {
		return nil, fmt.Errorf("could not train model: %w", err)
	}
	result.History = history

	model := trainer.Model()
	embedding := model.Encode(data)
	result.Embedding = coinmath.Rows(embedding)
	result.Reconstruction = reconstruction(data, model.Reconstruct(data))
	logger.Info().
		Float64("reconstruction", result.Reconstruction).
		Int("latent", model.Latent()).
		Msg("encoded data")

	engine := cluster.NewEngine(strategies...)
	for _, outcome := range engine.Run(embedding, cfg.Clusters) {
		cr := ClusterResult{
			Algorithm: outcome.Algorithm,
			Duration:  outcome.Duration,
		}
		if outcome.Err != nil {
			cr.err = outcome.Err
			cr.Error = outcome.Err.Error()
			result.Clusters = append(result.Clusters, cr)
			continue
		}
		partition := outcome.Partition
		cr.Partition = &partition
		cr.Profiles = profiles(partition, original, result.Embedding)

		report, err := evaluation.Evaluate(embedding, partition)
		if err != nil {
			logger.Warn().Err(err).Str("algorithm", outcome.Algorithm).Msg("could not evaluate partition")
			cr.err = err
			cr.Error = err.Error()
		} else {
			cr.Report = &report
			for metric, score := range report.Scores() {
				metrics.Observer.Score(outcome.Algorithm, metric, score)
			}
			logger.Info().
				Str("algorithm", outcome.Algorithm).
				Float64(evaluation.SilhouetteName, report.Silhouette).
				Float64(evaluation.CalinskiHarabaszName, report.CalinskiHarabasz).
				Float64(evaluation.DaviesBouldinName, report.DaviesBouldin).
				Msg("evaluated partition")
		}
		result.Clusters = append(result.Clusters, cr)
	}
	return result, nil
}

// Best returns the evaluated result with the highest silhouette.
func (r *Result) Best() (ClusterResult, bool) {
	var best ClusterResult
	var ok bool
	for _, c := range r.Clusters {
		if c.Report == nil {
			continue
		}
		if !ok || c.Report.Silhouette > best.Report.Silhouette {
			best, ok = c, true
		}
	}
	return best, ok
}

// Save stores the run report and the embedding under the run id.
func (r *Result) Save(store storage.Persistence) error {
	if err := store.Store(storage.Key{Run: r.ID, Label: storage.ReportLabel}, r); err != nil {
		return fmt.Errorf("could not store report: %w", err)
	}
	if err := store.Store(storage.Key{Run: r.ID, Label: storage.EmbeddingLabel}, r.Embedding); err != nil {
		return fmt.Errorf("could not store embedding: %w", err)
	}
	return nil
}

// reconstruction returns the mean reconstruction error per row.
func reconstruction(x, xHat *mat.Dense) float64 {
	n, _ := x.Dims()
	var total float64
	for i := 0; i < n; i++ {
		total += vae.Reconstruction(x.RawRowView(i), xHat.RawRowView(i))
	}
	return total / float64(n)
}

// profiles collects per cluster statistics over the original features and the latent coordinates.
func profiles(p cluster.Partition, original, latent [][]float64) []Profile {
	features := buffer.NewGroups(len(original[0]))
	coordinates := buffer.NewGroups(len(latent[0]))
	for i := 0; i < p.Len(); i++ {
		features.Push(p.Label(i), original[i]...)
		coordinates.Push(p.Label(i), latent[i]...)
	}
	keys := features.Keys()
	pp := make([]Profile, 0, len(keys))
	for _, k := range keys {
		f, _ := features.Get(k)
		l, _ := coordinates.Get(k)
		pp = append(pp, Profile{
			Cluster:  k,
			Size:     f.Size(),
			Features: f.Summary(),
			Latent:   l.Summary(),
		})
	}
	return pp
}
