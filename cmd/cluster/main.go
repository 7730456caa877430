package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/drakos74/latent-cluster/infra/config"
	coinmath "github.com/drakos74/latent-cluster/internal/math"
	"github.com/drakos74/latent-cluster/internal/metrics"
	"github.com/drakos74/latent-cluster/internal/pipeline"
	"github.com/drakos74/latent-cluster/internal/storage"
	json_storage "github.com/drakos74/latent-cluster/internal/storage/file/json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

var (
	configDir   = flag.String("config", config.Dir, "directory of the json configuration files")
	input       = flag.String("input", "", "json file holding the rows as an array of float arrays")
	output      = flag.String("output", storage.DefaultDir, "directory for the run reports, nothing is stored when empty")
	standardize = flag.Bool("standardize", false, "z-score the input columns before training")
	metricsAddr = flag.String("metrics", "", "address to serve the prometheus metrics on, e.g. ':2112'")
	pretty      = flag.Bool("pretty", false, "human readable console logs")
	debug       = flag.Bool("debug", false, "log every training epoch")
	clusters    = flag.Int("k", 0, "number of clusters, overrides the config")
	epochs      = flag.Int("epochs", 0, "number of training epochs, overrides the config")
	seed        = flag.Uint64("seed", 0, "random seed, overrides the config")
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	flag.Parse()
	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *input == "" {
		log.Fatal().Msg("no input file given")
	}

	cfg := pipeline.DefaultConfig()
	if err := config.Load(*configDir, pipeline.Key, &cfg); err != nil {
		log.Warn().Err(err).Msg("using default config")
	}
	if *clusters > 0 {
		cfg.Clusters = *clusters
	}
	if *epochs > 0 {
		cfg.Model.Epochs = *epochs
	}
	if *seed > 0 {
		cfg.Seed = *seed
		cfg.Model.Seed = *seed
	}

	if *metricsAddr != "" {
		go func() {
			if err := metrics.Serve(*metricsAddr); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	var rows [][]float64
	if err := json_storage.Load(filepath.Dir(*input), filepath.Base(*input), &rows); err != nil {
		log.Fatal().Err(err).Str("input", *input).Msg("could not load input")
	}

	var data *mat.Dense
	var err error
	if *standardize {
		data, _, err = coinmath.Standardize(rows)
	} else {
		data, err = coinmath.Matrix(rows)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("could not prepare input")
	}

	result, err := pipeline.Run(cfg, data, rows)
	if err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}

	shard := storage.VoidShard()
	if *output != "" {
		storage.DefaultDir = *output
		shard = json_storage.BlobShard("runs")
	}
	store, err := shard("cluster")
	if err != nil {
		log.Fatal().Err(err).Msg("could not create storage")
	}
	if err := result.Save(store); err != nil {
		log.Fatal().Err(err).Msg("could not save run")
	}

	for _, c := range result.Clusters {
		event := log.Info().Str("algorithm", c.Algorithm)
		if c.Report != nil {
			event = event.
				Float64("silhouette", c.Report.Silhouette).
				Float64("calinski_harabasz", c.Report.CalinskiHarabasz).
				Float64("davies_bouldin", c.Report.DaviesBouldin)
		}
		if c.Error != "" {
			event = event.Str("error", c.Error)
		}
		event.Msg("result")
	}
	log.Info().
		Str("run", result.ID).
		Str("output", *output).
		Msg("run complete")
}
