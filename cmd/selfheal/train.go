package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-selfheal/internal/forest"
	"github.com/miradorstack/mirador-selfheal/internal/training"
)

func newTrainCmd(root *rootOptions) *cobra.Command {
	var (
		dataPath   string
		outputDir  string
		estimators int
		maxSamples int
		seed       int64
		publish    bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the anomaly model on historical metrics and write the artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Training
			if cmd.Flags().Changed("data") {
				cfg.DataPath = dataPath
			}
			if cmd.Flags().Changed("output") {
				cfg.OutputDir = outputDir
			}
			if cmd.Flags().Changed("estimators") {
				cfg.Estimators = estimators
			}
			if cmd.Flags().Changed("max-samples") {
				cfg.MaxSamples = maxSamples
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			a.cfg.Training = cfg
			if err := a.cfg.ValidateTraining(); err != nil {
				return err
			}

			opts := []training.Option{training.WithParams(forest.Params{
				Estimators: cfg.Estimators,
				MaxSamples: cfg.MaxSamples,
				Seed:       cfg.Seed,
			})}
			if publish {
				if a.cfg.Model.Bucket == "" && a.cfg.Model.Dir == "" {
					return fmt.Errorf("--publish needs model.bucket or model.dir")
				}
				store, err := a.artifactStore(cmd.Context())
				if err != nil {
					return err
				}
				opts = append(opts, training.WithPublisher(store, a.cfg.Model.Key))
			}

			path, err := training.NewTrainer(a.logger, opts...).Train(cmd.Context(), cfg.DataPath, cfg.OutputDir)
			if err != nil {
				return err
			}
			a.logger.Info("training complete", slog.String("artifact", path))
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "Metrics CSV (default training.dataPath)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default training.outputDir)")
	cmd.Flags().IntVar(&estimators, "estimators", forest.DefaultEstimators, "Number of trees")
	cmd.Flags().IntVar(&maxSamples, "max-samples", forest.DefaultMaxSamples, "Subsample size per tree")
	cmd.Flags().Int64Var(&seed, "seed", forest.DefaultSeed, "Random seed")
	cmd.Flags().BoolVar(&publish, "publish", false, "Upload the artifact to the configured model store")
	return cmd
}
