package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/training"
)

var (
	tuneFolds int
	tuneGrid  []float64
)

var tuneCmd = &cobra.Command{
	Use:   "tune [corpus-dir]",
	Short: "Cross-validate the smoothing parameter",
	Long: `Tune runs k-fold cross-validation for every alpha in the grid and reports
the macro F1 of each. Set classifier.alpha to the winner.

Examples:
  docclass tune ./corpus
  docclass tune ./corpus --folds 10 --grid 0.05,0.1,0.5,1`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Training.CorpusDir
		if len(args) == 1 {
			dir = args[0]
		}
		folds := cfg.Training.Folds
		if cmd.Flags().Changed("folds") {
			folds = tuneFolds
		}
		grid := cfg.Training.SmoothingGrid
		if cmd.Flags().Changed("grid") {
			grid = tuneGrid
		}

		ex, err := newExtractor()
		if err != nil {
			return err
		}
		corpus, _, err := training.NewLoader(ex, logger).LoadCorpus(cmd.Context(), dir)
		if err != nil {
			return err
		}
		res, err := training.Tune(corpus, classifier.TuneConfig{
			Grid:       grid,
			Folds:      folds,
			Seed:       cfg.Training.Seed,
			Vectorizer: classifierConfig().Vectorizer,
		})
		if err != nil {
			return err
		}
		return output(res)
	},
}

func init() {
	tuneCmd.Flags().IntVar(&tuneFolds, "folds", 5, "number of cross-validation folds")
	tuneCmd.Flags().Float64SliceVar(&tuneGrid, "grid", nil, "comma-separated alpha values")

	rootCmd.AddCommand(tuneCmd)
}
