package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docclass/internal/classifier"
	"github.com/joseph-ayodele/docclass/internal/export"
	"github.com/joseph-ayodele/docclass/internal/training"
)

var (
	trainTestFraction float64
	trainSeed         int64
	trainFull         bool
	trainDryRun       bool
	trainReportXLSX   string
)

type trainSummary struct {
	Corpus    training.CorpusStats `json:"corpus" yaml:"corpus"`
	TrainSize int                  `json:"train_size" yaml:"train_size"`
	TestSize  int                  `json:"test_size" yaml:"test_size"`
	Report    classifier.Report    `json:"report" yaml:"report"`
	Saved     bool                 `json:"saved" yaml:"saved"`
	Refit     bool                 `json:"refit_on_full_corpus" yaml:"refit_on_full_corpus"`
}

var trainCmd = &cobra.Command{
	Use:   "train [corpus-dir]",
	Short: "Train the classifier on a labeled corpus and save the model",
	Long: `Train reads <corpus-dir>/<label>/*.pdf, holds out a seeded random split
for evaluation, fits the model and saves vectorizer.json and classifier.json
to the configured model store.

Label directories may use canonical names (PAYMENT_SLIP, INVOICE,
TAX_STATEMENT) or Portuguese ones (boleto, nota_fiscal, imposto_de_renda).

Examples:
  docclass train ./corpus
  docclass train ./corpus --test-fraction 0.3 --seed 7
  docclass train ./corpus --full --report-xlsx eval.xlsx`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := cfg.Training.CorpusDir
		if len(args) == 1 {
			dir = args[0]
		}
		fraction := cfg.Training.TestFraction
		if cmd.Flags().Changed("test-fraction") {
			fraction = trainTestFraction
		}
		seed := cfg.Training.Seed
		if cmd.Flags().Changed("seed") {
			seed = trainSeed
		}

		ex, err := newExtractor()
		if err != nil {
			return err
		}
		corpus, stats, err := training.NewLoader(ex, logger).LoadCorpus(ctx, dir)
		if err != nil {
			return err
		}

		out, err := training.TrainAndEvaluate(corpus, training.Options{
			TestFraction: fraction,
			Seed:         seed,
			Classifier:   classifierConfig(),
		})
		if err != nil {
			return err
		}
		summary := trainSummary{Corpus: stats, TrainSize: out.TrainSize, TestSize: out.TestSize, Report: out.Report}

		bundle := out.Bundle
		if trainFull {
			if bundle, err = training.TrainAll(corpus, classifierConfig()); err != nil {
				return err
			}
			summary.Refit = true
		}

		if trainReportXLSX != "" && out.TestSize > 0 {
			data, err := export.NewService(nil, logger).EvaluationXLSX(out.Report)
			if err != nil {
				return err
			}
			if err := os.WriteFile(trainReportXLSX, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", trainReportXLSX, err)
			}
		}

		if !trainDryRun {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			if err := classifier.SaveBundle(ctx, store, bundle); err != nil {
				return err
			}
			summary.Saved = true
			logger.Info("model saved", "store", cfg.Store.Kind, "vocabulary", bundle.Vectorizer.Size())
		}
		return output(summary)
	},
}

func init() {
	trainCmd.Flags().Float64Var(&trainTestFraction, "test-fraction", training.DefaultTestFraction, "fraction of the corpus held out for evaluation")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", training.DefaultSeed, "random seed for the split")
	trainCmd.Flags().BoolVar(&trainFull, "full", false, "after evaluating, refit on the whole corpus before saving")
	trainCmd.Flags().BoolVar(&trainDryRun, "dry-run", false, "evaluate only, do not save the model")
	trainCmd.Flags().StringVar(&trainReportXLSX, "report-xlsx", "", "also write the evaluation report to this XLSX file")

	rootCmd.AddCommand(trainCmd)
}
