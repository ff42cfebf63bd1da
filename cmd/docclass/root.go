package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docclass/internal/common"
)

var (
	cfgFile      string
	outputFormat string

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docclass",
	Short: "Classify Brazilian financial PDFs and extract their fields",
	Long: `docclass trains a naive Bayes classifier over the text layer of PDF
documents and extracts structured fields for each recognized type:

  - PAYMENT_SLIP  (boleto bancário)
  - INVOICE       (nota fiscal eletrônica)
  - TAX_STATEMENT (declaração de imposto de renda)

Configuration is read from docclass.yaml, .env and DOCCLASS_* variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "yaml" && outputFormat != "json" {
			return fmt.Errorf("unknown output format %q (want yaml or json)", outputFormat)
		}
		c, err := common.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		logger = common.NewLoggerTo(c.Log, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./docclass.yaml or ~/.docclass/docclass.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
}
