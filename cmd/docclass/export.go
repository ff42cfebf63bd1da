package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/export"
	"github.com/joseph-ayodele/docclass/internal/repository"
)

var (
	exportOut   string
	exportLabel string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored extraction results to an XLSX workbook",
	Long: `Export writes one sheet per document type. Each row is one extracted
document and each column one field, in a fixed order per type.

Examples:
  docclass export --out results.xlsx
  docclass export --out boletos.xlsx --label boleto`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f := repository.ListFilter{Limit: exportLimit}
		if exportLabel != "" {
			l, ok := constants.Canonicalize(exportLabel)
			if !ok {
				return fmt.Errorf("unknown label %q (want one of %v)", exportLabel, constants.AsStringSlice())
			}
			f.Label = l
		}

		db, results, err := openResults(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		data, err := export.NewService(results, logger).ResultsXLSX(ctx, f)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		return output(map[string]any{"file": exportOut, "bytes": len(data)})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "docclass-results.xlsx", "output file")
	exportCmd.Flags().StringVar(&exportLabel, "label", "", "only export this document type")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum rows (0 = all)")

	rootCmd.AddCommand(exportCmd)
}
