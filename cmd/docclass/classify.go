package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docclass/internal/extract"
)

type classifyOutput struct {
	Path       string  `json:"path" yaml:"path"`
	Label      string  `json:"label" yaml:"label"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file.pdf>",
	Short: "Print the document type of a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer rt.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		r, err := rt.proc.Classify(cmd.Context(), f)
		if err != nil {
			return err
		}
		return output(classifyOutput{Path: args[0], Label: string(r.Label), Confidence: r.Confidence})
	},
}

var extractPersist bool

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Classify a PDF and print its extracted fields",
	Long: `Extract classifies the document and runs the field extraction rules for
its type. Every field is always present; a field the rules could not find is "".

With --persist the outcome is also stored in the result database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx, extractPersist)
		if err != nil {
			return err
		}
		defer rt.Close()

		out, err := rt.proc.ProcessFile(ctx, args[0])
		if err != nil {
			return err
		}
		fields, err := extract.AsMap(out.Fields)
		if err != nil {
			return err
		}
		result := map[string]any{
			"path":       args[0],
			"label":      string(out.Label),
			"confidence": out.Confidence,
			"fields":     fields,
		}
		if extractPersist {
			result["id"] = out.ID.String()
		}
		return output(result)
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractPersist, "persist", false, "store the result in the database")

	rootCmd.AddCommand(classifyCmd, extractCmd)
}
