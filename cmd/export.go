package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/pivotloom-cli/internal/export"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
	"github.com/KaramelBytes/pivotloom-cli/internal/utils"
)

var (
	exOpts    pivotOpts
	exCSV     string
	exXLSX    string
	exJSON    string
	exMD      string
	exParquet string
)

var exportCmd = &cobra.Command{
	Use:   "export <file|->",
	Short: "Write the cleaned table or a pivot to one or more formats",
	Long: `Export writes the displayed table (the pivot when --rows/--values are given,
otherwise the cleaned input) to every requested format at once.`,
	Example: `  pivotloom export sales.csv -r region -v units --total-row --csv out.csv --xlsx out.xlsx
  pivotloom export sales.csv -r region -c channel -v units --parquet long.parquet`,
	Args: inputArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := map[export.Format]string{}
		for f, path := range map[export.Format]string{
			export.CSVFormat:      exCSV,
			export.XLSXFormat:     exXLSX,
			export.JSONFormat:     exJSON,
			export.MarkdownFormat: exMD,
			export.ParquetFormat:  exParquet,
		} {
			if path != "" {
				targets[f] = path
			}
		}
		if len(targets) == 0 {
			return fmt.Errorf("no outputs requested (use --csv, --xlsx, --json, --md or --parquet)")
		}
		p, l, err := loadInput(cmd, args)
		if err != nil {
			return err
		}
		t := l.Table
		ids := table.ListColumns(t).Categorical
		if exOpts.active() {
			out, err := exOpts.run(cmd, p, l)
			if err != nil {
				return err
			}
			t, ids = out.Augmented.Table, out.Pivot.Spec.RowFields
		}

		var g errgroup.Group
		for f, path := range targets {
			f, path := f, path
			g.Go(func() error {
				b, err := export.Encode(t, f, ids)
				if err != nil {
					return fmt.Errorf("%s: %w", f, err)
				}
				if err := utils.SafeWriteFile(path, b); err != nil {
					return fmt.Errorf("%s: %w", f, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, f := range export.Formats {
			if path, ok := targets[f]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s to %s\n", f, path)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exOpts.bind(exportCmd)
	f := exportCmd.Flags()
	f.StringVar(&exCSV, "csv", "", "write CSV to this path")
	f.StringVar(&exXLSX, "xlsx", "", "write a single-sheet workbook to this path")
	f.StringVar(&exJSON, "json", "", "write JSON to this path")
	f.StringVar(&exMD, "md", "", "write a markdown table to this path")
	f.StringVar(&exParquet, "parquet", "", "write long-form (row key, metric, value) Parquet to this path")
}
