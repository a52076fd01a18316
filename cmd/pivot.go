package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/pivotloom-cli/internal/analysis"
	"github.com/KaramelBytes/pivotloom-cli/internal/export"
	"github.com/KaramelBytes/pivotloom-cli/internal/utils"
)

var (
	pvOpts   pivotOpts
	pvFormat string
	pvOutput string
	pvKPIs   bool
)

var pivotCmd = &cobra.Command{
	Use:   "pivot <file|->",
	Short: "Filter, pivot and total a dataset",
	Example: `  pivotloom pivot sales.csv -r region -c channel -v units --total-row --total-col
  pivotloom pivot sales.xlsx --sheet Q3 -r region -v units -a mean -f channel=web,store
  pbpaste | pivotloom pivot - -r region -v units --format csv`,
	Args: inputArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(pvFormat)
		if err != nil {
			return err
		}
		if format == export.ParquetFormat {
			return fmt.Errorf("parquet output is long-form; use the export command")
		}
		if format == export.XLSXFormat && pvOutput == "" {
			return fmt.Errorf("--format xlsx requires --output")
		}
		p, l, err := loadInput(cmd, args)
		if err != nil {
			return err
		}
		out, err := pvOpts.run(cmd, p, l)
		if err != nil {
			return err
		}
		if pvKPIs {
			kpis, err := analysis.MetricKPIs(out.Filtered, out.Pivot.Spec.ValueFields, out.Pivot.Aggregator)
			if err != nil {
				return err
			}
			printKPIs(cmd, kpis)
		}
		b, err := export.Encode(out.Augmented.Table, format, out.Pivot.Spec.RowFields)
		if err != nil {
			return err
		}
		if pvOutput == "" {
			_, err := cmd.OutOrStdout().Write(b)
			return err
		}
		if err := utils.SafeWriteFile(pvOutput, b); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rows to %s\n", out.Augmented.Table.Rows(), pvOutput)
		return nil
	},
}

func printKPIs(cmd *cobra.Command, kpis []analysis.KPI) {
	parts := make([]string, len(kpis))
	for i, k := range kpis {
		parts[i] = fmt.Sprintf("%s: %s", k.Label, k.Display)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " | "))
}

func init() {
	rootCmd.AddCommand(pivotCmd)
	pvOpts.bind(pivotCmd)
	f := pivotCmd.Flags()
	f.StringVar(&pvFormat, "format", "md", "output format: md|csv|json|xlsx")
	f.StringVarP(&pvOutput, "output", "o", "", "write to a file instead of stdout")
	f.BoolVar(&pvKPIs, "kpi", false, "print headline KPIs for the filtered rows first")
}
