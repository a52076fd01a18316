package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/pivotloom-cli/internal/analysis"
	"github.com/KaramelBytes/pivotloom-cli/internal/chart"
	"github.com/KaramelBytes/pivotloom-cli/internal/pipeline"
	"github.com/KaramelBytes/pivotloom-cli/internal/utils"
)

var (
	chOpts          pivotOpts
	chKind          string
	chIDFields      []string
	chIncludeTotals bool
	chHTML          string
	chTitle         string
)

var chartCmd = &cobra.Command{
	Use:   "chart <file|->",
	Short: "Project a pivot for charting (JSON data or an HTML page)",
	Example: `  pivotloom chart sales.csv -r region -c channel -v units --kind stacked_bar --html sales.html
  pivotloom chart sales.csv -r region -v units --kind kpi`,
	Args: inputArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := chart.ParseKind(chKind)
		if err != nil {
			return err
		}
		p, l, err := loadInput(cmd, args)
		if err != nil {
			return err
		}
		out, err := chOpts.run(cmd, p, l)
		if err != nil {
			return err
		}
		var proj *chart.Projection
		if chIncludeTotals {
			ids := chIDFields
			if len(ids) == 0 {
				ids = out.Pivot.Spec.RowFields
			}
			proj, err = pipeline.ProjectTable(out.Augmented.Table, ids, kind)
		} else {
			proj, err = p.ProjectForChart(out.Augmented, chIDFields, kind)
		}
		if err != nil {
			return err
		}
		if proj.Empty() {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: nothing to plot")
		}

		if chHTML != "" {
			title := chTitle
			if title == "" {
				title = l.Table.Name
			}
			var buf bytes.Buffer
			if err := chart.RenderHTML(&buf, proj, title); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(chHTML, buf.Bytes()); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s chart to %s\n", proj.Kind, chHTML)
			return nil
		}
		if proj.KPI != nil {
			printKPIs(cmd, []analysis.KPI{
				{Label: "Sum", Value: proj.KPI.Sum, Display: analysis.CompactNumber(proj.KPI.Sum)},
				{Label: "Mean", Value: proj.KPI.Mean, Display: analysis.CompactNumber(proj.KPI.Mean)},
				{Label: "Max", Value: proj.KPI.Max, Display: analysis.CompactNumber(proj.KPI.Max)},
				{Label: "Count", Value: float64(proj.KPI.Count), Display: fmt.Sprint(proj.KPI.Count)},
			})
			return nil
		}
		b, err := utils.PrettyJSON(proj)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chOpts.bind(chartCmd)
	f := chartCmd.Flags()
	f.StringVarP(&chKind, "kind", "k", "grouped_bar", "chart kind: grouped_bar|stacked_bar|line|area|bar|pie|donut|kpi")
	f.StringSliceVar(&chIDFields, "id", nil, "id fields that label each row (default: the row fields)")
	f.BoolVar(&chIncludeTotals, "include-totals", false, "include grand-total row and column in the chart data")
	f.StringVar(&chHTML, "html", "", "render an HTML chart page to this path")
	f.StringVar(&chTitle, "title", "", "chart title (default: input name)")
}
