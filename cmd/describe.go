package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/pivotloom-cli/internal/analysis"
	"github.com/KaramelBytes/pivotloom-cli/internal/utils"
)

var (
	descOutput     string
	descJSON       bool
	descSampleRows int
	descTop        int
	descGroupBy    string
	descNoCorr     bool
	descOutlierThr float64
)

var describeCmd = &cobra.Command{
	Use:   "describe <file|->",
	Short: "Profile a dataset: column stats, top values, correlations",
	Args:  inputArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, l, err := loadInput(cmd, args)
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		if cfg != nil && cfg.TopValues > 0 {
			opt.TopValues = cfg.TopValues
		}
		if cmd.Flags().Changed("sample-rows") {
			opt.SampleRows = descSampleRows
		}
		if descTop > 0 {
			opt.TopValues = descTop
		}
		if descOutlierThr > 0 {
			opt.OutlierThreshold = descOutlierThr
		}
		opt.GroupBy = descGroupBy
		opt.Correlations = !descNoCorr
		rep := analysis.Profile(l.Table, opt)

		var out []byte
		if descJSON {
			if out, err = utils.PrettyJSON(rep); err != nil {
				return err
			}
			out = append(out, '\n')
		} else {
			out = []byte(rep.Markdown())
		}
		if descOutput == "" {
			_, err := cmd.OutOrStdout().Write(out)
			return err
		}
		if err := utils.SafeWriteFile(descOutput, out); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", descOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	f := describeCmd.Flags()
	f.StringVarP(&descOutput, "output", "o", "", "write the profile to a file instead of stdout")
	f.BoolVar(&descJSON, "json", false, "emit JSON instead of markdown")
	f.IntVar(&descSampleRows, "sample-rows", 5, "number of head rows to include")
	f.IntVar(&descTop, "top", 0, "top values per categorical column (default from config)")
	f.StringVar(&descGroupBy, "group-by", "", "categorical column to summarize numeric columns by")
	f.BoolVar(&descNoCorr, "no-corr", false, "skip the correlation matrix")
	f.Float64Var(&descOutlierThr, "outlier-threshold", 0, "robust z-score above which values count as outliers")
}
