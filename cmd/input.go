package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/pivotloom-cli/internal/filter"
	"github.com/KaramelBytes/pivotloom-cli/internal/pipeline"
	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/remote"
	"github.com/KaramelBytes/pivotloom-cli/internal/summary"
)

var (
	inURL        string
	inSheet      string
	inSheetIndex int
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&inURL, "url", "", "load the input from an http(s) URL instead of a file")
	pf.StringVar(&inSheet, "sheet", "", "workbook sheet name (case-insensitive)")
	pf.IntVar(&inSheetIndex, "sheet-index", 0, "workbook sheet position, 1-based")
}

// newPipeline builds a pipeline from the loaded config, or from defaults when none loaded.
func newPipeline() (*pipeline.Pipeline, error) {
	if cfg == nil {
		c := pipeline.DefaultConfig()
		c.Fetcher = remote.NewClient(0, 0, 0, 0)
		return pipeline.New(c), nil
	}
	c, err := pipeline.ConfigFrom(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return pipeline.New(c), nil
}

// inputArgs accepts one positional input unless --url is set.
func inputArgs(cmd *cobra.Command, args []string) error {
	if inURL != "" {
		return cobra.NoArgs(cmd, args)
	}
	if len(args) != 1 {
		return errors.New("expected one input: a file path, '-' for stdin, or --url")
	}
	return nil
}

// loadInput resolves the positional argument (file path or "-" for stdin) or --url.
func loadInput(cmd *cobra.Command, args []string) (*pipeline.Pipeline, *pipeline.Loaded, error) {
	p, err := newPipeline()
	if err != nil {
		return nil, nil, err
	}
	src := pipeline.Source{URL: inURL, Sheet: inSheet, SheetIndex: inSheetIndex}
	switch {
	case src.URL != "":
	case args[0] == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, nil, fmt.Errorf("read stdin: %w", err)
		}
		src.Text = string(b)
	default:
		b, err := os.ReadFile(args[0])
		if err != nil {
			return nil, nil, fmt.Errorf("read file: %w", err)
		}
		src.Name = filepath.Base(args[0])
		src.Data = b
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	l, err := p.LoadTable(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	debugf(cmd, "loaded %q: %d rows x %d columns (sheet %q)", l.Table.Name, l.Table.Rows(), len(l.Table.Columns), l.Sheet)
	return p, l, nil
}

// pivotOpts are the filter, pivot and summary flags shared by pivot, chart and export.
type pivotOpts struct {
	rows, cols, values []string
	agg                string
	filters            []string
	rowNumber          bool
	totalRow           bool
	totalCol           bool
	totalLabel         string
}

func (o *pivotOpts) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&o.rows, "rows", "r", nil, "row fields (categorical)")
	f.StringSliceVarP(&o.cols, "cols", "c", nil, "column fields (categorical)")
	f.StringSliceVarP(&o.values, "values", "v", nil, "value fields (numeric)")
	f.StringVarP(&o.agg, "agg", "a", "", "aggregator: sum|mean|count|max|min (default from config)")
	f.StringArrayVarP(&o.filters, "filter", "f", nil, "keep rows where col is one of the values: col=v1,v2 (repeatable)")
	f.BoolVar(&o.rowNumber, "row-number", false, "add a row-number column")
	f.BoolVar(&o.totalRow, "total-row", false, "append a grand-total row")
	f.BoolVar(&o.totalCol, "total-col", false, "append a grand-total column")
	f.StringVar(&o.totalLabel, "total-label", "", "label for grand totals (default from config)")
}

func (o *pivotOpts) active() bool { return len(o.rows) > 0 || len(o.values) > 0 }

func (o *pivotOpts) specs() (filter.Spec, pivot.Spec, summary.Options, error) {
	fs, err := parseFilters(o.filters)
	if err != nil {
		return nil, pivot.Spec{}, summary.Options{}, err
	}
	ps := pivot.Spec{RowFields: o.rows, ColFields: o.cols, ValueFields: o.values}
	if o.agg != "" {
		if ps.Aggregator, err = pivot.ParseAggregator(o.agg); err != nil {
			return nil, pivot.Spec{}, summary.Options{}, err
		}
	}
	so := summary.Options{
		AddRowNumber:        o.rowNumber,
		AddGrandTotalRow:    o.totalRow,
		AddGrandTotalColumn: o.totalCol,
		TotalLabel:          o.totalLabel,
	}
	return fs, ps, so, nil
}

// run recomputes the pivot and prints any warnings to stderr.
func (o *pivotOpts) run(cmd *cobra.Command, p *pipeline.Pipeline, l *pipeline.Loaded) (*pipeline.PivotOutcome, error) {
	fs, ps, so, err := o.specs()
	if err != nil {
		return nil, err
	}
	out, err := p.RunPivot(l.Table, fs, ps, so)
	if err != nil {
		return nil, err
	}
	for _, w := range out.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v\n", w)
	}
	debugf(cmd, "filter kept %d of %d rows; pivot has %d rows", out.Filtered.Rows(), l.Table.Rows(), out.Pivot.Table.Rows())
	return out, nil
}

// parseFilters turns ["region=East,West", "channel=web"] into a filter spec.
func parseFilters(in []string) (filter.Spec, error) {
	if len(in) == 0 {
		return nil, nil
	}
	spec := filter.Spec{}
	for _, f := range in {
		col, vals, ok := strings.Cut(f, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid --filter %q (use col=v1,v2)", f)
		}
		for _, v := range strings.Split(vals, ",") {
			spec[col] = append(spec[col], strings.TrimSpace(v))
		}
	}
	return spec, nil
}

func debugf(cmd *cobra.Command, format string, args ...any) {
	if debug {
		fmt.Fprintf(cmd.ErrOrStderr(), "[debug] "+format+"\n", args...)
	}
}

// describeError prefixes typed pipeline errors with a user-facing hint.
func describeError(err error) string {
	switch pipeline.Classify(err) {
	case pipeline.KindParse:
		return fmt.Sprintf("could not read the input: %v", err)
	case pipeline.KindPivot:
		return fmt.Sprintf("invalid pivot: %v", err)
	case pipeline.KindFetch:
		return fmt.Sprintf("download failed: %v", err)
	}
	return err.Error()
}
