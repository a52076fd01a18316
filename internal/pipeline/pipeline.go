// Package pipeline composes loading, filtering, pivoting, augmenting and projecting
// into the operations the CLI and HTTP surfaces call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/pivotloom-cli/internal/chart"
	"github.com/KaramelBytes/pivotloom-cli/internal/config"
	"github.com/KaramelBytes/pivotloom-cli/internal/export"
	"github.com/KaramelBytes/pivotloom-cli/internal/filter"
	"github.com/KaramelBytes/pivotloom-cli/internal/parser"
	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/remote"
	"github.com/KaramelBytes/pivotloom-cli/internal/session"
	"github.com/KaramelBytes/pivotloom-cli/internal/summary"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

// Fetcher downloads URL sources.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*remote.Resource, error)
}

// Config holds the tunables of a Pipeline.
type Config struct {
	Table             table.Options
	MaxRows           int
	Sheet             string
	DefaultAggregator pivot.Aggregator
	TotalLabel        string
	RowNumberField    string
	CacheEntries      int
	// Fetcher serves Source.URL; nil disables URL sources.
	Fetcher Fetcher
}

// DefaultConfig matches the config package defaults, without a fetcher.
func DefaultConfig() Config {
	return Config{
		Table:             table.DefaultOptions(),
		DefaultAggregator: pivot.Sum,
		TotalLabel:        summary.DefaultTotalLabel,
		RowNumberField:    summary.DefaultRowNumberField,
		CacheEntries:      session.DefaultCapacity,
	}
}

// ConfigFrom translates global configuration into a pipeline Config, including
// an HTTP client for URL sources.
func ConfigFrom(g *config.Global) (Config, error) {
	c := DefaultConfig()
	c.Table.NumericThreshold = g.NumericThreshold
	if g.UnknownLabel != "" {
		c.Table.UnknownLabel = g.UnknownLabel
	}
	c.Table.KeepDuplicates = g.KeepDuplicates
	c.Table.LenientNumbers = g.LenientNumbers
	var err error
	if c.Table.DecimalSeparator, err = separator("decimal_separator", g.DecimalSeparator, c.Table.DecimalSeparator); err != nil {
		return Config{}, err
	}
	if c.Table.ThousandsSeparator, err = separator("thousands_separator", g.ThousandsSeparator, c.Table.ThousandsSeparator); err != nil {
		return Config{}, err
	}
	if d := c.Table.DecimalSeparator; d != 0 && d == c.Table.ThousandsSeparator {
		return Config{}, fmt.Errorf("decimal_separator and thousands_separator must differ")
	}
	c.MaxRows = g.MaxRows
	c.Sheet = g.Sheet
	if g.DefaultAggregator != "" {
		if c.DefaultAggregator, err = pivot.ParseAggregator(g.DefaultAggregator); err != nil {
			return Config{}, fmt.Errorf("default_aggregator: %w", err)
		}
	}
	if g.TotalLabel != "" {
		c.TotalLabel = g.TotalLabel
	}
	if g.RowNumberField != "" {
		c.RowNumberField = g.RowNumberField
	}
	if g.CacheEntries > 0 {
		c.CacheEntries = g.CacheEntries
	}
	cl := remote.NewClient(
		time.Duration(g.HTTPTimeoutSec)*time.Second,
		g.RetryMaxAttempts,
		time.Duration(g.RetryBaseDelayMs)*time.Millisecond,
		time.Duration(g.RetryMaxDelayMs)*time.Millisecond,
	)
	if g.FetchMaxMB > 0 {
		cl = cl.WithMaxBytes(int64(g.FetchMaxMB) << 20)
	}
	c.Fetcher = cl
	return c, nil
}

func separator(key, s string, def rune) (rune, error) {
	r := []rune(s)
	switch len(r) {
	case 0:
		return def, nil
	case 1:
		return r[0], nil
	}
	return 0, fmt.Errorf("%s must be a single character, got %q", key, s)
}

// Pipeline runs the exploration stages over a shared table cache.
type Pipeline struct {
	cfg   Config
	store *session.Store
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	if cfg.DefaultAggregator == "" {
		cfg.DefaultAggregator = pivot.Sum
	}
	return &Pipeline{cfg: cfg, store: session.NewStore(cfg.CacheEntries)}
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Sessions exposes the session store.
func (p *Pipeline) Sessions() *session.Store { return p.store }

// Source is one input: raw file bytes, pasted text or a URL. Exactly one of
// Data, Text and URL should be set.
type Source struct {
	// Name picks the decoder by extension; empty or unknown means pasted text.
	Name       string
	Data       []byte
	Text       string
	URL        string
	Sheet      string
	SheetIndex int
}

// Loaded is a normalized table plus where it came from.
type Loaded struct {
	Table  *table.Table
	Key    uint64
	Sheet  string
	Cached bool
}

// LoadTable decodes and normalizes src. Identical bytes under identical options
// return the cached table.
func (p *Pipeline) LoadTable(ctx context.Context, src Source) (*Loaded, error) {
	name, data, err := p.resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	popt := parser.Options{Sheet: src.Sheet, SheetIndex: src.SheetIndex, MaxRows: p.cfg.MaxRows}
	if popt.Sheet == "" && popt.SheetIndex == 0 {
		popt.Sheet = p.cfg.Sheet
	}
	key := session.Key(data, fmt.Sprintf("%s|%+v|%+v", decoderHint(name), popt, p.cfg.Table))
	if t, ok := p.store.Table(key); ok {
		return &Loaded{Table: t, Key: key, Sheet: popt.Sheet, Cached: true}, nil
	}
	g, err := parser.Parse(name, data, popt)
	if err != nil {
		return nil, err
	}
	t, err := table.Normalize(g.Name, g.Header, g.Rows, p.cfg.Table)
	if err != nil {
		return nil, &parser.ParseError{Source: name, Reason: "invalid table", Err: err}
	}
	p.store.PutTable(key, t)
	return &Loaded{Table: t, Key: key, Sheet: g.Sheet}, nil
}

func (p *Pipeline) resolve(ctx context.Context, src Source) (string, []byte, error) {
	switch {
	case src.URL != "":
		if p.cfg.Fetcher == nil {
			return "", nil, errors.New("url sources are not enabled")
		}
		res, err := p.cfg.Fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return "", nil, err
		}
		name := src.Name
		if name == "" {
			name = res.Name
		}
		return name, res.Data, nil
	case src.Data != nil:
		return src.Name, src.Data, nil
	default:
		return src.Name, []byte(src.Text), nil
	}
}

// decoderHint keys the cache by decoder, not by display name.
func decoderHint(name string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		return ext
	}
	return "text"
}

// ListColumns splits the user-visible columns by kind.
func (p *Pipeline) ListColumns(t *table.Table) table.Schema {
	return table.ListColumns(t)
}

// PivotOutcome is the result of one recomputation pass.
type PivotOutcome struct {
	Filtered  *table.Table
	Pivot     *pivot.Result
	Augmented *summary.Augmented
	// Warnings holds *EmptyResultWarning and *UnknownFilterWarning values.
	Warnings []error
}

// Empty reports whether the outcome carries an EmptyResultWarning.
func (o *PivotOutcome) Empty() bool {
	for _, w := range o.Warnings {
		var e *EmptyResultWarning
		if errors.As(w, &e) {
			return true
		}
	}
	return false
}

// RunPivot filters t, pivots the result and applies the summary options.
// On a *pivot.PivotError nothing else is returned.
func (p *Pipeline) RunPivot(t *table.Table, f filter.Spec, spec pivot.Spec, aug summary.Options) (*PivotOutcome, error) {
	if spec.Aggregator == "" {
		spec.Aggregator = p.cfg.DefaultAggregator
	}
	if aug.TotalLabel == "" {
		aug.TotalLabel = p.cfg.TotalLabel
	}
	if aug.RowNumberField == "" {
		aug.RowNumberField = p.cfg.RowNumberField
	}
	var warnings []error
	if unknown := filter.Unknown(t, f); len(unknown) > 0 {
		warnings = append(warnings, &UnknownFilterWarning{Columns: unknown})
	}
	filtered := filter.Apply(t, f)
	res, err := pivot.Run(filtered, spec)
	if err != nil {
		return nil, err
	}
	switch {
	case filtered.Rows() == 0:
		warnings = append(warnings, &EmptyResultWarning{Stage: "filter"})
	case res.Table.Rows() == 0:
		warnings = append(warnings, &EmptyResultWarning{Stage: "pivot"})
	}
	return &PivotOutcome{
		Filtered:  filtered,
		Pivot:     res,
		Augmented: summary.Augment(res, aug),
		Warnings:  warnings,
	}, nil
}

// ProjectForChart melts the non-synthetic part of aug and projects it for kind.
// Empty idFields default to the pivot's row fields.
func (p *Pipeline) ProjectForChart(aug *summary.Augmented, idFields []string, kind chart.Kind) (*chart.Projection, error) {
	if len(idFields) == 0 && aug.Pivot != nil {
		idFields = aug.Pivot.Spec.RowFields
	}
	return ProjectTable(aug.Body(), idFields, kind)
}

// ProjectTable projects an arbitrary table, synthetic rows included.
func ProjectTable(t *table.Table, idFields []string, kind chart.Kind) (*chart.Projection, error) {
	recs, err := chart.ToLongForm(t, idFields)
	if err != nil {
		return nil, err
	}
	return chart.Project(recs, kind)
}

// ExportCSV serializes the displayed table as UTF-8 CSV with a header row.
func (p *Pipeline) ExportCSV(t *table.Table) ([]byte, error) {
	return export.CSV(t)
}

// ExportExcel serializes the displayed table as a single-sheet workbook.
func (p *Pipeline) ExportExcel(t *table.Table) ([]byte, error) {
	return export.XLSX(t, t.Name)
}
