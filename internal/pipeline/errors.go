package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/pivotloom-cli/internal/chart"
	"github.com/KaramelBytes/pivotloom-cli/internal/parser"
	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/remote"
	"github.com/KaramelBytes/pivotloom-cli/internal/session"
)

// EmptyResultWarning reports that filtering or pivoting left no data rows.
// It is carried in PivotOutcome.Warnings, never returned as an error.
type EmptyResultWarning struct {
	// Stage is "filter" when the filter removed every row, "pivot" otherwise.
	Stage string
}

func (w *EmptyResultWarning) Error() string {
	if w.Stage == "filter" {
		return "the current filters match no rows"
	}
	return "the pivot produced no rows"
}

// UnknownFilterWarning lists filter columns that are not in the table and were ignored.
type UnknownFilterWarning struct {
	Columns []string
}

func (w *UnknownFilterWarning) Error() string {
	return fmt.Sprintf("ignored filters on unknown columns: %s", strings.Join(w.Columns, ", "))
}

// Error kinds reported by Classify.
const (
	KindParse    = "parse"
	KindPivot    = "pivot"
	KindChart    = "chart"
	KindFetch    = "fetch"
	KindNotFound = "not_found"
	KindInternal = "internal"
)

// Classify maps an error from this package to a presentation kind.
func Classify(err error) string {
	var (
		pe *parser.ParseError
		ve *pivot.PivotError
		fe *remote.FetchError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &ve):
		return KindPivot
	case errors.As(err, &fe):
		return KindFetch
	case errors.Is(err, chart.ErrUnknownField), errors.Is(err, chart.ErrNotPlottable):
		return KindChart
	case errors.Is(err, session.ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
