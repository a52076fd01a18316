package pivot

import "fmt"

// PivotError reports an invalid or incomplete pivot specification.
// No partial result accompanies it.
type PivotError struct {
	Field  string
	Reason string
}

func (e *PivotError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("pivot: field %q: %s", e.Field, e.Reason)
	}
	return "pivot: " + e.Reason
}

func specError(field, format string, args ...any) error {
	return &PivotError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
