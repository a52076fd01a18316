package parser

import "fmt"

// ParseError reports input that cannot be decoded into a table.
type ParseError struct {
	Source string
	// Line is the 1-based input line, or 0 when not applicable.
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	src := e.Source
	if src == "" {
		src = "input"
	}
	msg := fmt.Sprintf("parse %s", src)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s: line %d", msg, e.Line)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }
