// Package filter restricts a table to rows whose categorical values fall in chosen subsets.
package filter

import (
	"sort"

	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

// Spec maps a column name to its allowed values.
// Columns are AND-combined; values within a column are OR-combined. A missing or
// empty value list leaves the column unrestricted.
type Spec map[string][]string

// IsEmpty reports whether s restricts nothing.
func (s Spec) IsEmpty() bool {
	for _, vals := range s {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// Apply returns the rows of t that satisfy every column constraint, in their original order.
// Constraints naming columns t lacks are ignored; see Unknown.
func Apply(t *table.Table, spec Spec) *table.Table {
	if spec.IsEmpty() {
		return t
	}
	type constraint struct {
		col *table.Column
		set map[string]struct{}
	}
	var cons []constraint
	for name, allowed := range spec {
		if len(allowed) == 0 {
			continue
		}
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		set := make(map[string]struct{}, len(allowed))
		for _, v := range allowed {
			set[v] = struct{}{}
		}
		cons = append(cons, constraint{col: col, set: set})
	}
	if len(cons) == 0 {
		return t
	}

	n := t.Rows()
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for _, c := range cons {
			if _, ok := c.set[c.col.Text(i)]; !ok {
				pass = false
				break
			}
		}
		if pass {
			idx = append(idx, i)
		}
	}
	return t.Select(idx)
}

// Unknown lists spec columns with a non-empty subset that t does not have, sorted.
func Unknown(t *table.Table, spec Spec) []string {
	var out []string
	for name, allowed := range spec {
		if len(allowed) == 0 {
			continue
		}
		if _, ok := t.Column(name); !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// DistinctValues returns the distinct values of a column in first-seen order.
func DistinctValues(t *table.Table, column string) ([]string, bool) {
	col, ok := t.Column(column)
	if !ok {
		return nil, false
	}
	seen := make(map[string]struct{})
	out := []string{}
	for i := 0; i < col.Len(); i++ {
		v := col.Text(i)
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, true
}
