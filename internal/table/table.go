package table

import (
	"fmt"
	"strconv"
)

// Kind classifies a column for downstream stages.
type Kind int

const (
	// Categorical columns hold text and are usable as row/column groupings and filters.
	Categorical Kind = iota
	// Numeric columns hold float64 values and are usable as pivot value fields.
	Numeric
	// RowNumber is the synthetic 1..N numbering field added by the summary stage.
	RowNumber
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case RowNumber:
		return "row_number"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Column is a named, typed vector. Numeric columns fill Nums; the other kinds fill Strs.
type Column struct {
	Name string
	Kind Kind
	Nums []float64
	Strs []string
}

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Nums)
	}
	return len(c.Strs)
}

// Text returns the canonical text form of cell i.
func (c *Column) Text(i int) string {
	if c.Kind == Numeric {
		return FormatNumber(c.Nums[i])
	}
	return c.Strs[i]
}

// NumericColumn builds a numeric column; the slice is owned by the column afterwards.
func NumericColumn(name string, vals []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Nums: vals}
}

// TextColumn builds a categorical column; the slice is owned by the column afterwards.
func TextColumn(name string, vals []string) *Column {
	return &Column{Name: name, Kind: Categorical, Strs: vals}
}

// Table is an ordered set of equal-length columns with unique names.
// Tables are treated as immutable: stages derive new tables instead of editing one.
type Table struct {
	Name    string
	Columns []*Column
	index   map[string]int
}

// New validates the column invariants and builds a Table.
func New(name string, cols ...*Column) (*Table, error) {
	t := &Table{Name: name, Columns: cols, index: make(map[string]int, len(cols))}
	rows := -1
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		t.index[c.Name] = i
		if rows == -1 {
			rows = c.Len()
		} else if c.Len() != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), rows)
		}
	}
	return t, nil
}

// MustNew is New for statically known inputs; it panics on invariant violations.
func MustNew(name string, cols ...*Column) *Table {
	t, err := New(name, cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Rows returns the row count.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Columns[i], true
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Schema lists numeric and categorical column names in table order.
type Schema struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
}

// ListColumns splits column names by kind. RowNumber fields belong to neither list.
func ListColumns(t *Table) Schema {
	s := Schema{Numeric: []string{}, Categorical: []string{}}
	for _, c := range t.Columns {
		switch c.Kind {
		case Numeric:
			s.Numeric = append(s.Numeric, c.Name)
		case Categorical:
			s.Categorical = append(s.Categorical, c.Name)
		}
	}
	return s
}

// Select returns a new table holding only the rows at idx, in that order.
func (t *Table) Select(idx []int) *Table {
	cols := make([]*Column, len(t.Columns))
	for j, c := range t.Columns {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			nc.Nums = make([]float64, len(idx))
			for k, i := range idx {
				nc.Nums[k] = c.Nums[i]
			}
		} else {
			nc.Strs = make([]string, len(idx))
			for k, i := range idx {
				nc.Strs[k] = c.Strs[i]
			}
		}
		cols[j] = nc
	}
	return MustNew(t.Name, cols...)
}

// Records returns the header and every row as text, suitable for encoders.
func (t *Table) Records() (header []string, rows [][]string) {
	header = t.Names()
	n := t.Rows()
	rows = make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = c.Text(i)
		}
		rows[i] = row
	}
	return header, rows
}

// Equal reports whether two tables hold the same names, kinds and values.
func Equal(a, b *Table) bool {
	if len(a.Columns) != len(b.Columns) || a.Rows() != b.Rows() {
		return false
	}
	for j, ca := range a.Columns {
		cb := b.Columns[j]
		if ca.Name != cb.Name || ca.Kind != cb.Kind {
			return false
		}
		for i := 0; i < ca.Len(); i++ {
			if ca.Kind == Numeric {
				if ca.Nums[i] != cb.Nums[i] {
					return false
				}
			} else if ca.Strs[i] != cb.Strs[i] {
				return false
			}
		}
	}
	return true
}

// FormatNumber renders a float without a trailing ".0" for integral values.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
