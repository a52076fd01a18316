package table

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\uFEFF"

// Options controls kind inference and imputation.
type Options struct {
	// NumericThreshold is the share of parseable non-empty cells above which a column is numeric.
	NumericThreshold float64
	// UnknownLabel replaces missing categorical cells.
	UnknownLabel string
	// DecimalSeparator for numbers; 0 means '.'.
	DecimalSeparator rune
	// ThousandsSeparator for numbers; 0 strips common separators other than the decimal one.
	ThousandsSeparator rune
	// KeepDuplicates disables exact-duplicate row removal.
	KeepDuplicates bool
	// LenientNumbers accepts "12%" and grouped digits such as "1,234" as numbers
	// and trims surrounding spaces from categorical cells.
	LenientNumbers bool
}

// DefaultOptions returns the loader defaults.
func DefaultOptions() Options {
	return Options{
		NumericThreshold: 0.5,
		UnknownLabel:     "Unknown",
	}
}

// Normalize builds a canonical Table from a header and raw text rows:
// header cleanup, kind inference, imputation, then exact-duplicate removal.
// Rows shorter than the header are padded with missing cells.
func Normalize(name string, header []string, rows [][]string, opt Options) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("no columns")
	}
	if opt.NumericThreshold <= 0 || opt.NumericThreshold >= 1 {
		opt.NumericThreshold = 0.5
	}
	if opt.UnknownLabel == "" {
		opt.UnknownLabel = "Unknown"
	}
	names := CleanHeader(header)
	cols := make([]*Column, len(names))
	cell := func(r []string, j int) string {
		if j < len(r) {
			return r[j]
		}
		return ""
	}
	for j, n := range names {
		var nonEmpty, parsed int
		nums := make([]float64, len(rows))
		ok := make([]bool, len(rows))
		for i, r := range rows {
			v := cell(r, j)
			if IsMissing(v) {
				continue
			}
			nonEmpty++
			if f, good := ParseNumeric(v, opt); good {
				nums[i] = f
				ok[i] = true
				parsed++
			}
		}
		if nonEmpty > 0 && float64(parsed)/float64(nonEmpty) > opt.NumericThreshold {
			good := make([]float64, 0, parsed)
			for i := range nums {
				if ok[i] {
					good = append(good, nums[i])
				}
			}
			med := Median(good)
			for i := range nums {
				if !ok[i] {
					nums[i] = med
				}
			}
			cols[j] = NumericColumn(n, nums)
			continue
		}
		strs := make([]string, len(rows))
		for i, r := range rows {
			v := cell(r, j)
			if IsMissing(v) {
				strs[i] = opt.UnknownLabel
				continue
			}
			if opt.LenientNumbers {
				v = strings.TrimSpace(v)
			}
			strs[i] = v
		}
		cols[j] = TextColumn(n, strs)
	}
	t, err := New(name, cols...)
	if err != nil {
		return nil, err
	}
	if opt.KeepDuplicates {
		return t, nil
	}
	return Dedup(t), nil
}

// CleanHeader strips a leading BOM, NFC-normalizes and trims names, fills blanks with
// "Unnamed: i" and de-duplicates repeats as name.1, name.2, ...
func CleanHeader(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]struct{}, len(header))
	next := make(map[string]int)
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(norm.NFC.String(h))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := taken[h]; dup {
			base := h
			for k := next[base] + 1; ; k++ {
				cand := fmt.Sprintf("%s.%d", base, k)
				if _, used := taken[cand]; !used {
					h = cand
					next[base] = k
					break
				}
			}
		}
		taken[h] = struct{}{}
		out[i] = h
	}
	return out
}

// Dedup removes rows equal in every column to an earlier row, keeping first-occurrence order.
func Dedup(t *Table) *Table {
	n := t.Rows()
	buckets := make(map[uint64][]int, n)
	keep := make([]int, 0, n)
	var buf []byte
	for i := 0; i < n; i++ {
		buf = rowKey(buf[:0], t, i)
		h := xxh3.Hash(buf)
		dup := false
		for _, prev := range buckets[h] {
			if rowsEqual(t, prev, i) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		buckets[h] = append(buckets[h], i)
		keep = append(keep, i)
	}
	if len(keep) == n {
		return t
	}
	return t.Select(keep)
}

// rowKey appends a length-prefixed encoding of row i so distinct rows never share bytes.
func rowKey(buf []byte, t *Table, i int) []byte {
	for _, c := range t.Columns {
		if c.Kind == Numeric {
			buf = binary.LittleEndian.AppendUint64(buf, floatBits(c.Nums[i]))
			continue
		}
		buf = binary.AppendUvarint(buf, uint64(len(c.Strs[i])))
		buf = append(buf, c.Strs[i]...)
	}
	return buf
}

// floatBits maps -0 onto +0 so values that compare equal hash equal.
func floatBits(f float64) uint64 {
	if f == 0 {
		return 0
	}
	return math.Float64bits(f)
}

func rowsEqual(t *Table, a, b int) bool {
	for _, c := range t.Columns {
		if c.Kind == Numeric {
			if c.Nums[a] != c.Nums[b] {
				return false
			}
		} else if c.Strs[a] != c.Strs[b] {
			return false
		}
	}
	return true
}
