package table

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// missingTokens are read as empty cells, matching common spreadsheet/CSV exports.
var missingTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "#n/a": {}, "<na>": {}, "-nan": {},
}

// IsMissing reports whether a raw cell should be treated as absent.
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseNumeric converts a raw cell to a float using the configured separators.
// A DecimalSeparator of 0 means '.'. A set ThousandsSeparator is always stripped.
// With LenientNumbers a trailing '%' is dropped, and a ThousandsSeparator of 0 strips
// ',' '.' and spaces that are not the decimal separator.
func ParseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if opt.LenientNumbers {
		raw = strings.TrimSuffix(raw, "%")
		raw = strings.ReplaceAll(raw, "\u00A0", " ")
		raw = strings.TrimSpace(raw)
	}
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	thou := opt.ThousandsSeparator
	switch {
	case thou != 0 && thou != dec:
		raw = strings.ReplaceAll(raw, string(thou), "")
	case thou == 0 && opt.LenientNumbers:
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Median returns the median of vals without modifying the slice.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return Quantile(cp, 0.5)
}

// Quantile interpolates linearly over an already sorted slice.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
