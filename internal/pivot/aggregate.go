package pivot

import (
	"fmt"
	"strings"
)

// Aggregator names the reduction applied to each pivot cell.
type Aggregator string

const (
	Sum   Aggregator = "sum"
	Mean  Aggregator = "mean"
	Count Aggregator = "count"
	Max   Aggregator = "max"
	Min   Aggregator = "min"
)

// Aggregators lists the supported reductions in display order.
var Aggregators = []Aggregator{Sum, Mean, Count, Max, Min}

// ParseAggregator accepts the canonical names plus "avg"/"average" for mean.
func ParseAggregator(s string) (Aggregator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum", "total":
		return Sum, nil
	case "mean", "avg", "average":
		return Mean, nil
	case "count", "size":
		return Count, nil
	case "max":
		return Max, nil
	case "min":
		return Min, nil
	}
	return "", &PivotError{Reason: fmt.Sprintf("unknown aggregator %q (use sum, mean, count, max or min)", s)}
}

func (a Aggregator) valid() bool {
	for _, x := range Aggregators {
		if a == x {
			return true
		}
	}
	return false
}

// cell accumulates the values that fall into one output cell.
type cell struct {
	n        int
	sum      float64
	min, max float64
}

func (c *cell) add(v float64) {
	if c.n == 0 {
		c.min, c.max = v, v
	} else {
		c.min = min(c.min, v)
		c.max = max(c.max, v)
	}
	c.sum += v
	c.n++
}

// value reduces the cell. Empty cells are 0 for every aggregator.
func (c *cell) value(a Aggregator) float64 {
	if c.n == 0 {
		return 0
	}
	switch a {
	case Mean:
		return c.sum / float64(c.n)
	case Count:
		return float64(c.n)
	case Max:
		return c.max
	case Min:
		return c.min
	default:
		return c.sum
	}
}
