package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const BinCount = 7

// Bins partitions a fitted range into equal-width, right-closed intervals
// (edges[i], edges[i+1]]. The first edge sits 0.1% of the range below the
// observed minimum so the minimum itself falls into the first bin.
type Bins struct {
	edges []float64
}

func NewBins(values []float64, n int) (*Bins, error) {
	if len(values) == 0 {
		return nil, ErrEmptyDataset
	}
	if n <= 0 {
		return nil, errors.New("bin count must be positive")
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite value %v", v)
		}
	}

	lo, hi := floats.Min(values), floats.Max(values)
	edges := make([]float64, n+1)
	if lo == hi {
		adj := 0.001 * math.Abs(lo)
		if lo == 0 {
			adj = 0.001
		}
		floats.Span(edges, lo-adj, hi+adj)
	} else {
		floats.Span(edges, lo, hi)
		edges[0] -= (hi - lo) * 0.001
	}
	return &Bins{edges: edges}, nil
}

// Locate returns the zero-based bin index holding x.
func (b *Bins) Locate(x float64) (int, error) {
	last := len(b.edges) - 1
	if math.IsNaN(x) || x <= b.edges[0] || x > b.edges[last] {
		return -1, ErrValueOutOfRange
	}
	return sort.SearchFloat64s(b.edges, x) - 1, nil
}

func (b *Bins) Len() int {
	return len(b.edges) - 1
}

func (b *Bins) Edges() []float64 {
	return append([]float64(nil), b.edges...)
}
