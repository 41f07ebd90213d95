package ml

import (
	"fmt"
	"sort"
)

// LabelEncoder maps the bin indices observed during fit to dense codes
// 0..k-1 in ascending bin order. Bins never observed have no code.
type LabelEncoder struct {
	classes []int
	codes   map[int]int
}

func (e *LabelEncoder) Fit(values []int) {
	seen := make(map[int]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Ints(classes)

	e.classes = classes
	e.codes = make(map[int]int, len(classes))
	for code, class := range classes {
		e.codes[class] = code
	}
}

func (e *LabelEncoder) Encode(value int) (int, error) {
	code, ok := e.codes[value]
	if !ok {
		return 0, fmt.Errorf("%w: bin %d", ErrUnseenBin, value)
	}
	return code, nil
}

func (e *LabelEncoder) Classes() []int {
	return append([]int(nil), e.classes...)
}
