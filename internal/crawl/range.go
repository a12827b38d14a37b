package crawl

import (
	"errors"
	"fmt"
	"math"
)

// CompleteUpper is the last id visited by a complete crawl.
const CompleteUpper = 200000

// ErrInvalidRange reports a range that cannot be walked.
var ErrInvalidRange = errors.New("invalid id range")

// Range is an inclusive, ascending span of character ids.
type Range struct {
	Lower int
	Upper int
}

// Complete returns the range covering the whole catalog.
func Complete() Range {
	return Range{Lower: 1, Upper: CompleteUpper}
}

// NewRange orders a and b into a Range. Both bounds must be positive.
func NewRange(a, b int) (Range, error) {
	if a > b {
		a, b = b, a
	}
	r := Range{Lower: a, Upper: b}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Validate reports whether r can be walked.
func (r Range) Validate() error {
	if r.Lower < 1 {
		return fmt.Errorf("%w: lower bound %d must be at least 1", ErrInvalidRange, r.Lower)
	}
	if r.Upper < r.Lower {
		return fmt.Errorf("%w: upper bound %d below lower bound %d", ErrInvalidRange, r.Upper, r.Lower)
	}
	return nil
}

// Span is the number of ids in r.
func (r Range) Span() int {
	return r.Upper - r.Lower + 1
}

// Each calls fn for every id in ascending order, stopping at the first error.
func (r Range) Each(fn func(id int) error) error {
	for id := r.Lower; id <= r.Upper; id++ {
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

// Progress reports whether a progress signal is due before id, and its
// completion percentage rounded half to even. Ranges shorter than ten ids never signal.
func (r Range) Progress(id int) (int, bool) {
	step := r.Span() / 10
	if step == 0 {
		return 0, false
	}
	offset := id - r.Lower
	if offset%step != 0 {
		return 0, false
	}
	return int(math.RoundToEven(float64(offset) / float64(r.Span()) * 100)), true
}
