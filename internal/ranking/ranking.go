// Package ranking computes sparse ordering positions for board columns.
package ranking

import "fmt"

// DefaultStep is the spacing used when seeding and renumbering a column.
const DefaultStep = 10

// Strategy decides where a task lands between two neighbours and how a
// column is respaced once no position is left between them.
type Strategy interface {
	// Place returns the position for a task inserted between prev and next.
	// A nil neighbour is the open end of the column. ok is false when no
	// position lies strictly between the neighbours.
	Place(prev, next *int) (pos int, ok bool)

	// Spread returns n ascending, evenly spaced positions.
	Spread(n int) []int
}

// Sparse places tasks on integers spaced Step apart and halves gaps on insert.
type Sparse struct {
	Step int
}

// NewSparse returns a Sparse strategy. A step below 2 leaves no room for midpoints.
func NewSparse(step int) (Sparse, error) {
	if step < 2 {
		return Sparse{}, fmt.Errorf("ranking step must be at least 2, got %d", step)
	}
	return Sparse{Step: step}, nil
}

func (s Sparse) step() int {
	if s.Step < 2 {
		return DefaultStep
	}
	return s.Step
}

// Place implements Strategy.
func (s Sparse) Place(prev, next *int) (int, bool) {
	switch {
	case prev == nil && next == nil:
		return s.step(), true
	case prev == nil:
		pos := floorDiv(*next, 2)
		return pos, pos < *next
	case next == nil:
		pos := *prev + s.step()
		return pos, pos > *prev
	default:
		pos := floorDiv(*prev+*next, 2)
		return pos, *prev < pos && pos < *next
	}
}

// Spread implements Strategy.
func (s Sparse) Spread(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = (i + 1) * s.step()
	}
	return out
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
