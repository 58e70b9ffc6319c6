package hlc

import (
	"cmp"
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

var (
	// ErrLogicalOverflow is returned when the logical counter cannot advance
	// past its current value in its numeric type. The clock is left unchanged.
	ErrLogicalOverflow = errors.New("hlc: logical counter overflow")
	// ErrNegativeTicks is returned by AddLogicalTicks for a negative tick count.
	ErrNegativeTicks = errors.New("hlc: negative logical ticks")
)

// Number is the set of ordered, additive types usable as either clock
// component. The zero value of the logical type is the initial counter.
type Number interface {
	constraints.Integer | constraints.Float
}

// Clock is a hybrid logical clock value. Clocks are compared by Physical
// first and Logical second.
//
// Clock is not goroutine-safe. Use Source when several goroutines share one.
type Clock[P, L Number] struct {
	Physical P
	Logical  L
}

// Timestamp is the common 64-bit physical / 32-bit logical clock.
type Timestamp = Clock[uint64, uint32]

// New returns a clock at the given physical time with a zero logical counter.
func New[P, L Number](physical P) Clock[P, L] {
	return Clock[P, L]{Physical: physical}
}

// NewWithLogical returns a clock with both components set. No validation is
// done; it exists for decoding and for seeding from a persisted value.
func NewWithLogical[P, L Number](physical P, logical L) Clock[P, L] {
	return Clock[P, L]{Physical: physical, Logical: logical}
}

// NewTimestamp is New for the Timestamp alias.
func NewTimestamp(physical uint64) Timestamp {
	return New[uint64, uint32](physical)
}

// NewTimestampWithLogical is NewWithLogical for the Timestamp alias.
func NewTimestampWithLogical(physical uint64, logical uint32) Timestamp {
	return NewWithLogical(physical, logical)
}

// Update advances c past both its own value and received, using now as the
// current physical time reading.
//
// The new physical component is max(c.Physical, received.Physical, now). If
// that value came from c or received, the logical component becomes
// max(c.Logical, received.Logical)+1. If now is strictly ahead of both, the
// logical component becomes c.Logical+1.
//
// On ErrLogicalOverflow c is not modified.
func (c *Clock[P, L]) Update(received Clock[P, L], now P) error {
	physical := max(c.Physical, received.Physical, now)

	var (
		logical L
		ok      bool
	)
	switch {
	case physical == c.Physical || physical == received.Physical:
		logical, ok = increment(max(c.Logical, received.Logical), 1)
	case physical == now:
		logical, ok = increment(c.Logical, 1)
	default:
		// max always returns one of its operands unless one of them is NaN.
		panic(fmt.Sprintf("hlc: unordered physical time in update (self=%v received=%v now=%v)",
			c.Physical, received.Physical, now))
	}
	if !ok {
		return ErrLogicalOverflow
	}

	c.Physical = physical
	c.Logical = logical
	return nil
}

// AddLogicalTicks advances the logical component by ticks without touching the
// physical component.
func (c *Clock[P, L]) AddLogicalTicks(ticks L) error {
	if ticks < 0 {
		return ErrNegativeTicks
	}
	if ticks == 0 {
		return nil
	}
	logical, ok := increment(c.Logical, ticks)
	if !ok {
		return ErrLogicalOverflow
	}
	c.Logical = logical
	return nil
}

// Compare returns -1, 0 or +1 depending on whether c is before, equal to or
// after other.
func (c Clock[P, L]) Compare(other Clock[P, L]) int {
	if r := cmp.Compare(c.Physical, other.Physical); r != 0 {
		return r
	}
	return cmp.Compare(c.Logical, other.Logical)
}

// Less reports whether c orders strictly before other.
func (c Clock[P, L]) Less(other Clock[P, L]) bool {
	return c.Compare(other) < 0
}

// IsConcurrent reports whether c and other share a physical time but differ in
// their logical counter. Clocks with different physical times are never
// reported concurrent; this is a same-instant heuristic, not vector-clock
// concurrency.
func (c Clock[P, L]) IsConcurrent(other Clock[P, L]) bool {
	return c.Physical == other.Physical && c.Logical != other.Logical
}

// IsZero reports whether both components are zero.
func (c Clock[P, L]) IsZero() bool {
	return c.Physical == 0 && c.Logical == 0
}

// String returns "physical.logical".
func (c Clock[P, L]) String() string {
	return fmt.Sprintf("%v.%v", c.Physical, c.Logical)
}

// increment returns v+delta and true, or v and false when the sum does not
// land strictly above v (integer wrap, float precision loss, NaN).
func increment[L Number](v, delta L) (L, bool) {
	sum := v + delta
	if !(sum > v) {
		return v, false
	}
	return sum, true
}
