package hlc

import (
	"math/rand"
	"testing"
)

const propertyIterations = 2000

// randomTimestamp draws from a narrow range so ties are frequent.
func randomTimestamp(r *rand.Rand) Timestamp {
	return NewTimestampWithLogical(uint64(r.Intn(8)), uint32(r.Intn(8)))
}

// TestClock_Property_ZeroInitialization tests that New always starts at logical zero
func TestClock_Property_ZeroInitialization(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < propertyIterations; i++ {
		p := r.Uint64()
		if c := NewTimestamp(p); c.Logical != 0 || c.Physical != p {
			t.Fatalf("New(%d) = %v, want %d.0", p, c, p)
		}
	}
}

// TestClock_Property_TotalOrder tests totality, antisymmetry, transitivity and
// agreement with the lexicographic order on (physical, logical)
func TestClock_Property_TotalOrder(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < propertyIterations; i++ {
		a, b, c := randomTimestamp(r), randomTimestamp(r), randomTimestamp(r)

		ab, ba := a.Compare(b), b.Compare(a)
		if ab != -ba {
			t.Fatalf("antisymmetry: %v vs %v gave %d and %d", a, b, ab, ba)
		}
		if (ab == 0) != (a == b) {
			t.Fatalf("Compare(%v, %v) = 0 must coincide with structural equality", a, b)
		}

		lex := a.Physical < b.Physical || (a.Physical == b.Physical && a.Logical < b.Logical)
		if a.Less(b) != lex {
			t.Fatalf("Less(%v, %v) = %v, lexicographic order says %v", a, b, a.Less(b), lex)
		}

		if a.Compare(b) <= 0 && b.Compare(c) <= 0 && a.Compare(c) > 0 {
			t.Fatalf("transitivity: %v <= %v <= %v but %v > %v", a, b, c, a, c)
		}
	}
}

// TestClock_Property_UpdatePhysicalIsExactMax tests that the resolved physical
// time is exactly the max of the three inputs
func TestClock_Property_UpdatePhysicalIsExactMax(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < propertyIterations; i++ {
		c, recv := randomTimestamp(r), randomTimestamp(r)
		now := uint64(r.Intn(8))
		before := c

		if err := c.Update(recv, now); err != nil {
			t.Fatalf("Update(%v, %v, %d): %v", before, recv, now, err)
		}
		if want := max(before.Physical, recv.Physical, now); c.Physical != want {
			t.Fatalf("Update(%v, %v, %d).Physical = %d, want %d", before, recv, now, c.Physical, want)
		}
	}
}

// TestClock_Property_UpdateIsCausal tests that the result orders strictly after
// both the previous value and the received timestamp
func TestClock_Property_UpdateIsCausal(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for i := 0; i < propertyIterations; i++ {
		c, recv := randomTimestamp(r), randomTimestamp(r)
		now := uint64(r.Intn(8))
		before := c

		if err := c.Update(recv, now); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if !before.Less(c) || !recv.Less(c) {
			t.Fatalf("Update(%v, %v, %d) = %v does not follow both inputs", before, recv, now, c)
		}
	}
}

// TestClock_Property_TieBreakGrowth tests that when the physical time comes from
// self or received, the logical counter exceeds both previous counters
func TestClock_Property_TieBreakGrowth(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	checked := 0
	for i := 0; i < propertyIterations; i++ {
		c, recv := randomTimestamp(r), randomTimestamp(r)
		now := uint64(r.Intn(8))
		before := c

		if err := c.Update(recv, now); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if c.Physical != before.Physical && c.Physical != recv.Physical {
			continue
		}
		checked++
		if c.Logical <= before.Logical || c.Logical <= recv.Logical {
			t.Fatalf("Update(%v, %v, %d) = %v: logical did not grow past max(%d, %d)",
				before, recv, now, c, before.Logical, recv.Logical)
		}
	}
	if checked == 0 {
		t.Fatal("no tie cases generated")
	}
}

// TestClock_Property_LocalMonotonicity tests that a clock driven by a sequence
// of updates never moves its physical time backwards
func TestClock_Property_LocalMonotonicity(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	var c Timestamp
	for i := 0; i < propertyIterations; i++ {
		prev := c
		recv := NewTimestampWithLogical(uint64(r.Intn(1000)), uint32(r.Intn(4)))
		if err := c.Update(recv, uint64(r.Intn(1000))); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if c.Physical < prev.Physical || !prev.Less(c) {
			t.Fatalf("step %d went backwards: %v -> %v", i, prev, c)
		}
	}
}

// TestClock_Property_ConcurrencySymmetric tests that IsConcurrent is symmetric
// and implies equal physical times
func TestClock_Property_ConcurrencySymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < propertyIterations; i++ {
		a, b := randomTimestamp(r), randomTimestamp(r)
		if a.IsConcurrent(b) != b.IsConcurrent(a) {
			t.Fatalf("IsConcurrent not symmetric for %v and %v", a, b)
		}
		if a.IsConcurrent(b) && a.Physical != b.Physical {
			t.Fatalf("%v and %v reported concurrent with different physical times", a, b)
		}
	}
}
