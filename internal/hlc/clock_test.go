package hlc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := NewTimestamp(100)
	assert.Equal(t, uint64(100), c.Physical)
	assert.Equal(t, uint32(0), c.Logical)
}

func TestNewWithLogical(t *testing.T) {
	c := NewTimestampWithLogical(100, 50)
	assert.Equal(t, uint64(100), c.Physical)
	assert.Equal(t, uint32(50), c.Logical)
}

func TestNew_GenericWidths(t *testing.T) {
	small := New[uint16, uint8](7)
	assert.Equal(t, uint16(7), small.Physical)
	assert.Equal(t, uint8(0), small.Logical)

	signed := NewWithLogical[int64, int32](-5, 3)
	assert.Equal(t, int64(-5), signed.Physical)
	assert.Equal(t, int32(3), signed.Logical)

	float := New[float64, float64](1.5)
	assert.Equal(t, 1.5, float.Physical)
	assert.Equal(t, 0.0, float.Logical)
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name     string
		self     Timestamp
		received Timestamp
		now      uint64
		want     Timestamp
	}{
		{
			name:     "now strictly ahead",
			self:     NewTimestamp(100),
			received: NewTimestampWithLogical(150, 10),
			now:      200,
			want:     NewTimestampWithLogical(200, 1),
		},
		{
			name:     "now strictly ahead keeps counting from self",
			self:     NewTimestampWithLogical(100, 10),
			received: NewTimestampWithLogical(150, 10),
			now:      200,
			want:     NewTimestampWithLogical(200, 11),
		},
		{
			name:     "received ahead",
			self:     NewTimestampWithLogical(100, 3),
			received: NewTimestampWithLogical(150, 10),
			now:      120,
			want:     NewTimestampWithLogical(150, 11),
		},
		{
			name:     "received ahead with larger self logical",
			self:     NewTimestampWithLogical(100, 40),
			received: NewTimestampWithLogical(150, 10),
			now:      120,
			want:     NewTimestampWithLogical(150, 41),
		},
		{
			name:     "all three tie",
			self:     NewTimestampWithLogical(100, 4),
			received: NewTimestampWithLogical(100, 7),
			now:      100,
			want:     NewTimestampWithLogical(100, 8),
		},
		{
			name:     "received ties now",
			self:     NewTimestampWithLogical(90, 20),
			received: NewTimestampWithLogical(100, 2),
			now:      100,
			want:     NewTimestampWithLogical(100, 21),
		},
		{
			name:     "self ahead of both",
			self:     NewTimestampWithLogical(300, 5),
			received: NewTimestampWithLogical(150, 10),
			now:      200,
			want:     NewTimestampWithLogical(300, 11),
		},
		{
			name:     "self ties now, received behind",
			self:     NewTimestampWithLogical(200, 5),
			received: NewTimestampWithLogical(150, 1),
			now:      200,
			want:     NewTimestampWithLogical(200, 6),
		},
		{
			name:     "self ties received, now behind",
			self:     NewTimestampWithLogical(200, 5),
			received: NewTimestampWithLogical(200, 5),
			now:      10,
			want:     NewTimestampWithLogical(200, 6),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.self
			require.NoError(t, c.Update(tt.received, tt.now))
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestUpdate_LogicalOverflowLeavesClockUnchanged(t *testing.T) {
	c := NewTimestampWithLogical(100, math.MaxUint32)
	before := c

	err := c.Update(NewTimestamp(50), 80)
	require.ErrorIs(t, err, ErrLogicalOverflow)
	assert.Equal(t, before, c)

	// Overflow from the received side as well.
	c = NewTimestamp(100)
	err = c.Update(NewTimestampWithLogical(100, math.MaxUint32), 100)
	require.ErrorIs(t, err, ErrLogicalOverflow)
	assert.Equal(t, NewTimestamp(100), c)
}

func TestUpdate_SignedOverflow(t *testing.T) {
	c := NewWithLogical[int64, int8](10, math.MaxInt8)
	err := c.Update(New[int64, int8](10), 10)
	require.ErrorIs(t, err, ErrLogicalOverflow)
	assert.Equal(t, int8(math.MaxInt8), c.Logical)
}

func TestUpdate_FloatPrecisionLossIsOverflow(t *testing.T) {
	// 2^53 + 1 is not representable as float64.
	c := NewWithLogical[float64, float64](1, 1<<53)
	err := c.Update(New[float64, float64](1), 1)
	require.ErrorIs(t, err, ErrLogicalOverflow)
	assert.Equal(t, float64(1<<53), c.Logical)
}

func TestUpdate_NaNPhysicalPanics(t *testing.T) {
	c := New[float64, uint32](1)
	assert.Panics(t, func() {
		_ = c.Update(New[float64, uint32](2), math.NaN())
	})
}

func TestAddLogicalTicks(t *testing.T) {
	c := NewTimestampWithLogical(100, 5)

	require.NoError(t, c.AddLogicalTicks(10))
	assert.Equal(t, NewTimestampWithLogical(100, 15), c)

	require.NoError(t, c.AddLogicalTicks(0))
	assert.Equal(t, NewTimestampWithLogical(100, 15), c)
}

func TestAddLogicalTicks_Overflow(t *testing.T) {
	c := NewTimestampWithLogical(100, math.MaxUint32-2)

	require.ErrorIs(t, c.AddLogicalTicks(3), ErrLogicalOverflow)
	assert.Equal(t, uint32(math.MaxUint32-2), c.Logical)

	require.NoError(t, c.AddLogicalTicks(2))
	assert.Equal(t, uint32(math.MaxUint32), c.Logical)
}

func TestAddLogicalTicks_Negative(t *testing.T) {
	c := NewWithLogical[int64, int32](100, 5)
	require.ErrorIs(t, c.AddLogicalTicks(-1), ErrNegativeTicks)
	assert.Equal(t, int32(5), c.Logical)
}

func TestIsConcurrent(t *testing.T) {
	a := NewTimestampWithLogical(100, 5)

	assert.True(t, a.IsConcurrent(NewTimestampWithLogical(100, 10)))
	assert.False(t, a.IsConcurrent(NewTimestampWithLogical(101, 1)))
	assert.False(t, a.IsConcurrent(a), "a clock is not concurrent with itself")
}

func TestOrdering(t *testing.T) {
	a := NewTimestampWithLogical(100, 5)
	b := NewTimestampWithLogical(100, 10)
	c := NewTimestampWithLogical(150, 0)

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.True(t, a.Less(c))

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, c.Compare(b))
	assert.Equal(t, 0, a.Compare(NewTimestampWithLogical(100, 5)))
	assert.False(t, a.Less(a))
}

func TestString(t *testing.T) {
	assert.Equal(t, "100.5", NewTimestampWithLogical(100, 5).String())
}

func TestIsZero(t *testing.T) {
	assert.True(t, Timestamp{}.IsZero())
	assert.False(t, NewTimestamp(1).IsZero())
	assert.False(t, NewTimestampWithLogical(0, 1).IsZero())
}
