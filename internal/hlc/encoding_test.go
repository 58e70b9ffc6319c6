package hlc

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00000000000000000100-0000000005", FormatTimestamp(NewTimestampWithLogical(100, 5)))
	assert.Equal(t, "18446744073709551615-4294967295",
		FormatTimestamp(NewTimestampWithLogical(math.MaxUint64, math.MaxUint32)))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp(FormatTimestamp(NewTimestampWithLogical(1700000000000, 42)))
	require.NoError(t, err)
	assert.Equal(t, NewTimestampWithLogical(1700000000000, 42), ts)

	ts, err = ParseTimestamp("7-3")
	require.NoError(t, err)
	assert.Equal(t, NewTimestampWithLogical(7, 3), ts)

	for _, bad := range []string{"", "100", "x-1", "1-x", "1-4294967296", "-1-2"} {
		_, err := ParseTimestamp(bad)
		assert.ErrorIs(t, err, ErrMalformedTimestamp, "input %q", bad)
	}
}

func TestFormatTimestamp_SortsLikeTimestamps(t *testing.T) {
	stamps := []Timestamp{
		NewTimestampWithLogical(150, 0),
		NewTimestampWithLogical(9, 99),
		NewTimestampWithLogical(100, 10),
		NewTimestampWithLogical(100, 5),
		NewTimestampWithLogical(1000, 1),
	}
	text := make([]string, len(stamps))
	for i, ts := range stamps {
		text[i] = FormatTimestamp(ts)
	}
	sort.Strings(text)
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Less(stamps[j]) })

	for i, ts := range stamps {
		assert.Equal(t, FormatTimestamp(ts), text[i])
	}
}

func TestBinaryTimestamp(t *testing.T) {
	ts := NewTimestampWithLogical(0x0102030405060708, 0x0a0b0c0d)
	b := AppendTimestamp([]byte{0xff}, ts)
	require.Len(t, b, 1+TimestampSize)
	assert.Equal(t, []byte{0xff, 1, 2, 3, 4, 5, 6, 7, 8, 0x0a, 0x0b, 0x0c, 0x0d}, b)

	got, err := DecodeTimestamp(b[1:])
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	_, err = DecodeTimestamp(b[:5])
	assert.ErrorIs(t, err, ErrShortTimestamp)
}

func TestBinaryTimestamp_ByteOrderMatchesClockOrder(t *testing.T) {
	a := AppendTimestamp(nil, NewTimestampWithLogical(100, math.MaxUint32))
	b := AppendTimestamp(nil, NewTimestampWithLogical(101, 0))
	c := AppendTimestamp(nil, NewTimestampWithLogical(101, 1))

	assert.Equal(t, -1, bytes.Compare(a, b))
	assert.Equal(t, -1, bytes.Compare(b, c))
}
