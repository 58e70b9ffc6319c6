package hlc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TimestampSize is the length of the binary Timestamp encoding.
const TimestampSize = 12

var (
	// ErrShortTimestamp is returned when decoding fewer than TimestampSize bytes.
	ErrShortTimestamp = errors.New("hlc: short timestamp encoding")
	// ErrMalformedTimestamp is returned by ParseTimestamp for invalid text.
	ErrMalformedTimestamp = errors.New("hlc: malformed timestamp")
)

// FormatTimestamp renders t as zero-padded "physical-logical" text. The
// padding keeps lexicographic order equal to timestamp order.
func FormatTimestamp(t Timestamp) string {
	return fmt.Sprintf("%020d-%010d", t.Physical, t.Logical)
}

// ParseTimestamp parses the output of FormatTimestamp. Unpadded numbers are
// accepted as well.
func ParseTimestamp(s string) (Timestamp, error) {
	physStr, logStr, ok := strings.Cut(s, "-")
	if !ok {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
	}
	physical, err := strconv.ParseUint(physStr, 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: physical: %v", ErrMalformedTimestamp, err)
	}
	logical, err := strconv.ParseUint(logStr, 10, 32)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: logical: %v", ErrMalformedTimestamp, err)
	}
	return NewTimestampWithLogical(physical, uint32(logical)), nil
}

// AppendTimestamp appends the 12-byte big-endian encoding of t to b. Encoded
// timestamps compare with bytes.Compare in timestamp order.
func AppendTimestamp(b []byte, t Timestamp) []byte {
	b = binary.BigEndian.AppendUint64(b, t.Physical)
	return binary.BigEndian.AppendUint32(b, t.Logical)
}

// DecodeTimestamp reads a Timestamp from the first TimestampSize bytes of b.
func DecodeTimestamp(b []byte) (Timestamp, error) {
	if len(b) < TimestampSize {
		return Timestamp{}, fmt.Errorf("%w: got %d bytes", ErrShortTimestamp, len(b))
	}
	return NewTimestampWithLogical(
		binary.BigEndian.Uint64(b[:8]),
		binary.BigEndian.Uint32(b[8:TimestampSize]),
	), nil
}
