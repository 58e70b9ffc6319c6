package hlc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"hlckv/internal/metrics"
)

// ErrClockOffset is returned by Observe when a remote timestamp is further
// ahead of local physical time than the configured maximum offset.
var ErrClockOffset = errors.New("hlc: remote clock offset exceeds maximum")

// WallClockMillis returns the current Unix time in milliseconds.
func WallClockMillis() uint64 {
	ms := time.Now().UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

// WallClockNanos returns the current Unix time in nanoseconds.
func WallClockNanos() uint64 {
	ns := time.Now().UnixNano()
	if ns < 0 {
		return 0
	}
	return uint64(ns)
}

// Source is a Clock shared by one node. It reads physical time from the
// supplied function and serializes all updates with a mutex.
type Source[P, L Number] struct {
	mu        sync.Mutex
	now       func() P
	maxOffset P
	last      Clock[P, L]
	metrics   *metrics.Clock
}

// NewSource returns a Source reading physical time from now.
func NewSource[P, L Number](now func() P) *Source[P, L] {
	return &Source[P, L]{now: now}
}

// NewTimestampSource returns a millisecond-precision Timestamp source.
func NewTimestampSource() *Source[uint64, uint32] {
	return NewSource[uint64, uint32](WallClockMillis)
}

// WithMaxOffset makes Observe reject timestamps more than d ahead of local
// physical time. Zero disables the check.
func (s *Source[P, L]) WithMaxOffset(d P) *Source[P, L] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxOffset = d
	return s
}

// WithMetrics reports clock activity to m.
func (s *Source[P, L]) WithMetrics(m *metrics.Clock) *Source[P, L] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	return s
}

// Now advances the clock for a local or send event and returns the result.
// When physical time has moved past the last issued value the logical
// counter restarts at zero; otherwise it is incremented.
func (s *Source[P, L]) Now() (Clock[P, L], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now := s.now(); now > s.last.Physical {
		s.last = New[P, L](now)
	} else if err := s.last.AddLogicalTicks(1); err != nil {
		s.overflow()
		return s.last, err
	}
	s.record("local")
	return s.last, nil
}

// Observe merges a timestamp received from another node and returns the
// advanced clock.
func (s *Source[P, L]) Observe(remote Clock[P, L]) (Clock[P, L], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.maxOffset > 0 && remote.Physical > now && remote.Physical-now > s.maxOffset {
		if s.metrics != nil {
			s.metrics.OffsetRejections.Inc()
		}
		return s.last, fmt.Errorf("%w: remote %v, local %v, max %v", ErrClockOffset, remote.Physical, now, s.maxOffset)
	}
	if err := s.last.Update(remote, now); err != nil {
		s.overflow()
		return s.last, err
	}
	s.record("observe")
	return s.last, nil
}

// Reserve advances only the logical component by n, handing the caller n
// distinct timestamps at the current physical time. It returns the highest
// reserved timestamp.
func (s *Source[P, L]) Reserve(n L) (Clock[P, L], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.last.AddLogicalTicks(n); err != nil {
		if errors.Is(err, ErrLogicalOverflow) {
			s.overflow()
		}
		return s.last, err
	}
	s.record("reserve")
	return s.last, nil
}

// Seed raises the clock to c if c is ahead of it. Used to resume from a
// persisted high-water mark after a restart.
func (s *Source[P, L]) Seed(c Clock[P, L]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.Less(c) {
		s.last = c
		s.record("seed")
	}
}

// Last returns the most recently issued value without advancing the clock.
func (s *Source[P, L]) Last() Clock[P, L] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Source[P, L]) record(kind string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Updates.WithLabelValues(kind).Inc()
	s.metrics.Physical.Set(float64(s.last.Physical))
	s.metrics.Logical.Set(float64(s.last.Logical))
}

func (s *Source[P, L]) overflow() {
	if s.metrics != nil {
		s.metrics.Overflows.Inc()
	}
}
