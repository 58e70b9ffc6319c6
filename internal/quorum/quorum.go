package quorum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultPerReplicaTimeout is the default timeout for each replica RPC.
	DefaultPerReplicaTimeout = 2 * time.Second
)

var (
	// ErrNoReplicas is returned when an operation is given no replicas.
	ErrNoReplicas = errors.New("quorum: no replicas provided")
	// ErrQuorumTooLarge is returned when the quorum exceeds the replica count.
	ErrQuorumTooLarge = errors.New("quorum: required quorum exceeds replica count")
	// ErrQuorumNotMet is returned when too few replicas succeeded.
	ErrQuorumNotMet = errors.New("quorum: not met")
)

// WriteResult represents the result of a quorum write operation.
type WriteResult struct {
	Acks     int
	Required int
	Replicas int
	Err      error
}

// Success reports whether the write reached its quorum.
func (r WriteResult) Success() bool { return r.Err == nil }

// ReadValue is one replica's answer to a read.
type ReadValue[T any] struct {
	ReplicaID string
	Value     T
}

// ReadResult represents the result of a quorum read operation.
type ReadResult[T any] struct {
	Responses int
	Required  int
	Replicas  int
	Values    []ReadValue[T]
	Err       error
}

// Success reports whether the read reached its quorum.
func (r ReadResult[T]) Success() bool { return r.Err == nil }

// ReplicaWriteFunc performs a write against a single replica.
type ReplicaWriteFunc func(ctx context.Context, replicaID string) error

// ReplicaReadFunc performs a read against a single replica.
type ReplicaReadFunc[T any] func(ctx context.Context, replicaID string) (T, error)

// Majority returns the smallest majority of n replicas.
func Majority(n int) int {
	return n/2 + 1
}

func checkQuorum(replicas, required int) (int, error) {
	if replicas == 0 {
		return 0, ErrNoReplicas
	}
	if required <= 0 {
		required = Majority(replicas)
	}
	if required > replicas {
		return required, fmt.Errorf("%w: required=%d replicas=%d", ErrQuorumTooLarge, required, replicas)
	}
	return required, nil
}

// DoWrite fans a write out to all replicas in parallel and succeeds when at
// least requiredW of them acknowledge. A non-positive requiredW means majority.
func DoWrite(ctx context.Context, replicas []string, requiredW int, timeout time.Duration, writeFn ReplicaWriteFunc) WriteResult {
	requiredW, err := checkQuorum(len(replicas), requiredW)
	if err != nil {
		return WriteResult{Required: requiredW, Replicas: len(replicas), Err: err}
	}

	results := fanout(ctx, replicas, timeout, func(ctx context.Context, rid string) (struct{}, error) {
		return struct{}{}, writeFn(ctx, rid)
	})

	res := WriteResult{Required: requiredW, Replicas: len(replicas)}
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("replica %s: %w", r.replicaID, r.err))
			continue
		}
		res.Acks++
	}
	if ctx.Err() != nil && res.Acks < requiredW {
		res.Err = fmt.Errorf("context cancelled: %w", ctx.Err())
		return res
	}
	if res.Acks < requiredW {
		res.Err = notMet("acks", res.Acks, requiredW, len(replicas), errs)
	}
	return res
}

// DoRead fans a read out to all replicas in parallel and succeeds when at
// least requiredR of them answer. A non-positive requiredR means majority.
func DoRead[T any](ctx context.Context, replicas []string, requiredR int, timeout time.Duration, readFn ReplicaReadFunc[T]) ReadResult[T] {
	requiredR, err := checkQuorum(len(replicas), requiredR)
	if err != nil {
		return ReadResult[T]{Required: requiredR, Replicas: len(replicas), Err: err}
	}

	results := fanout(ctx, replicas, timeout, readFn)

	res := ReadResult[T]{Required: requiredR, Replicas: len(replicas)}
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("replica %s: %w", r.replicaID, r.err))
			continue
		}
		res.Responses++
		res.Values = append(res.Values, ReadValue[T]{ReplicaID: r.replicaID, Value: r.value})
	}
	if ctx.Err() != nil && res.Responses < requiredR {
		res.Err = fmt.Errorf("context cancelled: %w", ctx.Err())
		return res
	}
	if res.Responses < requiredR {
		res.Err = notMet("responses", res.Responses, requiredR, len(replicas), errs)
	}
	return res
}

type replicaResult[T any] struct {
	replicaID string
	value     T
	err       error
}

// fanout calls fn for every replica concurrently with a shared per-replica
// timeout and returns the results in replica order.
func fanout[T any](ctx context.Context, replicas []string, timeout time.Duration, fn func(context.Context, string) (T, error)) []replicaResult[T] {
	if timeout <= 0 {
		timeout = DefaultPerReplicaTimeout
	}
	replicaCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]replicaResult[T], len(replicas))
	var wg sync.WaitGroup
	for i, replicaID := range replicas {
		wg.Add(1)
		go func(i int, rid string) {
			defer wg.Done()
			v, err := fn(replicaCtx, rid)
			results[i] = replicaResult[T]{replicaID: rid, value: v, err: err}
		}(i, replicaID)
	}
	wg.Wait()
	return results
}

func notMet(what string, got, required, replicas int, errs []error) error {
	err := fmt.Errorf("%w: %s=%d required=%d replicas=%d", ErrQuorumNotMet, what, got, required, replicas)
	if len(errs) > 0 {
		err = fmt.Errorf("%w errors=%v", err, errors.Join(errs[:min(3, len(errs))]...))
	}
	return err
}
