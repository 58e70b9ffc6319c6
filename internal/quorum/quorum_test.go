package quorum

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoWrite_Success(t *testing.T) {
	replicas := []string{"r1", "r2", "r3"}
	requiredW := 2

	writeFn := func(ctx context.Context, replicaID string) error {
		return nil
	}

	result := DoWrite(context.Background(), replicas, requiredW, 0, writeFn)

	if !result.Success() {
		t.Errorf("Expected success, got: %v", result.Err)
	}
	if result.Acks != 3 {
		t.Errorf("Expected 3 acks, got %d", result.Acks)
	}
}

func TestDoWrite_QuorumNotMet(t *testing.T) {
	replicas := []string{"r1", "r2", "r3"}
	requiredW := 3

	writeFn := func(ctx context.Context, replicaID string) error {
		// Only r1 and r2 succeed
		if replicaID == "r3" {
			return errors.New("replica failed")
		}
		return nil
	}

	result := DoWrite(context.Background(), replicas, requiredW, 0, writeFn)

	if result.Success() {
		t.Error("Expected failure, got success")
	}
	if result.Acks != 2 {
		t.Errorf("Expected 2 acks, got %d", result.Acks)
	}
	if !errors.Is(result.Err, ErrQuorumNotMet) {
		t.Errorf("Expected ErrQuorumNotMet, got %v", result.Err)
	}
}

func TestDoWrite_DefaultsToMajority(t *testing.T) {
	replicas := []string{"r1", "r2", "r3", "r4", "r5"}

	writeFn := func(ctx context.Context, replicaID string) error {
		if replicaID == "r4" || replicaID == "r5" {
			return errors.New("down")
		}
		return nil
	}

	result := DoWrite(context.Background(), replicas, 0, 0, writeFn)

	if !result.Success() {
		t.Errorf("Expected success with 3/5 acks, got: %v", result.Err)
	}
	if result.Required != 3 {
		t.Errorf("Expected majority of 3, got %d", result.Required)
	}
}

func TestDoWrite_QuorumTooLarge(t *testing.T) {
	result := DoWrite(context.Background(), []string{"r1"}, 2, 0, nil)

	if !errors.Is(result.Err, ErrQuorumTooLarge) {
		t.Errorf("Expected ErrQuorumTooLarge, got %v", result.Err)
	}
}

func TestDoRead_Success(t *testing.T) {
	replicas := []string{"r1", "r2", "r3"}
	requiredR := 2

	readFn := func(ctx context.Context, replicaID string) (string, error) {
		return "value-" + replicaID, nil
	}

	result := DoRead[string](context.Background(), replicas, requiredR, 0, readFn)

	if !result.Success() {
		t.Errorf("Expected success, got: %v", result.Err)
	}
	if result.Responses != 3 {
		t.Errorf("Expected 3 responses, got %d", result.Responses)
	}
	for i, v := range result.Values {
		if v.ReplicaID != replicas[i] || v.Value != "value-"+replicas[i] {
			t.Errorf("Value %d: got %+v", i, v)
		}
	}
}

func TestDoRead_QuorumNotMet(t *testing.T) {
	replicas := []string{"r1", "r2", "r3"}
	requiredR := 3

	readFn := func(ctx context.Context, replicaID string) (string, error) {
		if replicaID == "r3" {
			return "", errors.New("replica failed")
		}
		return "value", nil
	}

	result := DoRead[string](context.Background(), replicas, requiredR, 0, readFn)

	if result.Success() {
		t.Error("Expected failure, got success")
	}
	if result.Responses != 2 {
		t.Errorf("Expected 2 responses, got %d", result.Responses)
	}
	if len(result.Values) != 2 {
		t.Errorf("Expected the 2 successful values to be kept, got %d", len(result.Values))
	}
}

func TestDoWrite_Timeout(t *testing.T) {
	replicas := []string{"r1", "r2", "r3"}
	requiredW := 2

	writeFn := func(ctx context.Context, replicaID string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := DoWrite(ctx, replicas, requiredW, 0, writeFn)

	if result.Success() {
		t.Error("Expected failure due to timeout")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Expected to return once the context expired, took %v", time.Since(start))
	}
}

func TestDoWrite_PerReplicaTimeout(t *testing.T) {
	replicas := []string{"fast", "slow"}

	writeFn := func(ctx context.Context, replicaID string) error {
		if replicaID == "fast" {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}

	result := DoWrite(context.Background(), replicas, 1, 50*time.Millisecond, writeFn)

	if !result.Success() {
		t.Errorf("Expected success from the fast replica, got: %v", result.Err)
	}
	if result.Acks != 1 {
		t.Errorf("Expected 1 ack, got %d", result.Acks)
	}
}

func TestDoWrite_NoReplicas(t *testing.T) {
	result := DoWrite(context.Background(), []string{}, 2, 0, nil)

	if !errors.Is(result.Err, ErrNoReplicas) {
		t.Errorf("Expected ErrNoReplicas, got %v", result.Err)
	}
}

func TestDoRead_NoReplicas(t *testing.T) {
	result := DoRead[string](context.Background(), []string{}, 2, 0, nil)

	if !errors.Is(result.Err, ErrNoReplicas) {
		t.Errorf("Expected ErrNoReplicas, got %v", result.Err)
	}
}
