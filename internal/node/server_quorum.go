package node

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hlckv/internal/config"
	"hlckv/internal/hlc"
	"hlckv/internal/metrics"
	"hlckv/internal/quorum"
	"hlckv/internal/repair"
	"hlckv/internal/storage"
	"hlckv/internal/transport"
)

// coordinator holds what a node needs to coordinate a request across
// replicas and to serve replica calls.
type coordinator struct {
	nodeID    string
	replicas  []config.Peer
	store     storage.Store
	clock     *hlc.Source[uint64, uint32]
	clientMgr *ClientManager
	repairer  *repair.ReadRepairer
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Store
}

func (c *coordinator) replicaIDs() []string {
	ids := make([]string, len(c.replicas))
	for i, r := range c.replicas {
		ids[i] = r.ID
	}
	return ids
}

func (c *coordinator) addrOf(replicaID string) (string, bool) {
	for _, r := range c.replicas {
		if r.ID == replicaID {
			return r.Addr, true
		}
	}
	return "", false
}

// observe merges a timestamp received from a client or peer into the
// node's clock. A zero timestamp means the sender did not supply one.
func (c *coordinator) observe(ts hlc.Timestamp) error {
	if ts.IsZero() {
		return nil
	}
	_, err := c.clock.Observe(ts)
	return err
}

// sent stamps an outgoing message. If the clock cannot advance the last
// issued value is still a valid upper bound of everything sent so far.
func (c *coordinator) sent() hlc.Timestamp {
	ts, err := c.clock.Now()
	if err != nil {
		c.logger.Warn("clock did not advance for outgoing message", zap.Error(err))
	}
	return ts
}

// applyLocal applies vv to the local store. A value superseded by a newer
// local write is still acknowledged: the replica already holds a later
// version.
func (c *coordinator) applyLocal(key string, vv storage.VersionedValue) (bool, error) {
	applied, err := c.store.Apply(key, vv)
	if err != nil {
		return false, err
	}
	outcome := "applied"
	if !applied {
		outcome = "superseded"
	}
	c.metrics.Applies.WithLabelValues(outcome).Inc()
	return applied, nil
}

// applyTo writes vv to one replica, locally for self or via ReplicaPut.
func (c *coordinator) applyTo(ctx context.Context, replicaID, key string, vv storage.VersionedValue, isRepair bool, requestID string) error {
	if replicaID == c.nodeID {
		_, err := c.applyLocal(key, vv)
		return err
	}

	addr, ok := c.addrOf(replicaID)
	if !ok {
		return fmt.Errorf("unknown replica %s", replicaID)
	}
	client, err := c.clientMgr.GetInternalClient(addr)
	if err != nil {
		return fmt.Errorf("failed to get internal client: %w", err)
	}

	resp, err := client.ReplicaPut(ctx, &transport.Request{
		Key:       key,
		Record:    transport.RecordFrom(key, &vv),
		Sent:      c.sent(),
		RequestID: requestID,
		Repair:    isRepair,
		NodeID:    c.nodeID,
	})
	if err != nil {
		return err
	}
	return c.observe(resp.Sent)
}

// readFrom reads key from one replica. A nil value means the replica has no
// entry for the key.
func (c *coordinator) readFrom(ctx context.Context, replicaID, key, requestID string) (*storage.VersionedValue, error) {
	if replicaID == c.nodeID {
		return c.store.Get(key)
	}

	addr, ok := c.addrOf(replicaID)
	if !ok {
		return nil, fmt.Errorf("unknown replica %s", replicaID)
	}
	client, err := c.clientMgr.GetInternalClient(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get internal client: %w", err)
	}

	resp, err := client.ReplicaGet(ctx, &transport.Request{
		Key:       key,
		Sent:      c.sent(),
		RequestID: requestID,
		NodeID:    c.nodeID,
	})
	if err != nil {
		return nil, err
	}
	if err := c.observe(resp.Sent); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, nil
	}
	return resp.Record.VersionedValue(), nil
}

// write replicates vv to every replica and waits for requiredW acks.
func (c *coordinator) write(ctx context.Context, key string, vv storage.VersionedValue, requiredW int, requestID string) quorum.WriteResult {
	return quorum.DoWrite(ctx, c.replicaIDs(), requiredW, c.timeout, func(ctx context.Context, replicaID string) error {
		return c.applyTo(ctx, replicaID, key, vv, false, requestID)
	})
}

// read fetches key from every replica and waits for requiredR answers.
func (c *coordinator) read(ctx context.Context, key string, requiredR int, requestID string) quorum.ReadResult[*storage.VersionedValue] {
	return quorum.DoRead[*storage.VersionedValue](ctx, c.replicaIDs(), requiredR, c.timeout, func(ctx context.Context, replicaID string) (*storage.VersionedValue, error) {
		return c.readFrom(ctx, replicaID, key, requestID)
	})
}

// repairApply pushes a winning value to a stale replica during read repair.
func (c *coordinator) repairApply(ctx context.Context, replicaID, key string, vv storage.VersionedValue) error {
	return c.applyTo(ctx, replicaID, key, vv, true, "")
}
