package repair

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"hlckv/internal/metrics"
	"hlckv/internal/storage"
)

// ApplyFunc writes vv under key on the given replica with its exact version.
type ApplyFunc func(ctx context.Context, replicaID, key string, vv storage.VersionedValue) error

// ReadRepairer performs asynchronous read repair to converge stale replicas.
type ReadRepairer struct {
	apply   ApplyFunc
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Store
	wg      sync.WaitGroup
}

// NewReadRepairer creates a new read repairer. m may be nil.
func NewReadRepairer(apply ApplyFunc, timeout time.Duration, logger *zap.Logger, m *metrics.Store) *ReadRepairer {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadRepairer{
		apply:   apply,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Repair asynchronously pushes winner to every stale replica.
// It is fire-and-forget: failures are logged, never retried. The work runs
// under a context detached from ctx's cancellation so it outlives the read.
func (r *ReadRepairer) Repair(ctx context.Context, key string, winner storage.VersionedValue, stale map[string]*storage.VersionedValue) {
	if len(stale) == 0 {
		return
	}

	replicas := make([]string, 0, len(stale))
	for replicaID := range stale {
		replicas = append(replicas, replicaID)
	}
	repairCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer func() {
			if err := recover(); err != nil {
				r.logger.Error("read repair panic", zap.String("key", key), zap.Any("panic", err))
			}
		}()

		r.logger.Debug("read repair triggered",
			zap.String("key", key),
			zap.Int("stale", len(replicas)),
			zap.Stringer("version", winner.Version))

		repaired, failed := 0, 0
		for _, replicaID := range replicas {
			if err := r.apply(repairCtx, replicaID, key, winner); err != nil {
				r.logger.Warn("read repair failed",
					zap.String("key", key),
					zap.String("replica", replicaID),
					zap.Error(err))
				failed++
				r.count("failed")
				continue
			}
			repaired++
			r.count("repaired")
		}

		r.logger.Debug("read repair completed",
			zap.String("key", key),
			zap.Int("repaired", repaired),
			zap.Int("failed", failed))
	}()
}

// Wait blocks until all in-flight repairs have finished.
func (r *ReadRepairer) Wait() {
	r.wg.Wait()
}

func (r *ReadRepairer) count(result string) {
	if r.metrics != nil {
		r.metrics.ReadRepairs.WithLabelValues(result).Inc()
	}
}

