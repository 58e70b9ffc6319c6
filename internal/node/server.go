package node

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"hlckv/internal/hlc"
	"hlckv/internal/repair"
	"hlckv/internal/storage"
	"hlckv/internal/transport"
)

// Server implements the KVStore gRPC service. The receiving node
// coordinates the request across all replicas.
type Server struct {
	c        *coordinator
	defaultR int
	defaultW int
}

var _ transport.KVStoreServer = (*Server)(nil)

// newServer creates a new gRPC server instance. Non-positive quorums mean
// majority.
func newServer(c *coordinator, r, w int) *Server {
	return &Server{c: c, defaultR: r, defaultW: w}
}

// Put handles Put requests with quorum coordination.
func (s *Server) Put(ctx context.Context, req *transport.Request) (resp *transport.Response, err error) {
	defer s.track("Put", time.Now(), &err)
	return s.write(ctx, req, false)
}

// Delete writes a tombstone with quorum coordination. Deleting a missing
// key succeeds.
func (s *Server) Delete(ctx context.Context, req *transport.Request) (resp *transport.Response, err error) {
	defer s.track("Delete", time.Now(), &err)
	return s.write(ctx, req, true)
}

func (s *Server) write(ctx context.Context, req *transport.Request, deleted bool) (*transport.Response, error) {
	s.c.logger.Debug("write request",
		zap.String("key", req.Key),
		zap.Bool("delete", deleted),
		zap.String("client_id", req.ClientID),
		zap.String("request_id", req.RequestID))

	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key cannot be empty")
	}
	if err := s.observeClient(req); err != nil {
		return nil, err
	}

	version, err := s.c.clock.Now()
	if err != nil {
		return nil, toStatus(err)
	}
	vv := storage.VersionedValue{
		Version: version,
		Origin:  s.c.nodeID,
		Deleted: deleted,
	}
	if !deleted {
		vv.Value = req.Value
	}

	requiredW := int(req.Quorum)
	if requiredW <= 0 {
		requiredW = s.defaultW
	}

	result := s.c.write(ctx, req.Key, vv, requiredW, req.RequestID)
	if !result.Success() {
		s.c.metrics.QuorumFailure.WithLabelValues("write").Inc()
		s.c.logger.Warn("write quorum not met",
			zap.String("key", req.Key),
			zap.Int("acks", result.Acks),
			zap.Int("required", result.Required),
			zap.Error(result.Err))
		return nil, toStatus(result.Err)
	}

	return &transport.Response{
		Found:   !deleted,
		Applied: true,
		Record:  transport.RecordFrom(req.Key, &vv),
		Sent:    s.c.sent(),
	}, nil
}

// Get handles Get requests with quorum coordination. The newest version
// among the answering replicas wins; stale replicas are repaired in the
// background.
func (s *Server) Get(ctx context.Context, req *transport.Request) (resp *transport.Response, err error) {
	defer s.track("Get", time.Now(), &err)

	s.c.logger.Debug("get request",
		zap.String("key", req.Key),
		zap.String("client_id", req.ClientID),
		zap.String("request_id", req.RequestID))

	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key cannot be empty")
	}
	if err := s.observeClient(req); err != nil {
		return nil, err
	}

	requiredR := int(req.Quorum)
	if requiredR <= 0 {
		requiredR = s.defaultR
	}

	result := s.c.read(ctx, req.Key, requiredR, req.RequestID)
	if !result.Success() {
		s.c.metrics.QuorumFailure.WithLabelValues("read").Inc()
		s.c.logger.Warn("read quorum not met",
			zap.String("key", req.Key),
			zap.Int("responses", result.Responses),
			zap.Int("required", result.Required),
			zap.Error(result.Err))
		return nil, toStatus(result.Err)
	}

	values := make([]*storage.VersionedValue, len(result.Values))
	replicaIDs := make([]string, len(result.Values))
	for i, v := range result.Values {
		values[i] = v.Value
		replicaIDs[i] = v.ReplicaID
	}
	reconciled := repair.Reconcile(values, replicaIDs)

	if reconciled.NeedsRepair() {
		s.c.repairer.Repair(ctx, req.Key, *reconciled.Winner, reconciled.Stale)
	}

	resp = &transport.Response{
		Found:    !reconciled.IsNotFound(),
		Record:   transport.RecordFrom(req.Key, reconciled.Winner),
		Conflict: reconciled.HasConflict(),
	}
	if resp.Conflict {
		s.c.metrics.Conflicts.Inc()
		for i := range reconciled.Concurrent {
			resp.Siblings = append(resp.Siblings, transport.RecordFrom(req.Key, &reconciled.Concurrent[i]))
		}
	}
	resp.Sent = s.c.sent()
	return resp, nil
}

// observeClient merges the client's send time and causal context. Either
// may be zero for a client that keeps no clock.
func (s *Server) observeClient(req *transport.Request) error {
	for _, ts := range []hlc.Timestamp{req.Sent, req.Context} {
		if err := s.c.observe(ts); err != nil {
			s.c.logger.Warn("rejected client timestamp",
				zap.String("client_id", req.ClientID),
				zap.Stringer("timestamp", ts),
				zap.Error(err))
			return toStatus(err)
		}
	}
	return nil
}

func (s *Server) track(method string, start time.Time, err *error) {
	s.c.metrics.Requests.WithLabelValues(method, status.Code(*err).String()).Inc()
	s.c.metrics.Duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
