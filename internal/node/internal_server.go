package node

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"hlckv/internal/transport"
)

// InternalServer implements the KVInternal gRPC service for replica operations.
type InternalServer struct {
	c *coordinator
}

var _ transport.KVInternalServer = (*InternalServer)(nil)

// newInternalServer creates a new internal server instance.
func newInternalServer(c *coordinator) *InternalServer {
	return &InternalServer{c: c}
}

// ReplicaPut applies a record from a coordinator with its exact version.
// Writes and read repairs are handled alike: the record is stored only if it
// supersedes the local value.
func (s *InternalServer) ReplicaPut(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	s.c.logger.Debug("replica put",
		zap.String("key", req.Key),
		zap.String("coordinator", req.NodeID),
		zap.String("request_id", req.RequestID),
		zap.Bool("repair", req.Repair))

	if req.Key == "" || req.Record == nil {
		return nil, status.Error(codes.InvalidArgument, "key and record are required")
	}
	if err := s.c.observe(req.Sent); err != nil {
		return nil, toStatus(err)
	}

	applied, err := s.c.applyLocal(req.Key, *req.Record.VersionedValue())
	if err != nil {
		s.c.logger.Error("replica apply failed", zap.String("key", req.Key), zap.Error(err))
		return nil, toStatus(err)
	}

	return &transport.Response{
		Applied: applied,
		Sent:    s.c.sent(),
	}, nil
}

// ReplicaGet returns the local record for a key, tombstones included.
func (s *InternalServer) ReplicaGet(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	s.c.logger.Debug("replica get",
		zap.String("key", req.Key),
		zap.String("coordinator", req.NodeID),
		zap.String("request_id", req.RequestID))

	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key cannot be empty")
	}
	if err := s.c.observe(req.Sent); err != nil {
		return nil, toStatus(err)
	}

	vv, err := s.c.store.Get(req.Key)
	if err != nil {
		return nil, toStatus(err)
	}

	return &transport.Response{
		Found:  vv != nil,
		Record: transport.RecordFrom(req.Key, vv),
		Sent:   s.c.sent(),
	}, nil
}
