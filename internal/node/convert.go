package node

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"hlckv/internal/hlc"
	"hlckv/internal/quorum"
)

// toStatus maps internal errors to gRPC status errors.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, hlc.ErrClockOffset):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, hlc.ErrLogicalOverflow):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, quorum.ErrQuorumNotMet), errors.Is(err, quorum.ErrNoReplicas):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, quorum.ErrQuorumTooLarge):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
