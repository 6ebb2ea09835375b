package grpc

import (
	"errors"

	"github.com/jchangwan/campus-closet-share/pkg/e"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCErrorResponse сопоставляет ошибку usecase с gRPC-статусом.
func GRPCErrorResponse(err error) error {
	switch {
	case errors.Is(err, e.ErrNoImage),
		errors.Is(err, e.ErrImageURLRequired),
		errors.Is(err, e.ErrInvalidTopK):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrServiceUnavailable):
		return status.Error(codes.Unavailable, e.ErrServiceUnavailable.Error())
	case err == nil:
		return status.Error(codes.Internal, e.ErrInternalServerError.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
