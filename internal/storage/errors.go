package storage

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrIndexUnavailable   = errors.New("vector index unavailable")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)

// classify maps a gRPC failure from Qdrant onto the storage error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w: %w", op, ErrCollectionNotFound, err)
	case codes.InvalidArgument:
		if strings.Contains(strings.ToLower(err.Error()), "dimension") {
			return fmt.Errorf("%s: %w: %w", op, ErrDimensionMismatch, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIndexUnavailable, err)
}

// retryable reports whether a failed call may succeed if repeated unchanged.
func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}
