// Package storage keeps finished documents for re-download.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports a missing or expired result.
var ErrNotFound = errors.New("storage: result not found")

// Results stores documents by result id.
type Results interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
}
