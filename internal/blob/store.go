// Package blob stores file content by file id.
package blob

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("blob: object not found")

// Store keeps one object per file id. Get on a missing id returns ErrNotFound.
type Store interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// ObjectName is the stored name of a file's content.
func ObjectName(id string) string {
	return id + ".txt"
}
