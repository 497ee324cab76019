// Package storage keeps archived export files.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrBadKey = errors.New("invalid blob key")

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns keys under prefix, newest first.
	List(ctx context.Context, prefix string) ([]string, error)
}
