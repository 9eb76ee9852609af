// Package sourcedoc stores the raw source files a protocol was extracted from
// (typically the protocol PDF and its amendments), keyed by protocol.
package sourcedoc

import (
	"context"
	"errors"
)

// Store defines operations for persisting protocol source files.
type Store interface {
	Put(ctx context.Context, protocolID, path string, content []byte) error
	Get(ctx context.Context, protocolID, path string) ([]byte, error)
	GetURL(ctx context.Context, protocolID, path string) (string, error)
	List(ctx context.Context, protocolID string) ([]string, error)
}

var ErrNotFound = errors.New("source document not found")
