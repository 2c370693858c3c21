// Package storage defines the object store holding vendor KYC documents.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned for operations on a missing key.
var ErrObjectNotFound = errors.New("object not found")

// Store defines the interface for private object storage.
type Store interface {
	// Put stores size bytes read from data under key.
	Put(ctx context.Context, input *PutInput) error

	// PresignGet returns a time-limited download URL for key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// PutInput holds the parameters for storing an object.
type PutInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}
