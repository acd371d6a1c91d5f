package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
)

// Storage persists values as hashes keyed by string.
type Storage interface {
	Get(ctx context.Context, key string, val any) error
	Key(key string) string
}

type Store[T any] interface {
	Key(key string) string
	Get(ctx context.Context, key string) (T, error)
}
