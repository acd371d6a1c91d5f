package store

import "context"

type store[T any] struct {
	storage Storage
}

// Key returns the fully qualified key as stored in the underlying storage.
func (s *store[T]) Key(key string) string {
	return s.storage.Key(key)
}

func (s *store[T]) Get(ctx context.Context, key string) (T, error) {
	var obj T
	err := s.storage.Get(ctx, key, &obj)
	return obj, err
}

func New[T any](storage Storage, keyPrefix string) Store[T] {
	return &store[T]{
		storage: StorageWithPrefix(storage, keyPrefix),
	}
}
