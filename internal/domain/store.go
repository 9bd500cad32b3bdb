package domain

import "context"

// FavoriteStore is the local favorites set (BoltDB + memory).
type FavoriteStore interface {
	// IsFavorite reports whether the book key is saved
	IsFavorite(ctx context.Context, key string) (bool, error)

	// Toggle flips persisted membership; changed is false when nothing was written
	Toggle(ctx context.Context, book Book) (changed bool, err error)

	// List returns all saved books in the order they were added
	List(ctx context.Context) ([]Book, error)

	Close() error
}
