package ports

import (
	"context"

	"github.com/cinereview/core/internal/domain/entities"
)

// ReviewStore is a keyed append-only store of review collections.
// Implementations must serialize Append calls for the same movie, must not
// block Append calls for different movies, and must never expose a partially
// written collection to List.
type ReviewStore interface {
	// List returns the collection for id in insertion order, or an empty
	// slice when nothing has been appended yet.
	List(ctx context.Context, id entities.MovieID) ([]entities.Review, error)

	// Append stamps review with the append time and adds it to the end of
	// the collection. The stored record is returned.
	Append(ctx context.Context, id entities.MovieID, review entities.Review) (entities.Review, error)

	// Ping reports whether the backing medium is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}

// StatsReporter is implemented by stores that can describe their backing
// resources, such as a connection pool.
type StatsReporter interface {
	Stats() map[string]interface{}
}
