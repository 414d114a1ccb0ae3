package db

import "context"

// ThreadStore records the ids of threads created through this server.
// Saving an id that is already stored is a no-op.
type ThreadStore interface {
	SaveThread(ctx context.Context, id string) error
	ListThreads(ctx context.Context) ([]string, error)
	Close() error
}
