package store

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

var (
	// ErrNotFound indicates the requested project does not exist.
	ErrNotFound = errors.New("project not found")

	// ErrExists indicates a create for an ID that is already stored.
	ErrExists = errors.New("project already exists")

	// ErrConflict indicates an optimistic-concurrency failure: the stored
	// snapshot changed since the caller loaded it.
	ErrConflict = errors.New("project modified concurrently")
)

// ProjectStore persists project snapshots.
type ProjectStore interface {
	// Create stores a new project. Fails with ErrExists on a duplicate ID.
	Create(ctx context.Context, p *roadmap.Project) error

	// Get returns the project with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*roadmap.Project, error)

	// Update replaces the stored snapshot. expected is the UpdatedAt the
	// caller observed when it loaded the project; the write fails with
	// ErrConflict when the stored value differs.
	Update(ctx context.Context, p *roadmap.Project, expected time.Time) error

	// Delete removes the project. Fails with ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// List returns projects, filtered by user when userID is non-empty.
	List(ctx context.Context, userID string) ([]*roadmap.Project, error)

	// Close releases underlying resources.
	Close() error
}
