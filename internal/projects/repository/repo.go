package repository

import (
	"context"

	"github.com/genart-works/genart-backend/internal/projects/domain"
)

// ProjectRepository provides persistence operations for projects.
//
// All methods report underlying store failures upward; none retry silently.
// GetByID signals a missing project with domain.ErrNotFound rather than an
// empty result, and Delete is idempotent (deleting an absent project is not
// an error).
type ProjectRepository interface {
	// Insert adds a new record. The caller guarantees the UUID is fresh and
	// that the (owner, name) pair has already been checked for uniqueness.
	Insert(ctx context.Context, p domain.Project) error

	// GetAll returns every project; order is backend-specific but stable.
	GetAll(ctx context.Context) ([]domain.Project, error)

	// GetByOwner returns the projects owned by the given username.
	GetByOwner(ctx context.Context, username string) ([]domain.Project, error)

	// GetSince returns projects whose lastUpdated is >= sinceMillis.
	GetSince(ctx context.Context, sinceMillis int64) ([]domain.Project, error)

	// GetByID returns the project or domain.ErrNotFound.
	GetByID(ctx context.Context, uuid string) (*domain.Project, error)

	// UpdateMetadata overwrites name and description only. It does not bump
	// the version; metadata edits are not versioned.
	UpdateMetadata(ctx context.Context, uuid string, data domain.ProjectData) error

	// BumpVersionAndTouch increments the version by exactly 1 and advances
	// lastUpdated to now (never backwards). Returns domain.ErrNotFound if
	// the project is absent. The increment is atomic: concurrent bumps on
	// the same project never lose an update.
	BumpVersionAndTouch(ctx context.Context, uuid string) error

	// Delete removes the record; absent is not an error.
	Delete(ctx context.Context, uuid string) error
}
