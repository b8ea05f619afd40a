package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/genart-works/genart-backend/internal/artifacts"
	"github.com/genart-works/genart-backend/internal/projects/domain"
	"github.com/genart-works/genart-backend/internal/projects/repository"
	"github.com/genart-works/genart-backend/internal/render"
)

// ProjectService composes the project store, the artifact store and the
// render engine into the project lifecycle use cases. Each method is one
// request-scoped transaction: invariants are checked up front, then storage
// mutations are applied step by step with no rollback on partial failure.
type ProjectService struct {
	repo   repository.ProjectRepository
	store  *artifacts.Store
	engine *render.Engine
}

func NewProjectService(repo repository.ProjectRepository, store *artifacts.Store, engine *render.Engine) *ProjectService {
	return &ProjectService{
		repo:   repo,
		store:  store,
		engine: engine,
	}
}

// List returns every project.
func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	return s.repo.GetAll(ctx)
}

// ListByOwner returns the projects owned by username.
func (s *ProjectService) ListByOwner(ctx context.Context, username string) ([]domain.Project, error) {
	return s.repo.GetByOwner(ctx, username)
}

// ListSince returns projects created or updated at or after sinceMillis.
func (s *ProjectService) ListSince(ctx context.Context, sinceMillis int64) ([]domain.Project, error) {
	return s.repo.GetSince(ctx, sinceMillis)
}

// Get returns a single project or domain.ErrNotFound.
func (s *ProjectService) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.repo.GetByID(ctx, projectID)
}

// Thumbnail returns the stored thumbnail bytes for an existing project.
func (s *ProjectService) Thumbnail(ctx context.Context, projectID string) ([]byte, error) {
	if _, err := s.repo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	data, err := s.store.Read(projectID, artifacts.KindThumbnail)
	if errors.Is(err, artifacts.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	return data, err
}

// Create validates the metadata and per-owner name uniqueness, persists the
// record at version 1, then writes both artifacts.
//
// If an artifact write fails after the record was inserted the record stays
// behind unusable; the failure is surfaced, not rolled back. The maintenance
// sweeper reconciles such orphans later.
func (s *ProjectService) Create(ctx context.Context, username string, data domain.ProjectData, executable, thumbnail []byte) (*domain.Project, error) {
	if err := domain.ValidateProjectData(data); err != nil {
		return nil, err
	}
	if len(executable) == 0 {
		return nil, &domain.ValidationError{Reason: "jar file must not be empty"}
	}
	if len(thumbnail) == 0 {
		return nil, &domain.ValidationError{Reason: "image file must not be empty"}
	}

	owned, err := s.repo.GetByOwner(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check name uniqueness: %w", err)
	}
	for _, p := range owned {
		if p.Name == data.Name {
			return nil, domain.ErrNameTaken
		}
	}

	project := domain.Project{
		UUID:        uuid.New().String(),
		Username:    username,
		Name:        data.Name,
		Description: data.Description,
		Version:     1,
		LastUpdated: domain.NowMillis(),
	}

	if err := s.repo.Insert(ctx, project); err != nil {
		return nil, err
	}

	if err := s.store.Write(project.UUID, artifacts.KindExecutable, executable); err != nil {
		log.Printf("[warn] operation=create project=%s orphaned record, executable write failed: %v", project.UUID, err)
		return nil, fmt.Errorf("store executable: %w", err)
	}
	if err := s.store.Write(project.UUID, artifacts.KindThumbnail, thumbnail); err != nil {
		log.Printf("[warn] operation=create project=%s orphaned record, thumbnail write failed: %v", project.UUID, err)
		return nil, fmt.Errorf("store thumbnail: %w", err)
	}

	return &project, nil
}

// UpdateMetadata overwrites name and description for the owner. Metadata
// edits are not versioned; only artifact replacement bumps the version.
func (s *ProjectService) UpdateMetadata(ctx context.Context, username, projectID string, data domain.ProjectData) error {
	if err := s.authorize(ctx, projectID, username); err != nil {
		return err
	}
	if err := domain.ValidateProjectData(data); err != nil {
		return err
	}
	return s.repo.UpdateMetadata(ctx, projectID, data)
}

// ReplaceArtifact swaps one blob for the owner and bumps the version.
func (s *ProjectService) ReplaceArtifact(ctx context.Context, username, projectID string, kind artifacts.Kind, data []byte) error {
	if err := s.authorize(ctx, projectID, username); err != nil {
		return err
	}
	if len(data) == 0 {
		return &domain.ValidationError{Reason: "artifact must not be empty"}
	}

	if err := s.store.Delete(projectID, kind); err != nil {
		return err
	}
	if err := s.store.Write(projectID, kind, data); err != nil {
		return err
	}
	return s.repo.BumpVersionAndTouch(ctx, projectID)
}

// Delete removes the record and both blobs for the owner. Every sub-step is
// attempted even if an earlier one fails, so a half-deleted project can
// always be deleted again; the call is idempotent from the owner's view.
func (s *ProjectService) Delete(ctx context.Context, username, projectID string) error {
	if err := s.authorize(ctx, projectID, username); err != nil {
		return err
	}

	return errors.Join(
		s.repo.Delete(ctx, projectID),
		s.store.Delete(projectID, artifacts.KindExecutable),
		s.store.Delete(projectID, artifacts.KindThumbnail),
	)
}

// Run renders the project's stored executable at the requested resolution.
// Running is public: existence is checked but ownership is not.
func (s *ProjectService) Run(ctx context.Context, projectID string, width, height int) ([]byte, error) {
	if _, err := s.repo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	execPath := s.store.Path(projectID, artifacts.KindExecutable)
	if !s.store.Exists(projectID, artifacts.KindExecutable) {
		return nil, &render.Error{Kind: render.FailSpawn, Detail: "stored executable is missing"}
	}

	return s.engine.Render(ctx, execPath, width, height)
}

// BelongsToCaller reports whether the project exists and is owned by the
// caller. A missing project and a foreign project both answer false so
// non-owners cannot probe for existence.
func (s *ProjectService) BelongsToCaller(ctx context.Context, projectID, username string) (bool, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Username == username, nil
}

// authorize maps a failed ownership check to ErrUnauthorized; storage
// failures surface as themselves.
func (s *ProjectService) authorize(ctx context.Context, projectID, username string) error {
	ok, err := s.BelongsToCaller(ctx, projectID, username)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}
