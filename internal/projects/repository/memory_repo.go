package repository

import (
	"context"
	"sync"

	"github.com/genart-works/genart-backend/internal/projects/domain"
)

// MemoryRepository keeps projects in a map guarded by a mutex. It backs
// development mode and tests; semantics match the durable backends.
type MemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]domain.Project
	order    []string // insertion order for stable listings
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{projects: make(map[string]domain.Project)}
}

func (r *MemoryRepository) Insert(_ context.Context, p domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[p.UUID]; !ok {
		r.order = append(r.order, p.UUID)
	}
	r.projects[p.UUID] = p
	return nil
}

func (r *MemoryRepository) GetAll(_ context.Context) ([]domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(domain.Project) bool { return true }), nil
}

func (r *MemoryRepository) GetByOwner(_ context.Context, username string) ([]domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(p domain.Project) bool { return p.Username == username }), nil
}

func (r *MemoryRepository) GetSince(_ context.Context, sinceMillis int64) ([]domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(p domain.Project) bool { return p.LastUpdated >= sinceMillis }), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, uuid string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[uuid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) UpdateMetadata(_ context.Context, uuid string, data domain.ProjectData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[uuid]
	if !ok {
		return domain.ErrNotFound
	}
	p.Name = data.Name
	p.Description = data.Description
	r.projects[uuid] = p
	return nil
}

func (r *MemoryRepository) BumpVersionAndTouch(_ context.Context, uuid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[uuid]
	if !ok {
		return domain.ErrNotFound
	}
	p.Version++
	if now := domain.NowMillis(); now > p.LastUpdated {
		p.LastUpdated = now
	}
	r.projects[uuid] = p
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, uuid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[uuid]; !ok {
		return nil
	}
	delete(r.projects, uuid)
	for i, id := range r.order {
		if id == uuid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// filter returns matching projects in insertion order. Callers must hold at
// least a read lock.
func (r *MemoryRepository) filter(keep func(domain.Project) bool) []domain.Project {
	out := make([]domain.Project, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.projects[id]; ok && keep(p) {
			out = append(out, p)
		}
	}
	return out
}
