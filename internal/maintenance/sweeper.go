// Package maintenance reconciles the project store with the artifact store.
// Create and delete are multi-step with no rollback, so a crash between
// steps can leave an orphaned record or orphaned blobs behind; the sweeper
// finds both, removes stale blobs and logs records missing their artifacts.
package maintenance

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/genart-works/genart-backend/internal/artifacts"
	"github.com/genart-works/genart-backend/internal/projects/repository"
)

// Sweeper runs the reconciliation pass.
type Sweeper struct {
	repo  repository.ProjectRepository
	store *artifacts.Store
	// grace protects blobs of an in-flight create whose record is not
	// visible yet; only files older than this are treated as orphans.
	grace time.Duration
}

func NewSweeper(repo repository.ProjectRepository, store *artifacts.Store, grace time.Duration) *Sweeper {
	return &Sweeper{repo: repo, store: store, grace: grace}
}

// Start schedules the sweep on the given cron expression and returns the runner so
// the caller can stop it on shutdown.
func (s *Sweeper) Start(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			log.Printf("[error] operation=sweep error=%v", err)
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[info] operation=sweep message=artifact sweeper scheduled (%s)", schedule)
	c.Start()
	return c, nil
}

// Sweep runs one reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	projects, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(projects))
	for _, p := range projects {
		known[p.UUID] = true
	}

	onDisk, err := s.store.ListProjects()
	if err != nil {
		return err
	}

	removed := 0
	for _, uuid := range onDisk {
		if known[uuid] {
			continue
		}
		if !s.pastGrace(uuid) {
			continue
		}
		if err := s.store.Delete(uuid, artifacts.KindExecutable); err != nil {
			log.Printf("[warn] operation=sweep project=%s error=%v", uuid, err)
		}
		if err := s.store.Delete(uuid, artifacts.KindThumbnail); err != nil {
			log.Printf("[warn] operation=sweep project=%s error=%v", uuid, err)
		}
		removed++
	}

	// Records missing artifacts are logged, never deleted: the owner can
	// still repair the project by re-uploading.
	for _, p := range projects {
		if !s.store.Exists(p.UUID, artifacts.KindExecutable) {
			log.Printf("[warn] operation=sweep project=%s message=record has no stored executable", p.UUID)
		}
		if !s.store.Exists(p.UUID, artifacts.KindThumbnail) {
			log.Printf("[warn] operation=sweep project=%s message=record has no stored thumbnail", p.UUID)
		}
	}

	if removed > 0 {
		log.Printf("[info] operation=sweep message=removed %d orphaned artifact sets", removed)
	}
	return nil
}

// pastGrace reports whether every blob of the uuid is older than the grace
// period. A blob that cannot be stat'd does not count as past grace.
func (s *Sweeper) pastGrace(uuid string) bool {
	cutoff := time.Now().Add(-s.grace)
	for _, kind := range []artifacts.Kind{artifacts.KindExecutable, artifacts.KindThumbnail} {
		info, err := os.Stat(s.store.Path(uuid, kind))
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			return false
		}
	}
	return true
}
