package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genart-works/genart-backend/internal/projects/domain"
)

func sampleProject(uuid, username, name string) domain.Project {
	return domain.Project{
		UUID:        uuid,
		Username:    username,
		Name:        name,
		Description: "a generative thing",
		Version:     1,
		LastUpdated: domain.NowMillis(),
	}
}

// runRepositorySuite exercises the ProjectRepository contract; both the
// memory and redis backends run it.
func runRepositorySuite(t *testing.T, repo ProjectRepository) {
	ctx := context.Background()

	t.Run("insert and get roundtrip", func(t *testing.T) {
		p := sampleProject("rt-1", "alice-painter", "waves")
		require.NoError(t, repo.Insert(ctx, p))

		got, err := repo.GetByID(ctx, "rt-1")
		require.NoError(t, err)
		assert.Equal(t, p, *got)
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("get by owner filters", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, sampleProject("own-1", "owner-one", "alpha")))
		require.NoError(t, repo.Insert(ctx, sampleProject("own-2", "owner-one", "beta")))
		require.NoError(t, repo.Insert(ctx, sampleProject("own-3", "owner-two", "gamma")))

		got, err := repo.GetByOwner(ctx, "owner-one")
		require.NoError(t, err)

		uuids := make([]string, 0, len(got))
		for _, p := range got {
			uuids = append(uuids, p.UUID)
		}
		assert.ElementsMatch(t, []string{"own-1", "own-2"}, uuids)
	})

	t.Run("get since filters on lastUpdated", func(t *testing.T) {
		old := sampleProject("since-old", "since-owner", "old")
		old.LastUpdated = 1000
		recent := sampleProject("since-new", "since-owner", "new")
		recent.LastUpdated = 2000

		require.NoError(t, repo.Insert(ctx, old))
		require.NoError(t, repo.Insert(ctx, recent))

		got, err := repo.GetSince(ctx, 1500)
		require.NoError(t, err)
		for _, p := range got {
			assert.GreaterOrEqual(t, p.LastUpdated, int64(1500))
			assert.NotEqual(t, "since-old", p.UUID)
		}
	})

	t.Run("update metadata does not bump version", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, sampleProject("meta-1", "meta-owner", "before")))

		err := repo.UpdateMetadata(ctx, "meta-1", domain.ProjectData{Name: "after", Description: "new words"})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, "meta-1")
		require.NoError(t, err)
		assert.Equal(t, "after", got.Name)
		assert.Equal(t, "new words", got.Description)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("update metadata on missing project", func(t *testing.T) {
		err := repo.UpdateMetadata(ctx, "nope", domain.ProjectData{Name: "x", Description: "y"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("bump increments by exactly one and touches", func(t *testing.T) {
		p := sampleProject("bump-1", "bump-owner", "counted")
		p.LastUpdated = 1 // far in the past
		require.NoError(t, repo.Insert(ctx, p))

		const n = 5
		prev := p.LastUpdated
		for i := 0; i < n; i++ {
			require.NoError(t, repo.BumpVersionAndTouch(ctx, "bump-1"))

			got, err := repo.GetByID(ctx, "bump-1")
			require.NoError(t, err)
			assert.Equal(t, 1+i+1, got.Version)
			assert.GreaterOrEqual(t, got.LastUpdated, prev)
			prev = got.LastUpdated
		}
	})

	t.Run("bump missing project", func(t *testing.T) {
		assert.ErrorIs(t, repo.BumpVersionAndTouch(ctx, "nope"), domain.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, sampleProject("del-1", "del-owner", "doomed")))

		require.NoError(t, repo.Delete(ctx, "del-1"))
		require.NoError(t, repo.Delete(ctx, "del-1"))

		_, err := repo.GetByID(ctx, "del-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("deleted project leaves listings", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, sampleProject("del-2", "del-owner-two", "gone")))
		require.NoError(t, repo.Delete(ctx, "del-2"))

		got, err := repo.GetByOwner(ctx, "del-owner-two")
		require.NoError(t, err)
		assert.Empty(t, got)

		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		for _, p := range all {
			assert.NotEqual(t, "del-2", p.UUID)
		}
	})

	t.Run("timestamp never moves backwards", func(t *testing.T) {
		p := sampleProject("mono-1", "mono-owner", "steady")
		p.LastUpdated = time.Now().Add(time.Hour).UnixMilli() // ahead of the clock
		require.NoError(t, repo.Insert(ctx, p))

		require.NoError(t, repo.BumpVersionAndTouch(ctx, "mono-1"))

		got, err := repo.GetByID(ctx, "mono-1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.LastUpdated, p.LastUpdated)
	})
}
