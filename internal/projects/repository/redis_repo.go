package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/genart-works/genart-backend/internal/projects/domain"
)

const (
	projectKeyPrefix = "genart:project:" // JSON record: genart:project:{uuid}
	ownerSetPrefix   = "genart:owner:"   // set of uuids per owner: genart:owner:{username}
	allProjectsKey   = "genart:projects" // set of all uuids
	updatedIndexKey  = "genart:updated"  // zset uuid -> lastUpdated millis
)

// casAttempts bounds optimistic retries on concurrent modification.
const casAttempts = 5

// RedisRepository stores projects as JSON values with secondary index sets,
// an alternative backend to Postgres for single-node deployments.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Insert(ctx context.Context, p domain.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, projectKey(p.UUID), data, 0)
	pipe.SAdd(ctx, allProjectsKey, p.UUID)
	pipe.SAdd(ctx, ownerKey(p.Username), p.UUID)
	pipe.ZAdd(ctx, updatedIndexKey, redis.Z{Score: float64(p.LastUpdated), Member: p.UUID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetAll(ctx context.Context) ([]domain.Project, error) {
	uuids, err := r.client.SMembers(ctx, allProjectsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return r.fetchMany(ctx, uuids)
}

func (r *RedisRepository) GetByOwner(ctx context.Context, username string) ([]domain.Project, error) {
	uuids, err := r.client.SMembers(ctx, ownerKey(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("list projects by owner: %w", err)
	}
	return r.fetchMany(ctx, uuids)
}

func (r *RedisRepository) GetSince(ctx context.Context, sinceMillis int64) ([]domain.Project, error) {
	uuids, err := r.client.ZRangeByScore(ctx, updatedIndexKey, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", sinceMillis),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list projects since timestamp: %w", err)
	}
	return r.fetchMany(ctx, uuids)
}

func (r *RedisRepository) GetByID(ctx context.Context, uuid string) (*domain.Project, error) {
	data, err := r.client.Get(ctx, projectKey(uuid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	var p domain.Project
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	return &p, nil
}

func (r *RedisRepository) UpdateMetadata(ctx context.Context, uuid string, data domain.ProjectData) error {
	return r.mutate(ctx, uuid, func(p *domain.Project) {
		p.Name = data.Name
		p.Description = data.Description
	})
}

func (r *RedisRepository) BumpVersionAndTouch(ctx context.Context, uuid string) error {
	return r.mutate(ctx, uuid, func(p *domain.Project) {
		p.Version++
		if now := domain.NowMillis(); now > p.LastUpdated {
			p.LastUpdated = now
		}
	})
}

func (r *RedisRepository) Delete(ctx context.Context, uuid string) error {
	p, err := r.GetByID(ctx, uuid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, projectKey(uuid))
	pipe.SRem(ctx, allProjectsKey, uuid)
	pipe.SRem(ctx, ownerKey(p.Username), uuid)
	pipe.ZRem(ctx, updatedIndexKey, uuid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// mutate applies fn to the stored record under WATCH so a concurrent writer
// forces a retry instead of a lost update.
func (r *RedisRepository) mutate(ctx context.Context, uuid string, fn func(*domain.Project)) error {
	key := projectKey(uuid)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var p domain.Project
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return fmt.Errorf("unmarshal project: %w", err)
		}
		fn(&p)

		updated, err := json.Marshal(&p)
		if err != nil {
			return fmt.Errorf("marshal project: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.ZAdd(ctx, updatedIndexKey, redis.Z{Score: float64(p.LastUpdated), Member: p.UUID})
			return nil
		})
		return err
	}

	for i := 0; i < casAttempts; i++ {
		err := r.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("update project: %w", err)
		}
		return err
	}
	return fmt.Errorf("update project %s: too many concurrent modifications", uuid)
}

// fetchMany loads projects by uuid, skipping records deleted between the
// index read and the value read. Results are sorted by lastUpdated then uuid
// so listings are stable.
func (r *RedisRepository) fetchMany(ctx context.Context, uuids []string) ([]domain.Project, error) {
	out := make([]domain.Project, 0, len(uuids))
	if len(uuids) == 0 {
		return out, nil
	}

	keys := make([]string, len(uuids))
	for i, id := range uuids {
		keys[i] = projectKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var p domain.Project
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, fmt.Errorf("unmarshal project: %w", err)
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastUpdated != out[j].LastUpdated {
			return out[i].LastUpdated < out[j].LastUpdated
		}
		return out[i].UUID < out[j].UUID
	})
	return out, nil
}

func projectKey(uuid string) string { return projectKeyPrefix + uuid }

func ownerKey(username string) string { return ownerSetPrefix + username }
