package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genart-works/genart-backend/internal/projects/domain"
)

// PostgresRepository stores projects in a Postgres table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the projects table if it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists projects (
    id           serial primary key,
    uuid         varchar(60) not null unique,
    username     varchar(60) not null,
    name         varchar(60) not null,
    description  varchar(500) not null,
    version      integer not null,
    last_updated bigint not null
);
create index if not exists projects_username_idx on projects (username);
create index if not exists projects_last_updated_idx on projects (last_updated);
`
	if _, err := r.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure projects schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, p domain.Project) error {
	const q = `
insert into projects (uuid, username, name, description, version, last_updated)
values ($1, $2, $3, $4, $5, $6);
`
	_, err := r.db.Exec(ctx, q, p.UUID, p.Username, p.Name, p.Description, p.Version, p.LastUpdated)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetAll(ctx context.Context) ([]domain.Project, error) {
	const q = `
select uuid, username, name, description, version, last_updated
from projects
order by id;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *PostgresRepository) GetByOwner(ctx context.Context, username string) ([]domain.Project, error) {
	const q = `
select uuid, username, name, description, version, last_updated
from projects
where username = $1
order by id;
`
	rows, err := r.db.Query(ctx, q, username)
	if err != nil {
		return nil, fmt.Errorf("list projects by owner: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *PostgresRepository) GetSince(ctx context.Context, sinceMillis int64) ([]domain.Project, error) {
	const q = `
select uuid, username, name, description, version, last_updated
from projects
where last_updated >= $1
order by id;
`
	rows, err := r.db.Query(ctx, q, sinceMillis)
	if err != nil {
		return nil, fmt.Errorf("list projects since timestamp: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, uuid string) (*domain.Project, error) {
	const q = `
select uuid, username, name, description, version, last_updated
from projects
where uuid = $1;
`
	var p domain.Project
	err := r.db.QueryRow(ctx, q, uuid).
		Scan(&p.UUID, &p.Username, &p.Name, &p.Description, &p.Version, &p.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) UpdateMetadata(ctx context.Context, uuid string, data domain.ProjectData) error {
	const q = `
update projects
set name = $2, description = $3
where uuid = $1;
`
	ct, err := r.db.Exec(ctx, q, uuid, data.Name, data.Description)
	if err != nil {
		return fmt.Errorf("update project metadata: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BumpVersionAndTouch increments in a single statement so concurrent bumps
// on the same row serialize inside Postgres and none are lost. greatest()
// keeps lastUpdated from moving backwards under clock skew.
func (r *PostgresRepository) BumpVersionAndTouch(ctx context.Context, uuid string) error {
	const q = `
update projects
set version = version + 1, last_updated = greatest(last_updated, $2)
where uuid = $1;
`
	ct, err := r.db.Exec(ctx, q, uuid, domain.NowMillis())
	if err != nil {
		return fmt.Errorf("bump project version: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, uuid string) error {
	const q = `delete from projects where uuid = $1;`
	if _, err := r.db.Exec(ctx, q, uuid); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func scanProjects(rows pgx.Rows) ([]domain.Project, error) {
	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.UUID, &p.Username, &p.Name, &p.Description, &p.Version, &p.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
