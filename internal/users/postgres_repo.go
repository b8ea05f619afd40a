package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepository stores users in a Postgres table over database/sql.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the users table if it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists users (
    id       serial primary key,
    username varchar(60) not null unique,
    passhash varchar(60) not null
);
`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, u User) error {
	const q = `insert into users (username, passhash) values ($1, $2);`
	if _, err := r.db.ExecContext(ctx, q, u.Username, u.Passhash); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	const q = `select username, passhash from users where username = $1;`
	var u User
	err := r.db.QueryRowContext(ctx, q, username).Scan(&u.Username, &u.Passhash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, username string) (bool, error) {
	const q = `select exists (select 1 from users where username = $1);`
	var found bool
	if err := r.db.QueryRowContext(ctx, q, username).Scan(&found); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return found, nil
}
