package postgres

import (
	"database/sql"
	"fmt"

	"github.com/genart-works/genart-backend/config"
	_ "github.com/lib/pq"
)

// NewConnection opens a database/sql handle to Postgres; used by the users
// store. The project store runs on its own pgx pool.
func NewConnection(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := DSN(cfg)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}
