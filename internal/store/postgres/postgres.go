// Package postgres implements store.Store backed by PostgreSQL. It lets
// several machines share one profile's favorites and identity; each profile
// is a namespace within the client_state table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/dogmatch/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db        *sql.DB
	namespace string
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL, namespace string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newWithDB(db, namespace), nil
}

func newWithDB(db *sql.DB, namespace string) *PostgresStore {
	if namespace == "" {
		namespace = "default"
	}
	return &PostgresStore{db: db, namespace: namespace}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	return queryGet(ctx, s.db, s.namespace, key)
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	return querySet(ctx, s.db, s.namespace, key, value)
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	return queryDelete(ctx, s.db, s.namespace, key)
}

func (s *PostgresStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return queryDeletePrefix(ctx, s.db, s.namespace, prefix)
}

func (s *PostgresStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	return queryKeys(ctx, s.db, s.namespace, prefix)
}
