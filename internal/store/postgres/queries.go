package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/dogmatch/internal/store"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGet(ctx context.Context, db executor, ns, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE namespace = $1 AND key = $2`, ns, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func querySet(ctx context.Context, db executor, ns, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO client_state (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		ns, key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func queryDelete(ctx context.Context, db executor, ns, key string) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM client_state WHERE namespace = $1 AND key = $2`, ns, key,
	); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func queryDeletePrefix(ctx context.Context, db executor, ns, prefix string) (int, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM client_state WHERE namespace = $1 AND key LIKE $2 ESCAPE '\'`,
		ns, store.LikePrefix(prefix),
	)
	if err != nil {
		return 0, fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func queryKeys(ctx context.Context, db executor, ns, prefix string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT key FROM client_state WHERE namespace = $1 AND key LIKE $2 ESCAPE '\' ORDER BY key`,
		ns, store.LikePrefix(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
