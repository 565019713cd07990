package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (d *Database) Get(ctx context.Context, key string) (string, bool, error) {
	query := "select value from kv where key = ?"

	var value string
	err := d.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select kv (key = %s): %w", key, err)
	}

	return value, true, nil
}

func (d *Database) Set(ctx context.Context, key string, value string) error {
	query := `insert into kv (key, value, updated_at) values (?, ?, current_timestamp)
	on conflict (key) do update set value = excluded.value, updated_at = excluded.updated_at`

	if _, err := d.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert kv (key = %s): %w", key, err)
	}

	return nil
}
