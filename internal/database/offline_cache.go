package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feedsnap/internal/domain"
)

func (d *Database) GetResponse(ctx context.Context, key string) (domain.CachedResponse, bool, error) {
	query := `select status_code, content_type, body, stored_at
	from offline_cache
	where key = ?`

	resp := domain.CachedResponse{Key: key}
	err := d.db.QueryRowContext(ctx, query, key).
		Scan(&resp.StatusCode, &resp.ContentType, &resp.Body, &resp.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CachedResponse{}, false, nil
	}
	if err != nil {
		return domain.CachedResponse{}, false, fmt.Errorf("select cached response (key = %s): %w", key, err)
	}

	return resp, true, nil
}

func (d *Database) PutResponse(ctx context.Context, resp domain.CachedResponse) error {
	query := `insert into offline_cache (key, status_code, content_type, body, stored_at)
	values (?, ?, ?, ?, ?)
	on conflict (key) do update set
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		body = excluded.body,
		stored_at = excluded.stored_at`

	storedAt := resp.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}

	body := resp.Body
	if body == nil {
		body = []byte{}
	}

	_, err := d.db.ExecContext(ctx, query,
		resp.Key, resp.StatusCode, resp.ContentType, body, storedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert cached response (key = %s): %w", resp.Key, err)
	}

	return nil
}

// PruneResponses drops cached responses stored before cutoff.
func (d *Database) PruneResponses(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, "delete from offline_cache where stored_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete cached responses: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted cached responses: %w", err)
	}

	if n > 0 {
		d.log.InfoContext(ctx, "Stale cached responses are pruned",
			"count", n,
			"cutoff", cutoff)
	}

	return n, nil
}
