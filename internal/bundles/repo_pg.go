package bundles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const bundleColumns = `id, run_id, storage_key, file_name, status, size_bytes, sha256, manifest, created_at, expires_at, deleted_at`

// Create inserts bundle metadata. Job summaries are stored in the manifest column.
func (r *PGRepo) Create(ctx context.Context, bundle ArtifactBundle) error {
	manifest, err := json.Marshal(bundle.Jobs)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	const query = `
INSERT INTO bundles (
    id, run_id, storage_key, file_name, status, size_bytes, sha256, manifest, created_at, expires_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.DB.ExecContext(ctx, query,
		bundle.ID,
		bundle.RunID,
		bundle.StorageKey,
		bundle.FileName,
		string(bundle.Status),
		bundle.SizeBytes,
		bundle.SHA256,
		manifest,
		bundle.CreatedAt,
		bundle.ExpiresAt,
	)
	return err
}

// GetByID returns a live bundle by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (ArtifactBundle, error) {
	query := `
SELECT ` + bundleColumns + `
FROM bundles
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`
	bundle, err := scanBundle(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ArtifactBundle{}, ErrNotFound
		}
		return ArtifactBundle{}, err
	}
	return bundle, nil
}

// ListExpired lists live bundles whose expiry has passed, oldest first.
func (r *PGRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]ArtifactBundle, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
SELECT ` + bundleColumns + `
FROM bundles
WHERE deleted_at IS NULL AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArtifactBundle
	for rows.Next() {
		bundle, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bundle)
	}
	return out, rows.Err()
}

// MarkDeleted sets deleted_at. Already deleted rows are left as they are.
func (r *PGRepo) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	const query = `
UPDATE bundles
SET deleted_at = $2
WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBundle(row rowScanner) (ArtifactBundle, error) {
	var (
		bundle    ArtifactBundle
		status    string
		manifest  []byte
		deletedAt sql.NullTime
	)
	if err := row.Scan(
		&bundle.ID,
		&bundle.RunID,
		&bundle.StorageKey,
		&bundle.FileName,
		&status,
		&bundle.SizeBytes,
		&bundle.SHA256,
		&manifest,
		&bundle.CreatedAt,
		&bundle.ExpiresAt,
		&deletedAt,
	); err != nil {
		return ArtifactBundle{}, err
	}
	bundle.Status = Status(status)
	if len(manifest) > 0 {
		if err := json.Unmarshal(manifest, &bundle.Jobs); err != nil {
			return ArtifactBundle{}, fmt.Errorf("decode manifest: %w", err)
		}
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		bundle.DeletedAt = &t
	}
	return bundle, nil
}

var _ Repo = (*PGRepo)(nil)
