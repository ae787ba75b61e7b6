package bundles

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/internal/shared/telemetry"
)

const sweepBatch = 100

// Store serves stored bundles by handle and removes them once they expire.
type Store struct {
	Repo    Repo
	Objects object.ObjectStore
	Now     func() time.Time
}

// Get returns metadata for a live bundle.
func (s *Store) Get(ctx context.Context, handle string) (ArtifactBundle, error) {
	if s.Repo == nil || s.Objects == nil {
		return ArtifactBundle{}, errMissingDeps
	}
	if _, err := uuid.Parse(handle); err != nil {
		return ArtifactBundle{}, ErrNotFound
	}
	bundle, err := s.Repo.GetByID(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ArtifactBundle{}, ErrNotFound
		}
		return ArtifactBundle{}, &StorageError{Op: "lookup", Key: handle, Err: err}
	}
	if bundle.Expired(s.now()) {
		return ArtifactBundle{}, ErrNotFound
	}
	return bundle, nil
}

// Open returns the archive bytes for a live bundle. The caller closes the reader.
func (s *Store) Open(ctx context.Context, handle string) (io.ReadCloser, ArtifactBundle, error) {
	bundle, err := s.Get(ctx, handle)
	if err != nil {
		return nil, ArtifactBundle{}, err
	}
	rc, err := s.Objects.Open(ctx, bundle.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, ArtifactBundle{}, ErrNotFound
		}
		return nil, ArtifactBundle{}, &StorageError{Op: "open", Key: bundle.StorageKey, Err: err}
	}
	return rc, bundle, nil
}

// Sweep deletes expired archives and marks their metadata deleted. It keeps
// going past individual failures and returns the number removed.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	if s.Repo == nil || s.Objects == nil {
		return 0, errMissingDeps
	}
	now := s.now()
	removed := 0
	var firstErr error
	for {
		expired, err := s.Repo.ListExpired(ctx, now, sweepBatch)
		if err != nil {
			return removed, &StorageError{Op: "list_expired", Err: err}
		}
		progressed := false
		for _, b := range expired {
			if err := ctx.Err(); err != nil {
				return removed, err
			}
			if err := s.Objects.Delete(ctx, b.StorageKey); err != nil {
				telemetry.Warn("bundles.janitor.delete_failed", map[string]any{
					"bundle_id": b.ID,
					"key":       b.StorageKey,
					"error":     err.Error(),
				})
				if firstErr == nil {
					firstErr = &StorageError{Op: "delete", Key: b.StorageKey, Err: err}
				}
				continue
			}
			if err := s.Repo.MarkDeleted(ctx, b.ID, now); err != nil && !errors.Is(err, ErrNotFound) {
				if firstErr == nil {
					firstErr = &StorageError{Op: "mark_deleted", Key: b.ID, Err: err}
				}
				continue
			}
			removed++
			progressed = true
		}
		if len(expired) < sweepBatch || !progressed {
			break
		}
	}
	if removed > 0 {
		metrics.AddBundlesExpired(removed)
	}
	return removed, firstErr
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
