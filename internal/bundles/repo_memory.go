package bundles

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores bundle metadata in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]ArtifactBundle
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]ArtifactBundle)}
}

// Create stores the bundle.
func (r *MemoryRepo) Create(ctx context.Context, bundle ArtifactBundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[bundle.ID] = bundle
	return nil
}

// GetByID returns a live bundle by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (ArtifactBundle, error) {
	if err := ctx.Err(); err != nil {
		return ArtifactBundle{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	bundle, ok := r.byID[id]
	if !ok || bundle.DeletedAt != nil {
		return ArtifactBundle{}, ErrNotFound
	}
	return bundle, nil
}

// ListExpired returns live bundles expiring at or before now.
func (r *MemoryRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]ArtifactBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]ArtifactBundle, 0)
	for _, b := range r.byID {
		if b.DeletedAt == nil && !b.ExpiresAt.After(now) {
			out = append(out, b)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkDeleted soft-deletes a bundle. Unknown IDs return ErrNotFound.
func (r *MemoryRepo) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	bundle, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if bundle.DeletedAt == nil {
		t := at
		bundle.DeletedAt = &t
		r.byID[id] = bundle
	}
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
