package bundles

import (
	"context"
	"time"
)

// Repo persists bundle metadata.
type Repo interface {
	Create(ctx context.Context, bundle ArtifactBundle) error
	GetByID(ctx context.Context, id string) (ArtifactBundle, error)
	// ListExpired returns live bundles whose expiry is at or before now, oldest first.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]ArtifactBundle, error)
	MarkDeleted(ctx context.Context, id string, at time.Time) error
}
