package bundles

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"
)

func seedBundle(t *testing.T, repo *MemoryRepo, objects *memObjects, id string, expires time.Time) ArtifactBundle {
	t.Helper()
	b := ArtifactBundle{
		ID:         id,
		RunID:      "run",
		StorageKey: keyPrefix + id + ".zip",
		FileName:   "Resumes_2025.zip",
		Status:     StatusSucceeded,
		CreatedAt:  expires.Add(-DefaultRetention),
		ExpiresAt:  expires,
	}
	objects.data[b.StorageKey] = []byte("zip:" + id)
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return b
}

const (
	liveID    = "0f6d3c0a-1111-4a4a-8b8b-000000000001"
	expiredID = "0f6d3c0a-1111-4a4a-8b8b-000000000002"
)

func TestStoreOpen(t *testing.T) {
	repo := NewMemoryRepo()
	objects := newMemObjects()
	seedBundle(t, repo, objects, liveID, fixedNow.Add(time.Hour))
	seedBundle(t, repo, objects, expiredID, fixedNow.Add(-time.Second))
	store := &Store{Repo: repo, Objects: objects, Now: func() time.Time { return fixedNow }}

	rc, bundle, err := store.Open(context.Background(), liveID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "zip:"+liveID || bundle.ID != liveID {
		t.Fatalf("unexpected bundle %q %+v", data, bundle)
	}

	for _, handle := range []string{expiredID, "not-a-uuid", "0f6d3c0a-1111-4a4a-8b8b-0000000000ff"} {
		if _, _, err := store.Open(context.Background(), handle); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Open(%s): expected ErrNotFound, got %v", handle, err)
		}
	}

	delete(objects.data, keyPrefix+liveID+".zip")
	if _, _, err := store.Open(context.Background(), liveID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing object: expected ErrNotFound, got %v", err)
	}
}

func TestStoreSweepRemovesExpired(t *testing.T) {
	repo := NewMemoryRepo()
	objects := newMemObjects()
	seedBundle(t, repo, objects, liveID, fixedNow.Add(time.Hour))
	seedBundle(t, repo, objects, expiredID, fixedNow)
	store := &Store{Repo: repo, Objects: objects, Now: func() time.Time { return fixedNow }}

	removed, err := store.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := objects.data[keyPrefix+expiredID+".zip"]; ok {
		t.Fatalf("expired object still present")
	}
	if _, ok := objects.data[keyPrefix+liveID+".zip"]; !ok {
		t.Fatalf("live object removed")
	}
	if _, err := repo.GetByID(context.Background(), expiredID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired metadata marked deleted, got %v", err)
	}

	again, err := store.Sweep(context.Background())
	if err != nil || again != 0 {
		t.Fatalf("second sweep: removed=%d err=%v", again, err)
	}
}

type countingSweeper struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
}

func (s *countingSweeper) Sweep(ctx context.Context) (int, error) {
	s.calls.Add(1)
	select {
	case s.started <- struct{}{}:
	default:
	}
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return 0, nil
}

func TestJanitorTriggerCoalesces(t *testing.T) {
	sweeper := &countingSweeper{release: make(chan struct{}), started: make(chan struct{}, 1)}
	j := NewJanitor(sweeper, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)

	j.Trigger()
	select {
	case <-sweeper.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweep did not start")
	}

	// Sweep is blocked; these collapse into one pending run.
	for i := 0; i < 5; i++ {
		j.Trigger()
	}
	sweeper.release <- struct{}{}
	select {
	case <-sweeper.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("pending sweep did not run")
	}
	close(sweeper.release)

	cancel()
	select {
	case <-j.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("janitor did not stop")
	}
	if got := sweeper.calls.Load(); got != 2 {
		t.Fatalf("expected 2 sweeps, got %d", got)
	}
}
