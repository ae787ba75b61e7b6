package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resume-tailor/internal/shared/storage/object"
)

func TestPutOpenDelete(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	n, err := s.Put(ctx, "bundles/abc.zip", "application/zip", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len("payload")) {
		t.Fatalf("unexpected size %d", n)
	}

	rc, err := s.Open(ctx, "bundles/abc.zip")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "bundles"))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left, got %d entries", len(entries))
	}

	if err := s.Delete(ctx, "bundles/abc.zip"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "bundles/abc.zip"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, err := s.Open(ctx, "bundles/abc.zip"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	for _, key := range []string{"../x", "/etc/passwd", "", "a/../../b"} {
		if _, err := s.Put(ctx, key, "", strings.NewReader("x")); err == nil {
			t.Fatalf("expected Put(%q) to fail", key)
		}
		if _, err := s.Open(ctx, key); err == nil {
			t.Fatalf("expected Open(%q) to fail", key)
		}
	}
}
