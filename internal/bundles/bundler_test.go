package bundles

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/resume/compile"
	"resume-tailor/resume/model"
	"resume-tailor/resume/render"
)

type memObjects struct {
	mu      sync.Mutex
	data    map[string][]byte
	putErr  error
	deleted []string
}

func newMemObjects() *memObjects {
	return &memObjects{data: map[string][]byte{}}
}

func (m *memObjects) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if m.putErr != nil {
		return 0, m.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return int64(len(b)), nil
}

func (m *memObjects) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type failingRepo struct {
	*MemoryRepo
	err error
}

func (r failingRepo) Create(ctx context.Context, b ArtifactBundle) error {
	return r.err
}

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

const testBundleID = "7d0c2f4e-8d7b-4b7e-9d55-3f1c1b0a9e11"

func newTestBundler(objects object.ObjectStore, repo Repo) *Bundler {
	return &Bundler{
		Repo:    repo,
		Objects: objects,
		Now:     func() time.Time { return fixedNow },
		NewID:   func() string { return testBundleID },
	}
}

func writePDF(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "out.pdf")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return p
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	out := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = string(b)
	}
	return out
}

func names(entries map[string]string) []string {
	out := make([]string, 0, len(entries))
	for k := range entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestBundleWritesArchiveAndRecord(t *testing.T) {
	objects := newMemObjects()
	repo := NewMemoryRepo()
	b := newTestBundler(objects, repo)

	content := &model.TailoredContent{ATS: model.ATSReport{Matched: []string{"go"}, Risks: []string{}}}
	results := []JobResult{
		{
			JobID:   "acme-1",
			Company: "Acme Corp",
			Region:  model.RegionUS,
			Status:  JobSucceeded,
			Content: content,
			Documents: []DocumentResult{
				{Kind: render.KindResume, Result: compile.Result{Status: compile.StatusSucceeded, PDFPath: writePDF(t, "%PDF resume"), Pages: 1, Attempts: 1}},
				{Kind: render.KindCoverLetter, Result: compile.Result{Status: compile.StatusMarkupOnly, Markup: "\\documentclass{letter}", Log: "! Undefined control sequence.", Attempts: 2}},
			},
			Editable: []byte("PK editable"),
		},
		{
			JobID:     "globex",
			Company:   "Globex",
			Status:    JobFailed,
			ErrorKind: ErrorUnavailable,
			Err:       errors.New("generation unavailable"),
		},
	}

	bundle, err := b.Bundle(context.Background(), "run-1", "Ada King Lovelace", results)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}

	if bundle.ID != testBundleID || bundle.StorageKey != "bundles/"+testBundleID+".zip" {
		t.Fatalf("unexpected identity: %+v", bundle)
	}
	if bundle.FileName != "Ada_Lovelace_Resumes_2025.zip" {
		t.Fatalf("unexpected file name %q", bundle.FileName)
	}
	if !bundle.ExpiresAt.Equal(fixedNow.Add(DefaultRetention)) {
		t.Fatalf("unexpected expiry %v", bundle.ExpiresAt)
	}
	if bundle.Status != StatusPartialFailure {
		t.Fatalf("expected partial_failure, got %s", bundle.Status)
	}
	if bundle.SHA256 == "" || bundle.SizeBytes == 0 {
		t.Fatalf("expected size and checksum, got %+v", bundle)
	}

	entries := readZip(t, objects.data[bundle.StorageKey])
	wantNames := []string{
		"Ada_Lovelace_Acme_Corp_2025_acme-1_cover_letter.tex",
		"Ada_Lovelace_Acme_Corp_2025_acme-1_resume.docx",
		"Ada_Lovelace_Acme_Corp_2025_acme-1_resume.pdf",
		"Ada_Lovelace_Globex_2025_globex_error.txt",
		"manifest.json",
	}
	if diff := cmp.Diff(wantNames, names(entries)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if entries["Ada_Lovelace_Acme_Corp_2025_acme-1_resume.pdf"] != "%PDF resume" {
		t.Fatalf("pdf bytes not copied")
	}
	if entries["Ada_Lovelace_Acme_Corp_2025_acme-1_cover_letter.tex"] != "\\documentclass{letter}" {
		t.Fatalf("markup not archived verbatim")
	}

	var m manifest
	if err := json.Unmarshal([]byte(entries["manifest.json"]), &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(m.Jobs) != 2 || m.Jobs[0].JobID != "acme-1" || m.Jobs[1].JobID != "globex" {
		t.Fatalf("manifest jobs out of order: %+v", m.Jobs)
	}
	if m.Jobs[0].Editable != "Ada_Lovelace_Acme_Corp_2025_acme-1_resume.docx" || entries[m.Jobs[0].Editable] != "PK editable" {
		t.Fatalf("expected editable résumé entry, got %q", m.Jobs[0].Editable)
	}
	if m.Jobs[0].Status != JobMarkupOnly {
		t.Fatalf("expected job status markup_only, got %s", m.Jobs[0].Status)
	}
	if m.Jobs[0].Documents[1].LogExcerpt == "" {
		t.Fatalf("expected log excerpt for markup-only document")
	}
	if m.Jobs[1].ErrorKind != ErrorUnavailable || m.Jobs[1].Error == "" {
		t.Fatalf("expected failure details, got %+v", m.Jobs[1])
	}

	stored, err := repo.GetByID(context.Background(), bundle.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if diff := cmp.Diff(bundle, stored); diff != "" {
		t.Fatalf("stored bundle mismatch (-want +got):\n%s", diff)
	}
}

func TestBundleFallsBackToMarkupWhenPDFMissing(t *testing.T) {
	objects := newMemObjects()
	b := newTestBundler(objects, NewMemoryRepo())

	results := []JobResult{{
		JobID:   "j1",
		Company: "Initech",
		Status:  JobSucceeded,
		Documents: []DocumentResult{
			{Kind: render.KindResume, Result: compile.Result{Status: compile.StatusSucceeded, PDFPath: filepath.Join(t.TempDir(), "gone.pdf"), Markup: "tex"}},
		},
	}}
	bundle, err := b.Bundle(context.Background(), "run-1", "Ada Lovelace", results)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if bundle.Jobs[0].Status != JobMarkupOnly {
		t.Fatalf("expected markup_only, got %s", bundle.Jobs[0].Status)
	}
	if bundle.Status != StatusPartialFailure {
		t.Fatalf("expected partial_failure with nothing compiled, got %s", bundle.Status)
	}
	entries := readZip(t, objects.data[bundle.StorageKey])
	if entries["Ada_Lovelace_Initech_2025_j1_resume.tex"] != "tex" {
		t.Fatalf("expected tex fallback, got %v", names(entries))
	}
}

func TestBundleStorageFailures(t *testing.T) {
	t.Run("put", func(t *testing.T) {
		objects := newMemObjects()
		objects.putErr = errors.New("disk full")
		_, err := newTestBundler(objects, NewMemoryRepo()).Bundle(context.Background(), "run", "Ada", nil)
		var se *StorageError
		if !errors.As(err, &se) || se.Op != "put" {
			t.Fatalf("expected put StorageError, got %v", err)
		}
	})

	t.Run("record removes object", func(t *testing.T) {
		objects := newMemObjects()
		repo := failingRepo{MemoryRepo: NewMemoryRepo(), err: errors.New("db down")}
		b := newTestBundler(objects, repo)
		b.OnStored = func(ArtifactBundle) { t.Errorf("OnStored called for an unrecorded bundle") }
		_, err := b.Bundle(context.Background(), "run", "Ada", nil)
		var se *StorageError
		if !errors.As(err, &se) || se.Op != "record" {
			t.Fatalf("expected record StorageError, got %v", err)
		}
		if len(objects.data) != 0 || len(objects.deleted) != 1 {
			t.Fatalf("expected orphan cleanup, data=%d deleted=%v", len(objects.data), objects.deleted)
		}
	})
}

func TestBundleNotifiesOnStored(t *testing.T) {
	var got []string
	b := newTestBundler(newMemObjects(), NewMemoryRepo())
	b.OnStored = func(bundle ArtifactBundle) { got = append(got, bundle.ID) }

	if _, err := b.Bundle(context.Background(), "run", "Ada Lovelace", nil); err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if len(got) != 1 || got[0] != testBundleID {
		t.Fatalf("expected one notification for %s, got %v", testBundleID, got)
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		owner   string
		company string
		jobID   string
		want    string
	}{
		{name: "full", owner: "Grace Brewster Hopper", company: "US Navy", jobID: "n-1", want: "Grace_Hopper_US_Navy_2025_n-1"},
		{name: "single name", owner: "Cher", company: "Acme", jobID: "a", want: "Cher_Acme_2025_a"},
		{name: "specials stripped", owner: "Zoë O'Neil", company: "R&D {Labs}", jobID: "../x", want: "Zo_ONeil_RD_Labs_2025_x"},
		{name: "no owner", owner: "", company: "", jobID: "job", want: "2025_job"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := JobFileStem(tt.owner, tt.company, tt.jobID, 2025); got != tt.want {
				t.Fatalf("JobFileStem = %q, want %q", got, tt.want)
			}
		})
	}

	if got := ArchiveName("Ada Lovelace", 2025); got != "Ada_Lovelace_Resumes_2025.zip" {
		t.Fatalf("ArchiveName = %q", got)
	}
	if got := ArchiveName("", 2025); got != "Resumes_2025.zip" {
		t.Fatalf("ArchiveName without owner = %q", got)
	}
}
