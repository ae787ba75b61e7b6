package bundles

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/internal/shared/telemetry"
	"resume-tailor/internal/shared/util"
	"resume-tailor/resume/compile"
	"resume-tailor/resume/render"
)

const (
	// DefaultRetention matches the seven day download window.
	DefaultRetention = 7 * 24 * time.Hour

	keyPrefix    = "bundles/"
	manifestName = "manifest.json"
	zipMIME      = "application/zip"
)

// Bundler archives job results and records the bundle.
type Bundler struct {
	Repo      Repo
	Objects   object.ObjectStore
	Retention time.Duration
	Now       func() time.Time
	NewID     func() string
	// OnStored runs after a bundle is recorded.
	OnStored func(ArtifactBundle)
}

type manifest struct {
	BundleID  string       `json:"bundleId"`
	RunID     string       `json:"runId"`
	Owner     string       `json:"owner,omitempty"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Jobs      []JobSummary `json:"jobs"`
}

// Bundle writes one ZIP for results, in the order given, and stores it.
// owner is the candidate's full name and drives file naming.
func (b *Bundler) Bundle(ctx context.Context, runID, owner string, results []JobResult) (bundle ArtifactBundle, err error) {
	if b.Repo == nil || b.Objects == nil {
		return ArtifactBundle{}, errMissingDeps
	}
	ctx, span := telemetry.StartSpan(ctx, "bundles.bundle",
		attribute.String("run_id", runID),
		attribute.Int("jobs", len(results)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	now := b.now()
	id := b.newID()
	year := now.Year()

	bundle = ArtifactBundle{
		ID:         id,
		RunID:      runID,
		StorageKey: keyPrefix + id + ".zip",
		FileName:   ArchiveName(owner, year),
		CreatedAt:  now,
		ExpiresAt:  now.Add(b.retention()),
	}

	var buf bytes.Buffer
	hw := util.NewHashingWriter(&buf)
	zw := zip.NewWriter(hw)

	bundle.Jobs = make([]JobSummary, 0, len(results))
	for _, res := range results {
		summary, err := writeJob(zw, res, JobFileStem(owner, res.Company, res.JobID, year))
		if err != nil {
			return ArtifactBundle{}, &StorageError{Op: "archive", Key: bundle.StorageKey, Err: err}
		}
		bundle.Jobs = append(bundle.Jobs, summary)
	}
	bundle.Status = OverallStatus(bundle.Jobs)

	m := manifest{
		BundleID:  bundle.ID,
		RunID:     runID,
		Owner:     owner,
		Status:    bundle.Status,
		CreatedAt: bundle.CreatedAt,
		ExpiresAt: bundle.ExpiresAt,
		Jobs:      bundle.Jobs,
	}
	if err := writeJSON(zw, manifestName, m); err != nil {
		return ArtifactBundle{}, &StorageError{Op: "archive", Key: bundle.StorageKey, Err: err}
	}
	if err := zw.Close(); err != nil {
		return ArtifactBundle{}, &StorageError{Op: "archive", Key: bundle.StorageKey, Err: err}
	}
	bundle.SHA256 = hw.Sum()

	size, err := b.Objects.Put(ctx, bundle.StorageKey, zipMIME, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return ArtifactBundle{}, &StorageError{Op: "put", Key: bundle.StorageKey, Err: err}
	}
	bundle.SizeBytes = size

	if err := b.Repo.Create(ctx, bundle); err != nil {
		if delErr := b.Objects.Delete(context.WithoutCancel(ctx), bundle.StorageKey); delErr != nil {
			telemetry.Warn("bundles.orphan", map[string]any{
				"bundle_id": bundle.ID,
				"key":       bundle.StorageKey,
				"error":     delErr.Error(),
			})
		}
		return ArtifactBundle{}, &StorageError{Op: "record", Key: bundle.StorageKey, Err: err}
	}

	metrics.IncBundleStored()
	telemetry.Info("bundles.stored", map[string]any{
		"bundle_id":  bundle.ID,
		"run_id":     runID,
		"status":     string(bundle.Status),
		"size_bytes": bundle.SizeBytes,
		"jobs":       len(bundle.Jobs),
	})
	if b.OnStored != nil {
		b.OnStored(bundle)
	}
	return bundle, nil
}

// writeJob adds a job's documents and returns its manifest entry. A compiled
// document whose file can no longer be read is archived as markup instead.
func writeJob(zw *zip.Writer, res JobResult, stem string) (JobSummary, error) {
	summary := JobSummary{
		JobID:     res.JobID,
		Stem:      stem,
		Status:    res.Status,
		Region:    string(res.Region),
		Fallback:  res.Fallback,
		ErrorKind: res.ErrorKind,
	}
	if res.Err != nil {
		summary.Error = res.Err.Error()
	}
	if res.Content != nil {
		ats := res.Content.ATS
		summary.ATS = &ats
	}

	if res.Failed() {
		notice := fmt.Sprintf("job %s failed (%s): %s\n", res.JobID, res.ErrorKind, summary.Error)
		if err := writeEntry(zw, stem+"_error.txt", []byte(notice)); err != nil {
			return JobSummary{}, err
		}
		return summary, nil
	}

	docs := make([]DocumentResult, 0, len(res.Documents))
	for _, doc := range res.Documents {
		r := doc.Result
		ds := DocumentSummary{
			Kind:          string(doc.Kind),
			Status:        string(r.Status),
			Pages:         r.Pages,
			Attempts:      r.Attempts,
			StrippedBlock: r.StrippedBlock,
			Warnings:      r.Warnings,
		}
		base := stem + "_" + string(doc.Kind)

		wrotePDF := false
		if r.Status.Compiled() && r.PDFPath != "" {
			ds.File = base + ".pdf"
			err := copyFile(zw, ds.File, r.PDFPath)
			switch {
			case err == nil:
				wrotePDF = true
			case isOpenError(err):
				telemetry.Warn("bundles.pdf_missing", map[string]any{
					"job_id": res.JobID,
					"kind":   string(doc.Kind),
					"error":  err.Error(),
				})
				r.Status = compile.StatusMarkupOnly
				ds.Status = string(r.Status)
				ds.Pages = 0
			default:
				return JobSummary{}, err
			}
		}
		if !wrotePDF {
			ds.File = base + ".tex"
			ds.LogExcerpt = r.Log
			if err := writeEntry(zw, ds.File, []byte(r.Markup)); err != nil {
				return JobSummary{}, err
			}
		}
		summary.Documents = append(summary.Documents, ds)
		docs = append(docs, DocumentResult{Kind: doc.Kind, Result: r})
	}
	if len(res.Editable) > 0 {
		summary.Editable = stem + "_" + string(render.KindResume) + render.DOCXExt
		if err := writeEntry(zw, summary.Editable, res.Editable); err != nil {
			return JobSummary{}, err
		}
	}
	summary.Status = WorstStatus(docs)
	return summary, nil
}

type openError struct{ err error }

func (e *openError) Error() string { return e.err.Error() }
func (e *openError) Unwrap() error { return e.err }

func isOpenError(err error) bool {
	var oe *openError
	return errors.As(err, &oe)
}

func copyFile(zw *zip.Writer, name, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return &openError{err: err}
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: path.Clean(name), Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: path.Clean(name), Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writeJSON(zw *zip.Writer, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeEntry(zw, name, append(data, '\n'))
}

func (b *Bundler) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

func (b *Bundler) newID() string {
	if b.NewID != nil {
		return b.NewID()
	}
	return uuid.NewString()
}

func (b *Bundler) retention() time.Duration {
	if b.Retention > 0 {
		return b.Retention
	}
	return DefaultRetention
}
