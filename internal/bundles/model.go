package bundles

import (
	"time"

	"resume-tailor/resume/compile"
	"resume-tailor/resume/model"
	"resume-tailor/resume/render"
)

// Status is the overall outcome of a bundle.
type Status string

const (
	StatusSucceeded      Status = "succeeded"
	StatusPartialFailure Status = "partial_failure"
	StatusFailed         Status = "failed"
)

// JobStatus is the outcome of one job. It is the worst of its document statuses.
type JobStatus string

const (
	JobSucceeded            JobStatus = "succeeded"
	JobCompiledWithWarnings JobStatus = "compiled_with_warnings"
	JobMarkupOnly           JobStatus = "markup_only"
	JobFailed               JobStatus = "failed"
)

// ErrorKind classifies why a job failed.
type ErrorKind string

const (
	ErrorUnavailable     ErrorKind = "unavailable"
	ErrorInvalidResponse ErrorKind = "invalid_response"
	ErrorTimeout         ErrorKind = "timeout"
	ErrorTemplate        ErrorKind = "template"
	ErrorInternal        ErrorKind = "internal"
)

// DocumentResult is one rendered and compiled document of a job.
type DocumentResult struct {
	Kind   render.Kind
	Result compile.Result
}

// JobResult is what the orchestrator hands to the bundler for one job.
type JobResult struct {
	JobID     string
	Company   string
	Region    model.Region
	Status    JobStatus
	Content   *model.TailoredContent
	Documents []DocumentResult
	// Editable is the résumé as DOCX; nil when it could not be built.
	Editable  []byte
	ErrorKind ErrorKind
	Err       error
	Fallback  bool
	Duration  time.Duration
}

// Failed reports whether the job produced nothing usable.
func (r JobResult) Failed() bool {
	return r.Status == JobFailed
}

// DocumentSummary describes one archived document.
type DocumentSummary struct {
	Kind          string   `json:"kind"`
	Status        string   `json:"status"`
	File          string   `json:"file,omitempty"`
	Pages         int      `json:"pages,omitempty"`
	Attempts      int      `json:"attempts,omitempty"`
	StrippedBlock string   `json:"strippedBlock,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	LogExcerpt    string   `json:"logExcerpt,omitempty"`
}

// JobSummary is the manifest entry for one job.
type JobSummary struct {
	JobID     string            `json:"jobId"`
	Stem      string            `json:"stem"`
	Status    JobStatus         `json:"status"`
	Region    string            `json:"region,omitempty"`
	Fallback  bool              `json:"fallback,omitempty"`
	ErrorKind ErrorKind         `json:"errorKind,omitempty"`
	Error     string            `json:"error,omitempty"`
	Documents []DocumentSummary `json:"documents,omitempty"`
	Editable  string            `json:"editableFile,omitempty"`
	ATS       *model.ATSReport  `json:"ats,omitempty"`
}

// ArtifactBundle is the stored archive plus its metadata.
type ArtifactBundle struct {
	ID         string       `json:"bundleId"`
	RunID      string       `json:"runId"`
	StorageKey string       `json:"-"`
	FileName   string       `json:"fileName"`
	Status     Status       `json:"status"`
	SizeBytes  int64        `json:"sizeBytes"`
	SHA256     string       `json:"sha256"`
	Jobs       []JobSummary `json:"jobs"`
	CreatedAt  time.Time    `json:"createdAt"`
	ExpiresAt  time.Time    `json:"expiresAt"`
	DeletedAt  *time.Time   `json:"-"`
}

// Expired reports whether the bundle is past retention at now.
func (b ArtifactBundle) Expired(now time.Time) bool {
	return b.DeletedAt != nil || !now.Before(b.ExpiresAt)
}

// OverallStatus applies the bundle status rule to job summaries.
func OverallStatus(jobs []JobSummary) Status {
	failed, compiled := 0, 0
	for _, j := range jobs {
		if j.Status == JobFailed {
			failed++
			continue
		}
		for _, d := range j.Documents {
			if compile.Status(d.Status).Compiled() {
				compiled++
			}
		}
	}
	switch {
	case len(jobs) > 0 && failed == len(jobs):
		return StatusFailed
	case failed > 0:
		return StatusPartialFailure
	case compiled > 0:
		return StatusSucceeded
	default:
		return StatusPartialFailure
	}
}

var statusRank = map[compile.Status]int{
	compile.StatusSucceeded:            0,
	compile.StatusCompiledWithWarnings: 1,
	compile.StatusMarkupOnly:           2,
	compile.StatusFailed:               3,
}

// WorstStatus folds document outcomes into a job status.
func WorstStatus(docs []DocumentResult) JobStatus {
	if len(docs) == 0 {
		return JobFailed
	}
	worst := compile.StatusSucceeded
	for _, d := range docs {
		rank, ok := statusRank[d.Result.Status]
		if !ok {
			rank = statusRank[compile.StatusFailed]
		}
		if rank > statusRank[worst] {
			worst = d.Result.Status
			if !ok {
				worst = compile.StatusFailed
			}
		}
	}
	return JobStatus(worst)
}
