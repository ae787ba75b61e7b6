package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	runsStartedTotal   atomic.Uint64
	runsCompletedTotal atomic.Uint64

	jobsSucceededTotal  atomic.Uint64
	jobsDegradedTotal   atomic.Uint64
	jobsFailedTotal     atomic.Uint64
	jobsTimedOutTotal   atomic.Uint64
	generatorRetryTotal atomic.Uint64
	compileRetryTotal   atomic.Uint64
	compileFailedTotal  atomic.Uint64

	bundlesStoredTotal  atomic.Uint64
	bundlesExpiredTotal atomic.Uint64

	jobDuration     = newHistogram([]float64{500, 1000, 2500, 5000, 10000, 30000, 60000, 120000})
	compileDuration = newHistogram([]float64{250, 500, 1000, 2500, 5000, 10000, 20000})
)

// JobOutcome is the coarse result of one job, used for counters.
type JobOutcome int

const (
	JobSucceeded JobOutcome = iota
	JobDegraded
	JobFailed
	JobTimedOut
)

// IncRunStarted counts a request accepted by the orchestrator.
func IncRunStarted() { runsStartedTotal.Add(1) }

// IncRunCompleted counts a request whose bundle was produced.
func IncRunCompleted() { runsCompletedTotal.Add(1) }

// ObserveJob records the outcome and duration of one job.
func ObserveJob(outcome JobOutcome, durationMs float64) {
	switch outcome {
	case JobSucceeded:
		jobsSucceededTotal.Add(1)
	case JobDegraded:
		jobsDegradedTotal.Add(1)
	case JobTimedOut:
		jobsTimedOutTotal.Add(1)
	default:
		jobsFailedTotal.Add(1)
	}
	jobDuration.Observe(clamp(durationMs))
}

// IncGeneratorRetry counts a retried content generation attempt.
func IncGeneratorRetry() { generatorRetryTotal.Add(1) }

// IncCompileRetry counts a compile retried with a block removed.
func IncCompileRetry() { compileRetryTotal.Add(1) }

// IncCompileFailed counts a document that fell back to markup only.
func IncCompileFailed() { compileFailedTotal.Add(1) }

// ObserveCompileMs records a single compiler invocation.
func ObserveCompileMs(value float64) { compileDuration.Observe(clamp(value)) }

// IncBundleStored counts a persisted archive.
func IncBundleStored() { bundlesStoredTotal.Add(1) }

// AddBundlesExpired counts archives removed by the janitor.
func AddBundlesExpired(n int) {
	if n > 0 {
		bundlesExpiredTotal.Add(uint64(n))
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "tailor_runs_started_total", "Generation requests started", runsStartedTotal.Load())
	writeCounter(&buf, "tailor_runs_completed_total", "Generation requests that produced a bundle", runsCompletedTotal.Load())
	writeCounter(&buf, "tailor_jobs_succeeded_total", "Jobs with every document compiled", jobsSucceededTotal.Load())
	writeCounter(&buf, "tailor_jobs_degraded_total", "Jobs delivered with at least one markup-only document", jobsDegradedTotal.Load())
	writeCounter(&buf, "tailor_jobs_failed_total", "Jobs that produced no documents", jobsFailedTotal.Load())
	writeCounter(&buf, "tailor_jobs_timed_out_total", "Jobs cut off by a deadline", jobsTimedOutTotal.Load())
	writeCounter(&buf, "tailor_generator_retries_total", "Content generation retries", generatorRetryTotal.Load())
	writeCounter(&buf, "tailor_compile_retries_total", "Compiles retried with a block removed", compileRetryTotal.Load())
	writeCounter(&buf, "tailor_compile_failed_total", "Documents delivered as markup only", compileFailedTotal.Load())
	writeCounter(&buf, "tailor_bundles_stored_total", "Archives persisted", bundlesStoredTotal.Load())
	writeCounter(&buf, "tailor_bundles_expired_total", "Archives removed after retention", bundlesExpiredTotal.Load())
	writeHistogram(&buf, "tailor_job_duration_ms", "Job duration in milliseconds", jobDuration.Snapshot())
	writeHistogram(&buf, "tailor_compile_duration_ms", "Compiler invocation duration in milliseconds", compileDuration.Snapshot())
	return buf.String()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe adds value to the first bucket that holds it; Snapshot consumers
// accumulate.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
