package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	var buf bytes.Buffer
	writeHistogram(&buf, "x", "test", h.Snapshot())
	out := buf.String()
	for _, want := range []string{
		"x_bucket{le=\"10\"} 1\n",
		"x_bucket{le=\"100\"} 2\n",
		"x_bucket{le=\"+Inf\"} 3\n",
		"x_sum 555\n",
		"x_count 3\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRenderIncludesCounters(t *testing.T) {
	IncRunStarted()
	ObserveJob(JobDegraded, 1200)
	body := Render()
	for _, want := range []string{
		"# TYPE tailor_runs_started_total counter",
		"tailor_jobs_degraded_total ",
		"tailor_job_duration_ms_bucket{le=\"2500\"}",
		"tailor_job_duration_ms_bucket{le=\"+Inf\"}",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
}
