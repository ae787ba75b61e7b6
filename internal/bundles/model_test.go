package bundles

import (
	"testing"

	"resume-tailor/resume/compile"
)

func TestOverallStatus(t *testing.T) {
	t.Parallel()

	ok := JobSummary{Status: JobSucceeded, Documents: []DocumentSummary{{Status: string(compile.StatusSucceeded)}}}
	warn := JobSummary{Status: JobCompiledWithWarnings, Documents: []DocumentSummary{{Status: string(compile.StatusCompiledWithWarnings)}}}
	markup := JobSummary{Status: JobMarkupOnly, Documents: []DocumentSummary{{Status: string(compile.StatusMarkupOnly)}}}
	failed := JobSummary{Status: JobFailed}

	tests := []struct {
		name string
		jobs []JobSummary
		want Status
	}{
		{name: "all succeeded", jobs: []JobSummary{ok, warn}, want: StatusSucceeded},
		{name: "all failed", jobs: []JobSummary{failed, failed}, want: StatusFailed},
		{name: "some failed", jobs: []JobSummary{ok, failed}, want: StatusPartialFailure},
		{name: "nothing compiled", jobs: []JobSummary{markup}, want: StatusPartialFailure},
		{name: "markup plus compiled", jobs: []JobSummary{markup, ok}, want: StatusSucceeded},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := OverallStatus(tt.jobs); got != tt.want {
				t.Fatalf("OverallStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWorstStatus(t *testing.T) {
	t.Parallel()

	doc := func(s compile.Status) DocumentResult {
		return DocumentResult{Result: compile.Result{Status: s}}
	}
	tests := []struct {
		name string
		docs []DocumentResult
		want JobStatus
	}{
		{name: "empty", want: JobFailed},
		{name: "clean", docs: []DocumentResult{doc(compile.StatusSucceeded), doc(compile.StatusSucceeded)}, want: JobSucceeded},
		{name: "warnings", docs: []DocumentResult{doc(compile.StatusSucceeded), doc(compile.StatusCompiledWithWarnings)}, want: JobCompiledWithWarnings},
		{name: "markup only wins", docs: []DocumentResult{doc(compile.StatusMarkupOnly), doc(compile.StatusCompiledWithWarnings)}, want: JobMarkupOnly},
		{name: "unknown treated as failed", docs: []DocumentResult{doc(compile.StatusPending)}, want: JobFailed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := WorstStatus(tt.docs); got != tt.want {
				t.Fatalf("WorstStatus = %s, want %s", got, tt.want)
			}
		})
	}
}
