package health

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		checks map[string]Check
		want   Report
	}{
		{name: "no checks", want: Report{OK: true}},
		{
			name: "all pass",
			checks: map[string]Check{
				"db":       func(context.Context) error { return nil },
				"compiler": func(context.Context) error { return nil },
			},
			want: Report{OK: true, Checks: map[string]string{"db": "ok", "compiler": "ok"}},
		},
		{
			name: "one fails",
			checks: map[string]Check{
				"db":       func(context.Context) error { return errors.New("connection refused") },
				"compiler": func(context.Context) error { return nil },
			},
			want: Report{OK: false, Checks: map[string]string{"db": "connection refused", "compiler": "ok"}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewService(tt.checks).Status(context.Background())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("report mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
