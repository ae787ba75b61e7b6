package util

import "testing"

func TestFileStem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{name: "plain", in: "job-1", want: "job-1"},
		{name: "spaces collapse", in: "  Acme   Corp  ", want: "Acme_Corp"},
		{name: "path traversal", in: "../../etc/passwd", want: "etcpasswd"},
		{name: "latex specials", in: "R&D {lab} 100%", want: "RD_lab_100"},
		{name: "non ascii dropped", in: "Zürich Team", want: "Zrich_Team"},
		{name: "underscores kept as separators", in: "a__b", want: "a_b"},
		{name: "truncated", in: "abcdefghijkl", maxLen: 5, want: "abcde"},
		{name: "truncate trims separator", in: "abcd efgh", maxLen: 5, want: "abcd"},
		{name: "empty", in: "%%%", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FileStem(tt.in, tt.maxLen); got != tt.want {
				t.Fatalf("FileStem(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestSanitizeFileNameRejectsTraversal(t *testing.T) {
	if _, err := SanitizeFileName("../x.zip"); err == nil {
		t.Fatalf("expected error for traversal")
	}
	got, err := SanitizeFileName("a/b.zip")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "a_b.zip" {
		t.Fatalf("unexpected name %q", got)
	}
}
