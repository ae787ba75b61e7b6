package generator

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"resume-tailor/resume/model"
)

func TestTokenCountsSkipsStopwordsAndShortTokens(t *testing.T) {
	got := tokenCounts("The C# and C++ engineer, a Go/Node.js expert in Go")
	want := map[string]int{"c#": 1, "c++": 1, "engineer": 1, "go": 2, "node.js": 1, "expert": 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tokenCounts mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectBulletsRanksByOverlap(t *testing.T) {
	p := model.Profile{
		Experience: []model.Experience{
			{Company: "A", Bullets: []string{"Planned offsites", "Built Kubernetes operators in Go"}},
			{Company: "B", Bullets: []string{"Wrote Go services on Kubernetes and Go tooling", "", "Managed budgets"}},
		},
	}
	jd := "Go Go Kubernetes platform engineer"

	got := selectBullets(p, jd, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 bullets, got %d", len(got))
	}
	if got[0].Company != "B" || got[1].Company != "A" {
		t.Fatalf("unexpected ranking: %+v", got)
	}

	all := selectBullets(p, jd, 0)
	if len(all) != 4 {
		t.Fatalf("expected blank bullets dropped, got %d", len(all))
	}
	if all[2].Bullet != "Planned offsites" || all[3].Bullet != "Managed budgets" {
		t.Fatalf("ties should keep profile order: %+v", all[2:])
	}
}

func TestBuildPromptIsStable(t *testing.T) {
	p := testProfile()
	prefs := map[string]string{"tone": "warm", "length": "short", "focus": "backend"}
	a, err := buildPrompt(p, testJob(), DefaultRules(model.RegionUS), prefs)
	if err != nil {
		t.Fatalf("buildPrompt: %v", err)
	}
	b, _ := buildPrompt(p, testJob(), DefaultRules(model.RegionUS), prefs)
	if a != b {
		t.Fatalf("prompt should be deterministic")
	}
}

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		region model.Region
		want   RegionRules
	}{
		{region: model.RegionUS, want: RegionRules{Region: model.RegionUS, Pages: 1, Style: "no photo; concise; one-page", DateFormat: "YYYY-MM"}},
		{region: model.RegionEU, want: RegionRules{Region: model.RegionEU, Pages: 2, Style: "two-page allowed; simple", DateFormat: "YYYY-MM"}},
		{region: "XX", want: RegionRules{Region: model.RegionGlobal, Pages: 1, Style: "one-page allowed; simple", DateFormat: "YYYY-MM"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, DefaultRules(tt.region)); diff != "" {
			t.Fatalf("DefaultRules(%s) mismatch (-want +got):\n%s", tt.region, diff)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "empty", in: "  ", wantErr: true},
		{name: "array", in: `[1,2]`, wantErr: true},
		{name: "broken", in: `{"a":`, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := extractJSONObject(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("extractJSONObject() = %q, %v", got, err)
			}
		})
	}
}
