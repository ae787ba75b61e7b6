package model

import "testing"

func TestDetectRegion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		company string
		want    Region
	}{
		{name: "us city", text: "Hybrid role in Seattle, WA", want: RegionUS},
		{name: "us country", text: "Remote within the United States", want: RegionUS},
		{name: "eu city", text: "Office in Berlin", want: RegionEU},
		{name: "uk", text: "Based in the UK", want: RegionEU},
		{name: "us wins over eu", text: "Teams in London and New York", want: RegionUS},
		{name: "company hint", text: "Backend developer", company: "Paris Labs", want: RegionEU},
		{name: "no match", text: "Fully remote, any timezone", want: RegionGlobal},
		{name: "no substring match", text: "Build a museum platform", want: RegionGlobal},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectRegion(tt.text, tt.company); got != tt.want {
				t.Fatalf("DetectRegion(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestResolveRegionPrefersExplicit(t *testing.T) {
	job := JobPosting{Region: " eu ", JDText: "Seattle"}
	if got := job.ResolveRegion(); got != RegionEU {
		t.Fatalf("expected EU, got %s", got)
	}
	job.Region = ""
	if got := job.ResolveRegion(); got != RegionUS {
		t.Fatalf("expected detected US, got %s", got)
	}
}

func TestUntailoredCopiesProfile(t *testing.T) {
	p := validProfile()
	p.Education = []Education{{School: "Home", Start: "1830", End: "1835"}}
	c := Untailored(p, JobPosting{ID: "j1", Company: "Acme", Title: "Analyst"})
	if len(c.Resume.Experience) != 1 || c.Resume.Experience[0].Company != "Analytical Engines" {
		t.Fatalf("unexpected experience: %+v", c.Resume.Experience)
	}
	if c.Resume.Education[0].Period != "1830 - 1835" {
		t.Fatalf("unexpected period %q", c.Resume.Education[0].Period)
	}
	c.Resume.Experience[0].Bullets[0] = "changed"
	if p.Experience[0].Bullets[0] == "changed" {
		t.Fatalf("Untailored must not alias profile slices")
	}
}
