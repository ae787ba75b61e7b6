package render

import (
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"

	"resume-tailor/resume/model"
)

// RegionSpec describes the templates and layout rules for one region.
type RegionSpec struct {
	Resume      string `yaml:"resume"`
	CoverLetter string `yaml:"cover_letter"`
	Pages       int    `yaml:"pages"`
	StyleNote   string `yaml:"style"`
	DateFormat  string `yaml:"date_format"`
	Style       Style  `yaml:"layout"`
}

// Registry maps region codes to template specs.
type Registry struct {
	Default model.Region                `yaml:"default"`
	Regions map[model.Region]RegionSpec `yaml:"regions"`
}

// LoadRegistry parses a registry manifest from fsys.
func LoadRegistry(fsys fs.FS, path string) (Registry, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Registry{}, fmt.Errorf("read registry: %w", err)
	}
	var reg Registry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return Registry{}, fmt.Errorf("parse registry: %w", err)
	}
	if len(reg.Regions) == 0 {
		return Registry{}, fmt.Errorf("registry %s defines no regions", path)
	}
	if _, ok := reg.Regions[reg.Default]; !ok {
		return Registry{}, fmt.Errorf("registry default region %q is not defined", reg.Default)
	}
	for code, spec := range reg.Regions {
		if spec.Resume == "" || spec.CoverLetter == "" {
			return Registry{}, fmt.Errorf("registry region %s needs resume and cover_letter templates", code)
		}
		spec.Style = spec.Style.withDefaults()
		reg.Regions[code] = spec
	}
	return reg, nil
}

// Lookup returns the spec for region, falling back to the default region.
// The returned region is the one actually used.
func (r Registry) Lookup(region model.Region) (model.Region, RegionSpec) {
	if spec, ok := r.Regions[region]; ok {
		return region, spec
	}
	return r.Default, r.Regions[r.Default]
}

// Codes lists the configured region codes in sorted order.
func (r Registry) Codes() []model.Region {
	out := make([]model.Region, 0, len(r.Regions))
	for code := range r.Regions {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
