package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"text/template"

	"resume-tailor/resume/model"
)

// Kind identifies which document of a job is being rendered.
type Kind string

const (
	KindResume      Kind = "resume"
	KindCoverLetter Kind = "cover_letter"
)

// Marker lines wrap job-specific blocks so a compiler can drop the last one.
const (
	BlockBeginPrefix = "%% BEGIN:"
	BlockEndPrefix   = "%% END:"
)

const (
	templateDir  = "templates"
	registryFile = "regions.yaml"
	commonFile   = "common.tex.tmpl"
)

//go:embed templates/*.tex.tmpl templates/regions.yaml
var embedded embed.FS

// Input is everything a template may reference.
type Input struct {
	Profile model.Profile
	Job     model.JobPosting
	Content model.TailoredContent
	Region  model.Region
}

// Document is rendered markup plus the template that produced it.
type Document struct {
	Kind     Kind
	Region   model.Region
	Template string
	Source   string
}

// Renderer merges tailored content into LaTeX templates. It is safe for concurrent use.
type Renderer struct {
	registry  Registry
	templates map[string]*template.Template
}

// New builds a Renderer from the embedded templates.
func New() (*Renderer, error) {
	sub, err := fs.Sub(embedded, templateDir)
	if err != nil {
		return nil, err
	}
	return NewFromFS(sub)
}

// NewFromFS builds a Renderer from a directory holding regions.yaml,
// common.tex.tmpl and the region templates it names.
func NewFromFS(fsys fs.FS) (*Renderer, error) {
	reg, err := LoadRegistry(fsys, registryFile)
	if err != nil {
		return nil, err
	}
	r := &Renderer{registry: reg, templates: map[string]*template.Template{}}
	for _, code := range reg.Codes() {
		spec := reg.Regions[code]
		for _, name := range []string{spec.Resume, spec.CoverLetter} {
			if _, ok := r.templates[name]; ok {
				continue
			}
			t, err := template.New(name).
				Delims("[[", "]]").
				Option("missingkey=error").
				Funcs(funcs).
				ParseFS(fsys, commonFile, name)
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}
			r.templates[name] = t
		}
	}
	return r, nil
}

// Registry exposes the region registry so callers can read layout rules.
func (r *Renderer) Registry() Registry {
	return r.registry
}

// Render produces markup for one document. Unknown regions use the default template.
func (r *Renderer) Render(kind Kind, in Input) (Document, error) {
	region, spec := r.registry.Lookup(in.Region)
	name := spec.Resume
	if kind == KindCoverLetter {
		name = spec.CoverLetter
	} else if kind != KindResume {
		return Document{}, &TemplateError{Kind: kind, Region: region, Err: errors.New("unknown document kind")}
	}

	t, ok := r.templates[name]
	if !ok {
		return Document{}, &TemplateError{Kind: kind, Region: region, Template: name, Err: errors.New("template not loaded")}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, buildView(in, spec)); err != nil {
		return Document{}, &TemplateError{Kind: kind, Region: region, Template: name, Err: err}
	}
	src := normalizeBlankLines(buf.String())
	if tok := leftoverToken.FindString(src); tok != "" {
		return Document{}, &TemplateError{Kind: kind, Region: region, Template: name, Err: fmt.Errorf("unrendered token %q", tok)}
	}
	return Document{Kind: kind, Region: region, Template: name, Source: src}, nil
}

// RenderResume renders the résumé document.
func (r *Renderer) RenderResume(in Input) (Document, error) {
	return r.Render(KindResume, in)
}

// RenderCoverLetter renders the cover letter document.
func (r *Renderer) RenderCoverLetter(in Input) (Document, error) {
	return r.Render(KindCoverLetter, in)
}

var (
	leftoverToken = regexp.MustCompile(`\[\[[^\]]*\]\]`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

func normalizeBlankLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimLeft(s, "\n")
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"beginBlock": func(name string) string {
		return BlockBeginPrefix + name
	},
	"endBlock": func(name string) string {
		return BlockEndPrefix + name
	},
}
