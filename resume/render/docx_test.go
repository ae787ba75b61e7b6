package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"
)

func docxPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open docx: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(b)
	}
	t.Fatalf("docx has no %s", name)
	return ""
}

func TestRenderDOCX(t *testing.T) {
	r := newTestRenderer(t)
	in := sampleInput("US")

	first, err := r.RenderDOCX(in)
	if err != nil {
		t.Fatalf("RenderDOCX: %v", err)
	}
	second, err := r.RenderDOCX(in)
	if err != nil {
		t.Fatalf("RenderDOCX: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("docx output is not deterministic")
	}

	docxPart(t, first, "[Content_Types].xml")
	docxPart(t, first, "_rels/.rels")
	doc := docxPart(t, first, "word/document.xml")

	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		if _, err := dec.Token(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("document.xml is not well formed: %v", err)
		}
	}

	for _, want := range []string{"Ada Lovelace", "C# &amp; $tricks_", "Analytical Engines", "French (fluent)", "EXPERIENCE"} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document.xml missing %q", want)
		}
	}
	if strings.Contains(doc, `\textbar`) || strings.Contains(doc, `\&`) {
		t.Fatalf("docx must carry plain text, not TeX escapes")
	}
}

func TestRenderDOCXRequiresName(t *testing.T) {
	r := newTestRenderer(t)
	in := sampleInput("US")
	in.Profile.Name = " "
	_, err := r.RenderDOCX(in)
	var terr *TemplateError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TemplateError, got %v", err)
	}
}
