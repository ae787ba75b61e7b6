package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"strconv"
	"strings"

	"resume-tailor/resume/model"
)

// DOCXExt is the file extension of the editable résumé.
const DOCXExt = ".docx"

const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`
	docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`
	docxDocumentOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	docxDocumentClose = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1080" w:right="1080" w:bottom="1080" w:left="1080"/></w:sectPr></w:body></w:document>`

	bulletPrefix = "• "
)

// RenderDOCX builds an editable résumé from the same content as the
// LaTeX résumé. Output is byte-identical for identical input.
func (r *Renderer) RenderDOCX(in Input) ([]byte, error) {
	region, _ := r.registry.Lookup(in.Region)
	if strings.TrimSpace(in.Profile.Name) == "" {
		return nil, &TemplateError{Kind: KindResume, Region: region, Template: "docx", Err: errors.New("full name is required")}
	}

	doc, err := documentXML(in)
	if err != nil {
		return nil, &TemplateError{Kind: KindResume, Region: region, Template: "docx", Err: err}
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(docxContentTypes)},
		{"_rels/.rels", []byte(docxRels)},
		{"word/document.xml", doc},
	}
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func documentXML(in Input) ([]byte, error) {
	p := in.Profile
	res := in.Content.Resume
	b := &docxBuilder{}
	b.buf.WriteString(docxDocumentOpen)

	b.para(p.Name, runStyle{bold: true, size: 32})
	b.para(joinNonEmpty(" | ", p.Contact.Email, p.Contact.Phone, p.Contact.Location), runStyle{})
	b.para(joinNonEmpty(" | ", p.Contact.Links...), runStyle{})

	if s := strings.TrimSpace(res.Summary); s != "" {
		b.heading("Summary")
		b.para(s, runStyle{})
	}
	if len(res.SkillsLine) > 0 {
		b.heading("Skills")
		b.para(strings.Join(res.SkillsLine, ", "), runStyle{})
	}
	if len(res.Experience) > 0 {
		b.heading("Experience")
		for _, e := range res.Experience {
			b.para(joinNonEmpty(", ", e.Title, e.Company), runStyle{bold: true})
			b.para(model.FormatPeriod(e.Start, e.End), runStyle{italic: true})
			b.bullets(e.Bullets)
		}
	}
	if len(res.Projects) > 0 {
		b.heading("Projects")
		for _, pr := range res.Projects {
			b.para(joinNonEmpty(" | ", pr.Name, strings.Join(pr.Stack, ", ")), runStyle{bold: true})
			b.bullets(pr.Bullets)
		}
	}
	if len(res.Education) > 0 {
		b.heading("Education")
		for _, e := range res.Education {
			b.para(joinNonEmpty(", ", e.Degree, e.School), runStyle{bold: true})
			b.para(e.Period, runStyle{italic: true})
		}
	}
	if len(res.Certifications) > 0 {
		b.heading("Certifications")
		for _, c := range res.Certifications {
			b.para(bulletPrefix+joinNonEmpty(", ", c.Name, c.Issuer, c.Date), runStyle{})
		}
	}
	if len(res.Awards) > 0 {
		b.heading("Awards")
		for _, a := range res.Awards {
			b.para(bulletPrefix+joinNonEmpty(", ", a.Name, a.By, a.Date), runStyle{})
		}
	}
	if len(res.Languages) > 0 {
		b.heading("Languages")
		langs := make([]string, 0, len(res.Languages))
		for _, l := range res.Languages {
			if l.Level != "" {
				langs = append(langs, l.Name+" ("+l.Level+")")
				continue
			}
			langs = append(langs, l.Name)
		}
		b.para(strings.Join(langs, ", "), runStyle{})
	}

	b.buf.WriteString(docxDocumentClose)
	if b.err != nil {
		return nil, b.err
	}
	return b.buf.Bytes(), nil
}

type runStyle struct {
	bold   bool
	italic bool
	// size is in half-points; 0 keeps the default.
	size int
}

type docxBuilder struct {
	buf bytes.Buffer
	err error
}

func (b *docxBuilder) heading(text string) {
	b.para(strings.ToUpper(text), runStyle{bold: true, size: 24})
}

func (b *docxBuilder) bullets(items []string) {
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			b.para(bulletPrefix+s, runStyle{})
		}
	}
}

// para writes one paragraph; blank text writes nothing.
func (b *docxBuilder) para(text string, st runStyle) {
	text = strings.TrimSpace(text)
	if text == "" || b.err != nil {
		return
	}
	b.buf.WriteString("<w:p><w:r>")
	if st.bold || st.italic || st.size > 0 {
		b.buf.WriteString("<w:rPr>")
		if st.bold {
			b.buf.WriteString("<w:b/>")
		}
		if st.italic {
			b.buf.WriteString("<w:i/>")
		}
		if st.size > 0 {
			b.buf.WriteString(`<w:sz w:val="` + strconv.Itoa(st.size) + `"/>`)
		}
		b.buf.WriteString("</w:rPr>")
	}
	b.buf.WriteString(`<w:t xml:space="preserve">`)
	if err := xml.EscapeText(&b.buf, []byte(stripControl(text))); err != nil {
		b.err = err
		return
	}
	b.buf.WriteString("</w:t></w:r></w:p>")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, sep)
}

// stripControl drops characters XML 1.0 cannot carry.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return -1
		}
		if r == 0xFFFE || r == 0xFFFF {
			return -1
		}
		return r
	}, s)
}
