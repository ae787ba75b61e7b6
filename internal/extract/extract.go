package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// ErrEmpty is returned for a zero-length document.
var ErrEmpty = errors.New("empty pdf data")

// PDFInfo summarises a compiled document.
type PDFInfo struct {
	Pages int
	Size  int64
}

// InspectFile opens the PDF at path and reports its page count.
func InspectFile(path string) (PDFInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("inspect pdf %s: %w", path, err)
	}
	info, err := Inspect(data)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("inspect pdf %s: %w", path, err)
	}
	return info, nil
}

// Inspect parses data as a PDF. A document the reader cannot open, or one
// with no pages, is an error.
func Inspect(data []byte) (info PDFInfo, err error) {
	if len(data) == 0 {
		return PDFInfo{}, ErrEmpty
	}
	// The reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PDFInfo{}, err
	}
	pages := reader.NumPage()
	if pages <= 0 {
		return PDFInfo{}, errors.New("pdf has no pages")
	}
	return PDFInfo{Pages: pages, Size: int64(len(data))}, nil
}
