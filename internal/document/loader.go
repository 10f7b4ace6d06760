package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned for documents without any extractable text, such
// as scanned PDFs.
var ErrNoText = errors.New("no extractable text")

// LoadPDF reads the PDF at path and returns one segment per page that has
// text. source is recorded on every segment. A missing file yields an
// error wrapping os.ErrNotExist.
func LoadPDF(path, source string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return ReadPDF(f, info.Size(), source)
}

// ReadPDF extracts page text from a PDF held in r.
func ReadPDF(r io.ReaderAt, size int64, source string) (segments []Segment, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			segments = nil
			err = fmt.Errorf("parsing pdf: %v", p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("parsing pdf: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		raw, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i, err)
		}
		text := normalizeSpace(raw)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Source: source, Page: i, Text: text})
	}

	if len(segments) == 0 {
		return nil, ErrNoText
	}
	return segments, nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
