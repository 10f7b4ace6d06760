package interview

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const pdfExt = ".pdf"

var (
	ErrNotPDF      = errors.New("only PDF files are allowed")
	ErrInvalidName = errors.New("invalid source name")
	ErrTooLarge    = errors.New("file exceeds upload limit")
)

// Library is the directory of PDF files that can be selected as sources.
// A source's name is its file name without the .pdf extension.
type Library struct {
	dir      string
	maxBytes int64
}

// NewLibrary returns a library rooted at dir. Saved files larger than
// maxBytes are rejected; maxBytes <= 0 means no limit.
func NewLibrary(dir string, maxBytes int64) *Library {
	return &Library{dir: dir, maxBytes: maxBytes}
}

func (l *Library) Dir() string { return l.dir }

// Path returns the file path for the named source.
func (l *Library) Path(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	return filepath.Join(l.dir, name+pdfExt), nil
}

// List returns the names of all sources, sorted. A missing directory is an
// empty library.
func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != pdfExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), pdfExt))
	}
	sort.Strings(names)
	return names, nil
}

// Save stores r under the source name derived from filename and returns
// that name. The file is written to a temporary file and renamed into
// place, so readers never see a partial upload.
func (l *Library) Save(filename string, r io.Reader) (string, error) {
	base := filepath.Base(filepath.ToSlash(filename))
	if !strings.EqualFold(filepath.Ext(base), pdfExt) {
		return "", ErrNotPDF
	}
	name := base[:len(base)-len(pdfExt)]
	dst, err := l.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", l.dir, err)
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if l.maxBytes > 0 {
		src = io.LimitReader(r, l.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if l.maxBytes > 0 && n > l.maxBytes {
		return "", ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("storing upload: %w", err)
	}
	return name, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
