// Package extract reads plain text out of files for ingestion.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for file types Extract cannot read.
var ErrUnsupported = errors.New("unsupported file type")

// Config restricts which files may be read.
type Config struct {
	Root     string `mapstructure:"root"`      // Empty allows any path
	MaxBytes int64  `mapstructure:"max_bytes"` // Zero disables the limit
}

// Extractor reads .txt, .pdf and .docx files.
type Extractor struct {
	root     string
	maxBytes int64
}

// New creates an Extractor. A relative Root is resolved against the working directory.
func New(cfg Config) (*Extractor, error) {
	e := &Extractor{maxBytes: cfg.MaxBytes}
	if root := strings.TrimSpace(cfg.Root); root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve files.root: %w", err)
		}
		e.root = abs
	}
	return e, nil
}

// Resolve returns the absolute path for name, rejecting paths outside the root.
// Relative names are taken relative to the root when one is set.
func (e *Extractor) Resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("file path cannot be empty")
	}
	path := name
	if e.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(e.root, path)
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if e.root != "" {
		rel, err := filepath.Rel(e.root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%s is outside %s", name, e.root)
		}
	}
	return path, nil
}

// Extract returns the text of the file at name. Paragraphs and PDF pages are
// separated by newlines.
func (e *Extractor) Extract(name string) (string, error) {
	path, err := e.Resolve(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", name)
	}
	if e.maxBytes > 0 && info.Size() > e.maxBytes {
		return "", fmt.Errorf("%s is %d bytes, limit is %d", name, info.Size(), e.maxBytes)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".pdf":
		return readPDF(path)
	case ".docx":
		return readDOCX(path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, text); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return sb.String(), nil
}
