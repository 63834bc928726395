// Package pdf resolves library PDF paths and reads page geometry.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
)

// Resolver maps paper PDF paths onto the configured PDF root.
type Resolver struct {
	pdfRoot string
}

// NewResolver creates a resolver rooted at pdfRoot. An empty root leaves
// relative paths relative to the working directory.
func NewResolver(pdfRoot string) *Resolver {
	return &Resolver{pdfRoot: pdfRoot}
}

// ResolvePath returns the absolute path of a PDF and checks that it exists.
func (r *Resolver) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no PDF path specified")
	}

	full := path
	if !filepath.IsAbs(path) && r.pdfRoot != "" {
		full = filepath.Join(r.pdfRoot, path)
	}
	full, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("PDF not found: %s", full)
	}
	if err != nil {
		return "", fmt.Errorf("checking PDF: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("not a file: %s", full)
	}
	return full, nil
}
