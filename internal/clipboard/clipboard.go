// Package clipboard copies rendered citations to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	sysclip "github.com/atotto/clipboard"

	"github.com/matsen/folio/internal/citation"
	"github.com/matsen/folio/internal/source"
)

// ErrClipboardUnavailable is returned when no clipboard tool is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Swapped out in tests.
var (
	writeAll    = sysclip.WriteAll
	unsupported = func() bool { return sysclip.Unsupported }
)

// IsAvailable checks if clipboard functionality is available on this system.
func IsAvailable() bool {
	return !unsupported()
}

// Copy copies text to the system clipboard.
func Copy(text string) error {
	if !IsAvailable() {
		return ErrClipboardUnavailable
	}
	if err := writeAll(text); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}

// CopyCitation copies the reference-list form of src, or its in-text
// label in format f when short is set. It returns the copied text.
func CopyCitation(src *source.Source, short bool, f citation.Format) (string, error) {
	text := citation.FormatFull(src)
	if short {
		text = citation.FormatShort(src, f)
	}
	return text, Copy(text)
}
