package main

import (
	"errors"

	"github.com/matsen/folio/internal/annotation"
	"github.com/matsen/folio/internal/binder"
	"github.com/matsen/folio/internal/catalog"
	"github.com/matsen/folio/internal/document"
	"github.com/matsen/folio/internal/storage"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing repository, invalid paths)
	ExitDataError   = 3 // Data error (unknown id, malformed input, validation failure)
)

// exitCodeFor maps engine errors onto exit codes.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, annotation.ErrNotFound),
		errors.Is(err, annotation.ErrMixedContent),
		errors.Is(err, storage.ErrNotebookNotFound),
		errors.Is(err, binder.ErrSourceNotFound),
		errors.Is(err, document.ErrSelectionOutOfRange),
		errors.Is(err, document.ErrEmptyInsertion):
		return ExitDataError
	default:
		return ExitError
	}
}
