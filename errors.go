// Package revdoc edits documents made of numbered objects using incremental
// updates: every save appends a section of changed objects, a fragment table
// and a trailer to the file, and bytes already written are never modified.
//
// A Document stacks three layers. The xref table parses the trailer chain
// and resolves an id to the newest object line that defines it. The change
// layer keeps everything edited in this session in memory and answers reads
// from it first. The Document itself decides when pending edits are written
// (Save), whether the write becomes a new revision, which revision is active,
// and how a revision is cloned into a separate file.
//
// Documents are single-writer. A Document takes an exclusive OS lock on its
// file at Open and has no internal synchronisation; callers serialise access
// to one handle.
package revdoc

import (
	"errors"
	"fmt"

	"github.com/jpl-au/revdoc/internal/change"
	"github.com/jpl-au/revdoc/internal/xref"
)

// Sentinel errors for programmatic handling with errors.Is. ErrMalformedTable
// is fatal and only returned by Open; the rest are reported to the caller
// with the document left as it was.
var (
	ErrMalformedTable       = xref.ErrMalformed
	ErrNotFound             = xref.ErrNotFound
	ErrDuplicateReservation = change.ErrDuplicateReservation
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrStaleRevision        = errors.New("active revision is not the newest")
	ErrSaveIO               = errors.New("save failed")
	ErrInvalidObject        = errors.New("invalid object")
	ErrRevisionRange        = errors.New("revision out of range")
	ErrClosed               = errors.New("document is closed")
	ErrLocked               = errors.New("document is locked by another handle")
	ErrExists               = errors.New("target already exists")
)

// ErrLinearized is carried by a Warning when a save appends to a linearized
// document. It is never returned as an error.
var ErrLinearized = errors.New("document is linearized; readers relying on the layout may see an inconsistent file")

// Warning is a non-fatal condition reported alongside a successful
// operation.
type Warning struct {
	Op  string
	Err error
}

func (w *Warning) Error() string { return fmt.Sprintf("%s: %v", w.Op, w.Err) }

func (w *Warning) Unwrap() error { return w.Err }
