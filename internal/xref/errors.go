// Package xref reads the lookup structures of a document: the header, the
// chain of section trailers and the fragment tables they point at. It
// resolves an object id to the newest object line that defines it and never
// writes to the stream; EncodeSection only produces bytes for the caller to
// append.
package xref

import (
	"errors"
	"fmt"
)

// Sentinel errors. ErrMalformed is fatal at open; ErrNotFound is a normal
// lookup miss.
var (
	ErrMalformed = errors.New("malformed table")
	ErrNotFound  = errors.New("object not found")
)

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
