// Document type and lifecycle operations.
//
// A Document owns the file handle, the xref table parsed from it, and the
// change layer stacked on the table. Reads go through the change layer while
// the newest revision is active and straight to the table otherwise. Every
// mutation goes through the Document so that revision and type checks run
// before the change layer sees it.
package revdoc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jpl-au/revdoc/internal/change"
	"github.com/jpl-au/revdoc/internal/xref"
	"github.com/jpl-au/revdoc/object"
)

// Checksum algorithms for new documents.
const (
	AlgXXHash3 = xref.AlgXXHash3 // Default, fastest
	AlgFNV1a   = xref.AlgFNV1a   // No external dependencies
	AlgBlake2b = xref.AlgBlake2b // Best distribution
)

// State is the editing state of a Document.
type State int

const (
	NoChanges      State = iota // Newest revision active, nothing pending
	PendingChanges              // Newest revision active, edits pending
	ReadOnly                    // An older revision is active
)

func (s State) String() string {
	switch s {
	case NoChanges:
		return "no-changes"
	case PendingChanges:
		return "pending-changes"
	case ReadOnly:
		return "read-only"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Config holds document options.
type Config struct {
	HashAlgorithm int          // Section checksum for new documents: 1=xxHash3, 2=FNV1a, 3=Blake2b
	ReadBuffer    int          // Buffer size for backward scans (default 64KB)
	MaxRecordSize int          // Maximum single line size (default 16MB)
	SyncWrites    bool         // Call fsync after every save
	Paranoid      bool         // Enforce type safety on every Set
	Logger        *slog.Logger // Defaults to discarding
}

// storage is the subset of *os.File a Document writes through.
type storage interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Sync() error
	Close() error
}

// Document is an open document handle.
type Document struct {
	path       string
	file       storage
	lock       *fileLock
	config     Config
	log        *slog.Logger
	table      *xref.Table
	layer      *change.Layer
	mut        *change.Mutator
	revs       []xref.Section // committed revisions, oldest first
	active     int
	tail       int64 // append offset (end of file)
	linearized bool
	closed     bool
}

// Open opens the document at path, creating an empty one if the file does
// not exist. A malformed file is rejected with ErrMalformedTable.
func Open(path string, config Config) (*Document, error) {
	if config.HashAlgorithm == 0 {
		config.HashAlgorithm = AlgXXHash3
	}
	if config.ReadBuffer == 0 {
		config.ReadBuffer = 64 * 1024
	}
	if config.MaxRecordSize == 0 {
		config.MaxRecordSize = 16 * 1024 * 1024
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	log := config.Logger.With("doc", path)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := create(path, config.HashAlgorithm); err != nil {
			return nil, fmt.Errorf("open: create: %w", err)
		}
		log.Debug("created document", "alg", config.HashAlgorithm)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	flock := &fileLock{f: file}
	if err := flock.Lock(); err != nil {
		file.Close()
		return nil, fmt.Errorf("open: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		flock.Unlock()
		file.Close()
		return nil, fmt.Errorf("open: stat: %w", err)
	}

	table, err := xref.Open(file, info.Size(), xref.Options{
		ReadBuffer:    config.ReadBuffer,
		MaxRecordSize: config.MaxRecordSize,
	})
	if err != nil {
		flock.Unlock()
		file.Close()
		return nil, fmt.Errorf("open: %w", err)
	}

	layer, mut := change.New(table)
	d := &Document{
		path:       path,
		file:       file,
		lock:       flock,
		config:     config,
		log:        log,
		table:      table,
		layer:      layer,
		mut:        mut,
		revs:       table.Sections(),
		tail:       info.Size(),
		linearized: table.Linearized(),
	}
	d.active = len(d.revs) - 1

	log.Debug("opened document",
		"revisions", len(d.revs),
		"objects", table.Count(),
		"size", table.Size(),
		"linearized", d.linearized)
	return d, nil
}

// create writes an empty document to path. O_EXCL guards against racing
// another creator.
func create(path string, alg int) error {
	buf, err := xref.EncodeDocument(alg, 1, nil)
	if err != nil {
		return err
	}
	return writeFile(path, buf)
}

// Close releases the file and its lock. Pending edits that were not saved
// are discarded.
func (d *Document) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	if n := d.layer.Pending(); n > 0 {
		d.log.Debug("closing with unsaved changes", "pending", n)
	}

	var errs []error
	if err := d.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	if err := d.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (d *Document) check() error {
	if d.closed {
		return ErrClosed
	}
	return nil
}

// stale reports whether an older revision is active.
func (d *Document) stale() bool {
	return d.active != len(d.revs)-1
}

// checkWritable guards every mutation.
func (d *Document) checkWritable() error {
	if err := d.check(); err != nil {
		return err
	}
	if d.stale() {
		return fmt.Errorf("%w: revision %d of %d", ErrStaleRevision, d.active, len(d.revs))
	}
	return nil
}

// Path returns the file the document was opened from.
func (d *Document) Path() string { return d.path }

// State returns the current editing state.
func (d *Document) State() State {
	switch {
	case d.stale():
		return ReadOnly
	case d.layer.Pending() > 0:
		return PendingChanges
	}
	return NoChanges
}

// IsLinearized reports whether the document had a linearized layout when it
// was opened. The value is computed once.
func (d *Document) IsLinearized() bool { return d.linearized }

// Get returns the current value of id.
func (d *Document) Get(id object.ID) (object.Object, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	if d.stale() {
		return d.table.Fetch(id)
	}
	return d.layer.Fetch(id)
}

// Lookup returns the live id for an object number, checking pending edits
// first when the newest revision is active.
func (d *Document) Lookup(num uint32) (object.ID, bool) {
	if d.closed {
		return object.ID{}, false
	}
	gen, ok := d.table.Generation(num)
	id := object.ID{Num: num, Gen: gen}
	if d.stale() {
		return id, ok
	}
	switch d.layer.State(id) {
	case change.Initialized:
		return id, true
	case change.Reserved, change.Deleted:
		return id, false
	}
	return id, ok
}

// Set replaces the value of id, which must exist or be reserved. With
// enforceTypeSafety (or Config.Paranoid) the replacement must keep the
// object's kind, see ErrTypeMismatch.
func (d *Document) Set(id object.ID, value object.Object, enforceTypeSafety bool) error {
	if err := d.checkWritable(); err != nil {
		return err
	}
	if !object.Valid(value) {
		return fmt.Errorf("set %s: %w: %s", id, ErrInvalidObject, object.KindOf(value))
	}
	if d.layer.State(id) != change.Reserved {
		old, err := d.layer.Fetch(id)
		if err != nil {
			return fmt.Errorf("set %s: %w", id, err)
		}
		if (enforceTypeSafety || d.config.Paranoid) && !d.mut.TypeSafe(old, value) {
			return fmt.Errorf("set %s: %w: %s replaced by %s",
				id, ErrTypeMismatch, object.KindOf(old), object.KindOf(value))
		}
	}
	d.mut.Change(id, value)
	return nil
}

// Reserve allocates a new id with no value. It is not visible to Get until
// Set assigns one.
func (d *Document) Reserve() (object.ID, error) {
	if err := d.checkWritable(); err != nil {
		return object.ID{}, err
	}
	id, err := d.mut.Reserve()
	if err != nil {
		d.log.Error("reservation invariant violated", "err", err)
		return object.ID{}, err
	}
	return id, nil
}

// Add reserves a new id and assigns value to it.
func (d *Document) Add(value object.Object) (object.ID, error) {
	if err := d.checkWritable(); err != nil {
		return object.ID{}, err
	}
	if !object.Valid(value) {
		return object.ID{}, fmt.Errorf("add: %w: %s", ErrInvalidObject, object.KindOf(value))
	}
	id, err := d.Reserve()
	if err != nil {
		return object.ID{}, err
	}
	d.mut.Change(id, value)
	return id, nil
}

// Delete removes id. The deletion is written as a tombstone on the next
// save.
func (d *Document) Delete(id object.ID) error {
	if err := d.checkWritable(); err != nil {
		return err
	}
	if !d.layer.Has(id) && d.layer.State(id) != change.Reserved {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	d.mut.Delete(id)
	return nil
}

// Count returns the number of live objects in the active view. Count, IDs
// and Pending read only memory; after Close they keep reporting the state
// the handle had when it was closed.
func (d *Document) Count() int {
	if d.stale() {
		return d.table.Count()
	}
	return d.layer.Count()
}

// IDs returns every live id in the active view, ascending.
func (d *Document) IDs() []object.ID {
	if d.stale() {
		return d.table.IDs()
	}
	return d.layer.IDs()
}

// Pending returns the number of pending entries, reserved ones included.
func (d *Document) Pending() int { return d.layer.Pending() }
