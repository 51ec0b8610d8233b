// Cloning a revision into an independent document.
//
// By default the active revision is consolidated: every live object it
// resolves is written, with its number and generation, into the base
// section of a new file, so the clone has exactly one revision. With
// KeepHistory the raw bytes up to the end of the active revision are copied
// instead and the clone keeps revisions 0..Active(). Revisions newer than
// the active one and pending edits are never copied.
//
// The clone is written to path.tmp, synced, then renamed into place, so a
// crash leaves at worst an orphaned .tmp file and never a partial clone.
package revdoc

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jpl-au/revdoc/internal/xref"
)

// CloneOptions configures Clone.
type CloneOptions struct {
	KeepHistory bool // copy the revision chain instead of consolidating it
}

// Clone writes the active revision to a new document at path. path must
// not exist.
func (d *Document) Clone(path string, opts *CloneOptions) error {
	if err := d.check(); err != nil {
		return err
	}
	if opts == nil {
		opts = &CloneOptions{}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("clone: %w: %s", ErrExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clone: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if opts.KeepHistory {
		data, err = d.prefix(d.revs[d.active].End)
	} else {
		data, err = d.consolidate()
	}
	if err != nil {
		return fmt.Errorf("clone: %w", err)
	}

	tmp := path + ".tmp"
	os.Remove(tmp) // left over from an interrupted clone
	if err := writeFile(tmp, data); err != nil {
		return fmt.Errorf("clone: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("clone: %w", err)
	}

	d.log.Info("cloned",
		"target", path,
		"revision", d.active,
		"history", opts.KeepHistory,
		"bytes", len(data))
	return nil
}

// prefix returns the first n bytes of the file.
func (d *Document) prefix(n int64) ([]byte, error) {
	data := make([]byte, n)
	if _, err := io.ReadFull(io.NewSectionReader(d.file, 0, n), data); err != nil {
		return nil, err
	}
	return data, nil
}

// consolidate encodes the active revision as a single-section document.
func (d *Document) consolidate() ([]byte, error) {
	ids := d.table.IDs()
	changes := make([]xref.Change, 0, len(ids))
	for _, id := range ids {
		obj, err := d.table.Fetch(id)
		if err != nil {
			return nil, err
		}
		changes = append(changes, xref.Change{ID: id, Object: obj})
	}
	return xref.EncodeDocument(d.table.Algorithm(), d.table.Size(), changes)
}
