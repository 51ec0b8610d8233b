// Save policies.
//
// Both modes append one section holding every pending entry, chained to the
// trailer of the newest committed revision. They differ in what happens to
// memory afterwards:
//
//   - SaveTemporary leaves the pending map, the table and the revision list
//     as they were. The section is durable, but the next save of either mode
//     chains past it, so it is superseded and never read again while this
//     handle is open. If the handle is closed instead, the section is the
//     last one in the file and becomes the newest revision on the next Open.
//   - SaveRevision re-parses the table to include the new section, clears
//     the pending map and makes the new section the active revision, exactly
//     as if the file had been reopened.
//
// A save either completes, including the state transition, or leaves both
// the file length and the in-memory state as they were before the call.
package revdoc

import (
	"fmt"

	"github.com/jpl-au/revdoc/internal/xref"
)

// SaveMode selects what a save does after the bytes are written.
type SaveMode int

const (
	SaveTemporary SaveMode = iota // Default: write, keep editing state
	SaveRevision                  // Write and commit a new revision
)

func (m SaveMode) String() string {
	switch m {
	case SaveTemporary:
		return "temporary"
	case SaveRevision:
		return "revision"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// SaveResult describes a completed save.
type SaveResult struct {
	Mode      SaveMode
	Written   bool       // False when nothing was pending
	Offset    int64      // First byte of the appended section
	Length    int        // Bytes appended
	Objects   int        // Entries in the section's fragment table
	Revisions int        // Revision count after the save
	Warnings  []*Warning // Non-fatal conditions, see ErrLinearized
}

// Save writes every pending entry as a new section. Reserved ids that never
// received a value are not written. Saving with nothing to write is a no-op.
func (d *Document) Save(mode SaveMode) (*SaveResult, error) {
	if err := d.checkWritable(); err != nil {
		return nil, err
	}
	if mode != SaveTemporary && mode != SaveRevision {
		return nil, fmt.Errorf("save: unknown mode %d", int(mode))
	}

	res := &SaveResult{Mode: mode, Revisions: len(d.revs)}
	changes := d.mut.Changes()
	if len(changes) == 0 {
		return res, nil
	}

	if d.linearized {
		w := &Warning{Op: "save", Err: ErrLinearized}
		res.Warnings = append(res.Warnings, w)
		d.log.Warn("appending to linearized document", "mode", mode)
	}

	prev := d.revs[len(d.revs)-1].Trailer
	buf, err := xref.EncodeSection(d.tail, prev, d.layer.Size(), changes, d.table.Algorithm())
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	offset, err := d.append(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSaveIO, err)
	}

	if mode == SaveRevision {
		if err := d.table.Reopen(d.tail); err != nil {
			d.truncate(offset)
			return nil, fmt.Errorf("%w: reopen: %w", ErrSaveIO, err)
		}
		d.mut.Reset(d.table)
		d.revs = d.table.Sections()
		d.active = len(d.revs) - 1
	}

	res.Written = true
	res.Offset = offset
	res.Length = len(buf)
	res.Objects = len(changes)
	res.Revisions = len(d.revs)

	d.log.Info("saved",
		"mode", mode,
		"offset", offset,
		"bytes", len(buf),
		"objects", len(changes),
		"revisions", len(d.revs))
	return res, nil
}
