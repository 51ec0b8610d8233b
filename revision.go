// Revision navigation.
//
// Revisions are the committed sections on the trailer chain, numbered from
// 0 (the base section) to Revisions()-1 (the newest). Switching re-parses
// the table as if the file ended after the chosen revision. Pending edits
// are kept but hidden while an older revision is active, and every mutation
// fails with ErrStaleRevision until the newest revision is active again.
package revdoc

import (
	"fmt"
	"time"
)

// Revision describes one committed revision.
type Revision struct {
	Index     int
	Offset    int64 // First byte of the revision's section
	End       int64 // One past its trailer
	Objects   int   // Entries in its fragment table
	Timestamp time.Time
}

// Revisions returns the number of committed revisions. Revisions, Active
// and History stay answerable after Close and describe the revisions as
// they were when the handle closed.
func (d *Document) Revisions() int { return len(d.revs) }

// Active returns the index of the active revision.
func (d *Document) Active() int { return d.active }

// History describes every committed revision, oldest first.
func (d *Document) History() []Revision {
	out := make([]Revision, len(d.revs))
	for i, s := range d.revs {
		out[i] = Revision{
			Index:     i,
			Offset:    s.Start,
			End:       s.End,
			Objects:   s.Entries,
			Timestamp: time.UnixMilli(s.Timestamp),
		}
	}
	return out
}

// ChangeRevision makes revision k active.
func (d *Document) ChangeRevision(k int) error {
	if err := d.check(); err != nil {
		return err
	}
	if k < 0 || k >= len(d.revs) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRevisionRange, k, len(d.revs))
	}
	if k == d.active {
		return nil
	}
	if err := d.table.Reopen(d.revs[k].End); err != nil {
		return fmt.Errorf("change revision: %w", err)
	}
	d.log.Debug("changed revision", "from", d.active, "to", k)
	d.active = k
	return nil
}
