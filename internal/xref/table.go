// Table resolution.
//
// Open walks the trailer chain from the last line back to the base section
// and records, for every object number, the entry of the newest section that
// mentions it. Fetch then reads exactly one object line. The table is never
// modified in place; Reopen swaps in a freshly parsed state or leaves the
// old one untouched.
package xref

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/jpl-au/revdoc/object"
)

// Options controls buffer sizing for reads.
type Options struct {
	ReadBuffer    int // Backward scan chunk size (default 64KB)
	MaxRecordSize int // Maximum single line size (default 16MB)
}

// Section describes one committed section on the trailer chain.
type Section struct {
	Start     int64  // First byte of the section
	Table     int64  // Offset of the fragment table line
	Trailer   int64  // Offset of the trailer line
	End       int64  // One past the trailer's newline
	Prev      int64  // Previous trailer offset, -1 for the base section
	Size      uint32 // Object number bound recorded in the trailer
	Timestamp int64  // Unix milliseconds
	Entries   int    // Rows in the fragment table
}

type slot struct {
	gen    uint16
	offset int64
	free   bool
}

type state struct {
	end      int64
	sections []Section // oldest first
	slots    map[uint32]slot
	size     uint32
	live     int
}

// Table is a read-only view of a document's lookup structures as of a given
// end offset.
type Table struct {
	r          io.ReaderAt
	opts       Options
	header     Header
	linearized bool
	state
}

// Open parses the header and trailer chain of the stream r, treating end as
// its length. Every error wraps ErrMalformed or comes from r itself.
func Open(r io.ReaderAt, end int64, opts Options) (*Table, error) {
	if opts.ReadBuffer == 0 {
		opts.ReadBuffer = 64 * 1024
	}
	if opts.MaxRecordSize == 0 {
		opts.MaxRecordSize = 16 * 1024 * 1024
	}
	if end < HeaderSize {
		return nil, malformedf("stream of %d bytes is shorter than the header", end)
	}

	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	hdr, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}

	t := &Table{r: r, opts: opts, header: *hdr}
	st, err := t.parse(end)
	if err != nil {
		return nil, err
	}
	t.state = *st

	lin, err := t.inspectLinearized()
	if err != nil {
		return nil, err
	}
	t.linearized = lin
	return t, nil
}

// Reopen re-parses the stream as if it ended at end, discarding anything
// cached about sections after it. On error the table is unchanged.
func (t *Table) Reopen(end int64) error {
	st, err := t.parse(end)
	if err != nil {
		return err
	}
	t.state = *st
	return nil
}

func (t *Table) parse(end int64) (*state, error) {
	ln, off, err := lastLine(t.r, HeaderSize, end, t.opts.ReadBuffer, t.opts.MaxRecordSize)
	if err != nil {
		return nil, malformedf("last trailer: %v", err)
	}

	st := &state{end: end, slots: make(map[uint32]slot)}
	first := true
	for {
		tr, err := decodeTrailer(ln)
		if err != nil {
			return nil, fmt.Errorf("trailer at %d: %w", off, err)
		}
		sec, entries, err := t.section(tr, off, int64(len(ln)))
		if err != nil {
			return nil, fmt.Errorf("section at %d: %w", tr.Start, err)
		}
		if first {
			st.size = tr.Size
			first = false
		}
		for _, e := range entries {
			if e.Num == 0 || e.Num >= st.size {
				return nil, malformedf("section at %d: object number %d outside [1, %d)", tr.Start, e.Num, st.size)
			}
			if _, seen := st.slots[e.Num]; seen {
				continue // newer section already decided this number
			}
			st.slots[e.Num] = slot{gen: e.Gen, offset: e.Offset, free: e.Free}
			if !e.Free {
				st.live++
			}
		}
		st.sections = append(st.sections, *sec)

		if tr.Prev < 0 {
			if tr.Start != HeaderSize {
				return nil, malformedf("base section starts at %d, want %d", tr.Start, HeaderSize)
			}
			break
		}
		if tr.Prev >= tr.Start {
			return nil, malformedf("trailer at %d points forward to %d", off, tr.Prev)
		}
		off = tr.Prev
		ln, err = line(t.r, off, end, t.opts.MaxRecordSize)
		if err != nil {
			return nil, malformedf("trailer at %d: %v", off, err)
		}
	}

	slices.Reverse(st.sections)
	return st, nil
}

// section validates the bytes closed by tr, whose line starts at off.
func (t *Table) section(tr *trailer, off, length int64) (*Section, []Entry, error) {
	if tr.Start < HeaderSize || tr.Table < tr.Start || tr.Table >= off {
		return nil, nil, malformedf("offsets start=%d table=%d trailer=%d", tr.Start, tr.Table, off)
	}
	ln, err := line(t.r, tr.Table, off, t.opts.MaxRecordSize)
	if err != nil {
		return nil, nil, malformedf("table line: %v", err)
	}
	if tr.Table+int64(len(ln))+1 != off {
		return nil, nil, malformedf("table line does not end at trailer")
	}
	entries, err := decodeTable(ln)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if !e.Free && (e.Offset < tr.Start || e.Offset >= tr.Table) {
			return nil, nil, malformedf("object %d %d offset %d outside section", e.Num, e.Gen, e.Offset)
		}
	}
	sum, err := checksumRange(t.r, tr.Start, off, t.header.Algorithm)
	if err != nil {
		return nil, nil, err
	}
	if sum != tr.Sum {
		return nil, nil, malformedf("checksum %s, trailer says %s", sum, tr.Sum)
	}

	return &Section{
		Start:     tr.Start,
		Table:     tr.Table,
		Trailer:   off,
		End:       off + length + 1,
		Prev:      tr.Prev,
		Size:      tr.Size,
		Timestamp: tr.Timestamp,
		Entries:   len(entries),
	}, entries, nil
}

// inspectLinearized reports whether the first object line of the base
// section is a dictionary carrying LinearizedKey.
func (t *Table) inspectLinearized() (bool, error) {
	base := t.sections[0]
	if base.Table == base.Start {
		return false, nil
	}
	ln, err := line(t.r, base.Start, base.Table, t.opts.MaxRecordSize)
	if err != nil {
		return false, malformedf("first object: %v", err)
	}
	ol, err := decodeObjectLine(ln)
	if err != nil {
		return false, err
	}
	obj, err := object.Unmarshal(ol.Object)
	if err != nil {
		return false, fmt.Errorf("%w: first object: %w", ErrMalformed, err)
	}
	d, ok := obj.(object.Dict)
	if !ok {
		return false, nil
	}
	_, ok = d[LinearizedKey]
	return ok, nil
}

// Fetch returns the object currently defined for id.
func (t *Table) Fetch(id object.ID) (object.Object, error) {
	s, ok := t.slots[id.Num]
	if !ok || s.free || s.gen != id.Gen {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ln, err := line(t.r, s.offset, t.end, t.opts.MaxRecordSize)
	if err != nil {
		return nil, fmt.Errorf("%w: object %s: %v", ErrMalformed, id, err)
	}
	ol, err := decodeObjectLine(ln)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", id, err)
	}
	if ol.Num != id.Num || ol.Gen != id.Gen {
		return nil, malformedf("object %s: line at %d defines %d %d", id, s.offset, ol.Num, ol.Gen)
	}
	obj, err := object.Unmarshal(ol.Object)
	if err != nil {
		return nil, fmt.Errorf("%w: object %s: %w", ErrMalformed, id, err)
	}
	return obj, nil
}

// Has reports whether id resolves to a live object.
func (t *Table) Has(id object.ID) bool {
	s, ok := t.slots[id.Num]
	return ok && !s.free && s.gen == id.Gen
}

// Generation returns the current generation for num and whether the number
// is in use. For a freed number the returned generation is the next one.
func (t *Table) Generation(num uint32) (uint16, bool) {
	s, ok := t.slots[num]
	if !ok {
		return 0, false
	}
	return s.gen, !s.free
}

// IDs returns every live id in ascending order.
func (t *Table) IDs() []object.ID {
	ids := make([]object.ID, 0, t.live)
	for num, s := range t.slots {
		if !s.free {
			ids = append(ids, object.ID{Num: num, Gen: s.gen})
		}
	}
	slices.SortFunc(ids, object.ID.Compare)
	return ids
}

// Count returns the number of live objects.
func (t *Table) Count() int { return t.live }

// Size returns one past the highest object number ever allocated.
func (t *Table) Size() uint32 { return t.size }

// End returns the stream length the table was parsed at.
func (t *Table) End() int64 { return t.end }

// Sections returns the committed sections, oldest first.
func (t *Table) Sections() []Section { return slices.Clone(t.sections) }

// SectionCount returns the number of sections on the trailer chain.
func (t *Table) SectionCount() int { return len(t.sections) }

// Algorithm returns the checksum algorithm from the header.
func (t *Table) Algorithm() int { return t.header.Algorithm }

// Linearized reports the layout detected at Open. Reopen does not
// recompute it.
func (t *Table) Linearized() bool { return t.linearized }
