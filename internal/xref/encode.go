// Section encoding.
//
// The table only reads. Producing the bytes of a new section lives here so
// the object line, table line and trailer formats stay in one package; the
// caller decides where and whether the bytes are written.
package xref

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/jpl-au/revdoc/object"
)

// Change is one object number touched by a section. Free marks a tombstone,
// in which case Object is ignored and ID.Gen is the generation being freed.
type Change struct {
	ID     object.ID
	Object object.Object
	Free   bool
}

// EncodeSection returns the bytes of a section that will be written at
// start. prev is the trailer offset of the previous committed section and
// size the object number bound after the section.
func EncodeSection(start, prev int64, size uint32, changes []Change, alg int) ([]byte, error) {
	var buf []byte
	entries := make([]Entry, 0, len(changes))

	for _, c := range changes {
		if c.ID.Num == 0 || c.ID.Num >= size {
			return nil, fmt.Errorf("xref: object number %d outside [1, %d)", c.ID.Num, size)
		}
		if c.Free {
			entries = append(entries, Entry{Num: c.ID.Num, Gen: c.ID.Gen + 1, Free: true})
			continue
		}
		raw, err := object.Marshal(c.Object)
		if err != nil {
			return nil, fmt.Errorf("xref: object %s: %w", c.ID, err)
		}
		ln, err := json.Marshal(objectLine{Type: TypeObject, Num: c.ID.Num, Gen: c.ID.Gen, Object: raw})
		if err != nil {
			return nil, fmt.Errorf("xref: object %s: %w", c.ID, err)
		}
		entries = append(entries, Entry{Num: c.ID.Num, Gen: c.ID.Gen, Offset: start + int64(len(buf))})
		buf = append(buf, ln...)
		buf = append(buf, '\n')
	}

	tableOff := start + int64(len(buf))
	tl, err := json.Marshal(tableLine{Type: TypeTable, Entries: entries})
	if err != nil {
		return nil, err
	}
	buf = append(buf, tl...)
	buf = append(buf, '\n')

	sum, err := checksum(buf, alg)
	if err != nil {
		return nil, err
	}
	tr, err := json.Marshal(trailer{
		Type:      TypeTrailer,
		Start:     start,
		Table:     tableOff,
		Prev:      prev,
		Size:      size,
		Sum:       sum,
		Timestamp: now(),
	})
	if err != nil {
		return nil, err
	}
	buf = append(buf, tr...)
	buf = append(buf, '\n')
	return buf, nil
}

// EncodeDocument returns a complete stream: a header followed by a single
// base section holding changes. A document with no objects has size 1.
func EncodeDocument(alg int, size uint32, changes []Change) ([]byte, error) {
	hdr := Header{Version: FormatVersion, Algorithm: alg, Timestamp: now()}
	buf, err := hdr.encode()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		size = 1
	}
	sec, err := EncodeSection(HeaderSize, -1, size, changes, alg)
	if err != nil {
		return nil, err
	}
	return append(buf, sec...), nil
}
