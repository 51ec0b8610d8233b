// Line formats of the host byte stream.
//
// A document is a fixed-size header followed by one or more sections. A
// section is a run of object lines, one table line listing every object
// number the section touches, and a trailer line. All lines are single-line
// JSON with the idx field first so the type can be read at TypePos without
// parsing:
//
//	{"idx":2,"_n":1,"_g":0,"_o":{"d":{"Type":{"n":"Catalog"}}}}
//	{"idx":1,"_x":[{"n":1,"g":0,"o":64},{"n":7,"g":1,"f":true}]}
//	{"idx":4,"_s":64,"_x":123,"_p":-1,"_sz":2,"_sum":"9f..","_ts":1700000000000}
//
// The newest trailer is always the last line of the stream. Older trailers
// are reached only by following _p, which names the previous committed
// trailer, so a section no trailer points at is never read.
package xref

import (
	"bytes"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jpl-au/revdoc/object"
)

// Line type markers.
const (
	TypeTable   = 1 // Fragment table
	TypeObject  = 2 // Object definition
	TypeTrailer = 4 // Section trailer
)

// TypePos is the byte offset of the type digit in every line: {"idx":N
const TypePos = 7

// HeaderSize is the fixed size of the header in bytes.
const HeaderSize = 64

// FormatVersion is written to new headers.
const FormatVersion = 1

// LinearizedKey marks the first object of a linearized document.
const LinearizedKey object.Name = "Linearized"

// Header is stored at the start of the stream.
type Header struct {
	Version   int   `json:"_v"`   // Format version
	Algorithm int   `json:"_alg"` // Section checksum algorithm
	Timestamp int64 `json:"_ts"`  // Unix milliseconds when created
}

// Entry is one row of a fragment table.
type Entry struct {
	Num    uint32 `json:"n"`
	Gen    uint16 `json:"g"`
	Offset int64  `json:"o,omitempty"` // Byte position of the object line
	Free   bool   `json:"f,omitempty"` // Tombstone; Gen is the next generation
}

type objectLine struct {
	Type   int             `json:"idx"`
	Num    uint32          `json:"_n"`
	Gen    uint16          `json:"_g"`
	Object json.RawMessage `json:"_o"`
}

type tableLine struct {
	Type    int     `json:"idx"`
	Entries []Entry `json:"_x"`
}

type trailer struct {
	Type      int    `json:"idx"`
	Start     int64  `json:"_s"`   // First byte of the section
	Table     int64  `json:"_x"`   // Offset of the table line
	Prev      int64  `json:"_p"`   // Previous committed trailer, -1 for the base section
	Size      uint32 `json:"_sz"`  // One past the highest object number
	Sum       string `json:"_sum"` // Checksum of [Start, trailer offset)
	Timestamp int64  `json:"_ts"`  // Unix milliseconds when written
}

// lineType returns the type digit of a line, or 0 when the line does not
// carry the idx prefix.
func lineType(ln []byte) int {
	if len(ln) <= TypePos || !bytes.HasPrefix(ln, []byte(`{"idx":`)) {
		return 0
	}
	c := ln[TypePos]
	if c < '0' || c > '9' {
		return 0
	}
	return int(c - '0')
}

// decodeHeader parses a padded header block.
func decodeHeader(buf []byte) (*Header, error) {
	var hdr Header
	if err := json.Unmarshal(bytes.TrimSpace(buf), &hdr); err != nil {
		return nil, malformedf("header: %v", err)
	}
	if hdr.Version != FormatVersion {
		return nil, malformedf("header: unsupported version %d", hdr.Version)
	}
	if _, err := newHash(hdr.Algorithm); err != nil {
		return nil, malformedf("header: %v", err)
	}
	return &hdr, nil
}

// encode serialises the header to exactly HeaderSize bytes with padding.
func (h *Header) encode() ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	if len(data) > HeaderSize-1 {
		return nil, malformedf("header: %d bytes exceeds %d", len(data), HeaderSize-1)
	}

	buf := bytes.Repeat([]byte{' '}, HeaderSize)
	copy(buf, data)
	buf[HeaderSize-1] = '\n'
	return buf, nil
}

func decodeTrailer(ln []byte) (*trailer, error) {
	if lineType(ln) != TypeTrailer {
		return nil, malformedf("expected trailer line")
	}
	var tr trailer
	if err := json.Unmarshal(ln, &tr); err != nil {
		return nil, malformedf("trailer: %v", err)
	}
	return &tr, nil
}

func decodeTable(ln []byte) ([]Entry, error) {
	if lineType(ln) != TypeTable {
		return nil, malformedf("expected table line")
	}
	var tl tableLine
	if err := json.Unmarshal(ln, &tl); err != nil {
		return nil, malformedf("table: %v", err)
	}
	return tl.Entries, nil
}

func decodeObjectLine(ln []byte) (*objectLine, error) {
	if lineType(ln) != TypeObject {
		return nil, malformedf("expected object line")
	}
	var ol objectLine
	if err := json.Unmarshal(ln, &ol); err != nil {
		return nil, malformedf("object: %v", err)
	}
	return &ol, nil
}

// now returns the current time in unix milliseconds.
func now() int64 {
	return time.Now().UnixMilli()
}
