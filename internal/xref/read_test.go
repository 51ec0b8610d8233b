// Read primitive tests.
//
// line and lastLine are the only ways the table touches the stream. Both
// take an explicit end so a table opened at an older revision can never
// read past it; these tests pin that bound down along with the newline
// handling.
package xref

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestLineReadFromOffset(t *testing.T) {
	r := bytes.NewReader([]byte("first line\nsecond line\nthird line\n"))

	data, err := line(r, 11, r.Size(), 1024)
	if err != nil {
		t.Fatalf("line error: %v", err)
	}
	if string(data) != "second line" {
		t.Errorf("line(11) = %q, want %q", data, "second line")
	}
}

// A line that runs past end must not be returned; otherwise Fetch at an
// older revision could read a line that only a newer section completes.
func TestLineStopsAtEnd(t *testing.T) {
	r := bytes.NewReader([]byte("first line\nsecond line\n"))

	if _, err := line(r, 11, 15, 1024); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("line past end: got %v, want ErrUnexpectedEOF", err)
	}
	if _, err := line(r, 30, r.Size(), 1024); !errors.Is(err, io.EOF) {
		t.Errorf("line beyond file: got %v, want EOF", err)
	}
}

func TestLineTooLong(t *testing.T) {
	long := bytes.Repeat([]byte("x"), 8192)
	r := bytes.NewReader(append(long, '\n'))

	if _, err := line(r, 0, r.Size(), 100); !errors.Is(err, errLineTooLong) {
		t.Errorf("got %v, want errLineTooLong", err)
	}
}

func TestLastLine(t *testing.T) {
	content := []byte("header\nfirst\nsecond\n")
	r := bytes.NewReader(content)

	data, start, err := lastLine(r, 7, r.Size(), 4, 1024)
	if err != nil {
		t.Fatalf("lastLine: %v", err)
	}
	if string(data) != "second" || start != 13 {
		t.Errorf("lastLine = %q at %d, want %q at 13", data, start, "second")
	}

	// Bounded end selects an earlier line.
	data, start, err = lastLine(r, 7, 13, 4, 1024)
	if err != nil {
		t.Fatalf("lastLine bounded: %v", err)
	}
	if string(data) != "first" || start != 7 {
		t.Errorf("lastLine bounded = %q at %d, want %q at 7", data, start, "first")
	}
}

func TestLastLineRequiresNewline(t *testing.T) {
	r := bytes.NewReader([]byte("header\nfirst\npartial"))
	if _, _, err := lastLine(r, 7, r.Size(), 64, 1024); err == nil {
		t.Error("lastLine on unterminated stream succeeded")
	}
	if _, _, err := lastLine(r, 7, 7, 64, 1024); err == nil {
		t.Error("lastLine on empty range succeeded")
	}
}
