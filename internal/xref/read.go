// Low-level read primitives for the newline-delimited format.
//
// All reads go through ReadAt or a SectionReader bounded by an explicit end
// offset, so a table opened at an older revision never sees bytes appended
// after it.
package xref

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var errLineTooLong = errors.New("line exceeds maximum record size")

// line reads the line starting at offset up to the next newline, which must
// lie before end. The newline is not returned.
func line(r io.ReaderAt, offset, end int64, maxSize int) ([]byte, error) {
	remaining := end - offset
	if offset < 0 || remaining <= 0 {
		return nil, io.EOF
	}

	reader := bufio.NewReader(io.NewSectionReader(r, offset, remaining))
	var data []byte
	for {
		chunk, err := reader.ReadSlice('\n')
		data = append(data, chunk...)
		if len(data) > maxSize+1 {
			return nil, errLineTooLong
		}
		if err == nil {
			return data[:len(data)-1], nil
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
}

// lastLine returns the final line of [floor, end) and its start offset. The
// byte at end-1 must be the line's terminating newline.
func lastLine(r io.ReaderAt, floor, end int64, bufSize, maxSize int) ([]byte, int64, error) {
	if end <= floor {
		return nil, 0, io.ErrUnexpectedEOF
	}

	var nl [1]byte
	if _, err := r.ReadAt(nl[:], end-1); err != nil {
		return nil, 0, err
	}
	if nl[0] != '\n' {
		return nil, 0, io.ErrUnexpectedEOF
	}

	start := floor
	buf := make([]byte, bufSize)
	pos := end - 1 // search [floor, pos) backwards
	for pos > floor {
		n := min(int64(bufSize), pos-floor)
		chunk := buf[:n]
		if _, err := r.ReadAt(chunk, pos-n); err != nil && err != io.EOF {
			return nil, 0, err
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			start = pos - n + int64(i) + 1
			break
		}
		pos -= n
		if end-1-pos > int64(maxSize) {
			return nil, 0, errLineTooLong
		}
	}

	data := make([]byte, end-1-start)
	if _, err := r.ReadAt(data, start); err != nil && err != io.EOF {
		return nil, 0, err
	}
	return data, start, nil
}
