// Compression for stream payloads.
//
// Stream data is Zstd-compressed, then Ascii85-encoded so the payload is a
// printable, newline-free string (the host format is line-delimited). An
// empty payload is encoded as the empty string without running zstd.
package object

import (
	"encoding/ascii85"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrDecompress is returned when a stream payload cannot be restored.
var ErrDecompress = errors.New("object: decompression failed")

// The encoder and decoder are safe for concurrent use and expensive to
// build, so each is created on first use and shared.
var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// compress returns the encoded form of data.
func compress(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	enc, err := zstdEncoder()
	if err != nil {
		return "", fmt.Errorf("object: zstd encoder: %w", err)
	}
	packed := enc.EncodeAll(data, nil)

	out := make([]byte, ascii85.MaxEncodedLen(len(packed)))
	n := ascii85.Encode(out, packed)
	return string(out[:n]), nil
}

// decompress reverses compress. The result is never nil.
func decompress(encoded string) ([]byte, error) {
	if encoded == "" {
		return []byte{}, nil
	}

	// Each 5-character group yields 4 bytes and 'z' alone yields 4.
	packed := make([]byte, 4*len(encoded))
	n, _, err := ascii85.Decode(packed, []byte(encoded), true)
	if err != nil {
		return nil, fmt.Errorf("%w: ascii85: %w", ErrDecompress, err)
	}

	dec, err := zstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decoder: %w", ErrDecompress, err)
	}
	out, err := dec.DecodeAll(packed[:n], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrDecompress, err)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}
