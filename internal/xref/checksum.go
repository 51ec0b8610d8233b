// Section checksums.
//
// Every trailer carries a checksum of the section bytes it closes. Three
// algorithms are supported, selected per document in the header.
package xref

import (
	"encoding/hex"
	"fmt"
	"hash"
	"hash/fnv"
	"io"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Checksum algorithm constants.
const (
	AlgXXHash3 = 1 // Default, fastest
	AlgFNV1a   = 2 // No external dependencies
	AlgBlake2b = 3 // Best distribution
)

func newHash(alg int) (hash.Hash, error) {
	switch alg {
	case AlgXXHash3:
		return xxh3.New(), nil
	case AlgFNV1a:
		return fnv.New64a(), nil
	case AlgBlake2b:
		return blake2b.New(8, nil) // 8 bytes = 64 bits
	default:
		return nil, fmt.Errorf("unknown checksum algorithm %d", alg)
	}
}

// checksum returns the hex checksum of data.
func checksum(data []byte, alg int) (string, error) {
	h, err := newHash(alg)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// checksumRange hashes [start, end) of r without loading it whole.
func checksumRange(r io.ReaderAt, start, end int64, alg int) (string, error) {
	h, err := newHash(alg)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, io.NewSectionReader(r, start, end-start)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
