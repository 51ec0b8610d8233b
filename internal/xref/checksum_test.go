package xref

import (
	"bytes"
	"regexp"
	"testing"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

func TestChecksumAlgorithms(t *testing.T) {
	data := []byte("section bytes")
	seen := make(map[string]int)
	for _, alg := range []int{AlgXXHash3, AlgFNV1a, AlgBlake2b} {
		sum, err := checksum(data, alg)
		if err != nil {
			t.Fatalf("checksum(%d): %v", alg, err)
		}
		if !hexPattern.MatchString(sum) {
			t.Errorf("alg %d produced %q, want 16 hex chars", alg, sum)
		}
		if prev, ok := seen[sum]; ok {
			t.Errorf("alg %d and %d produced the same sum", alg, prev)
		}
		seen[sum] = alg

		again, _ := checksum(data, alg)
		if again != sum {
			t.Errorf("alg %d not deterministic: %q then %q", alg, sum, again)
		}
	}
}

func TestChecksumRangeMatchesChecksum(t *testing.T) {
	data := []byte("prefix|section bytes|suffix")
	r := bytes.NewReader(data)
	for _, alg := range []int{AlgXXHash3, AlgFNV1a, AlgBlake2b} {
		want, _ := checksum(data[7:20], alg)
		got, err := checksumRange(r, 7, 20, alg)
		if err != nil {
			t.Fatalf("checksumRange: %v", err)
		}
		if got != want {
			t.Errorf("alg %d: checksumRange = %q, want %q", alg, got, want)
		}
	}
}

func TestChecksumUnknownAlgorithm(t *testing.T) {
	if _, err := checksum(nil, 99); err == nil {
		t.Error("checksum with unknown algorithm succeeded")
	}
}
