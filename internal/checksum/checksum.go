// Package checksum fingerprints data file contents so saves that change nothing can be ignored.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Set remembers the last fingerprint seen for each file. It is not safe for concurrent use.
type Set struct {
	sums map[string]string
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{sums: make(map[string]string)}
}

// Observe records sum for path and reports whether path was unknown or its content changed.
func (s *Set) Observe(path, sum string) bool {
	if prev, ok := s.sums[path]; ok && prev == sum {
		return false
	}
	s.sums[path] = sum
	return true
}

// Forget drops path and reports whether it was known.
func (s *Set) Forget(path string) bool {
	if _, ok := s.sums[path]; !ok {
		return false
	}
	delete(s.sums, path)
	return true
}

// Missing returns the known paths absent from present, sorted.
func (s *Set) Missing(present map[string]string) []string {
	var out []string
	for path := range s.sums {
		if _, ok := present[path]; !ok {
			out = append(out, path)
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of known paths.
func (s *Set) Len() int {
	return len(s.sums)
}
