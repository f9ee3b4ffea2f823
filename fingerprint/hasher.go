package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
)

// Hasher accumulates identity-relevant values into a Digest.
//
// Contract:
// - Determinism: the same sequence of Put calls produces the same digest
//   across processes and platforms.
// - Sets: PutSet canonicalizes its members by sorting, so callers may
//   enumerate in any order.
// - Concurrency: a Hasher is not safe for concurrent use; construct one
//   per fingerprint.
type Hasher struct {
	h hash.Hash
}

// New creates an empty Hasher.
func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

// PutBytes adds a length-framed byte slice.
func (h *Hasher) PutBytes(b []byte) *Hasher {
	h.frame(len(b))
	h.h.Write(b)
	return h
}

// PutString adds a length-framed string.
func (h *Hasher) PutString(s string) *Hasher {
	h.frame(len(s))
	io.WriteString(h.h, s)
	return h
}

// PutInt64 adds a fixed-width integer.
func (h *Hasher) PutInt64(v int64) *Hasher {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	h.h.Write(buf[:])
	return h
}

// PutDigest adds a previously computed digest, allowing fingerprints to
// be combined hierarchically (e.g. classloader ancestry chains).
func (h *Hasher) PutDigest(d Digest) *Hasher {
	h.h.Write(d[:])
	return h
}

// PutSet adds an unordered collection of byte slices. Members are sorted
// before combining so that set equality implies digest equality.
func (h *Hasher) PutSet(members [][]byte) *Hasher {
	sorted := make([][]byte, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i], sorted[j]) < 0
	})
	h.frame(len(sorted))
	for _, m := range sorted {
		h.PutBytes(m)
	}
	return h
}

// PutFile adds the content of a file.
func (h *Hasher) PutFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("fingerprint: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("fingerprint: stat %s: %w", path, err)
	}
	h.frame(int(info.Size()))
	if _, err := io.Copy(h.h, f); err != nil {
		return fmt.Errorf("fingerprint: read %s: %w", path, err)
	}
	return nil
}

// Sum finalizes the accumulated state into a Digest. The Hasher must not
// be reused afterwards.
func (h *Hasher) Sum() Digest {
	var d Digest
	copy(d[:], h.h.Sum(nil))
	return d
}

func (h *Hasher) frame(n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.h.Write(buf[:])
}

// OfStrings fingerprints an ordered sequence of strings.
func OfStrings(values ...string) Digest {
	h := New()
	for _, v := range values {
		h.PutString(v)
	}
	return h.Sum()
}

// OfStringSet fingerprints an unordered set of strings.
func OfStringSet(values []string) Digest {
	members := make([][]byte, len(values))
	for i, v := range values {
		members[i] = []byte(v)
	}
	return New().PutSet(members).Sum()
}

// HashFile returns the digest of a single file's content.
func HashFile(path string) (Digest, error) {
	h := New()
	if err := h.PutFile(path); err != nil {
		return Digest{}, err
	}
	return h.Sum(), nil
}

// OfFileSet fingerprints a set of files by path and content. Paths are
// sorted first, so enumeration order does not matter.
func OfFileSet(paths []string) (Digest, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	h := New()
	h.frame(len(sorted))
	for _, p := range sorted {
		h.PutString(p)
		if err := h.PutFile(p); err != nil {
			return Digest{}, err
		}
	}
	return h.Sum(), nil
}
