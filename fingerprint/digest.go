package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Size is the length in bytes of a Digest.
const Size = sha256.Size

// ErrInvalidDigest is returned when parsing a malformed digest string.
var ErrInvalidDigest = errors.New("fingerprint: invalid digest")

// Digest is a fixed-length fingerprint over identity-relevant state.
// Two invocations with equal digests for the same identity must be
// treated as producing identical outputs.
type Digest [Size]byte

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Equal reports whether two digests are identical.
func (d Digest) Equal(other Digest) bool {
	return d == other
}

// IsZero reports whether the digest is the zero value.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText encodes the digest as lowercase hex for JSON and friends.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes the hex form produced by MarshalText.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest parses the hex encoding produced by Digest.String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if len(s) != Size*2 {
		return d, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidDigest, Size*2, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	copy(d[:], raw)
	return d, nil
}
