package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// Binary holds raw bytes such as content hashes and attachment bodies.
// It encodes as URL-safe base64 text so that JSON and YAML documents
// round-trip it exactly.
type Binary []byte

// MarshalText implements encoding.TextMarshaler.
func (b Binary) MarshalText() ([]byte, error) {
	out := make([]byte, base64.URLEncoding.EncodedLen(len(b)))
	base64.URLEncoding.Encode(out, b)
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Binary) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = Binary{}
		return nil
	}
	out := make([]byte, base64.URLEncoding.DecodedLen(len(text)))
	n, err := base64.URLEncoding.Decode(out, text)
	if err != nil {
		return fmt.Errorf("%w: decode binary: %w", ErrInvalidInput, err)
	}
	*b = out[:n]
	return nil
}

// Equal reports whether two values hold the same bytes.
func (b Binary) Equal(other Binary) bool {
	return bytes.Equal(b, other)
}

// Clone returns an independent copy.
func (b Binary) Clone() Binary {
	if b == nil {
		return nil
	}
	return append(Binary{}, b...)
}
