package value

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrInvalidText is returned by Value.Text when the bytes are not valid UTF-8
var ErrInvalidText = errors.New("value is not valid utf-8 text")

// --------------------------------------------------------------------------
// Value
// --------------------------------------------------------------------------

// Value is an immutable, binary-safe byte sequence.
//
// The bytes are stored in a Go string, which is itself an immutable byte sequence
// without an encoding guarantee. This makes Value comparable with == and usable as
// a map key while the bytes stay untouched.
type Value struct {
	b string
}

// FromBytes creates a Value holding a copy of b. Later changes to b are not visible.
func FromBytes(b []byte) Value {
	return Value{b: string(b)}
}

// FromString creates a Value holding the bytes of s
func FromString(s string) Value {
	return Value{b: s}
}

// Bytes returns a copy of the raw bytes
func (v Value) Bytes() []byte {
	return []byte(v.b)
}

// AppendTo appends the raw bytes to dst and returns the extended slice.
// Serializers use it to avoid the intermediate copy made by Bytes.
func (v Value) AppendTo(dst []byte) []byte {
	return append(dst, v.b...)
}

// Len returns the number of bytes
func (v Value) Len() int {
	return len(v.b)
}

// IsEmpty reports whether the value has zero bytes. An empty value is still a value:
// it is never used to express absence (see Optional).
func (v Value) IsEmpty() bool {
	return len(v.b) == 0
}

// Text returns the bytes as a string if they are valid UTF-8.
// Otherwise ErrInvalidText is returned and the bytes must be read with Bytes.
func (v Value) Text() (string, error) {
	if !utf8.ValidString(v.b) {
		return "", ErrInvalidText
	}
	return v.b, nil
}

// String returns a display form of the value. Invalid UTF-8 sequences are replaced
// with U+FFFD, so the result must not be used to reconstruct the bytes.
func (v Value) String() string {
	if utf8.ValidString(v.b) {
		return v.b
	}
	return strings.ToValidUTF8(v.b, string(utf8.RuneError))
}

// Raw returns the bytes as an unvalidated Go string without copying.
// The execution core uses it for keys and numeric arguments.
func (v Value) Raw() string {
	return v.b
}

// Equal reports whether both values hold the same bytes
func (v Value) Equal(other Value) bool {
	return v.b == other.b
}

// Compare orders values by their raw bytes (like bytes.Compare)
func (v Value) Compare(other Value) int {
	return strings.Compare(v.b, other.b)
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// FromStrings converts a list of strings to values
func FromStrings(s ...string) []Value {
	values := make([]Value, len(s))
	for i := range s {
		values[i] = FromString(s[i])
	}
	return values
}

// Int formats an integer argument the way the store expects it (base 10)
func Int(i int64) Value {
	return Value{b: strconv.FormatInt(i, 10)}
}
