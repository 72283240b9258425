// Package value provides the binary-safe value type used for every command argument
// and every bulk result that crosses the client boundary.
//
// A Value is an immutable byte sequence. It makes no assumption about text encoding:
// keys and values may contain arbitrary bytes, including sequences that are not valid
// UTF-8. Two values are equal iff their bytes are equal.
//
// Key Components:
//
//   - Value: immutable byte sequence with an optional, strict text view (Text) and a
//     lossy display form (String) that marks invalid sequences with U+FFFD.
//
//   - Optional: wrapper expressing absence (e.g. Get on a missing key). An absent
//     result is never encoded as a zero-length Value.
//
// Usage Example:
//
//	k := value.FromString("user:1")
//	v := value.FromBytes([]byte{0xff, 0x00, 0x01})
//
//	txt, err := v.Text() // err == value.ErrInvalidText
//	raw := v.Bytes()     // []byte{0xff, 0x00, 0x01}
//
//	res := value.Some(v)
//	if got, ok := res.Get(); ok && got.Equal(v) {
//		// ...
//	}
package value
