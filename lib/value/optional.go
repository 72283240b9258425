package value

import "fmt"

// Optional holds either a value of type T or nothing.
// It is the only way the client expresses absence, e.g. Get on a missing key.
type Optional[T any] struct {
	val     T
	present bool
}

// Some creates a present Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{val: v, present: true}
}

// None creates an absent Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.val, o.present
}

// IsPresent reports whether a value is present
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// OrElse returns the value if present, otherwise def
func (o Optional[T]) OrElse(def T) T {
	if o.present {
		return o.val
	}
	return def
}

// MustGet returns the value and panics if it is absent
func (o Optional[T]) MustGet() T {
	if !o.present {
		panic("value: MustGet called on an absent Optional")
	}
	return o.val
}

func (o Optional[T]) String() string {
	if !o.present {
		return "<nil>"
	}
	return fmt.Sprint(o.val)
}
