package decoder

import (
	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// Decoder converts a native response into a typed result.
//
// Every decoder follows the same rules: an Error response always becomes a ServerError
// carrying kind and message verbatim (also when it is nested inside an array or map),
// Null is only accepted by the optional decoders, and any other shape mismatch is a
// DecodeError.
type Decoder[T any] func(resp common.Response) (T, error)

// --------------------------------------------------------------------------
// Scalar Decoders
// --------------------------------------------------------------------------

// OK accepts only the status reply "OK" and returns it
func OK(resp common.Response) (string, error) {
	if err := serverError(resp); err != nil {
		return "", err
	}
	if resp.Kind != common.RespStatus {
		return "", unexpected("status OK", resp)
	}
	if resp.Status != "OK" {
		return "", common.NewDecodeError("expected status OK, got status %q", resp.Status)
	}
	return resp.Status, nil
}

// Status returns the text of a status reply
func Status(resp common.Response) (string, error) {
	if err := serverError(resp); err != nil {
		return "", err
	}
	if resp.Kind != common.RespStatus {
		return "", unexpected("status", resp)
	}
	return resp.Status, nil
}

// Value returns the payload of a bulk reply. Any other shape, including a status
// reply, is a DecodeError.
func Value(resp common.Response) (value.Value, error) {
	if err := serverError(resp); err != nil {
		return value.Value{}, err
	}
	if resp.Kind != common.RespBulk {
		return value.Value{}, unexpected("bulk", resp)
	}
	return value.FromBytes(resp.Bulk), nil
}

// OptionalValue is like Value but decodes Null as absent
func OptionalValue(resp common.Response) (value.Optional[value.Value], error) {
	return Optional[value.Value](Value)(resp)
}

// Int returns the value of an integer reply
func Int(resp common.Response) (int64, error) {
	if err := serverError(resp); err != nil {
		return 0, err
	}
	if resp.Kind != common.RespInt {
		return 0, unexpected("int", resp)
	}
	return resp.Int, nil
}

// OptionalInt is like Int but decodes Null as absent
func OptionalInt(resp common.Response) (value.Optional[int64], error) {
	return Optional[int64](Int)(resp)
}

// Bool decodes an integer reply of 0 or 1
func Bool(resp common.Response) (bool, error) {
	i, err := Int(resp)
	if err != nil {
		return false, err
	}
	switch i {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, common.NewDecodeError("expected 0 or 1, got %d", i)
	}
}

// Any returns the response unchanged unless it is an error. It is used for custom
// commands where the caller inspects the shape itself. Nested errors are kept.
func Any(resp common.Response) (common.Response, error) {
	if err := serverError(resp); err != nil {
		return common.Response{}, err
	}
	if resp.Kind == common.RespUnknown {
		return common.Response{}, unexpected("any", resp)
	}
	return resp, nil
}

// --------------------------------------------------------------------------
// Combinators
// --------------------------------------------------------------------------

// Optional wraps a decoder so that Null decodes to an absent value
func Optional[T any](elem Decoder[T]) Decoder[value.Optional[T]] {
	return func(resp common.Response) (value.Optional[T], error) {
		if resp.Kind == common.RespNull {
			return value.None[T](), nil
		}
		v, err := elem(resp)
		if err != nil {
			return value.None[T](), err
		}
		return value.Some(v), nil
	}
}

// ArrayOf decodes an array reply element-wise in order.
// The first failing element aborts decoding, a nested Error becomes a ServerError.
func ArrayOf[T any](elem Decoder[T]) Decoder[[]T] {
	return func(resp common.Response) ([]T, error) {
		if err := serverError(resp); err != nil {
			return nil, err
		}
		if resp.Kind != common.RespArray {
			return nil, unexpected("array", resp)
		}
		out := make([]T, len(resp.Array))
		for i := range resp.Array {
			v, err := elem(resp.Array[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
}

// OptionalArrayOf decodes an array reply, Null decodes to an absent array
func OptionalArrayOf[T any](elem Decoder[T]) Decoder[value.Optional[[]T]] {
	return Optional(ArrayOf(elem))
}

// Entry is one decoded key/value pair of a map reply
type Entry[K, V any] struct {
	Key   K
	Value V
}

// MapOf decodes a map reply in the order of the pairs. Arrays are not accepted,
// even when they hold an even number of elements.
func MapOf[K, V any](key Decoder[K], val Decoder[V]) Decoder[[]Entry[K, V]] {
	return func(resp common.Response) ([]Entry[K, V], error) {
		if err := serverError(resp); err != nil {
			return nil, err
		}

		if resp.Kind != common.RespMap {
			return nil, unexpected("map", resp)
		}
		pairs := resp.Map

		out := make([]Entry[K, V], len(pairs))
		for i := range pairs {
			k, err := key(pairs[i].Key)
			if err != nil {
				return nil, err
			}
			v, err := val(pairs[i].Value)
			if err != nil {
				return nil, err
			}
			out[i] = Entry[K, V]{Key: k, Value: v}
		}
		return out, nil
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func serverError(resp common.Response) error {
	if resp.Kind == common.RespError {
		return common.NewServerError(resp.ErrKind, resp.ErrMsg)
	}
	return nil
}

func unexpected(want string, resp common.Response) error {
	return common.NewDecodeError("expected %s, got %s", want, resp.Kind)
}
