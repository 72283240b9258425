// Package decoder converts native responses into the typed results of the command
// facades. Decoders are plain functions and can be combined:
//
//	values, err := decoder.ArrayOf(decoder.OptionalValue)(resp) // MGET
//
// Absence (Null) is only accepted by the optional decoders. Error responses are never
// coerced into a result, they always surface as a ServerError.
package decoder
