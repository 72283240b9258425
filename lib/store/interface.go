package store

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Entry Types
// --------------------------------------------------------------------------

// EntryType is the kind of value stored under a key
type EntryType uint8

const (
	TypeNone   EntryType = iota // 0: No value (missing key)
	TypeString                  // 1: Byte string
	TypeList                    // 2: List of byte strings
	TypeHash                    // 3: Field/value map keeping insertion order
)

func (t EntryType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	default:
		return "none"
	}
}

// Field is a single field of a hash entry
type Field struct {
	Name  string
	Value string
}

// Entry is the value stored under a key.
// Byte strings are held in Go strings, so entries can be shared between readers.
// Writers never modify an entry in place, they store a new one.
type Entry struct {
	Type      EntryType
	Str       string   // Used for: TypeString
	List      []string // Used for: TypeList
	Hash      []Field  // Used for: TypeHash
	ExpiresAt int64    // Unix nanoseconds, 0 means no expiry
}

// Expired reports whether the entry is expired at the given time
func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != 0 && e.ExpiresAt <= now.UnixNano()
}

// TTL returns the remaining time to live and false if the entry has no expiry
func (e *Entry) TTL(now time.Time) (time.Duration, bool) {
	if e.ExpiresAt == 0 {
		return 0, false
	}
	return time.Duration(e.ExpiresAt - now.UnixNano()), true
}

// HashGet returns the value of a hash field
func (e *Entry) HashGet(name string) (string, bool) {
	for _, f := range e.Hash {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Action tells Update what to do with the entry returned by an UpdateFunc
type Action uint8

const (
	ActionKeep   Action = iota // leave the stored entry unchanged
	ActionWrite                // store the returned entry
	ActionRemove               // delete the key
)

// UpdateFunc computes the new entry of a key from its current one.
// exists is false for missing and expired keys. A returned error aborts the update.
type UpdateFunc func(old Entry, exists bool) (Entry, Action, error)

// IStore is the keyspace used by the execution core.
// All methods are safe for concurrent use. Expired entries behave like missing ones.
type IStore interface {
	// Get returns the entry of a key. The boolean indicates whether a live entry was found.
	Get(key string) (entry Entry, loaded bool)
	// Put stores an entry, replacing the previous one
	Put(key string, entry Entry)
	// Update atomically replaces the entry of a key and returns the entry stored afterwards
	Update(key string, fn UpdateFunc) (entry Entry, err error)
	// Delete removes a key and reports whether a live entry was removed
	Delete(key string) (deleted bool)
	// Len returns the number of live keys, expired keys are not counted even before a sweep
	Len() int
	// Flush removes all keys and returns how many were removed
	Flush() int
	// Now returns the current time of the store clock
	Now() time.Time
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("store error (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// ErrWrongType is returned when an operation does not match the type of the stored entry
var ErrWrongType = NewError(RetCWrongType, "Operation against a key holding the wrong kind of value")

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCWrongType                       // 2: Entry has a different type.
	RetCNotInteger                      // 3: Value is not an integer or out of range.
	RetCOverflow                        // 4: Increment would overflow.
	RetCInvalidOperation                // 5: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCWrongType:
		return "WrongType"
	case RetCNotInteger:
		return "NotInteger"
	case RetCOverflow:
		return "Overflow"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
