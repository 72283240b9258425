// Package lstore implements the in-memory keyspace of the execution core based on the
// store.IStore interface. Keys live in a concurrent xsync.MapOf, updates of a single key
// run atomically inside MapOf.Compute.
//
// Expiry is lazy: an expired entry is treated as missing by every method and removed
// when it is accessed. An optional sweeper removes expired keys in the background.
//
// Thread Safety:
//
//	All operations are safe for concurrent use. Entries are never modified in place,
//	so an entry returned by Get stays valid while other goroutines write the key.
package lstore
