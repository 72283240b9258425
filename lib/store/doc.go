// Package store defines the keyspace used by the execution core that answers the
// commands of the bridge.
//
// Key Components:
//
//   - IStore: typed entries (string, list, hash) with an optional expiry and an
//     atomic read-modify-write Update.
//
//   - Error: store errors carrying a RetCode. The command adapter maps them to error
//     replies (e.g. RetCWrongType becomes a WRONGTYPE reply).
//
// The in-memory implementation lives in the lstore package.
package store
