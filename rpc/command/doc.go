// Package command turns typed command calls into descriptors: ordered lists of
// binary-safe values whose first element is the command name.
//
// The catalog records the argument shape of every supported command (arity, key
// positions, field/value pairs). Build validates a call against it and fails with an
// ArgumentError before anything is dispatched:
//
//	desc, err := command.Build(command.CmdGet, value.FromString("user:1"))
//
// Commands outside the catalog can be sent with Custom, which only checks that a
// name is present. Everything in this package is pure and safe for concurrent use.
package command
