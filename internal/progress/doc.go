// Package progress implements the project progress state machine.
//
// Every mutation of a project snapshot flows through Service.Apply: the
// snapshot is loaded, the command's direct effect is applied to a working
// copy, a single centralized completion cascade runs to a fixed point
// (phase completion, next-phase unlock, cursor auto-advance, project
// completion), the result is validated, and only then persisted. No command
// path carries its own copy of the cascade.
//
// Apply serializes itself per project ID with an in-process keyed mutex, and
// the store layer additionally rejects stale writes via compare-and-swap on
// the snapshot's UpdatedAt. Callers across processes rely on the latter.
package progress
