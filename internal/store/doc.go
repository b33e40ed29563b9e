// Package store persists project snapshots.
//
// Snapshots are always read and written as whole units. Update takes the
// UpdatedAt value the caller last observed and fails with ErrConflict when
// the stored row has moved on, so concurrent writers cannot silently clobber
// each other across processes.
package store
