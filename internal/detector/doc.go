// Package detector inspects conversation transcripts and suggests when the
// current substep looks finished.
//
// It is advisory only: a recommendation tells the caller to issue (or offer)
// a completion command, and the progress state machine still validates that
// command like any other. False positives and negatives are acceptable here.
package detector
