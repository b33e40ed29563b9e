// Package roadmap defines the project roadmap data model: projects, their
// ordered phases, and the substeps inside each phase.
//
// Entities carry guarded mutators (Complete, Expand, Unlock) that enforce
// local invariants. Cross-entity consistency (cursor placement, completion
// cascades, phase unlocking) is the job of the progress package; roadmap
// types never reach across entity boundaries on their own.
package roadmap
