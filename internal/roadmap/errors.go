package roadmap

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyCompleted indicates a completion attempt on a substep that is
	// already complete. Duplicate completions are rejected, not absorbed, so
	// the caller's bug surfaces instead of disappearing.
	ErrAlreadyCompleted = errors.New("substep already completed")

	// ErrPhaseIncomplete indicates a phase completion attempt while at least
	// one substep is unfinished.
	ErrPhaseIncomplete = errors.New("phase has incomplete substeps")

	// ErrPhaseEmpty indicates a phase completion attempt on a phase with no
	// substeps. An empty phase can never be completed.
	ErrPhaseEmpty = errors.New("phase has no substeps")

	// ErrAlreadyExpanded indicates a second expansion attempt on a phase.
	ErrAlreadyExpanded = errors.New("phase already expanded")

	// ErrNotExpanded indicates an operation that requires generated substeps
	// on a phase that has none yet.
	ErrNotExpanded = errors.New("phase not expanded")

	// ErrPhaseLocked indicates a command addressed a substep inside a locked
	// phase.
	ErrPhaseLocked = errors.New("phase is locked")

	// ErrProjectNotActive indicates a progress command on a paused, archived,
	// or completed project.
	ErrProjectNotActive = errors.New("project is not active")

	// ErrStatusTransition indicates an illegal project status change.
	ErrStatusTransition = errors.New("invalid status transition")
)

// ValidationError indicates caller-supplied input that failed entity
// validation (goal length, goal content, non-positive numbers).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError indicates a command target that does not exist. Kind
// identifies what was missing so presentation layers can report it precisely.
type NotFoundError struct {
	Kind      string // "project", "phase", or "substep"
	ProjectID string
	ID        string // set when the target was addressed by opaque ID
	Phase     int
	Substep   int
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case "project":
		return fmt.Sprintf("project %s not found", e.ProjectID)
	case "phase":
		if e.ID != "" {
			return fmt.Sprintf("phase %s not found in project %s", e.ID, e.ProjectID)
		}
		return fmt.Sprintf("phase %d not found in project %s", e.Phase, e.ProjectID)
	default:
		return fmt.Sprintf("substep %d not found in phase %d of project %s", e.Substep, e.Phase, e.ProjectID)
	}
}

// IsNotFound reports whether err is a NotFoundError of any kind.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InvalidStateError indicates a structural invariant violation detected after
// a state transition. It always means a logic defect upstream; it is never
// auto-healed and nothing is persisted once it is raised.
type InvalidStateError struct {
	ProjectID string
	Reason    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid project state for %s: %s", e.ProjectID, e.Reason)
}
