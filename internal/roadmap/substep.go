package roadmap

import "time"

// Substep is the smallest unit of roadmap work. Substeps are created when
// their owning phase is expanded and are never deleted individually.
type Substep struct {
	// ID is an opaque unique identifier.
	ID string `json:"id"`

	// Number is the 1-based position within the owning phase.
	Number int `json:"number"`

	// Title is a short imperative label.
	Title string `json:"title"`

	// Description explains what done looks like for this substep.
	Description string `json:"description"`

	// EstimatedMinutes is the expected effort. Always positive.
	EstimatedMinutes int `json:"estimated_minutes"`

	// ToolsNeeded lists tools the user should have ready, in order.
	ToolsNeeded []string `json:"tools_needed,omitempty"`

	// Completed marks the substep done. CompletedAt is set iff Completed.
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Complete marks the substep done at the given time. A second call fails
// with ErrAlreadyCompleted: a duplicate completion request is a caller bug
// worth surfacing, not a no-op.
func (s *Substep) Complete(at time.Time) error {
	if s.Completed {
		return ErrAlreadyCompleted
	}
	s.Completed = true
	t := at
	s.CompletedAt = &t
	return nil
}

// Uncomplete clears the completed flag. Idempotent.
func (s *Substep) Uncomplete() {
	s.Completed = false
	s.CompletedAt = nil
}

// clone returns a deep copy.
func (s Substep) clone() Substep {
	out := s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.ToolsNeeded != nil {
		out.ToolsNeeded = append([]string(nil), s.ToolsNeeded...)
	}
	return out
}
