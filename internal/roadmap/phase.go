package roadmap

import "time"

// Phase is an ordered collection of substeps with lock, expansion, and
// completion state. Phase numbers are 1-based and globally ordered within a
// project.
type Phase struct {
	// ID is an opaque unique identifier.
	ID string `json:"id"`

	// PhaseNumber is the 1-based position within the project.
	PhaseNumber int `json:"phase_number"`

	Title       string `json:"title"`
	Goal        string `json:"goal"`
	Description string `json:"description"`

	// Substeps is empty until the phase has been expanded. Once expanded the
	// list only ever grows.
	Substeps []Substep `json:"substeps,omitempty"`

	// Expanded records that substeps have been generated for this phase.
	Expanded bool `json:"expanded"`

	// Locked phases are not yet accessible; no substep under a locked phase
	// is addressable by a completion command. Enforcement happens at the
	// state-machine boundary.
	Locked bool `json:"locked"`

	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Expand attaches generated substeps. Exactly-once: a second call fails with
// ErrAlreadyExpanded.
func (p *Phase) Expand(substeps []Substep) error {
	if p.Expanded {
		return ErrAlreadyExpanded
	}
	p.Substeps = substeps
	p.Expanded = true
	return nil
}

// AppendSubsteps grows an already-expanded phase. Used by adaptive-roadmap
// flows; the substep list never shrinks. Numbers are assigned past the
// current tail.
func (p *Phase) AppendSubsteps(substeps ...Substep) error {
	if !p.Expanded {
		return ErrNotExpanded
	}
	next := len(p.Substeps) + 1
	for i := range substeps {
		substeps[i].Number = next + i
	}
	p.Substeps = append(p.Substeps, substeps...)
	return nil
}

// Unlock makes the phase accessible. Idempotent.
func (p *Phase) Unlock() { p.Locked = false }

// Lock makes the phase inaccessible. Idempotent.
func (p *Phase) Lock() { p.Locked = true }

// Complete marks the phase done. Fails with ErrPhaseEmpty for a phase with
// no substeps and ErrPhaseIncomplete while any substep is unfinished.
func (p *Phase) Complete(at time.Time) error {
	if len(p.Substeps) == 0 {
		return ErrPhaseEmpty
	}
	if !p.AllSubstepsComplete() {
		return ErrPhaseIncomplete
	}
	p.Completed = true
	t := at
	p.CompletedAt = &t
	return nil
}

// AllSubstepsComplete reports whether every substep is complete. False for a
// phase with no substeps.
func (p *Phase) AllSubstepsComplete() bool {
	if len(p.Substeps) == 0 {
		return false
	}
	for i := range p.Substeps {
		if !p.Substeps[i].Completed {
			return false
		}
	}
	return true
}

// SubstepByNumber returns the substep with the given 1-based number.
func (p *Phase) SubstepByNumber(n int) (*Substep, bool) {
	for i := range p.Substeps {
		if p.Substeps[i].Number == n {
			return &p.Substeps[i], true
		}
	}
	return nil, false
}

// LastSubstepNumber returns the highest substep number, or 0 for an
// unexpanded phase.
func (p *Phase) LastSubstepNumber() int {
	last := 0
	for i := range p.Substeps {
		if p.Substeps[i].Number > last {
			last = p.Substeps[i].Number
		}
	}
	return last
}

// clone returns a deep copy.
func (p Phase) clone() Phase {
	out := p
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		out.CompletedAt = &t
	}
	if p.Substeps != nil {
		out.Substeps = make([]Substep, len(p.Substeps))
		for i := range p.Substeps {
			out.Substeps[i] = p.Substeps[i].clone()
		}
	}
	return out
}
