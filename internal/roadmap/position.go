package roadmap

import "fmt"

// Position is the project cursor: which phase the user is working in and
// which substep inside it. A phase that has not been expanded yet has no
// substeps to point at; that state is carried explicitly instead of
// overloading the substep number with a zero sentinel.
type Position struct {
	// Phase is the 1-based phase number the cursor occupies.
	Phase int `json:"phase"`

	// Substep is the 1-based substep number within the phase. Zero while
	// AwaitingExpansion is set.
	Substep int `json:"substep,omitempty"`

	// AwaitingExpansion marks a cursor parked on a phase whose substeps have
	// not been generated yet.
	AwaitingExpansion bool `json:"awaiting_expansion,omitempty"`
}

// AtSubstep returns a cursor on the given phase and substep.
func AtSubstep(phase, substep int) Position {
	return Position{Phase: phase, Substep: substep}
}

// PositionAwaitingExpansion returns a cursor parked on an unexpanded phase.
func PositionAwaitingExpansion(phase int) Position {
	return Position{Phase: phase, AwaitingExpansion: true}
}

func (p Position) String() string {
	if p.AwaitingExpansion {
		return fmt.Sprintf("phase %d (awaiting expansion)", p.Phase)
	}
	return fmt.Sprintf("phase %d substep %d", p.Phase, p.Substep)
}
