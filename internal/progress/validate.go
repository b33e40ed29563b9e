package progress

import (
	"fmt"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

// ValidateConsistency checks the structural invariants of a project
// snapshot. It returns warning strings for soft properties and an
// *roadmap.InvalidStateError for hard violations. Apply runs it after every
// cascade, strictly before persistence; it is also usable standalone.
func ValidateConsistency(p *roadmap.Project) ([]string, error) {
	var warnings []string

	// A project created before roadmap generation has no phases and a zero
	// cursor. Nothing else to check at that point.
	if len(p.Phases) == 0 {
		if p.Position != (roadmap.Position{}) {
			return nil, invalid(p, "cursor set on a project with no phases")
		}
		if p.Status == roadmap.StatusCompleted {
			return nil, invalid(p, "status completed with no phases")
		}
		return nil, nil
	}

	cur, ok := p.PhaseByNumber(p.Position.Phase)
	if !ok {
		return nil, invalid(p, fmt.Sprintf("cursor phase %d does not exist", p.Position.Phase))
	}

	if p.Position.AwaitingExpansion {
		if cur.Expanded && len(cur.Substeps) > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"cursor awaiting expansion on phase %d which already has substeps", cur.PhaseNumber))
		}
	} else if _, ok := cur.SubstepByNumber(p.Position.Substep); !ok {
		last := cur.LastSubstepNumber()
		if p.Position.Substep != last+1 {
			return nil, invalid(p, fmt.Sprintf(
				"cursor substep %d does not exist in phase %d", p.Position.Substep, p.Position.Phase))
		}
		// One past the end is the transient "phase just finished" state. The
		// cascade resolves it unless there is nowhere to go; anything else
		// means the cascade misfired.
		if next, ok := p.PhaseByNumber(p.Position.Phase + 1); ok && !next.Locked && cur.Completed {
			return nil, invalid(p, fmt.Sprintf(
				"cursor stranded past phase %d with phase %d unlocked", cur.PhaseNumber, next.PhaseNumber))
		}
	}

	// Locked phases form a monotonic suffix. Warning-level: administrative
	// unlocks may legitimately punch holes in the ordering.
	lockedSeen := false
	for i := range p.Phases {
		if p.Phases[i].Locked {
			lockedSeen = true
		} else if lockedSeen {
			warnings = append(warnings, fmt.Sprintf(
				"phase %d unlocked after a locked phase", p.Phases[i].PhaseNumber))
		}
	}

	for i := range p.Phases {
		ph := &p.Phases[i]
		if ph.Completed {
			if len(ph.Substeps) == 0 {
				return warnings, invalid(p, fmt.Sprintf("phase %d completed with no substeps", ph.PhaseNumber))
			}
			if !ph.AllSubstepsComplete() {
				return warnings, invalid(p, fmt.Sprintf("phase %d completed with incomplete substeps", ph.PhaseNumber))
			}
		}
		if ph.Completed != (ph.CompletedAt != nil) {
			return warnings, invalid(p, fmt.Sprintf("phase %d completion timestamp mismatch", ph.PhaseNumber))
		}
		for j := range ph.Substeps {
			sub := &ph.Substeps[j]
			if sub.Completed != (sub.CompletedAt != nil) {
				return warnings, invalid(p, fmt.Sprintf(
					"substep %d of phase %d completion timestamp mismatch", sub.Number, ph.PhaseNumber))
			}
		}
	}

	if p.Status == roadmap.StatusCompleted && !p.AllPhasesComplete() {
		return warnings, invalid(p, "status completed with incomplete phases")
	}
	if p.AllPhasesComplete() && p.Status != roadmap.StatusCompleted {
		return warnings, invalid(p, "all phases complete but status not completed")
	}

	return warnings, nil
}

func invalid(p *roadmap.Project, reason string) error {
	return &roadmap.InvalidStateError{ProjectID: p.ID, Reason: reason}
}
