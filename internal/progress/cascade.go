package progress

import (
	"time"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

// runCascade applies the consistency-maintaining side effects after a
// command's direct effect, iterating to a fixed point: completing a phase
// can unlock the next one, unlocking can let the cursor advance, and
// advancing exposes another phase to the completion check.
//
// Every command path runs this same cascade; none re-implements any part of
// it.
func runCascade(p *roadmap.Project, departedPhase int, now time.Time, summary *ChangeSummary) {
	for {
		changed := false

		// Phase completion check: only the phase the cursor occupies and the
		// phase it departed are candidates. A fully-completed phase the user
		// has never reached stays unfinished until the cursor gets there.
		for _, num := range []int{p.Position.Phase, departedPhase} {
			ph, ok := p.PhaseByNumber(num)
			if !ok || ph.Completed || !ph.AllSubstepsComplete() {
				continue
			}
			if err := ph.Complete(now); err == nil {
				summary.PhasesCompleted = appendUniqueInt(summary.PhasesCompleted, ph.PhaseNumber)
				changed = true
			}
		}

		// Phase unlock check: a completed phase unlocks its successor.
		for i := range p.Phases {
			if !p.Phases[i].Completed {
				continue
			}
			next, ok := p.PhaseByNumber(p.Phases[i].PhaseNumber + 1)
			if ok && next.Locked {
				next.Unlock()
				summary.PhasesUnlocked = appendUniqueInt(summary.PhasesUnlocked, next.PhaseNumber)
				changed = true
			}
		}

		// Auto-advance: only when the completed phase's cursor has run off
		// the end of the substep list. A cursor still parked on a real
		// substep stays put even if the phase is complete, so out-of-order
		// completion commands cannot cause premature jumps.
		if cur, ok := p.CurrentPhase(); ok && cur.Completed &&
			!p.Position.AwaitingExpansion && p.Position.Substep > cur.LastSubstepNumber() {
			if next, ok := p.PhaseByNumber(p.Position.Phase + 1); ok && !next.Locked {
				p.Position = phaseEntryPosition(next)
				changed = true
			}
		}

		// Project completion: the final phase finishing completes the
		// project, provided every phase is done.
		if p.Status != roadmap.StatusCompleted && p.AllPhasesComplete() {
			p.Status = roadmap.StatusCompleted
			summary.ProjectCompleted = true
			changed = true
		}

		if !changed {
			return
		}
	}
}
