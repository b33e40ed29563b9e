package progress

import (
	"time"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

// Command is one update to apply to a project snapshot. Exactly one concrete
// command type is passed per Apply call.
type Command interface {
	// Name returns a stable identifier used in logs, traces, and events.
	Name() string
}

// CompleteSubstep marks a specific substep complete regardless of where the
// cursor is. Phase and Substep are 1-based.
type CompleteSubstep struct {
	Phase   int
	Substep int
}

func (CompleteSubstep) Name() string { return "complete_substep" }

// AdvanceSequential moves the cursor to the next substep number within the
// current phase, without skipping. Used by manual/UI-driven completion.
type AdvanceSequential struct{}

func (AdvanceSequential) Name() string { return "advance_sequential" }

// AdvanceToNextIncomplete moves the cursor forward to the next substep past
// the current one that is not yet complete, skipping over substeps completed
// out of order. Used by AI-driven flows.
type AdvanceToNextIncomplete struct{}

func (AdvanceToNextIncomplete) Name() string { return "advance_to_next_incomplete" }

// AdvancePhase force-advances the cursor to the next phase if it is
// unlocked.
type AdvancePhase struct{}

func (AdvancePhase) Name() string { return "advance_phase" }

// UnlockPhase force-unlocks a phase regardless of completion state. Used by
// administrative override flows.
type UnlockPhase struct {
	PhaseID string
}

func (UnlockPhase) Name() string { return "unlock_phase" }

// ExpandPhase attaches freshly generated substeps to a phase. Generation
// itself happens before the command is built; the state machine only owns
// the mutation. Fails when the phase was already expanded.
type ExpandPhase struct {
	Phase    int
	Substeps []roadmap.Substep
}

func (ExpandPhase) Name() string { return "expand_phase" }

// RecordCompletion appends an entry to the project's completion ledger.
// Idempotent: a duplicate (phase, substep) pair is silently ignored.
type RecordCompletion struct {
	Phase       int
	Substep     int
	CompletedAt time.Time
}

func (RecordCompletion) Name() string { return "record_completion" }
