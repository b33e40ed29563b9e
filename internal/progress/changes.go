package progress

import "github.com/fyrsmithlabs/roadmapd/internal/roadmap"

// SubstepRef identifies a substep by phase and substep number.
type SubstepRef struct {
	Phase   int `json:"phase"`
	Substep int `json:"substep"`
}

// ChangeSummary is the structured diff produced by one Apply call. Callers
// drive notifications and logging from it without re-deriving state.
type ChangeSummary struct {
	PreviousPosition roadmap.Position `json:"previous_position"`
	NewPosition      roadmap.Position `json:"new_position"`

	// CursorMoved reports whether the positions above differ.
	CursorMoved bool `json:"cursor_moved"`

	// SubstepsCompleted lists substeps newly marked complete by this call.
	SubstepsCompleted []SubstepRef `json:"substeps_completed,omitempty"`

	// PhasesCompleted lists phase numbers the cascade marked complete.
	PhasesCompleted []int `json:"phases_completed,omitempty"`

	// PhasesUnlocked lists phase numbers the cascade unlocked.
	PhasesUnlocked []int `json:"phases_unlocked,omitempty"`

	// ProjectCompleted reports that the final phase completed and the
	// project status became completed.
	ProjectCompleted bool `json:"project_completed,omitempty"`

	// LedgerAppended reports that a RecordCompletion command added a new
	// ledger entry (false on an idempotent duplicate).
	LedgerAppended bool `json:"ledger_appended,omitempty"`
}

// Empty reports whether the call changed nothing observable.
func (c ChangeSummary) Empty() bool {
	return !c.CursorMoved && !c.ProjectCompleted && !c.LedgerAppended &&
		len(c.SubstepsCompleted) == 0 && len(c.PhasesCompleted) == 0 && len(c.PhasesUnlocked) == 0
}
