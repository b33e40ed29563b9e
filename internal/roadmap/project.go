package roadmap

import (
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status is the project lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusArchived  Status = "archived"
	StatusCompleted Status = "completed"
)

// Goal length bounds in runes.
const (
	minGoalLen = 5
	maxGoalLen = 500
)

// CompletionRecord is one entry in the project's completion ledger.
type CompletionRecord struct {
	Phase       int       `json:"phase"`
	Substep     int       `json:"substep"`
	CompletedAt time.Time `json:"completed_at"`
}

// Project is the roadmap aggregate: an ordered phase list, the cursor, and
// lifecycle status. Phases is the single authoritative phase list; nothing
// else in the snapshot duplicates it.
type Project struct {
	ID     string `json:"id"`
	Goal   string `json:"goal"`
	Status Status `json:"status"`
	UserID string `json:"user_id,omitempty"`

	Phases   []Phase  `json:"phases"`
	Position Position `json:"position"`

	// CompletionLog is an append-only ledger of substep completions, keyed
	// by (phase, substep). Duplicate appends are ignored.
	CompletionLog []CompletionRecord `json:"completion_log,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateGoal checks the 5–500 rune bound and that the goal contains at
// least one letter.
func ValidateGoal(goal string) error {
	n := utf8.RuneCountInString(goal)
	if n < minGoalLen {
		return &ValidationError{Field: "goal", Reason: "must be at least 5 characters"}
	}
	if n > maxGoalLen {
		return &ValidationError{Field: "goal", Reason: "must be at most 500 characters"}
	}
	for _, r := range goal {
		if unicode.IsLetter(r) {
			return nil
		}
	}
	return &ValidationError{Field: "goal", Reason: "must contain at least one letter"}
}

// NewProject creates an active project with the given goal and phases. The
// cursor starts on the first phase: at substep 1 if the phase is expanded,
// otherwise awaiting expansion. The first phase is unlocked.
func NewProject(goal, userID string, phases []Phase, now time.Time) (*Project, error) {
	if err := ValidateGoal(goal); err != nil {
		return nil, err
	}
	p := &Project{
		ID:        uuid.NewString(),
		Goal:      goal,
		Status:    StatusActive,
		UserID:    userID,
		Phases:    phases,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(phases) > 0 {
		phases[0].Unlock()
		if phases[0].Expanded && len(phases[0].Substeps) > 0 {
			p.Position = AtSubstep(phases[0].PhaseNumber, 1)
		} else {
			p.Position = PositionAwaitingExpansion(phases[0].PhaseNumber)
		}
	}
	return p, nil
}

// PhaseByNumber returns the phase with the given 1-based number.
func (p *Project) PhaseByNumber(n int) (*Phase, bool) {
	for i := range p.Phases {
		if p.Phases[i].PhaseNumber == n {
			return &p.Phases[i], true
		}
	}
	return nil, false
}

// PhaseByID returns the phase with the given opaque ID.
func (p *Project) PhaseByID(id string) (*Phase, bool) {
	for i := range p.Phases {
		if p.Phases[i].ID == id {
			return &p.Phases[i], true
		}
	}
	return nil, false
}

// CurrentPhase returns the phase the cursor occupies.
func (p *Project) CurrentPhase() (*Phase, bool) {
	return p.PhaseByNumber(p.Position.Phase)
}

// LastPhaseNumber returns the highest phase number, or 0 with no phases.
func (p *Project) LastPhaseNumber() int {
	last := 0
	for i := range p.Phases {
		if p.Phases[i].PhaseNumber > last {
			last = p.Phases[i].PhaseNumber
		}
	}
	return last
}

// AllPhasesComplete reports whether every phase is complete. False with no
// phases.
func (p *Project) AllPhasesComplete() bool {
	if len(p.Phases) == 0 {
		return false
	}
	for i := range p.Phases {
		if !p.Phases[i].Completed {
			return false
		}
	}
	return true
}

// RecordCompletion appends a ledger entry for (phase, substep). Returns
// false without appending when the pair is already present.
func (p *Project) RecordCompletion(phase, substep int, at time.Time) bool {
	for _, rec := range p.CompletionLog {
		if rec.Phase == phase && rec.Substep == substep {
			return false
		}
	}
	p.CompletionLog = append(p.CompletionLog, CompletionRecord{
		Phase:       phase,
		Substep:     substep,
		CompletedAt: at,
	})
	return true
}

// SetStatus applies an administrative status change. Active, paused, and
// archived are freely interchangeable; completed is set only by the state
// machine when the final phase completes, and a completed project accepts no
// further transitions.
func (p *Project) SetStatus(next Status) error {
	switch next {
	case StatusActive, StatusPaused, StatusArchived:
	default:
		return ErrStatusTransition
	}
	if p.Status == StatusCompleted {
		return ErrStatusTransition
	}
	p.Status = next
	return nil
}

// Clone returns a deep copy of the project snapshot.
func (p *Project) Clone() *Project {
	out := *p
	if p.Phases != nil {
		out.Phases = make([]Phase, len(p.Phases))
		for i := range p.Phases {
			out.Phases[i] = p.Phases[i].clone()
		}
	}
	if p.CompletionLog != nil {
		out.CompletionLog = append([]CompletionRecord(nil), p.CompletionLog...)
	}
	return &out
}
