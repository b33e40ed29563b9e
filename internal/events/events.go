package events

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/roadmapd/internal/progress"
	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

// ProgressEvent is the wire shape of one progress notification.
type ProgressEvent struct {
	ProjectID        string                `json:"project_id"`
	PreviousPosition roadmap.Position      `json:"previous_position"`
	NewPosition      roadmap.Position      `json:"new_position"`
	SubstepsComplete []progress.SubstepRef `json:"substeps_completed,omitempty"`
	PhasesCompleted  []int                 `json:"phases_completed,omitempty"`
	PhasesUnlocked   []int                 `json:"phases_unlocked,omitempty"`
	ProjectCompleted bool                  `json:"project_completed,omitempty"`
	At               time.Time             `json:"at"`
}

// FromSummary builds the event for one applied update.
func FromSummary(projectID string, summary progress.ChangeSummary, at time.Time) ProgressEvent {
	return ProgressEvent{
		ProjectID:        projectID,
		PreviousPosition: summary.PreviousPosition,
		NewPosition:      summary.NewPosition,
		SubstepsComplete: summary.SubstepsCompleted,
		PhasesCompleted:  summary.PhasesCompleted,
		PhasesUnlocked:   summary.PhasesUnlocked,
		ProjectCompleted: summary.ProjectCompleted,
		At:               at,
	}
}

// Type returns the event type used as the subject suffix and SSE event name.
// The most significant change wins.
func (e ProgressEvent) Type() string {
	switch {
	case e.ProjectCompleted:
		return "project_completed"
	case len(e.PhasesCompleted) > 0:
		return "phase_completed"
	case len(e.SubstepsComplete) > 0:
		return "substep_completed"
	case len(e.PhasesUnlocked) > 0:
		return "phase_unlocked"
	case e.PreviousPosition != e.NewPosition:
		return "advanced"
	default:
		return "updated"
	}
}

// Publisher delivers progress events to a transport.
type Publisher interface {
	Publish(ctx context.Context, event ProgressEvent) error
	Close()
}

// Noop discards every event. Used when eventing is disabled and in tests.
type Noop struct{}

func (Noop) Publish(context.Context, ProgressEvent) error { return nil }
func (Noop) Close()                                       {}
