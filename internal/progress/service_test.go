package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
	"github.com/fyrsmithlabs/roadmapd/internal/store"
)

func newTestService(t *testing.T) (*service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	svc, err := NewService(st, zap.NewNop())
	require.NoError(t, err)
	return svc.(*service), st
}

// seedProject stores a project with the given phase layout. Every phase is
// expanded; only the first is unlocked.
func seedProject(t *testing.T, st *store.Memory, subsPerPhase ...int) *roadmap.Project {
	t.Helper()
	phases := make([]roadmap.Phase, len(subsPerPhase))
	for i, n := range subsPerPhase {
		ph := roadmap.Phase{
			ID:          fmt.Sprintf("phase-%d", i+1),
			PhaseNumber: i + 1,
			Title:       fmt.Sprintf("Phase %d", i+1),
			Locked:      i > 0,
		}
		subs := make([]roadmap.Substep, n)
		for j := range subs {
			subs[j] = roadmap.Substep{
				ID:               fmt.Sprintf("sub-%d-%d", i+1, j+1),
				Number:           j + 1,
				Title:            "step",
				EstimatedMinutes: 30,
			}
		}
		require.NoError(t, ph.Expand(subs))
		phases[i] = ph
	}
	p, err := roadmap.NewProject("Build a roguelike deckbuilder", "user-1", phases, time.Now())
	require.NoError(t, err)
	require.NoError(t, st.Create(context.Background(), p))
	return p
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project store is required")
}

func TestNewService_RequiresLogger(t *testing.T) {
	_, err := NewService(store.NewMemory(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
}

func TestApply_ProjectNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Apply(context.Background(), "missing", AdvanceSequential{})
	require.True(t, roadmap.IsNotFound(err))
}

func TestApply_NilCommand(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Apply(context.Background(), "p1", nil)
	require.Error(t, err)
}

func TestApply_CompleteCurrentSubstepAdvancesCursor(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 3, 2)

	got, summary, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: 1})
	require.NoError(t, err)

	assert.Equal(t, roadmap.AtSubstep(1, 2), got.Position)
	assert.True(t, summary.CursorMoved)
	assert.Equal(t, roadmap.AtSubstep(1, 1), summary.PreviousPosition)
	assert.Equal(t, []SubstepRef{{Phase: 1, Substep: 1}}, summary.SubstepsCompleted)
	assert.Empty(t, summary.PhasesCompleted)
	assert.False(t, summary.ProjectCompleted)

	// The completion landed in the ledger.
	require.Len(t, got.CompletionLog, 1)
	assert.Equal(t, 1, got.CompletionLog[0].Phase)
	assert.Equal(t, 1, got.CompletionLog[0].Substep)
}

func TestApply_CompleteLastSubstepCascades(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 2, 2)

	_, _, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: 1})
	require.NoError(t, err)

	got, summary, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: 2})
	require.NoError(t, err)

	ph1, _ := got.PhaseByNumber(1)
	ph2, _ := got.PhaseByNumber(2)
	assert.True(t, ph1.Completed)
	assert.False(t, ph2.Locked)
	assert.Equal(t, roadmap.AtSubstep(2, 1), got.Position)
	assert.Equal(t, []int{1}, summary.PhasesCompleted)
	assert.Equal(t, []int{2}, summary.PhasesUnlocked)
	assert.False(t, summary.ProjectCompleted)
	assert.Equal(t, roadmap.StatusActive, got.Status)
}

func TestApply_DuplicateCompletionRejected(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 3)

	_, _, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: 1})
	require.NoError(t, err)

	before, err := st.Get(context.Background(), p.ID)
	require.NoError(t, err)

	_, summary, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: 1})
	require.ErrorIs(t, err, roadmap.ErrAlreadyCompleted)
	assert.True(t, summary.Empty())

	// Nothing was persisted by the failed call.
	after, err := st.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.Position, after.Position)
}

func TestApply_OutOfOrderCompletionLeavesCursor(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 3)

	// Complete substep 2 while the cursor is on 1.
	got, summary, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: 2})
	require.NoError(t, err)
	assert.Equal(t, roadmap.AtSubstep(1, 1), got.Position)
	assert.False(t, summary.CursorMoved)

	// Completing substep 1 now skips the already-done 2 and lands on 3.
	got, _, err = svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: 1})
	require.NoError(t, err)
	assert.Equal(t, roadmap.AtSubstep(1, 3), got.Position)
}

func TestApply_FinalPhaseCompletesProject(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 1, 1)

	_, _, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: 1})
	require.NoError(t, err)

	got, summary, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 2, Substep: 1})
	require.NoError(t, err)

	assert.Equal(t, roadmap.StatusCompleted, got.Status)
	assert.True(t, summary.ProjectCompleted)
	assert.Equal(t, []int{2}, summary.PhasesCompleted)
	// No phase follows: the cursor parks one past the final substep.
	assert.Equal(t, roadmap.AtSubstep(2, 2), got.Position)
}

func TestApply_CascadeChainsThroughPrecompletedPhase(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 1, 1)

	// Administratively unlock phase 2 and finish its only substep while the
	// cursor is still in phase 1. Phase 2 stays un-completed because the
	// cursor never reached it.
	_, _, err := svc.Apply(context.Background(), p.ID, UnlockPhase{PhaseID: "phase-2"})
	require.NoError(t, err)
	got, _, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 2, Substep: 1})
	require.NoError(t, err)
	ph2, _ := got.PhaseByNumber(2)
	assert.False(t, ph2.Completed)

	// Finishing phase 1 advances the cursor into phase 2, which the cascade
	// then recognizes as fully done, completing the project in one call.
	got, summary, err := svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: 1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, summary.PhasesCompleted)
	assert.True(t, summary.ProjectCompleted)
	assert.Equal(t, roadmap.StatusCompleted, got.Status)
}

func TestApply_CompleteSubstepErrors(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 2, 2)
	ctx := context.Background()

	tests := []struct {
		name  string
		cmd   CompleteSubstep
		check func(t *testing.T, err error)
	}{
		{
			name: "missing phase",
			cmd:  CompleteSubstep{Phase: 9, Substep: 1},
			check: func(t *testing.T, err error) {
				require.True(t, roadmap.IsNotFound(err))
			},
		},
		{
			name: "missing substep",
			cmd:  CompleteSubstep{Phase: 1, Substep: 9},
			check: func(t *testing.T, err error) {
				require.True(t, roadmap.IsNotFound(err))
			},
		},
		{
			name: "locked phase",
			cmd:  CompleteSubstep{Phase: 2, Substep: 1},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, roadmap.ErrPhaseLocked)
			},
		},
		{
			name: "non-positive target",
			cmd:  CompleteSubstep{Phase: 0, Substep: 1},
			check: func(t *testing.T, err error) {
				var ve *roadmap.ValidationError
				require.ErrorAs(t, err, &ve)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Apply(ctx, p.ID, tt.cmd)
			tt.check(t, err)
		})
	}
}

func TestApply_AdvanceSequential(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 3)
	ctx := context.Background()

	got, summary, err := svc.Apply(ctx, p.ID, AdvanceSequential{})
	require.NoError(t, err)
	assert.Equal(t, roadmap.AtSubstep(1, 2), got.Position)
	assert.True(t, summary.CursorMoved)
	assert.Empty(t, summary.SubstepsCompleted)
}

func TestApply_AdvanceSequentialPastEndRejected(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 2)
	ctx := context.Background()

	_, _, err := svc.Apply(ctx, p.ID, AdvanceSequential{})
	require.NoError(t, err)

	// Substep 2 is still incomplete; stepping past it would strand the
	// cursor on a phase that can never finish behind it.
	_, _, err = svc.Apply(ctx, p.ID, AdvanceSequential{})
	require.True(t, roadmap.IsNotFound(err))
}

func TestApply_AdvanceToNextIncompleteSkipsCompleted(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 4)
	ctx := context.Background()

	_, _, err := svc.Apply(ctx, p.ID, CompleteSubstep{Phase: 1, Substep: 2})
	require.NoError(t, err)
	_, _, err = svc.Apply(ctx, p.ID, CompleteSubstep{Phase: 1, Substep: 3})
	require.NoError(t, err)

	got, _, err := svc.Apply(ctx, p.ID, AdvanceToNextIncomplete{})
	require.NoError(t, err)
	assert.Equal(t, roadmap.AtSubstep(1, 4), got.Position)
}

func TestApply_AdvancePhase(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 2, 2)
	ctx := context.Background()

	// Next phase locked.
	_, _, err := svc.Apply(ctx, p.ID, AdvancePhase{})
	require.ErrorIs(t, err, roadmap.ErrPhaseLocked)

	_, _, err = svc.Apply(ctx, p.ID, UnlockPhase{PhaseID: "phase-2"})
	require.NoError(t, err)

	got, _, err := svc.Apply(ctx, p.ID, AdvancePhase{})
	require.NoError(t, err)
	assert.Equal(t, roadmap.AtSubstep(2, 1), got.Position)

	// No phase 3.
	_, _, err = svc.Apply(ctx, p.ID, AdvancePhase{})
	require.True(t, roadmap.IsNotFound(err))
}

func TestApply_UnlockPhase(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 1, 1)
	ctx := context.Background()

	got, summary, err := svc.Apply(ctx, p.ID, UnlockPhase{PhaseID: "phase-2"})
	require.NoError(t, err)
	ph2, _ := got.PhaseByNumber(2)
	assert.False(t, ph2.Locked)
	assert.Equal(t, []int{2}, summary.PhasesUnlocked)

	// Unlocking an already-unlocked phase reports no change.
	_, summary, err = svc.Apply(ctx, p.ID, UnlockPhase{PhaseID: "phase-2"})
	require.NoError(t, err)
	assert.True(t, summary.Empty())

	_, _, err = svc.Apply(ctx, p.ID, UnlockPhase{PhaseID: "nope"})
	require.True(t, roadmap.IsNotFound(err))
}

func TestApply_ExpandPhase(t *testing.T) {
	svc, st := newTestService(t)

	// Phase 1 unexpanded: the cursor starts awaiting expansion.
	ph := roadmap.Phase{ID: "phase-1", PhaseNumber: 1, Title: "Vision"}
	p, err := roadmap.NewProject("Design a home automation hub", "user-1", []roadmap.Phase{ph}, time.Now())
	require.NoError(t, err)
	require.NoError(t, st.Create(context.Background(), p))
	require.True(t, p.Position.AwaitingExpansion)

	subs := []roadmap.Substep{
		{ID: "s1", Number: 1, Title: "Write the vision doc", EstimatedMinutes: 45},
		{ID: "s2", Number: 2, Title: "List must-have features", EstimatedMinutes: 30},
	}
	got, summary, err := svc.Apply(context.Background(), p.ID, ExpandPhase{Phase: 1, Substeps: subs})
	require.NoError(t, err)

	assert.Equal(t, roadmap.AtSubstep(1, 1), got.Position)
	assert.True(t, summary.CursorMoved)
	ph1, _ := got.PhaseByNumber(1)
	assert.True(t, ph1.Expanded)
	require.Len(t, ph1.Substeps, 2)

	// Second expansion is rejected.
	_, _, err = svc.Apply(context.Background(), p.ID, ExpandPhase{Phase: 1, Substeps: subs})
	require.ErrorIs(t, err, roadmap.ErrAlreadyExpanded)
}

func TestApply_RecordCompletion(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 2)
	ctx := context.Background()

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	got, summary, err := svc.Apply(ctx, p.ID, RecordCompletion{Phase: 1, Substep: 1, CompletedAt: at})
	require.NoError(t, err)
	assert.True(t, summary.LedgerAppended)
	require.Len(t, got.CompletionLog, 1)
	assert.Equal(t, at, got.CompletionLog[0].CompletedAt)

	// Duplicate pair is absorbed.
	_, summary, err = svc.Apply(ctx, p.ID, RecordCompletion{Phase: 1, Substep: 1})
	require.NoError(t, err)
	assert.False(t, summary.LedgerAppended)
	assert.True(t, summary.Empty())
}

func TestApply_RejectedOnTerminalStatus(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 2)
	ctx := context.Background()

	loaded, err := st.Get(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.SetStatus(roadmap.StatusArchived))
	require.NoError(t, st.Update(ctx, loaded, loaded.UpdatedAt))

	_, _, err = svc.Apply(ctx, p.ID, CompleteSubstep{Phase: 1, Substep: 1})
	require.ErrorIs(t, err, roadmap.ErrProjectNotActive)

	// Administrative commands stay allowed.
	_, _, err = svc.Apply(ctx, p.ID, RecordCompletion{Phase: 1, Substep: 1})
	require.NoError(t, err)
}

func TestApply_UpdatedAtMonotonic(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 3)
	ctx := context.Background()

	// Later than the seeded project's UpdatedAt.
	base := time.Now().Add(time.Hour).UTC()
	svc.now = func() time.Time { return base }
	got, _, err := svc.Apply(ctx, p.ID, CompleteSubstep{Phase: 1, Substep: 1})
	require.NoError(t, err)
	assert.Equal(t, base, got.UpdatedAt)

	// A clock that went backwards must not move UpdatedAt backwards.
	svc.now = func() time.Time { return base.Add(-time.Hour) }
	got, _, err = svc.Apply(ctx, p.ID, CompleteSubstep{Phase: 1, Substep: 2})
	require.NoError(t, err)
	assert.Equal(t, base, got.UpdatedAt)

	svc.now = func() time.Time { return base.Add(time.Minute) }
	got, _, err = svc.Apply(ctx, p.ID, CompleteSubstep{Phase: 1, Substep: 3})
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Minute), got.UpdatedAt)
}

func TestApply_ConcurrentUpdatesSerialized(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProject(t, st, 10)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Apply(context.Background(), p.ID, CompleteSubstep{Phase: 1, Substep: i + 1})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "substep %d", i+1)
	}

	got, err := st.Get(context.Background(), p.ID)
	require.NoError(t, err)
	ph, _ := got.PhaseByNumber(1)
	assert.True(t, ph.Completed)
	assert.Equal(t, roadmap.StatusCompleted, got.Status)
	assert.Len(t, got.CompletionLog, 10)
}
