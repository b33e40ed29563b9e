package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
	"github.com/fyrsmithlabs/roadmapd/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/roadmapd/internal/progress"

// Service applies update commands to project snapshots.
type Service interface {
	// Apply runs one command against the project as a single logical
	// transaction: load, direct effect, completion cascade, consistency
	// validation, persist. On any error nothing is persisted and the
	// returned summary is zero.
	Apply(ctx context.Context, projectID string, cmd Command) (*roadmap.Project, ChangeSummary, error)
}

// service implements Service.
type service struct {
	store  store.ProjectStore
	logger *zap.Logger
	locks  *keyedMutex
	now    func() time.Time

	// Telemetry
	tracer       trace.Tracer
	meter        metric.Meter
	applyCounter metric.Int64Counter
	applyDur     metric.Float64Histogram
}

// NewService creates the progress state machine service.
func NewService(projects store.ProjectStore, logger *zap.Logger) (Service, error) {
	if projects == nil {
		return nil, errors.New("project store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &service{
		store:  projects,
		logger: logger,
		locks:  newKeyedMutex(),
		now:    time.Now,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	var err error
	s.applyCounter, err = s.meter.Int64Counter(
		"roadmapd.progress.updates_total",
		metric.WithDescription("Progress updates applied, labeled by command and outcome."),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		logger.Warn("failed to create updates counter", zap.Error(err))
	}

	s.applyDur, err = s.meter.Float64Histogram(
		"roadmapd.progress.apply_duration_seconds",
		metric.WithDescription("End-to-end duration of Apply calls including load and persist."),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create apply duration histogram", zap.Error(err))
	}

	return s, nil
}

func (s *service) Apply(ctx context.Context, projectID string, cmd Command) (*roadmap.Project, ChangeSummary, error) {
	if cmd == nil {
		return nil, ChangeSummary{}, errors.New("command is required")
	}

	ctx, span := s.tracer.Start(ctx, "progress.Apply",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.String("command", cmd.Name()),
		))
	defer span.End()

	start := s.now()

	// One in-flight update per project within this process. Cross-process
	// writers are fenced by the store's UpdatedAt compare-and-swap.
	unlock := s.locks.Lock(projectID)
	defer unlock()

	p, summary, err := s.apply(ctx, projectID, cmd)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	if s.applyCounter != nil {
		s.applyCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", cmd.Name()),
			attribute.String("outcome", outcome),
		))
	}
	if s.applyDur != nil {
		s.applyDur.Record(ctx, s.now().Sub(start).Seconds(), metric.WithAttributes(
			attribute.String("command", cmd.Name()),
		))
	}

	return p, summary, err
}

func (s *service) apply(ctx context.Context, projectID string, cmd Command) (*roadmap.Project, ChangeSummary, error) {
	loaded, err := s.store.Get(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ChangeSummary{}, &roadmap.NotFoundError{Kind: "project", ProjectID: projectID}
	}
	if err != nil {
		return nil, ChangeSummary{}, fmt.Errorf("loading project %s: %w", projectID, err)
	}

	if err := commandAllowed(loaded, cmd); err != nil {
		return nil, ChangeSummary{}, err
	}

	now := s.now()
	working := loaded.Clone()
	summary := ChangeSummary{PreviousPosition: working.Position}

	if err := s.applyCommand(working, cmd, now, &summary); err != nil {
		return nil, ChangeSummary{}, err
	}

	runCascade(working, summary.PreviousPosition.Phase, now, &summary)

	warnings, err := ValidateConsistency(working)
	if err != nil {
		// A failed validation is a defect in the cascade or an external
		// mutation that bypassed the state machine. Never auto-healed.
		s.logger.Error("project state invalid after update",
			zap.String("project_id", projectID),
			zap.String("command", cmd.Name()),
			zap.Error(err))
		return nil, ChangeSummary{}, err
	}
	for _, w := range warnings {
		s.logger.Warn("project consistency warning",
			zap.String("project_id", projectID),
			zap.String("warning", w))
	}

	working.UpdatedAt = now
	if !now.After(loaded.UpdatedAt) {
		working.UpdatedAt = loaded.UpdatedAt
	}

	if err := s.store.Update(ctx, working, loaded.UpdatedAt); err != nil {
		return nil, ChangeSummary{}, fmt.Errorf("persisting project %s: %w", projectID, err)
	}

	summary.NewPosition = working.Position
	summary.CursorMoved = summary.NewPosition != summary.PreviousPosition

	s.logger.Debug("progress update applied",
		zap.String("project_id", projectID),
		zap.String("command", cmd.Name()),
		zap.String("position", working.Position.String()),
		zap.Bool("cursor_moved", summary.CursorMoved),
		zap.Ints("phases_completed", summary.PhasesCompleted),
		zap.Ints("phases_unlocked", summary.PhasesUnlocked))

	return working, summary, nil
}

// commandAllowed rejects progress mutation on soft-terminal projects.
// Administrative unlocks and ledger appends stay allowed.
func commandAllowed(p *roadmap.Project, cmd Command) error {
	switch cmd.(type) {
	case UnlockPhase, RecordCompletion:
		return nil
	}
	if p.Status == roadmap.StatusCompleted || p.Status == roadmap.StatusArchived {
		return fmt.Errorf("%w: status %s", roadmap.ErrProjectNotActive, p.Status)
	}
	return nil
}

// applyCommand applies the command's direct effect to the working copy.
// Cascade side effects are handled separately so every command shares them.
func (s *service) applyCommand(p *roadmap.Project, cmd Command, now time.Time, summary *ChangeSummary) error {
	switch c := cmd.(type) {
	case CompleteSubstep:
		return completeSubstep(p, c.Phase, c.Substep, now, summary)

	case AdvanceSequential:
		return advanceSequential(p)

	case AdvanceToNextIncomplete:
		return advanceToNextIncomplete(p)

	case AdvancePhase:
		return advancePhase(p)

	case UnlockPhase:
		ph, ok := p.PhaseByID(c.PhaseID)
		if !ok {
			return &roadmap.NotFoundError{Kind: "phase", ProjectID: p.ID, ID: c.PhaseID}
		}
		if ph.Locked {
			ph.Unlock()
			summary.PhasesUnlocked = appendUniqueInt(summary.PhasesUnlocked, ph.PhaseNumber)
		}
		return nil

	case ExpandPhase:
		return expandPhase(p, c)

	case RecordCompletion:
		if c.Phase < 1 || c.Substep < 1 {
			return &roadmap.ValidationError{Field: "completion", Reason: "phase and substep must be positive"}
		}
		at := c.CompletedAt
		if at.IsZero() {
			at = now
		}
		summary.LedgerAppended = p.RecordCompletion(c.Phase, c.Substep, at)
		return nil

	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}

func completeSubstep(p *roadmap.Project, phase, substep int, now time.Time, summary *ChangeSummary) error {
	if phase < 1 || substep < 1 {
		return &roadmap.ValidationError{Field: "target", Reason: "phase and substep must be positive"}
	}
	ph, ok := p.PhaseByNumber(phase)
	if !ok {
		return &roadmap.NotFoundError{Kind: "phase", ProjectID: p.ID, Phase: phase}
	}
	if ph.Locked {
		return fmt.Errorf("%w: phase %d", roadmap.ErrPhaseLocked, phase)
	}
	sub, ok := ph.SubstepByNumber(substep)
	if !ok {
		return &roadmap.NotFoundError{Kind: "substep", ProjectID: p.ID, Phase: phase, Substep: substep}
	}
	if err := sub.Complete(now); err != nil {
		return err
	}
	p.RecordCompletion(phase, substep, now)
	summary.SubstepsCompleted = append(summary.SubstepsCompleted, SubstepRef{Phase: phase, Substep: substep})

	// Completing the substep the cursor sits on moves the cursor forward to
	// the next incomplete substep. Completing any other substep leaves the
	// cursor alone; advancing then is the cascade's call, not ours.
	pos := p.Position
	if !pos.AwaitingExpansion && pos.Phase == phase && pos.Substep == substep {
		p.Position = nextIncompletePosition(ph, substep)
	}
	return nil
}

func advanceSequential(p *roadmap.Project) error {
	pos := p.Position
	if pos.AwaitingExpansion {
		return fmt.Errorf("%w: phase %d", roadmap.ErrNotExpanded, pos.Phase)
	}
	ph, ok := p.CurrentPhase()
	if !ok {
		return &roadmap.NotFoundError{Kind: "phase", ProjectID: p.ID, Phase: pos.Phase}
	}
	next := pos.Substep + 1
	if next > ph.LastSubstepNumber() && !ph.AllSubstepsComplete() {
		// Stepping off the end of a phase with unfinished substeps would
		// strand the cursor; the caller has to complete them first.
		return &roadmap.NotFoundError{Kind: "substep", ProjectID: p.ID, Phase: pos.Phase, Substep: next}
	}
	p.Position = roadmap.AtSubstep(pos.Phase, next)
	return nil
}

func advanceToNextIncomplete(p *roadmap.Project) error {
	pos := p.Position
	if pos.AwaitingExpansion {
		return fmt.Errorf("%w: phase %d", roadmap.ErrNotExpanded, pos.Phase)
	}
	ph, ok := p.CurrentPhase()
	if !ok {
		return &roadmap.NotFoundError{Kind: "phase", ProjectID: p.ID, Phase: pos.Phase}
	}
	p.Position = nextIncompletePosition(ph, pos.Substep)
	return nil
}

func expandPhase(p *roadmap.Project, c ExpandPhase) error {
	if c.Phase < 1 {
		return &roadmap.ValidationError{Field: "phase", Reason: "must be positive"}
	}
	if len(c.Substeps) == 0 {
		return &roadmap.ValidationError{Field: "substeps", Reason: "must not be empty"}
	}
	ph, ok := p.PhaseByNumber(c.Phase)
	if !ok {
		return &roadmap.NotFoundError{Kind: "phase", ProjectID: p.ID, Phase: c.Phase}
	}
	if err := ph.Expand(c.Substeps); err != nil {
		return err
	}
	// A cursor parked on this phase waiting for substeps lands on the first
	// one.
	if p.Position.AwaitingExpansion && p.Position.Phase == c.Phase {
		p.Position = roadmap.AtSubstep(c.Phase, 1)
	}
	return nil
}

func advancePhase(p *roadmap.Project) error {
	nextNum := p.Position.Phase + 1
	next, ok := p.PhaseByNumber(nextNum)
	if !ok {
		return &roadmap.NotFoundError{Kind: "phase", ProjectID: p.ID, Phase: nextNum}
	}
	if next.Locked {
		return fmt.Errorf("%w: phase %d", roadmap.ErrPhaseLocked, nextNum)
	}
	p.Position = phaseEntryPosition(next)
	return nil
}

// nextIncompletePosition returns the cursor for the first incomplete substep
// after n in the phase, or the transient one-past-the-end position when none
// remain. The cascade resolves the transient into a phase transition.
func nextIncompletePosition(ph *roadmap.Phase, n int) roadmap.Position {
	last := ph.LastSubstepNumber()
	for num := n + 1; num <= last; num++ {
		if sub, ok := ph.SubstepByNumber(num); ok && !sub.Completed {
			return roadmap.AtSubstep(ph.PhaseNumber, num)
		}
	}
	return roadmap.AtSubstep(ph.PhaseNumber, last+1)
}

// phaseEntryPosition returns the cursor for stepping into a phase.
func phaseEntryPosition(ph *roadmap.Phase) roadmap.Position {
	if ph.Expanded && len(ph.Substeps) > 0 {
		return roadmap.AtSubstep(ph.PhaseNumber, 1)
	}
	return roadmap.PositionAwaitingExpansion(ph.PhaseNumber)
}

func appendUniqueInt(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
