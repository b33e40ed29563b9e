package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

// Config holds generator configuration.
type Config struct {
	// BaseURL is the OpenAI-compatible endpoint. Leave empty for the OpenAI
	// default.
	BaseURL string

	// Model is the chat model name.
	Model string

	// APIKey authenticates against the endpoint.
	APIKey string

	// Timeout bounds each generation call. Expired calls fall back to the
	// static roadmap.
	Timeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Model:   "gpt-4o-mini",
		Timeout: 30 * time.Second,
	}
}

// Service generates roadmap content.
type Service struct {
	model   llms.Model
	timeout time.Duration
	logger  *zap.Logger
}

// NewService creates a generator backed by an OpenAI-compatible endpoint.
// With an empty API key the service runs in fallback-only mode: every
// request gets the static roadmap.
func NewService(cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	s := &Service{timeout: cfg.Timeout, logger: logger}

	if cfg.APIKey == "" {
		logger.Info("no LLM API key configured, roadmap generation uses static defaults")
		return s, nil
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	s.model = model
	return s, nil
}

// NewServiceWithModel creates a generator around an existing model. Used by
// tests to inject a fake.
func NewServiceWithModel(model llms.Model, timeout time.Duration, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Service{model: model, timeout: timeout, logger: logger}, nil
}

// phaseDraft mirrors the JSON shape requested from the model.
type phaseDraft struct {
	Title       string `json:"title"`
	Goal        string `json:"goal"`
	Description string `json:"description"`
}

// substepDraft mirrors the JSON shape requested from the model.
type substepDraft struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	ToolsNeeded      []string `json:"tools_needed"`
}

// GeneratePhases produces the ordered phase list for a goal. The first phase
// comes back unlocked, the rest locked; no phase is expanded.
func (s *Service) GeneratePhases(ctx context.Context, goal string) []roadmap.Phase {
	drafts := s.generatePhaseDrafts(ctx, goal)
	phases := make([]roadmap.Phase, len(drafts))
	for i, d := range drafts {
		phases[i] = roadmap.Phase{
			ID:          uuid.NewString(),
			PhaseNumber: i + 1,
			Title:       d.Title,
			Goal:        d.Goal,
			Description: d.Description,
			Locked:      i > 0,
		}
	}
	return phases
}

func (s *Service) generatePhaseDrafts(ctx context.Context, goal string) []phaseDraft {
	if s.model == nil {
		return defaultPhaseDrafts()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := phasesPrompt(goal)
	raw, err := llms.GenerateFromSinglePrompt(ctx, s.model, prompt)
	if err != nil {
		s.logger.Warn("phase generation failed, using static roadmap", zap.Error(err))
		return defaultPhaseDrafts()
	}

	var drafts []phaseDraft
	if err := json.Unmarshal([]byte(stripFences(raw)), &drafts); err != nil || len(drafts) == 0 {
		s.logger.Warn("phase generation returned unusable output, using static roadmap",
			zap.Error(err), zap.Int("raw_len", len(raw)))
		return defaultPhaseDrafts()
	}
	return drafts
}

// GenerateSubsteps produces substeps for one phase of a goal.
func (s *Service) GenerateSubsteps(ctx context.Context, goal string, phase roadmap.Phase) []roadmap.Substep {
	drafts := s.generateSubstepDrafts(ctx, goal, phase)
	substeps := make([]roadmap.Substep, len(drafts))
	for i, d := range drafts {
		minutes := d.EstimatedMinutes
		if minutes <= 0 {
			minutes = 30
		}
		substeps[i] = roadmap.Substep{
			ID:               uuid.NewString(),
			Number:           i + 1,
			Title:            d.Title,
			Description:      d.Description,
			EstimatedMinutes: minutes,
			ToolsNeeded:      d.ToolsNeeded,
		}
	}
	return substeps
}

func (s *Service) generateSubstepDrafts(ctx context.Context, goal string, phase roadmap.Phase) []substepDraft {
	if s.model == nil {
		return defaultSubstepDrafts(phase)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := substepsPrompt(goal, phase)
	raw, err := llms.GenerateFromSinglePrompt(ctx, s.model, prompt)
	if err != nil {
		s.logger.Warn("substep generation failed, using static substeps",
			zap.Int("phase", phase.PhaseNumber), zap.Error(err))
		return defaultSubstepDrafts(phase)
	}

	var drafts []substepDraft
	if err := json.Unmarshal([]byte(stripFences(raw)), &drafts); err != nil || len(drafts) == 0 {
		s.logger.Warn("substep generation returned unusable output, using static substeps",
			zap.Int("phase", phase.PhaseNumber), zap.Error(err))
		return defaultSubstepDrafts(phase)
	}
	return drafts
}

func phasesPrompt(goal string) string {
	return fmt.Sprintf(`You are planning a zero-to-one project roadmap.
Project goal: %s

Return a JSON array of 4-6 phases that take the project from initial vision to
launch. Each element: {"title": string, "goal": string, "description": string}.
Return only the JSON array.`, goal)
}

func substepsPrompt(goal string, phase roadmap.Phase) string {
	return fmt.Sprintf(`You are planning a zero-to-one project roadmap.
Project goal: %s
Current phase: %s (%s)

Return a JSON array of 3-5 concrete substeps for this phase. Each element:
{"title": string, "description": string, "estimated_minutes": int,
"tools_needed": [string]}. Return only the JSON array.`, goal, phase.Title, phase.Goal)
}

// stripFences removes a markdown code fence around a JSON payload, which
// chat models add even when told not to.
func stripFences(raw string) string {
	out := strings.TrimSpace(raw)
	if !strings.HasPrefix(out, "```") {
		return out
	}
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	return strings.TrimSpace(out)
}
