package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roadmapd/internal/detector"
	"github.com/fyrsmithlabs/roadmapd/internal/events"
	"github.com/fyrsmithlabs/roadmapd/internal/logging"
	"github.com/fyrsmithlabs/roadmapd/internal/progress"
	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

func (s *Server) handleCreateProject(c echo.Context) error {
	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := roadmap.ValidateGoal(req.Goal); err != nil {
		return httpError(err)
	}

	ctx := c.Request().Context()

	phases := s.generator.GeneratePhases(ctx, req.Goal)
	// The first phase ships ready to work on; later phases expand when the
	// user reaches them.
	if len(phases) > 0 {
		substeps := s.generator.GenerateSubsteps(ctx, req.Goal, phases[0])
		if err := phases[0].Expand(substeps); err != nil {
			return httpError(err)
		}
	}

	project, err := roadmap.NewProject(req.Goal, req.UserID, phases, time.Now())
	if err != nil {
		return httpError(err)
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return httpError(err)
	}

	s.logger.Info("project created",
		append(logging.ContextFields(ctx),
			zap.String("project_id", project.ID),
			zap.Int("phases", len(project.Phases)))...)

	return c.JSON(http.StatusCreated, ProjectResponse{OK: true, Project: project})
}

func (s *Server) handleGetProject(c echo.Context) error {
	project, err := s.projects.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ProjectResponse{OK: true, Project: project})
}

func (s *Server) handleListProjects(c echo.Context) error {
	projects, err := s.projects.List(c.Request().Context(), c.QueryParam("user_id"))
	if err != nil {
		return httpError(err)
	}
	if projects == nil {
		projects = []*roadmap.Project{}
	}
	return c.JSON(http.StatusOK, ProjectListResponse{OK: true, Projects: projects})
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	if err := s.projects.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetStatus(c echo.Context) error {
	var req SetStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	project, err := s.projects.Get(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	loadedAt := project.UpdatedAt
	if err := project.SetStatus(roadmap.Status(req.Status)); err != nil {
		return httpError(err)
	}
	project.UpdatedAt = time.Now()
	if err := s.projects.Update(ctx, project, loadedAt); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ProjectResponse{OK: true, Project: project})
}

func (s *Server) handleProgress(c echo.Context) error {
	var req ProgressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cmd, err := commandFromRequest(req)
	if err != nil {
		return httpError(err)
	}

	return s.applyAndRespond(c, cmd)
}

func (s *Server) handleExpandPhase(c echo.Context) error {
	ctx := c.Request().Context()
	projectID := c.Param("id")

	var phaseNum int
	if _, err := fmt.Sscanf(c.Param("phase"), "%d", &phaseNum); err != nil || phaseNum < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid phase number")
	}

	// Generation needs the project goal and phase description, and the
	// generated substeps ride in on the command. The state machine still
	// owns the mutation, including the already-expanded check.
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return httpError(err)
	}
	phase, ok := project.PhaseByNumber(phaseNum)
	if !ok {
		return httpError(&roadmap.NotFoundError{Kind: "phase", ProjectID: projectID, Phase: phaseNum})
	}
	if phase.Expanded {
		return httpError(roadmap.ErrAlreadyExpanded)
	}

	substeps := s.generator.GenerateSubsteps(ctx, project.Goal, *phase)
	return s.applyAndRespond(c, progress.ExpandPhase{Phase: phaseNum, Substeps: substeps})
}

// applyAndRespond runs one progress command and publishes the resulting
// event before answering.
func (s *Server) applyAndRespond(c echo.Context, cmd progress.Command) error {
	ctx := c.Request().Context()
	projectID := c.Param("id")

	project, summary, err := s.progress.Apply(ctx, projectID, cmd)
	if err != nil {
		return httpError(err)
	}

	if !summary.Empty() {
		event := events.FromSummary(projectID, summary, time.Now())
		if err := s.publisher.Publish(ctx, event); err != nil {
			// Notification loss is not worth failing an applied update.
			s.logger.Warn("failed to publish progress event",
				zap.String("project_id", projectID), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, ProjectResponse{OK: true, Project: project, Changes: &summary})
}

func (s *Server) handleDetect(c echo.Context) error {
	var req DetectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	project, err := s.projects.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	recommendation := detector.None
	if phase, ok := project.CurrentPhase(); ok && !project.Position.AwaitingExpansion {
		if substep, ok := phase.SubstepByNumber(project.Position.Substep); ok {
			recommendation = s.detector.Detect(req.Transcript, *substep)
		}
	}

	return c.JSON(http.StatusOK, DetectResponse{OK: true, Recommendation: recommendation})
}

// commandFromRequest translates the wire request into a progress command.
func commandFromRequest(req ProgressRequest) (progress.Command, error) {
	switch req.Command {
	case "complete_substep":
		return progress.CompleteSubstep{Phase: req.Phase, Substep: req.Substep}, nil
	case "advance_sequential":
		return progress.AdvanceSequential{}, nil
	case "advance_to_next_incomplete":
		return progress.AdvanceToNextIncomplete{}, nil
	case "advance_phase":
		return progress.AdvancePhase{}, nil
	case "unlock_phase":
		if req.PhaseID == "" {
			return nil, &roadmap.ValidationError{Field: "phase_id", Reason: "required for unlock_phase"}
		}
		return progress.UnlockPhase{PhaseID: req.PhaseID}, nil
	case "record_completion":
		cmd := progress.RecordCompletion{Phase: req.Phase, Substep: req.Substep}
		if req.CompletedAt != nil {
			cmd.CompletedAt = *req.CompletedAt
		}
		return cmd, nil
	default:
		return nil, &roadmap.ValidationError{Field: "command", Reason: "unknown command " + req.Command}
	}
}
