package httpapi

import (
	"time"

	"github.com/fyrsmithlabs/roadmapd/internal/detector"
	"github.com/fyrsmithlabs/roadmapd/internal/progress"
	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

// CreateProjectRequest is the body for POST /api/v1/projects.
type CreateProjectRequest struct {
	Goal   string `json:"goal"`
	UserID string `json:"user_id,omitempty"`
}

// ProgressRequest is the body for POST /api/v1/projects/:id/progress. The
// command field selects which update runs; the remaining fields feed that
// command.
type ProgressRequest struct {
	Command     string     `json:"command"`
	Phase       int        `json:"phase,omitempty"`
	Substep     int        `json:"substep,omitempty"`
	PhaseID     string     `json:"phase_id,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SetStatusRequest is the body for PATCH /api/v1/projects/:id/status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// DetectRequest is the body for POST /api/v1/projects/:id/detect.
type DetectRequest struct {
	Transcript []detector.Message `json:"transcript"`
}

// ProjectResponse is the envelope wrapping a project snapshot.
type ProjectResponse struct {
	OK      bool                    `json:"ok"`
	Project *roadmap.Project        `json:"project,omitempty"`
	Changes *progress.ChangeSummary `json:"changes,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// ProjectListResponse is the envelope for GET /api/v1/projects.
type ProjectListResponse struct {
	OK       bool               `json:"ok"`
	Projects []*roadmap.Project `json:"projects"`
}

// DetectResponse is the envelope for POST /api/v1/projects/:id/detect.
type DetectResponse struct {
	OK             bool                    `json:"ok"`
	Recommendation detector.Recommendation `json:"recommendation"`
}
