package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
	"github.com/fyrsmithlabs/roadmapd/internal/store"
)

// httpError maps service errors onto status codes. The mapping is
// deterministic per error tag so clients can rely on it.
func httpError(err error) *echo.HTTPError {
	var notFound *roadmap.NotFoundError
	var validation *roadmap.ValidationError
	var invalidState *roadmap.InvalidStateError

	switch {
	case errors.As(err, &notFound), errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, store.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.As(err, &validation),
		errors.Is(err, roadmap.ErrAlreadyCompleted),
		errors.Is(err, roadmap.ErrPhaseIncomplete),
		errors.Is(err, roadmap.ErrPhaseEmpty),
		errors.Is(err, roadmap.ErrAlreadyExpanded),
		errors.Is(err, roadmap.ErrNotExpanded),
		errors.Is(err, roadmap.ErrPhaseLocked),
		errors.Is(err, roadmap.ErrProjectNotActive),
		errors.Is(err, roadmap.ErrStatusTransition):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.As(err, &invalidState):
		// Invariant violation: a defect, not a client problem.
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
