package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/ports"
)

const sessionContextKey = "session"

// SetSession stores the authenticated session on the request context
func SetSession(c echo.Context, session *ports.Session) {
	c.Set(sessionContextKey, session)
}

// getOwnerIDFromContext returns the authenticated owner, or uuid.Nil when no session is set
func getOwnerIDFromContext(c echo.Context) uuid.UUID {
	session, ok := c.Get(sessionContextKey).(*ports.Session)
	if !ok || session == nil {
		return uuid.Nil
	}
	return session.OwnerID
}

// parseTaskID reads the :id path parameter
func parseTaskID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}
	return id, nil
}

// mapError translates service errors into HTTP errors
func mapError(err error) error {
	var (
		validationErr *entities.ValidationError
		transitionErr *entities.TransitionError
		backendErr    *entities.BackendError
	)

	switch {
	case errors.As(err, &validationErr):
		return echo.NewHTTPError(http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, entities.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Task not found")
	case errors.As(err, &transitionErr):
		return echo.NewHTTPError(http.StatusConflict, transitionErr.Error())
	case errors.Is(err, entities.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	case errors.As(err, &backendErr):
		return echo.NewHTTPError(http.StatusBadGateway, "Task store unavailable").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

// ErrorResponse is the body written for every failed request
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
