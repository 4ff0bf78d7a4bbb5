package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pepcraft/storefront/internal/core/ports"
)

// WorkspaceKey is the echo context key under which the client middleware
// stores the caller's workspace.
const WorkspaceKey = "workspace"

// ctxWorkspace extracts the workspace injected by the client middleware. Its
// absence means the route was mounted without that middleware.
func ctxWorkspace(c echo.Context) (ports.Workspace, error) {
	ws, ok := c.Get(WorkspaceKey).(ports.Workspace)
	if !ok || ws == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "missing client identity")
	}
	return ws, nil
}
