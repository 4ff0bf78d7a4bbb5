package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pepcraft/storefront/internal/api/handler"
	"github.com/pepcraft/storefront/internal/core/ports"
)

// HeaderClientID carries the browser client's identity. One client id maps to
// one workspace (session store + cart store).
const HeaderClientID = "X-Client-ID"

// WorkspaceResolver returns the workspace for a client id, creating it on
// first sight.
type WorkspaceResolver func(ctx context.Context, clientID string) ports.Workspace

// Client resolves the caller's workspace and injects it into the context.
// A missing or malformed client id is replaced with a fresh one, which is
// echoed back so the browser can keep it.
func Client(resolve WorkspaceResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderClientID)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			c.Response().Header().Set(HeaderClientID, id)

			c.Set(handler.WorkspaceKey, resolve(c.Request().Context(), id))
			return next(c)
		}
	}
}
