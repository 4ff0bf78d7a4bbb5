package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pepcraft/storefront/internal/api/metrics"
	"github.com/pepcraft/storefront/internal/core/ports"
)

type NewsletterHandler struct {
	service ports.NewsletterService
}

func NewNewsletterHandler(service ports.NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{service: service}
}

// Subscribe handles the footer signup form. A repeated email is reported as
// information, not as an error.
//
// @Summary      Subscribe to the newsletter
// @Tags         newsletter
// @Accept       json
// @Produce      json
// @Param        body  body      newsletterRequest  true  "Email to subscribe"
// @Success      200   {object}  newsletterResponse
// @Failure      422   {object}  errorResponse
// @Router       /newsletter [post]
func (h *NewsletterHandler) Subscribe(c echo.Context) error {
	var req newsletterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.NewsletterSignupsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.service.Subscribe(c.Request().Context(), req.Email)
	if err != nil {
		metrics.NewsletterSignupsTotal.WithLabelValues("invalid").Inc()
		return err
	}
	metrics.NewsletterSignupsTotal.WithLabelValues(string(res.Status)).Inc()
	return c.JSON(http.StatusOK, newsletterResponse{Status: string(res.Status), Message: res.Message})
}
