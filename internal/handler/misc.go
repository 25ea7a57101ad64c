package handler

import (
	"net/http"

	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ContactHandler struct {
	notifier service.Notifier
	log      *zap.Logger
}

func NewContactHandler(notifier service.Notifier, log *zap.Logger) *ContactHandler {
	return &ContactHandler{
		notifier: notifier,
		log:      log,
	}
}

// SendEmail forwards the site contact form. Delivery failures are reported in the body, not the status.
func (h *ContactHandler) SendEmail(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ContactRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	err := h.notifier.SendContact(ctx, service.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		h.log.Warn("contact mail failed", zap.String("from", req.Email), zap.Error(err))
		return c.JSON(http.StatusOK, map[string]any{"success": false})
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// CheckoutRedirect sends gateway back_urls to the storefront checkout page, keeping the query.
func CheckoutRedirect(frontend, dest string) echo.HandlerFunc {
	return func(c echo.Context) error {
		target := frontend + "/checkout/" + dest
		if q := c.QueryString(); q != "" {
			target += "?" + q
		}
		return c.Redirect(http.StatusFound, target)
	}
}
