package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/middleware"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	payments service.PaymentService
	log      *zap.Logger
}

func NewPaymentHandler(payments service.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		log:      log,
	}
}

func (h *PaymentHandler) CreatePreference(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreatePreferenceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	resp, err := h.payments.CreatePreference(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) PayWithCard(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CardPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	resp, err := h.payments.PayWithCard(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) ProcessImmediate(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProcessOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	resp, err := h.payments.ProcessImmediate(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) CreatePixPayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PixPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	resp, err := h.payments.CreatePixPayment(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) CreatePixPreference(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PixPreferenceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	resp, err := h.payments.CreatePixPreference(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) PaymentStatus(c echo.Context) error {
	resp, err := h.payments.PaymentStatus(c.Request().Context(), c.Param("paymentId"), false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// PixStatus also returns the full gateway payment so the storefront can redraw the QR code.
func (h *PaymentHandler) PixStatus(c echo.Context) error {
	resp, err := h.payments.PaymentStatus(c.Request().Context(), c.Param("paymentId"), true)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Webhook always acknowledges with 200. The outcome is kept in the webhook event log.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	var body dto.WebhookNotification
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.log.Warn("read webhook body", zap.Error(err))
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			h.log.Debug("webhook body is not json", zap.Error(err))
		}
	}

	topic := firstNonEmpty(c.QueryParam("type"), c.QueryParam("topic"), body.Type, body.Topic)
	resourceID := firstNonEmpty(c.QueryParam("data.id"), c.QueryParam("id"), body.Data.ID.String())

	event := h.payments.HandleWebhook(ctx, topic, resourceID)
	return c.JSON(http.StatusOK, map[string]any{"received": true, "outcome": event.Outcome})
}

func (h *PaymentHandler) WebhookEvents(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	events, err := h.payments.ListWebhookEvents(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*model.WebhookEvent{}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "events": events})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
