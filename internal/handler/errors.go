package handler

import (
	"errors"
	"fmt"
	"net/http"

	"asapshop-backend/internal/client"
	"asapshop-backend/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

var sentinelStatus = []struct {
	err     error
	code    int
	message string
}{
	{service.ErrPaymentIDRequired, http.StatusBadRequest, "payment_id obrigatório"},
	{service.ErrUserNotFound, http.StatusNotFound, "Usuário não encontrado"},
	{service.ErrEmailTaken, http.StatusBadRequest, "Já existe um usuário com este email"},
	{service.ErrEmailInUse, http.StatusBadRequest, "Email já está em uso"},
	{service.ErrInvalidCode, http.StatusNotFound, "Código inválido ou usuário não encontrado"},
	{service.ErrCodeExpired, http.StatusBadRequest, "Código expirado"},
	{service.ErrProductNotFound, http.StatusNotFound, "Produto não encontrado"},
	{service.ErrCouponNotFound, http.StatusNotFound, "Cupom não encontrado"},
	{service.ErrCouponInvalid, http.StatusBadRequest, "Cupom inválido ou inativo"},
	{service.ErrHistoryEntryNotFound, http.StatusNotFound, "Pedido não encontrado"},
	{service.ErrForbidden, http.StatusForbidden, "Acesso negado. Apenas admins."},
}

// toHTTP resolves the status and client message for an error returned by a handler.
func toHTTP(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil && he.Message == nil {
			return toHTTP(he.Internal)
		}
		return he.Code, fmt.Sprint(he.Message)
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Message
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.code, s.message
		}
	}

	var gerr *client.GatewayError
	if errors.As(err, &gerr) {
		return http.StatusInternalServerError, gerr.Error()
	}
	if errors.Is(err, client.ErrGatewayNotConfigured) {
		return http.StatusInternalServerError, client.ErrGatewayNotConfigured.Error()
	}
	return http.StatusInternalServerError, "Erro interno do servidor"
}

// ErrorHandler renders every error as {"success": false, "error": "..."}.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := toHTTP(err)
		if errors.Is(err, echo.ErrNotFound) {
			message = fmt.Sprintf("Rota %s %s não encontrada", c.Request().Method, c.Request().URL.Path)
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, errorResponse{Success: false, Error: message})
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}

func badRequest() error {
	return echo.NewHTTPError(http.StatusBadRequest, "Requisição inválida")
}
