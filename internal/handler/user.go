package handler

import (
	"errors"
	"fmt"
	"net/http"

	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/middleware"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/repository"
	"asapshop-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	accounts service.AccountService
}

func NewUserHandler(accounts service.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

func (h *UserHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SignupRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.accounts.Signup(ctx, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Código de verificação enviado por email"})
}

func (h *UserHandler) Confirm(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}
	if req.Email == "" || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email e code obrigatórios")
	}

	resp, err := h.accounts.Confirm(ctx, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Login answers bad credentials with 200 and success=false; the storefront reads "errors".
func (h *UserHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	resp, err := h.accounts.Login(ctx, &req)
	switch {
	case errors.Is(err, service.ErrWrongEmail):
		return c.JSON(http.StatusOK, map[string]any{"success": false, "errors": "Email incorreto"})
	case errors.Is(err, service.ErrWrongPassword):
		return c.JSON(http.StatusOK, map[string]any{"success": false, "errors": "Senha incorreta"})
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	profile, err := h.accounts.GetUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "user": profile})
}

func (h *UserHandler) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	user, err := h.accounts.UpdateUser(ctx, middleware.UserID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Perfil atualizado com sucesso",
		"user": dto.UserSummary{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Image: user.Image,
		},
	})
}

func (h *UserHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CartLineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.accounts.AddToCart(ctx, middleware.UserID(c), &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Adicionado com sucesso"})
}

func (h *UserHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CartLineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.accounts.RemoveFromCart(ctx, middleware.UserID(c), &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Removido"})
}

func (h *UserHandler) GetCart(c echo.Context) error {
	cart, err := h.accounts.GetCart(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	if cart == nil {
		cart = map[string]dto.CartLine{}
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *UserHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.accounts.Checkout(ctx, middleware.UserID(c), &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *UserHandler) History(c echo.Context) error {
	history, err := h.accounts.History(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	if history == nil {
		history = []*model.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, history)
}

// admin

func (h *UserHandler) AllOrders(c echo.Context) error {
	orders, err := h.accounts.ListOrders(c.Request().Context())
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []*repository.HistoryRow{}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "pedidos": orders})
}

func (h *UserHandler) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.accounts.UpdateOrderStatus(ctx, c.Param("id"), req.Status); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *UserHandler) AllUsers(c echo.Context) error {
	users, err := h.accounts.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*model.User{}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "users": users})
}

func (h *UserHandler) ClearHistory(c echo.Context) error {
	user, err := h.accounts.ClearHistory(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Histórico de %s apagado com sucesso", user.Name),
	})
}

func (h *UserHandler) DeleteHistoryEntry(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.accounts.DeleteHistoryEntry(ctx, c.Param("userId"), c.Param("pedidoId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Pedido removido com sucesso"})
}
