package handler

import (
	"errors"
	"net/http"
	"strconv"

	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type CouponHandler struct {
	coupons service.CouponService
}

func NewCouponHandler(coupons service.CouponService) *CouponHandler {
	return &CouponHandler{coupons: coupons}
}

func couponIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, service.ErrCouponNotFound
	}
	return uint(id), nil
}

func (h *CouponHandler) AddCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.AddCouponRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	coupon, err := h.coupons.AddCoupon(ctx, &req)
	if errors.Is(err, service.ErrCouponExists) {
		return c.JSON(http.StatusOK, errorResponse{Success: false, Error: "Cupom já existe"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "cupom": coupon})
}

func (h *CouponHandler) AllCoupons(c echo.Context) error {
	coupons, err := h.coupons.ListCoupons(c.Request().Context())
	if err != nil {
		return err
	}
	if coupons == nil {
		coupons = []*model.Coupon{}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "coupons": coupons})
}

func (h *CouponHandler) ValidateCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ValidateCouponRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	coupon, err := h.coupons.ValidateCoupon(ctx, req.Code)
	if errors.Is(err, service.ErrCouponInvalid) {
		return c.JSON(http.StatusOK, errorResponse{Success: false, Error: "Cupom inválido ou inativo"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"cupom": map[string]any{
			"codigo": coupon.Code,
			"tipo":   coupon.Kind,
			"valor":  coupon.Value,
		},
	})
}

func (h *CouponHandler) SetCouponStatus(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := couponIDParam(c)
	if err != nil {
		return err
	}
	var req dto.CouponStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	coupon, err := h.coupons.SetCouponStatus(ctx, id, req.Active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "cupom": coupon})
}

func (h *CouponHandler) RemoveCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := couponIDParam(c)
	if err != nil {
		return err
	}
	if err := h.coupons.RemoveCoupon(ctx, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Cupom removido com sucesso"})
}
