package handler

import (
	"net/http"

	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	catalog service.CatalogService
}

func NewProductHandler(catalog service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

func (h *ProductHandler) AddProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.AddProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	product, err := h.catalog.AddProduct(ctx, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "name": product.Name})
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.catalog.UpdateProduct(ctx, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *ProductHandler) RemoveProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProductRefRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.catalog.RemoveProduct(ctx, req.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "name": req.Name})
}

func (h *ProductHandler) AllProducts(c echo.Context) error {
	products, err := h.catalog.ListProducts(c.Request().Context())
	if err != nil {
		return err
	}
	if products == nil {
		products = []*model.Product{}
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) ToggleDropAvailable(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ToggleDropRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.catalog.ToggleDrop(ctx, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *ProductHandler) UpdateDropDates(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.DropDatesRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.catalog.UpdateDropDates(ctx, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *ProductHandler) ToggleAvailable(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ToggleAvailableRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.catalog.ToggleAvailable(ctx, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
