package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultCategory = "outros"

type CatalogService interface {
	AddProduct(ctx context.Context, req *dto.AddProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, req *dto.UpdateProductRequest) error
	RemoveProduct(ctx context.Context, productID int64) error
	ListProducts(ctx context.Context) ([]*model.Product, error)
	ToggleDrop(ctx context.Context, req *dto.ToggleDropRequest) error
	UpdateDropDates(ctx context.Context, req *dto.DropDatesRequest) error
	ToggleAvailable(ctx context.Context, req *dto.ToggleAvailableRequest) error
}

type catalogServiceImpl struct {
	productRepo repository.ProductRepository
	log         *zap.Logger
	now         func() time.Time
}

func NewCatalogService(productRepo repository.ProductRepository, log *zap.Logger) CatalogService {
	return &catalogServiceImpl{
		productRepo: productRepo,
		log:         log,
		now:         time.Now,
	}
}

func (s *catalogServiceImpl) AddProduct(ctx context.Context, req *dto.AddProductRequest) (*model.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("Nome do produto obrigatório")
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, invalid("Estoque não pode ser negativo")
	}

	now := s.now()
	product := &model.Product{
		Name:        name,
		Images:      orEmpty(req.Images),
		Category:    req.Category,
		NewPrice:    decimalOrZero(req.NewPrice),
		OldPrice:    decimalOrZero(req.OldPrice),
		DropID:      req.DropID,
		DropStart:   now,
		DropEnd:     now,
		Available:   true,
		Sizes:       orEmpty(req.Sizes),
		Colors:      orEmpty(req.Colors),
		Tags:        orEmpty(req.Tags),
		Description: req.Description,
		IsPromo:     req.IsPromo,
		PromoText:   req.PromoText,
	}
	if product.Category == "" {
		product.Category = defaultCategory
	}
	if product.DropID == "" {
		product.DropID = strconv.FormatInt(now.UnixMilli(), 10)
	}
	if req.DropStart != nil && !req.DropStart.IsZero() {
		product.DropStart = req.DropStart.Time
	}
	if req.DropEnd != nil && !req.DropEnd.IsZero() {
		product.DropEnd = req.DropEnd.Time
	}
	if req.Available != nil {
		product.Available = *req.Available
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.log.Info("product added", zap.Int64("product_id", product.ProductID), zap.String("name", product.Name))
	return product, nil
}

func (s *catalogServiceImpl) UpdateProduct(ctx context.Context, req *dto.UpdateProductRequest) error {
	if req.Stock != nil && *req.Stock < 0 {
		return invalid("Estoque não pode ser negativo")
	}
	err := s.productRepo.Update(ctx, req.ID, repository.ProductUpdate{
		Name:     req.Name,
		NewPrice: req.NewPrice,
		Stock:    req.Stock,
	})
	if repository.IsNotFound(err) {
		return ErrProductNotFound
	}
	return err
}

func (s *catalogServiceImpl) RemoveProduct(ctx context.Context, productID int64) error {
	err := s.productRepo.Delete(ctx, productID)
	if repository.IsNotFound(err) {
		return ErrProductNotFound
	}
	return err
}

// ListProducts closes drops whose window has ended before listing.
func (s *catalogServiceImpl) ListProducts(ctx context.Context) ([]*model.Product, error) {
	expired, err := s.productRepo.ExpireDrops(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("expire drops: %w", err)
	}
	if expired > 0 {
		s.log.Info("expired drops closed", zap.Int64("products", expired))
	}
	return s.productRepo.List(ctx)
}

func (s *catalogServiceImpl) ToggleDrop(ctx context.Context, req *dto.ToggleDropRequest) error {
	if req.DropID == "" {
		return invalid("drop_id obrigatório")
	}
	return s.productRepo.SetDropAvailability(ctx, req.DropID, req.Available)
}

func (s *catalogServiceImpl) UpdateDropDates(ctx context.Context, req *dto.DropDatesRequest) error {
	if req.DropID == "" {
		return invalid("drop_id obrigatório")
	}
	if req.DropStart.IsZero() || req.DropEnd.IsZero() {
		return invalid("Datas do drop obrigatórias")
	}
	return s.productRepo.UpdateDropDates(ctx, req.DropID, req.DropStart.Time, req.DropEnd.Time)
}

func (s *catalogServiceImpl) ToggleAvailable(ctx context.Context, req *dto.ToggleAvailableRequest) error {
	err := s.productRepo.SetAvailable(ctx, req.ID, req.Available)
	if repository.IsNotFound(err) {
		return ErrProductNotFound
	}
	return err
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
