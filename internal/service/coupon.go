package service

import (
	"context"
	"errors"
	"strings"

	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/repository"

	"go.uber.org/zap"
)

type CouponService interface {
	AddCoupon(ctx context.Context, req *dto.AddCouponRequest) (*model.Coupon, error)
	ListCoupons(ctx context.Context) ([]*model.Coupon, error)
	ValidateCoupon(ctx context.Context, code string) (*model.Coupon, error)
	SetCouponStatus(ctx context.Context, id uint, active bool) (*model.Coupon, error)
	RemoveCoupon(ctx context.Context, id uint) error
}

type couponServiceImpl struct {
	couponRepo repository.CouponRepository
	log        *zap.Logger
}

func NewCouponService(couponRepo repository.CouponRepository, log *zap.Logger) CouponService {
	return &couponServiceImpl{
		couponRepo: couponRepo,
		log:        log,
	}
}

// normalizeCouponKind maps the spellings the admin panel has used over time.
func normalizeCouponKind(kind string) (string, bool) {
	switch kind {
	case model.CouponPercent, "porcentagem":
		return model.CouponPercent, true
	case model.CouponFixed, "valor fixo", "valorFixo":
		return model.CouponFixed, true
	}
	return "", false
}

func (s *couponServiceImpl) AddCoupon(ctx context.Context, req *dto.AddCouponRequest) (*model.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" || req.Kind == "" || req.Value == nil {
		return nil, invalid("Campos obrigatórios ausentes")
	}
	kind, ok := normalizeCouponKind(req.Kind)
	if !ok {
		return nil, invalid(`Tipo inválido. Use "percentual" ou "fixo"`)
	}
	if req.Value.IsNegative() {
		return nil, invalid("Valor do cupom não pode ser negativo")
	}

	coupon := &model.Coupon{Code: code, Kind: kind, Value: *req.Value, Active: true}
	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCouponExists
		}
		return nil, err
	}
	s.log.Info("coupon added", zap.String("code", code), zap.String("kind", kind))
	return coupon, nil
}

func (s *couponServiceImpl) ListCoupons(ctx context.Context) ([]*model.Coupon, error) {
	return s.couponRepo.List(ctx)
}

func (s *couponServiceImpl) ValidateCoupon(ctx context.Context, code string) (*model.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, invalid("Código não fornecido")
	}
	coupon, err := s.couponRepo.FindActiveByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCouponInvalid
		}
		return nil, err
	}
	return coupon, nil
}

func (s *couponServiceImpl) SetCouponStatus(ctx context.Context, id uint, active bool) (*model.Coupon, error) {
	coupon, err := s.couponRepo.SetActive(ctx, id, active)
	if repository.IsNotFound(err) {
		return nil, ErrCouponNotFound
	}
	return coupon, err
}

func (s *couponServiceImpl) RemoveCoupon(ctx context.Context, id uint) error {
	err := s.couponRepo.Delete(ctx, id)
	if repository.IsNotFound(err) {
		return ErrCouponNotFound
	}
	return err
}
