package repository

import (
	"context"

	"asapshop-backend/internal/model"

	"gorm.io/gorm"
)

type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) error
	List(ctx context.Context) ([]*model.Coupon, error)
	FindActiveByCode(ctx context.Context, code string) (*model.Coupon, error)
	SetActive(ctx context.Context, id uint, active bool) (*model.Coupon, error)
	Delete(ctx context.Context, id uint) error
}

type couponRepoImpl struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepoImpl{
		db: db,
	}
}

func (r *couponRepoImpl) Create(ctx context.Context, coupon *model.Coupon) error {
	return translate(r.db.WithContext(ctx).Create(coupon).Error)
}

func (r *couponRepoImpl) List(ctx context.Context) ([]*model.Coupon, error) {
	var coupons []*model.Coupon
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *couponRepoImpl) FindActiveByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepoImpl) SetActive(ctx context.Context, id uint, active bool) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&coupon, id).Error; err != nil {
			return err
		}
		return tx.Model(&coupon).Update("active", active).Error
	})
	if err != nil {
		return nil, err
	}
	coupon.Active = active
	return &coupon, nil
}

func (r *couponRepoImpl) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Coupon{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
