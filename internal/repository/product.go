package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"asapshop-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const createRetries = 3

type ProductUpdate struct {
	Name     *string
	NewPrice *decimal.Decimal
	Stock    *int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, productID int64, upd ProductUpdate) error
	Delete(ctx context.Context, productID int64) error
	List(ctx context.Context) ([]*model.Product, error)
	FindByRef(ctx context.Context, ref string) (*model.Product, error)
	ExpireDrops(ctx context.Context, now time.Time) (int64, error)
	SetDropAvailability(ctx context.Context, dropID string, available bool) error
	UpdateDropDates(ctx context.Context, dropID string, start, end time.Time) error
	SetAvailable(ctx context.Context, productID int64, available bool) error
	DecrementStock(ctx context.Context, tx *gorm.DB, ref string, qty int) (bool, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

// Create assigns the next business id (max + 1) and inserts the product.
func (r *productRepoImpl) Create(ctx context.Context, product *model.Product) error {
	var err error
	for attempt := 0; attempt < createRetries; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxID int64
			if err := tx.Model(&model.Product{}).
				Select("COALESCE(MAX(product_id), 0)").
				Scan(&maxID).Error; err != nil {
				return err
			}
			product.ProductID = maxID + 1
			return tx.Create(product).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return translate(err)
}

func (r *productRepoImpl) Update(ctx context.Context, productID int64, upd ProductUpdate) error {
	fields := map[string]interface{}{}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.NewPrice != nil {
		fields["new_price"] = *upd.NewPrice
	}
	if upd.Stock != nil {
		fields["stock"] = *upd.Stock
	}
	if len(fields) == 0 {
		return r.mustExist(ctx, productID)
	}

	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("product_id = ?", productID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// mysql reports changed rows only
		return r.mustExist(ctx, productID)
	}
	return nil
}

func (r *productRepoImpl) Delete(ctx context.Context, productID int64) error {
	result := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&model.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepoImpl) List(ctx context.Context) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Order("product_id").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	return products, nil
}

// FindByRef resolves ref by numeric business id first, then by storage id.
func (r *productRepoImpl) FindByRef(ctx context.Context, ref string) (*model.Product, error) {
	var product model.Product
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		err := r.db.WithContext(ctx).Where("product_id = ?", n).First(&product).Error
		if err == nil {
			return &product, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}

	err := r.db.WithContext(ctx).Where("id = ?", ref).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ExpireDrops marks available products whose drop already ended as unavailable.
func (r *productRepoImpl) ExpireDrops(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("drop_end < ? AND available = ?", now.UTC(), true).
		Update("available", false)
	return result.RowsAffected, result.Error
}

// SetDropAvailability toggles every product of a drop. Disabling a drop also zeroes its stock.
func (r *productRepoImpl) SetDropAvailability(ctx context.Context, dropID string, available bool) error {
	fields := map[string]interface{}{"available": available}
	if !available {
		fields["stock"] = 0
	}
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("drop_id = ?", dropID).
		Updates(fields).Error
}

func (r *productRepoImpl) UpdateDropDates(ctx context.Context, dropID string, start, end time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("drop_id = ?", dropID).
		Updates(map[string]interface{}{
			"drop_start": start.UTC(),
			"drop_end":   end.UTC(),
		}).Error
}

func (r *productRepoImpl) SetAvailable(ctx context.Context, productID int64, available bool) error {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("product_id = ?", productID).
		Update("available", available)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.mustExist(ctx, productID)
	}
	return nil
}

// DecrementStock subtracts qty from the product's stock in one conditional UPDATE that only
// matches while stock >= qty. ref resolves by numeric business id first and falls back to the
// storage id when that matches nothing. It reports whether a row was changed.
func (r *productRepoImpl) DecrementStock(ctx context.Context, tx *gorm.DB, ref string, qty int) (bool, error) {
	if qty <= 0 || ref == "" {
		return false, nil
	}
	db := conn(r.db, tx).WithContext(ctx)

	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		result := db.Model(&model.Product{}).
			Where("product_id = ? AND stock >= ?", n, qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", qty))
		if result.Error != nil {
			return false, result.Error
		}
		if result.RowsAffected > 0 {
			return true, nil
		}
	}

	result := db.Model(&model.Product{}).
		Where("id = ? AND stock >= ?", ref, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	return result.RowsAffected > 0, result.Error
}

func (r *productRepoImpl) mustExist(ctx context.Context, productID int64) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("product_id = ?", productID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
