package repository

import (
	"context"
	"time"

	"asapshop-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	Increment(ctx context.Context, item *model.CartItem) error
	Decrement(ctx context.Context, userID, lineKey string) error
	Get(ctx context.Context, userID string) ([]*model.CartItem, error)
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{
		db: db,
	}
}

// Increment adds one unit of the line, creating it when absent.
func (r *cartRepoImpl) Increment(ctx context.Context, item *model.CartItem) error {
	item.Qty = 1
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "line_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"qty":        gorm.Expr("cart_items.qty + ?", 1),
			"updated_at": time.Now(),
		}),
	}).Create(item).Error
}

// Decrement removes one unit of the line and drops the line when it was the last one.
func (r *cartRepoImpl) Decrement(ctx context.Context, userID, lineKey string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.CartItem{}).
			Where("user_id = ? AND line_key = ? AND qty > 1", userID, lineKey).
			Updates(map[string]interface{}{
				"qty":        gorm.Expr("qty - 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		return tx.Where("user_id = ? AND line_key = ?", userID, lineKey).
			Delete(&model.CartItem{}).Error
	})
}

func (r *cartRepoImpl) Get(ctx context.Context, userID string) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}
