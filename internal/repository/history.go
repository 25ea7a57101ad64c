package repository

import (
	"context"
	"time"

	"asapshop-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HistoryRow is a history entry joined with its owner, for admin listings.
type HistoryRow struct {
	ID        string                                 `json:"_id"`
	UserID    string                                 `json:"idUsuario"`
	UserName  string                                 `json:"nome"`
	UserEmail string                                 `json:"email"`
	Total     decimal.Decimal                        `json:"total"`
	Status    string                                 `json:"status"`
	Date      time.Time                              `json:"data"`
	Address   datatypes.JSONMap                      `json:"endereco"`
	Items     datatypes.JSONSlice[model.HistoryItem] `json:"itens"`
}

type HistoryRepository interface {
	Append(ctx context.Context, tx *gorm.DB, entry *model.HistoryEntry) error
	ListByUser(ctx context.Context, userID string) ([]*model.HistoryEntry, error)
	ListAll(ctx context.Context) ([]*HistoryRow, error)
	UpdateStatus(ctx context.Context, entryID, status string) error
	Delete(ctx context.Context, userID, entryID string) error
	Clear(ctx context.Context, userID string) (int64, error)
}

type historyRepoImpl struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepoImpl{
		db: db,
	}
}

// Append adds entry to the end of the user's history. It fails with gorm.ErrRecordNotFound
// when the user does not exist.
func (r *historyRepoImpl) Append(ctx context.Context, tx *gorm.DB, entry *model.HistoryEntry) error {
	db := conn(r.db, tx).WithContext(ctx)

	var count int64
	if err := db.Model(&model.User{}).Where("id = ?", entry.UserID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return db.Create(entry).Error
}

func (r *historyRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.HistoryEntry, error) {
	var entries []*model.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date, id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *historyRepoImpl) ListAll(ctx context.Context) ([]*HistoryRow, error) {
	var rows []*HistoryRow
	err := r.db.WithContext(ctx).
		Table("history_entries AS h").
		Select(`h.id, h.user_id, u.name AS user_name, u.email AS user_email,
			h.total, h.status, h.date, h.address, h.items`).
		Joins("JOIN users AS u ON u.id = h.user_id").
		Order("u.date, h.date, h.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *historyRepoImpl) UpdateStatus(ctx context.Context, entryID, status string) error {
	result := r.db.WithContext(ctx).Model(&model.HistoryEntry{}).
		Where("id = ?", entryID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.HistoryEntry{}).
			Where("id = ?", entryID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

func (r *historyRepoImpl) Delete(ctx context.Context, userID, entryID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		Delete(&model.HistoryEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *historyRepoImpl) Clear(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.HistoryEntry{})
	return result.RowsAffected, result.Error
}
