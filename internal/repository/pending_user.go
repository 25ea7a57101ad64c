package repository

import (
	"context"
	"time"

	"asapshop-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PendingUserRepository interface {
	Upsert(ctx context.Context, pending *model.PendingUser) error
	FindByEmailAndCode(ctx context.Context, email, code string) (*model.PendingUser, error)
	Delete(ctx context.Context, id uint) error
}

type pendingUserRepoImpl struct {
	db *gorm.DB
}

func NewPendingUserRepository(db *gorm.DB) PendingUserRepository {
	return &pendingUserRepoImpl{
		db: db,
	}
}

// Upsert stores a signup keyed by e-mail, replacing any earlier attempt. An empty image keeps
// the stored one.
func (r *pendingUserRepoImpl) Upsert(ctx context.Context, pending *model.PendingUser) error {
	updates := map[string]interface{}{
		"name":       pending.Name,
		"password":   pending.Password,
		"code":       pending.Code,
		"expires_at": pending.ExpiresAt,
		"updated_at": time.Now(),
	}
	if pending.Image != "" {
		updates["image"] = pending.Image
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(pending).Error
}

func (r *pendingUserRepoImpl) FindByEmailAndCode(ctx context.Context, email, code string) (*model.PendingUser, error) {
	var pending model.PendingUser
	err := r.db.WithContext(ctx).
		Where("email = ? AND code = ?", email, code).
		First(&pending).Error
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *pendingUserRepoImpl) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.PendingUser{}, id).Error
}
