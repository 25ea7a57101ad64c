package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CouponPercent = "percentual"
	CouponFixed   = "fixo"
)

type Coupon struct {
	ID        uint            `gorm:"primaryKey" json:"_id"`
	Code      string          `gorm:"size:64;uniqueIndex;not null" json:"codigo"` // always upper case
	Kind      string          `gorm:"size:16;not null" json:"tipo"`               // percentual | fixo
	Value     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"valor"`
	Active    bool            `gorm:"not null" json:"ativo"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
