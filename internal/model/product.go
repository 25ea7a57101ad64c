package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product is a catalog record. ProductID is the numeric business id shown to the storefront,
// ID is the storage-native identifier.
type Product struct {
	ID          string                      `gorm:"primaryKey;size:36;not null" json:"_id"`
	ProductID   int64                       `gorm:"uniqueIndex;not null" json:"id"`
	Name        string                      `gorm:"size:255;not null" json:"name"`
	Images      datatypes.JSONSlice[string] `json:"images"`
	Category    string                      `gorm:"size:64;index;not null" json:"category"`
	NewPrice    decimal.Decimal             `gorm:"type:decimal(12,2);not null" json:"new_price"`
	OldPrice    decimal.Decimal             `gorm:"type:decimal(12,2);not null" json:"old_price"`
	DropID      string                      `gorm:"size:64;index;not null" json:"drop_id"`
	DropStart   time.Time                   `json:"drop_start"`
	DropEnd     time.Time                   `gorm:"index" json:"drop_end"`
	Date        time.Time                   `json:"date"`
	Available   bool                        `gorm:"not null" json:"available"`
	Sizes       datatypes.JSONSlice[string] `json:"sizes"`
	Colors      datatypes.JSONSlice[string] `json:"colors"`
	Stock       int                         `gorm:"not null;check:chk_products_stock,stock >= 0" json:"stock"`
	Description string                      `gorm:"type:text" json:"description"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	IsPromo     bool                        `gorm:"not null" json:"isPromo"`
	PromoText   string                      `gorm:"size:255" json:"promoText"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Date.IsZero() {
		p.Date = time.Now()
	}
	p.Date = p.Date.UTC()
	p.DropStart = p.DropStart.UTC()
	p.DropEnd = p.DropEnd.UTC()
	return nil
}

// FirstImage returns the cover image or "".
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
