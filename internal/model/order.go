package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	GatewayMercadoPago = "mercadopago"

	PaymentStatusApproved = "approved"
	PaymentStatusPending  = "pending"
)

// Order is the ledger record created once per approved payment.
type Order struct {
	ID            uint              `gorm:"primaryKey" json:"_id"`
	PaymentID     string            `gorm:"size:64;uniqueIndex;not null" json:"paymentId"` // gateway payment id
	UserID        string            `gorm:"size:36;index" json:"userId,omitempty"`
	Status        string            `gorm:"size:32;index;not null" json:"status"`
	PaymentMethod string            `gorm:"size:32" json:"paymentMethod"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Amount        decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Shipping      decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"shipping"`
	Total         decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"total"`
	Address       datatypes.JSONMap `json:"address"`
	Phone         string            `gorm:"size:32" json:"phone"`
	PayerEmail    string            `gorm:"size:255" json:"payerEmail"`
	Gateway       string            `gorm:"size:32;not null" json:"gateway"`
	Raw           datatypes.JSON    `json:"raw,omitempty"` // full gateway payload
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type OrderItem struct {
	ID uint `gorm:"primaryKey" json:"-"`
	// FK -> orders.id
	OrderID uint `gorm:"index;not null" json:"-"`
	// business id or storage id of the product
	ProductID string          `gorm:"size:64;not null" json:"productId"`
	Title     string          `gorm:"size:255" json:"title"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Size      string          `gorm:"size:32" json:"size,omitempty"`
	Color     string          `gorm:"size:32" json:"color,omitempty"`
}
