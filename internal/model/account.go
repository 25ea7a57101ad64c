package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	HistoryStatusApproved = "Aprovado"
	HistoryStatusPending  = "Pendente"

	DefaultSize  = "Único"
	DefaultColor = "Padrão"
)

type User struct {
	ID        string    `gorm:"primaryKey;size:36;not null" json:"_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash
	Image     string    `gorm:"size:512" json:"image"`
	IsAdmin   bool      `gorm:"not null" json:"isAdmin"`
	Date      time.Time `json:"date"`
	UpdatedAt time.Time `json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Date.IsZero() {
		u.Date = time.Now()
	}
	return nil
}

// HistoryEntry is one purchase record in a user's history. Entries are appended, and only
// admin tools change or remove them afterwards.
type HistoryEntry struct {
	ID            string                           `gorm:"primaryKey;size:36;not null" json:"_id"`
	UserID        string                           `gorm:"size:36;index;not null" json:"-"`
	PaymentID     string                           `gorm:"size:64;index" json:"paymentId,omitempty"`
	OrderID       *uint                            `json:"orderId,omitempty"`
	Items         datatypes.JSONSlice[HistoryItem] `json:"itens"`
	Address       datatypes.JSONMap                `json:"endereco"`
	Total         decimal.Decimal                  `gorm:"type:decimal(12,2);not null" json:"total"`
	Status        string                           `gorm:"size:32;not null" json:"status"`
	PaymentMethod string                           `gorm:"size:32" json:"paymentMethod,omitempty"`
	Date          time.Time                        `gorm:"index" json:"data"`
}

func (h *HistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Date.IsZero() {
		h.Date = time.Now()
	}
	return nil
}

type HistoryItem struct {
	ID        string          `json:"id"`
	Qty       int             `json:"qty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Image     string          `json:"image,omitempty"`
}

// CartItem is one cart line. LineKey is "<itemId>_<size>_<color>".
type CartItem struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     string    `gorm:"size:36;not null;uniqueIndex:idx_cart_user_key"`
	LineKey    string    `gorm:"size:255;not null;uniqueIndex:idx_cart_user_key"`
	ProductRef string    `gorm:"size:64;not null"`
	Size       string    `gorm:"size:32"`
	Color      string    `gorm:"size:32"`
	Qty        int       `gorm:"not null"`
	UpdatedAt  time.Time
}

func CartKey(itemID, size, color string) string {
	return itemID + "_" + size + "_" + color
}

// PendingUser holds a signup awaiting e-mail confirmation.
type PendingUser struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	Email     string    `gorm:"size:255;uniqueIndex;not null"`
	Password  string    `gorm:"size:255;not null"`
	Image     string    `gorm:"size:512"`
	Code      string    `gorm:"size:16;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
