package model

import "time"

// WebhookEvent logs one gateway notification delivery and what it produced.
type WebhookEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Topic      string    `gorm:"size:64;index;not null" json:"topic"`
	ResourceID string    `gorm:"size:64;index" json:"resourceId"`
	Outcome    string    `gorm:"size:32;not null" json:"outcome"` // materialized, already_processed, not_approved, ...
	OrderID    *uint     `json:"orderId,omitempty"`
	Detail     string    `gorm:"size:512" json:"detail,omitempty"`
	ReceivedAt time.Time `gorm:"index;not null" json:"receivedAt"`
}
