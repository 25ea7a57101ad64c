package dto

import (
	"encoding/json"
	"time"

	"asapshop-backend/internal/model"

	"github.com/shopspring/decimal"
)

// Checkout bodies keep cart lines and addresses raw: the storefront sends ids and numbers
// as either JSON numbers or strings, and they are forwarded to the gateway as metadata.

type CreatePreferenceRequest struct {
	Items   []json.RawMessage `json:"itens"`
	Address json.RawMessage   `json:"endereco"`
	Amount  json.RawMessage   `json:"valor"`
}

type PreferenceResponse struct {
	Success   bool   `json:"success"`
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type CardPayer struct {
	Email          string                `json:"email"`
	Identification *model.Identification `json:"identification"`
}

type CardPaymentRequest struct {
	Token              string            `json:"token"`
	PaymentMethodID    string            `json:"payment_method_id"`
	PaymentMethodIDAlt string            `json:"paymentMethodId"`
	IssuerID           json.RawMessage   `json:"issuer_id"`
	IssuerIDAlt        json.RawMessage   `json:"issuerId"`
	Installments       json.RawMessage   `json:"installments"`
	Payer              CardPayer         `json:"payer"`
	Items              []json.RawMessage `json:"itens"`
	Address            json.RawMessage   `json:"endereco"`
}

type CardPaymentResponse struct {
	Success      bool            `json:"success"`
	PaymentID    model.PaymentID `json:"payment_id"`
	Status       string          `json:"status"`
	StatusDetail string          `json:"status_detail"`
}

type ProcessOrderRequest struct {
	PaymentID model.PaymentID   `json:"payment_id"`
	Items     []json.RawMessage `json:"itens"`
	Address   json.RawMessage   `json:"endereco"`
	Coupon    string            `json:"cupom"`
}

type ProcessOrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	OrderID uint   `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`
}

type PixPaymentRequest struct {
	Items      []json.RawMessage `json:"itens"`
	Address    json.RawMessage   `json:"endereco"`
	TotalValue json.RawMessage   `json:"valorTotal"`
	Coupon     string            `json:"cupom"`
}

type PixPaymentResponse struct {
	Success      bool            `json:"success"`
	PaymentID    model.PaymentID `json:"payment_id"`
	QRCode       string          `json:"qr_code"`
	QRCodeBase64 string          `json:"qr_code_base64"`
	TicketURL    string          `json:"ticket_url"`
	Status       string          `json:"status"`
}

type PixPreferenceRequest struct {
	Items   []json.RawMessage `json:"itens"`
	Address json.RawMessage   `json:"endereco"`
}

type PaymentStatusResponse struct {
	Success      bool           `json:"success"`
	Status       string         `json:"status"`
	StatusDetail string         `json:"status_detail"`
	Payment      *model.Payment `json:"payment,omitempty"`
}

// WebhookNotification is the body of a gateway notification. The same fields may also
// arrive in the query string.
type WebhookNotification struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		ID model.PaymentID `json:"id"`
	} `json:"data"`
}

type AddProductRequest struct {
	Name        string           `json:"name"`
	Images      []string         `json:"images"`
	Category    string           `json:"category"`
	NewPrice    *decimal.Decimal `json:"new_price"`
	OldPrice    *decimal.Decimal `json:"old_price"`
	DropID      string           `json:"drop_id"`
	DropStart   *FlexTime        `json:"drop_start"`
	DropEnd     *FlexTime        `json:"drop_end"`
	Available   *bool            `json:"available"`
	Sizes       []string         `json:"sizes"`
	Colors      []string         `json:"colors"`
	Tags        []string         `json:"tags"`
	Stock       *int             `json:"stock"`
	Description string           `json:"description"`
	PromoText   string           `json:"promo_text"`
	IsPromo     bool             `json:"is_promo"`
}

type UpdateProductRequest struct {
	ID       int64            `json:"id"`
	Name     *string          `json:"name"`
	NewPrice *decimal.Decimal `json:"new_price"`
	Stock    *int             `json:"stock"`
}

type ProductRefRequest struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ToggleDropRequest struct {
	DropID    string `json:"drop_id"`
	Available bool   `json:"available"`
}

type DropDatesRequest struct {
	DropID    string   `json:"drop_id"`
	DropStart FlexTime `json:"drop_start"`
	DropEnd   FlexTime `json:"drop_end"`
}

type ToggleAvailableRequest struct {
	ID        int64 `json:"id"`
	Available bool  `json:"available"`
}

type AddCouponRequest struct {
	Code  string           `json:"codigo"`
	Kind  string           `json:"tipo"`
	Value *decimal.Decimal `json:"valor"`
}

type ValidateCouponRequest struct {
	Code string `json:"codigo"`
}

type CouponStatusRequest struct {
	Active bool `json:"ativo"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Image    string `json:"image"`
}

type ConfirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

type AuthResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    UserSummary `json:"user"`
}

type UserProfile struct {
	Name     string                `json:"name"`
	Email    string                `json:"email"`
	Image    string                `json:"image"`
	CartData map[string]CartLine   `json:"cartData"`
	History  []*model.HistoryEntry `json:"historico"`
	Date     time.Time             `json:"date"`
}

type UpdateUserRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Image    string `json:"image" form:"image"`
}

type CartLineRequest struct {
	ItemID json.RawMessage `json:"itemId"`
	Size   string          `json:"size"`
	Color  string          `json:"color"`
}

type CartLine struct {
	Qty   int    `json:"qty"`
	Size  string `json:"size"`
	Color string `json:"color"`
	ID    string `json:"id"`
}

type CheckoutItem struct {
	ID    json.RawMessage `json:"id"`
	Qty   int             `json:"qty"`
	Size  string          `json:"size"`
	Color string          `json:"color"`
}

type CheckoutRequest struct {
	Items   []CheckoutItem  `json:"itens"`
	Address json.RawMessage `json:"endereco"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type ContactRequest struct {
	Name    string `json:"nome"`
	Email   string `json:"email"`
	Subject string `json:"assunto"`
	Message string `json:"mensagem"`
}
