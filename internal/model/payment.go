package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentID is a gateway payment id. The gateway sends it as a JSON number, clients often
// send it as a string.
type PaymentID string

func (p *PaymentID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PaymentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("payment id: %w", err)
	}
	*p = PaymentID(n.String())
	return nil
}

func (p PaymentID) String() string { return string(p) }

type PaymentPayer struct {
	Email          string          `json:"email,omitempty"`
	FirstName      string          `json:"first_name,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
}

type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type AdditionalInfo struct {
	Items []json.RawMessage `json:"items,omitempty"`
}

type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

type PointOfInteraction struct {
	TransactionData TransactionData `json:"transaction_data"`
}

// Payment is the gateway view of a payment. Metadata values are kept raw because the
// storefront writes them in several shapes.
type Payment struct {
	ID                 PaymentID                  `json:"id"`
	Status             string                     `json:"status"`
	StatusDetail       string                     `json:"status_detail"`
	TransactionAmount  decimal.Decimal            `json:"transaction_amount"`
	PaymentMethodID    string                     `json:"payment_method_id"`
	PaymentTypeID      string                     `json:"payment_type_id"`
	Payer              PaymentPayer               `json:"payer"`
	Metadata           map[string]json.RawMessage `json:"metadata"`
	AdditionalInfo     AdditionalInfo             `json:"additional_info"`
	PointOfInteraction PointOfInteraction         `json:"point_of_interaction"`

	// Raw is the response body as received.
	Raw json.RawMessage `json:"-"`
}

// Meta returns the first metadata value present under any of keys.
func (p *Payment) Meta(keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := p.Metadata[k]; ok && len(v) > 0 && !bytes.Equal(v, []byte("null")) {
			return v
		}
	}
	return nil
}

func (p *Payment) Approved() bool {
	return p.Status == PaymentStatusApproved
}
