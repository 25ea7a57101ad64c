package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"asapshop-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// lineItem is a cart line as the storefront writes it into payment metadata and as the
// gateway echoes it back in additional_info. Ids and numbers may be JSON numbers or strings.
type lineItem struct {
	ID           json.RawMessage `json:"id"`
	ProductID    json.RawMessage `json:"productId"`
	ProductIDAlt json.RawMessage `json:"product_id"`
	Title        json.RawMessage `json:"title"`
	UnitPrice    json.RawMessage `json:"unit_price"`
	Quantity     json.RawMessage `json:"quantity"`
	Qty          json.RawMessage `json:"qty"`
	Size         json.RawMessage `json:"size"`
	Color        json.RawMessage `json:"color"`
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// flexString renders a string or number as text. Anything else is "".
func flexString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if !present(raw) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

func flexDecimal(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(flexString(raw))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// flexQuantity reads the first present candidate. No candidate means one unit; an
// unreadable one means zero so the line gets dropped.
func flexQuantity(candidates ...json.RawMessage) int {
	for _, raw := range candidates {
		if !present(raw) {
			continue
		}
		return int(flexDecimal(raw).IntPart())
	}
	return 1
}

// decodeList accepts a JSON list or a JSON string holding a list.
func decodeList(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if !present(raw) {
		return nil
	}
	var list []json.RawMessage
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		raw = []byte(s)
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

// parseOrderItems maps loose cart lines to order items, dropping lines without a product
// id or with a non-positive quantity.
func parseOrderItems(raws []json.RawMessage) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(raws))
	for _, raw := range raws {
		var li lineItem
		if err := json.Unmarshal(raw, &li); err != nil {
			continue
		}
		productID := flexString(li.ID)
		if productID == "" {
			productID = flexString(li.ProductID)
		}
		if productID == "" {
			productID = flexString(li.ProductIDAlt)
		}
		qty := flexQuantity(li.Quantity, li.Qty)
		if productID == "" || qty <= 0 {
			continue
		}
		items = append(items, model.OrderItem{
			ProductID: productID,
			Title:     flexString(li.Title),
			UnitPrice: flexDecimal(li.UnitPrice),
			Quantity:  qty,
			Size:      flexString(li.Size),
			Color:     flexString(li.Color),
		})
	}
	return items
}

// itemsFromPayment reads metadata.itens, falling back to additional_info.items.
func itemsFromPayment(p *model.Payment) []model.OrderItem {
	if list := decodeList(p.Meta("itens", "items")); len(list) > 0 {
		return parseOrderItems(list)
	}
	return parseOrderItems(p.AdditionalInfo.Items)
}

// parseAddress accepts an object or a JSON string holding an object. Anything else yields
// an empty address.
func parseAddress(raw json.RawMessage) datatypes.JSONMap {
	addr := datatypes.JSONMap{}
	raw = bytes.TrimSpace(raw)
	if !present(raw) {
		return addr
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return addr
		}
		raw = []byte(s)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return addr
	}
	return datatypes.JSONMap(m)
}

// addressField returns the first non-empty value among keys.
func addressField(addr datatypes.JSONMap, keys ...string) string {
	for _, k := range keys {
		v, ok := addr[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = decimal.NewFromFloat(t).String()
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// classifyPaymentMethod maps gateway method/type ids to the label shown in orders.
func classifyPaymentMethod(methodID, typeID string) string {
	switch {
	case methodID == "pix" || typeID == "bank_transfer":
		return "Pix"
	case methodID == "credit_card":
		return "Cartão"
	case typeID != "":
		return typeID
	default:
		return methodID
	}
}

// usablePayerEmail rejects the masked addresses the gateway returns for some payers.
func usablePayerEmail(email string) bool {
	return strings.Contains(email, "@") && !strings.ContainsAny(email, "X*")
}
