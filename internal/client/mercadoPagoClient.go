package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"asapshop-backend/internal/config"
	"asapshop-backend/internal/metrics"
	"asapshop-backend/internal/model"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrGatewayNotConfigured = errors.New("MP_ACCESS_TOKEN não configurado")

// GatewayError is a non-2xx answer from the gateway.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("mercadopago error %d: %s", e.StatusCode, e.Message)
}

type MercadoPagoClient interface {
	GetPayment(ctx context.Context, paymentID string) (*model.Payment, error)
	CreatePayment(ctx context.Context, req *PaymentRequest) (*model.Payment, error)
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error)
}

type PreferenceItem struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id,omitempty"`
}

type BackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type PaymentTypeRef struct {
	ID string `json:"id"`
}

type PaymentMethods struct {
	DefaultPaymentMethodID string           `json:"default_payment_method_id,omitempty"`
	ExcludedPaymentTypes   []PaymentTypeRef `json:"excluded_payment_types,omitempty"`
	Installments           int              `json:"installments,omitempty"`
}

type PreferencePayer struct {
	Email string `json:"email,omitempty"`
}

type PreferenceRequest struct {
	Items           []PreferenceItem `json:"items"`
	Payer           *PreferencePayer `json:"payer,omitempty"`
	PaymentMethods  *PaymentMethods  `json:"payment_methods,omitempty"`
	BackURLs        BackURLs         `json:"back_urls"`
	NotificationURL string           `json:"notification_url,omitempty"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
}

type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type PaymentAdditionalInfo struct {
	Items []PreferenceItem `json:"items,omitempty"`
}

type PaymentRequest struct {
	TransactionAmount float64                `json:"transaction_amount"`
	Token             string                 `json:"token,omitempty"`
	Description       string                 `json:"description,omitempty"`
	Installments      int                    `json:"installments,omitempty"`
	PaymentMethodID   string                 `json:"payment_method_id"`
	IssuerID          string                 `json:"issuer_id,omitempty"`
	Payer             model.PaymentPayer     `json:"payer"`
	Metadata          map[string]any         `json:"metadata,omitempty"`
	AdditionalInfo    *PaymentAdditionalInfo `json:"additional_info,omitempty"`
	NotificationURL   string                 `json:"notification_url,omitempty"`
}

type mercadoPagoClientImpl struct {
	httpClient  *http.Client
	baseApiURL  string
	accessToken string
}

func NewMercadoPagoClient(cfg *config.MercadoPago) MercadoPagoClient {
	return &mercadoPagoClientImpl{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseApiURL:  strings.TrimRight(cfg.BaseApiURL, "/"),
		accessToken: cfg.AccessToken,
	}
}

func (c *mercadoPagoClientImpl) GetPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	body, err := c.do(ctx, "get_payment", http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, "")
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

func (c *mercadoPagoClientImpl) CreatePayment(ctx context.Context, req *PaymentRequest) (*model.Payment, error) {
	body, err := c.do(ctx, "create_payment", http.MethodPost, "/v1/payments", req, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

func (c *mercadoPagoClientImpl) CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error) {
	body, err := c.do(ctx, "create_preference", http.MethodPost, "/checkout/preferences", req, "")
	if err != nil {
		return nil, err
	}
	var pref Preference
	if err := json.Unmarshal(body, &pref); err != nil {
		return nil, fmt.Errorf("decode preference: %w", err)
	}
	return &pref, nil
}

func decodePayment(body []byte) (*model.Payment, error) {
	var p model.Payment
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	p.Raw = body
	return &p, nil
}

func (c *mercadoPagoClientImpl) do(ctx context.Context, op, method, path string, payload any, idempotencyKey string) (body []byte, err error) {
	ctx, span := otel.Tracer("asapshop-backend/client").Start(ctx, "mercadopago."+op,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.GatewayRequests.WithLabelValues(op, result).Inc()
		span.End()
	}()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("gateway.path", path))

	if c.accessToken == "" {
		return nil, ErrGatewayNotConfigured
	}

	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal req payload: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago %s request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read mercadopago response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: gatewayMessage(body)}
	}
	return body, nil
}

// gatewayMessage picks the most specific human readable message from an error body.
func gatewayMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Cause   []struct {
			Description string `json:"description"`
		} `json:"cause"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return strings.TrimSpace(string(body))
	}
	switch {
	case len(e.Cause) > 0 && e.Cause[0].Description != "":
		return e.Cause[0].Description
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
