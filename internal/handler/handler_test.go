package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"asapshop-backend/internal/client"
	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type webhookCall struct {
	topic, id string
}

// fakePayments implements only what the tests call; anything else panics on the nil interface.
type fakePayments struct {
	service.PaymentService
	calls []webhookCall
}

func (f *fakePayments) HandleWebhook(_ context.Context, topic, resourceID string) *model.WebhookEvent {
	f.calls = append(f.calls, webhookCall{topic: topic, id: resourceID})
	outcome := "ignored"
	if topic == "payment" {
		outcome = "materialized"
	}
	return &model.WebhookEvent{Topic: topic, ResourceID: resourceID, Outcome: outcome}
}

func (f *fakePayments) PaymentStatus(_ context.Context, paymentID string, withPayment bool) (*dto.PaymentStatusResponse, error) {
	if paymentID == "missing" {
		return nil, &client.GatewayError{StatusCode: 404, Message: "Payment not found"}
	}
	resp := &dto.PaymentStatusResponse{Success: true, Status: model.PaymentStatusApproved, StatusDetail: "accredited"}
	if withPayment {
		resp.Payment = &model.Payment{ID: model.PaymentID(paymentID), Status: model.PaymentStatusApproved}
	}
	return resp, nil
}

type fakeAccounts struct {
	service.AccountService
	loginErr error
}

func (f *fakeAccounts) Login(context.Context, *dto.LoginRequest) (*dto.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &dto.AuthResponse{Success: true, Token: "tok", User: dto.UserSummary{ID: "u1"}}, nil
}

type fakeCoupons struct {
	service.CouponService
}

func (fakeCoupons) ValidateCoupon(_ context.Context, code string) (*model.Coupon, error) {
	if code != "PROMO" {
		return nil, service.ErrCouponInvalid
	}
	return &model.Coupon{Code: "PROMO", Kind: model.CouponPercent}, nil
}

func (fakeCoupons) AddCoupon(context.Context, *dto.AddCouponRequest) (*model.Coupon, error) {
	return nil, service.ErrCouponExists
}

type failingNotifier struct {
	service.Notifier
	err error
}

func (n failingNotifier) SendContact(context.Context, service.ContactMessage) error { return n.err }

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop())
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	payments := &fakePayments{}
	h := NewPaymentHandler(payments, zap.NewNop())
	e := newEcho()
	e.POST("/pagamento/mp/webhook", h.Webhook)

	tests := []struct {
		name   string
		target string
		body   string
		want   webhookCall
	}{
		{"query", "/pagamento/mp/webhook?type=payment&data.id=123", "", webhookCall{"payment", "123"}},
		{"legacy query", "/pagamento/mp/webhook?topic=payment&id=55", "", webhookCall{"payment", "55"}},
		{"body numeric id", "/pagamento/mp/webhook", `{"type":"payment","data":{"id":456}}`, webhookCall{"payment", "456"}},
		{"query wins", "/pagamento/mp/webhook?type=merchant_order", `{"type":"payment","data":{"id":"9"}}`, webhookCall{"merchant_order", "9"}},
		{"garbage body", "/pagamento/mp/webhook", `not json`, webhookCall{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments.calls = nil
			rec := do(e, http.MethodPost, tt.target, tt.body)

			assert.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, payments.calls, 1)
			assert.Equal(t, tt.want, payments.calls[0])
		})
	}
}

func TestPaymentStatusRoutes(t *testing.T) {
	h := NewPaymentHandler(&fakePayments{}, zap.NewNop())
	e := newEcho()
	e.GET("/pagamento/status-payment/:paymentId", h.PaymentStatus)
	e.GET("/pix/status-payment/:paymentId", h.PixStatus)

	rec := do(e, http.MethodGet, "/pagamento/status-payment/77", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "approved", body["status"])
	assert.NotContains(t, body, "payment")

	rec = do(e, http.MethodGet, "/pix/status-payment/77", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "payment")

	rec = do(e, http.MethodGet, "/pagamento/status-payment/missing", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "mercadopago error 404: Payment not found"}, decode(t, rec))
}

func TestLoginBadCredentials(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{service.ErrWrongEmail, "Email incorreto"},
		{service.ErrWrongPassword, "Senha incorreta"},
	}
	for _, tt := range tests {
		e := newEcho()
		e.POST("/users/login", NewUserHandler(&fakeAccounts{loginErr: tt.err}).Login)

		rec := do(e, http.MethodPost, "/users/login", `{"email":"a@b.co","password":"x"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"success": false, "errors": tt.want}, decode(t, rec))
	}
}

func TestCouponSoftFailures(t *testing.T) {
	h := NewCouponHandler(fakeCoupons{})
	e := newEcho()
	e.POST("/coupons/validarcupom", h.ValidateCoupon)
	e.POST("/coupons/addcoupon", h.AddCoupon)
	e.PATCH("/coupons/cupomstatus/:id", h.SetCouponStatus)

	rec := do(e, http.MethodPost, "/coupons/validarcupom", `{"codigo":"nope"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Cupom inválido ou inativo"}, decode(t, rec))

	rec = do(e, http.MethodPost, "/coupons/validarcupom", `{"codigo":"PROMO"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = do(e, http.MethodPost, "/coupons/addcoupon", `{"codigo":"PROMO","tipo":"fixo","valor":5}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Cupom já existe"}, decode(t, rec))

	rec = do(e, http.MethodPatch, "/coupons/cupomstatus/abc", `{"ativo":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendEmailReportsFailureInBody(t *testing.T) {
	e := newEcho()
	e.POST("/email/send-email", NewContactHandler(failingNotifier{err: errors.New("smtp down")}, zap.NewNop()).SendEmail)

	rec := do(e, http.MethodPost, "/email/send-email", `{"nome":"Caio","email":"c@x.co","assunto":"Oi","mensagem":"..."}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": false}, decode(t, rec))
}

func TestCheckoutRedirect(t *testing.T) {
	e := newEcho()
	e.GET("/success", CheckoutRedirect("https://shop.test", "sucesso"))
	e.GET("/pending", CheckoutRedirect("https://shop.test", "pendente"))

	rec := do(e, http.MethodGet, "/success?payment_id=1&status=approved", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.test/checkout/sucesso?payment_id=1&status=approved", rec.Header().Get(echo.HeaderLocation))

	rec = do(e, http.MethodGet, "/pending", "")
	assert.Equal(t, "https://shop.test/checkout/pendente", rec.Header().Get(echo.HeaderLocation))
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", &service.ValidationError{Message: "Itens vazios"}, http.StatusBadRequest, "Itens vazios"},
		{"wrapped sentinel", errors.Join(errors.New("ctx"), service.ErrUserNotFound), http.StatusNotFound, "Usuário não encontrado"},
		{"payment id", service.ErrPaymentIDRequired, http.StatusBadRequest, "payment_id obrigatório"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "Acesso negado. Apenas admins."},
		{"gateway", &client.GatewayError{StatusCode: 400, Message: "bad token"}, http.StatusInternalServerError, "mercadopago error 400: bad token"},
		{"not configured", client.ErrGatewayNotConfigured, http.StatusInternalServerError, client.ErrGatewayNotConfigured.Error()},
		{"http error", echo.NewHTTPError(http.StatusUnauthorized, "Token ausente"), http.StatusUnauthorized, "Token ausente"},
		{"unknown", errors.New("db is on fire"), http.StatusInternalServerError, "Erro interno do servidor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			e.GET("/x", func(echo.Context) error { return tt.err })

			rec := do(e, http.MethodGet, "/x", "")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, map[string]any{"success": false, "error": tt.msg}, decode(t, rec))
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := do(newEcho(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Rota GET /nope não encontrada"}, decode(t, rec))
}
