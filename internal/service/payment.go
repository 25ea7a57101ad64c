package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"asapshop-backend/internal/client"
	"asapshop-backend/internal/config"
	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	currencyBRL        = "BRL"
	orderDescription   = "Pedido ASAP Shop"
	fallbackPayerEmail = "cliente@email.com"
	webhookTopicPay    = "payment"
	defaultItemTitle   = "Produto"
)

type PaymentService interface {
	CreatePreference(ctx context.Context, userID string, req *dto.CreatePreferenceRequest) (*dto.PreferenceResponse, error)
	PayWithCard(ctx context.Context, userID string, req *dto.CardPaymentRequest) (*dto.CardPaymentResponse, error)
	ProcessImmediate(ctx context.Context, userID string, req *dto.ProcessOrderRequest) (*dto.ProcessOrderResponse, error)
	CreatePixPayment(ctx context.Context, userID string, req *dto.PixPaymentRequest) (*dto.PixPaymentResponse, error)
	CreatePixPreference(ctx context.Context, userID string, req *dto.PixPreferenceRequest) (*dto.PreferenceResponse, error)
	PaymentStatus(ctx context.Context, paymentID string, withPayment bool) (*dto.PaymentStatusResponse, error)
	HandleWebhook(ctx context.Context, topic, resourceID string) *model.WebhookEvent
	ListWebhookEvents(ctx context.Context, limit int) ([]*model.WebhookEvent, error)
}

type paymentServiceImpl struct {
	cfg              *config.Config
	gateway          client.MercadoPagoClient
	materializer     OrderMaterializer
	productRepo      repository.ProductRepository
	userRepo         repository.UserRepository
	webhookEventRepo repository.WebhookEventRepository
	log              *zap.Logger
}

func NewPaymentService(
	cfg *config.Config,
	gateway client.MercadoPagoClient,
	materializer OrderMaterializer,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	webhookEventRepo repository.WebhookEventRepository,
	log *zap.Logger,
) PaymentService {
	return &paymentServiceImpl{
		cfg:              cfg,
		gateway:          gateway,
		materializer:     materializer,
		productRepo:      productRepo,
		userRepo:         userRepo,
		webhookEventRepo: webhookEventRepo,
		log:              log,
	}
}

// CreatePreference starts a hosted checkout for the cart as sent by the storefront.
func (s *paymentServiceImpl) CreatePreference(ctx context.Context, userID string, req *dto.CreatePreferenceRequest) (*dto.PreferenceResponse, error) {
	if len(req.Items) == 0 {
		return nil, invalid("Itens inválidos")
	}

	items := make([]client.PreferenceItem, 0, len(req.Items))
	for _, raw := range req.Items {
		var li lineItem
		_ = json.Unmarshal(raw, &li)
		title := flexString(li.Title)
		if title == "" {
			title = defaultItemTitle
		}
		qty := flexQuantity(li.Quantity, li.Qty)
		if qty <= 0 {
			qty = 1
		}
		items = append(items, client.PreferenceItem{
			Title:      title,
			Quantity:   qty,
			UnitPrice:  flexDecimal(li.UnitPrice).InexactFloat64(),
			CurrencyID: currencyBRL,
		})
	}

	front := s.cfg.Frontend()
	pref, err := s.gateway.CreatePreference(ctx, &client.PreferenceRequest{
		Items: items,
		Payer: s.preferencePayer(ctx, userID),
		BackURLs: client.BackURLs{
			Success: front + "/pagamento/aguardando",
			Failure: front + "/checkout/falha",
			Pending: front + "/checkout/pendente",
		},
		NotificationURL: s.cfg.NotificationURL(),
		Metadata: map[string]any{
			"userId":   userID,
			"endereco": addressOrEmpty(req.Address),
			"itens":    req.Items,
			"valor":    req.Amount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}

	return &dto.PreferenceResponse{Success: true, ID: pref.ID, InitPoint: pref.InitPoint}, nil
}

// PayWithCard charges a tokenized card. The amount is computed from catalog prices.
func (s *paymentServiceImpl) PayWithCard(ctx context.Context, userID string, req *dto.CardPaymentRequest) (*dto.CardPaymentResponse, error) {
	methodID := req.PaymentMethodID
	if methodID == "" {
		methodID = req.PaymentMethodIDAlt
	}
	issuerID := flexString(req.IssuerID)
	if issuerID == "" {
		issuerID = flexString(req.IssuerIDAlt)
	}

	switch {
	case req.Token == "":
		return nil, invalid("Token do cartão ausente")
	case methodID == "":
		return nil, invalid("payment_method_id ausente")
	case len(req.Items) == 0:
		return nil, invalid("Itens vazios")
	}

	total := decimal.Zero
	for _, it := range parseOrderItems(req.Items) {
		price := it.UnitPrice
		product, err := s.productRepo.FindByRef(ctx, it.ProductID)
		switch {
		case err == nil:
			if product.NewPrice.IsPositive() {
				price = product.NewPrice
			}
		case !repository.IsNotFound(err):
			return nil, fmt.Errorf("find product %s: %w", it.ProductID, err)
		}
		if price.IsPositive() {
			total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	if !total.IsPositive() {
		return nil, invalid("Total calculado inválido")
	}

	address := parseAddress(req.Address)
	payerEmail := s.accountEmail(ctx, userID)
	if payerEmail == "" {
		payerEmail = req.Payer.Email
	}
	if payerEmail == "" {
		payerEmail = addressField(address, "email")
	}
	if payerEmail == "" {
		return nil, invalid("E-mail do pagador ausente")
	}

	installments := flexQuantity(req.Installments)
	if installments <= 0 {
		installments = 1
	}

	payment, err := s.gateway.CreatePayment(ctx, &client.PaymentRequest{
		TransactionAmount: total.Round(2).InexactFloat64(),
		Token:             req.Token,
		Description:       orderDescription,
		Installments:      installments,
		PaymentMethodID:   methodID,
		IssuerID:          issuerID,
		Payer: model.PaymentPayer{
			Email:          payerEmail,
			Identification: payerIdentification(req.Payer.Identification, address),
		},
		Metadata: map[string]any{
			"userId":   userID,
			"endereco": addressOrEmpty(req.Address),
			"itens":    req.Items,
		},
		NotificationURL: s.cfg.NotificationURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create card payment: %w", err)
	}

	s.log.Info("card payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("status", payment.Status),
		zap.String("status_detail", payment.StatusDetail),
		zap.String("amount", payment.TransactionAmount.String()),
	)

	return &dto.CardPaymentResponse{
		Success:      true,
		PaymentID:    payment.ID,
		Status:       payment.Status,
		StatusDetail: payment.StatusDetail,
	}, nil
}

// ProcessImmediate materializes a payment the storefront saw approved, without waiting for
// the webhook. Cart data from the request takes precedence over gateway metadata.
func (s *paymentServiceImpl) ProcessImmediate(ctx context.Context, userID string, req *dto.ProcessOrderRequest) (*dto.ProcessOrderResponse, error) {
	if req.PaymentID == "" {
		return nil, ErrPaymentIDRequired
	}

	res, err := s.materializer.Materialize(ctx, MaterializeRequest{
		PaymentID: req.PaymentID.String(),
		Override: &OrderOverride{
			UserID:  userID,
			Items:   req.Items,
			Address: req.Address,
			Coupon:  req.Coupon,
		},
	})
	if err != nil {
		return nil, err
	}

	switch res.Status {
	case NotApproved:
		return &dto.ProcessOrderResponse{Success: false, Message: "Pagamento ainda não aprovado", Status: res.PaymentStatus}, nil
	case AlreadyProcessed:
		return &dto.ProcessOrderResponse{Success: true, Message: "Pedido já processado", OrderID: res.OrderID}, nil
	case GatewayUnavailable:
		return nil, fmt.Errorf("get payment: %w", res.Err)
	}
	return &dto.ProcessOrderResponse{Success: true, OrderID: res.OrderID, Status: res.PaymentStatus}, nil
}

// CreatePixPayment creates a Pix charge priced from the catalog. A positive valorTotal,
// already discounted by a coupon on the storefront, replaces the computed total.
func (s *paymentServiceImpl) CreatePixPayment(ctx context.Context, userID string, req *dto.PixPaymentRequest) (*dto.PixPaymentResponse, error) {
	if len(req.Items) == 0 {
		return nil, invalid("Itens vazios")
	}

	total := decimal.Zero
	var additional []client.PreferenceItem
	for _, it := range parseOrderItems(req.Items) {
		product, err := s.findProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || !product.NewPrice.IsPositive() {
			continue
		}
		total = total.Add(product.NewPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		additional = append(additional, client.PreferenceItem{
			ID:        strconv.FormatInt(product.ProductID, 10),
			Title:     product.Name,
			Quantity:  it.Quantity,
			UnitPrice: product.NewPrice.InexactFloat64(),
		})
	}

	amount := total
	if override := flexDecimal(req.TotalValue); override.IsPositive() {
		amount = override
	}
	if !amount.IsPositive() {
		return nil, invalid("Total inválido")
	}

	description := orderDescription
	var coupon any
	if req.Coupon != "" {
		description += " - Cupom: " + req.Coupon
		coupon = req.Coupon
	}

	address := parseAddress(req.Address)
	payerEmail := s.accountEmail(ctx, userID)
	if payerEmail == "" {
		payerEmail = addressField(address, "email")
	}
	if payerEmail == "" {
		payerEmail = fallbackPayerEmail
	}

	payment, err := s.gateway.CreatePayment(ctx, &client.PaymentRequest{
		TransactionAmount: amount.Round(2).InexactFloat64(),
		Description:       description,
		PaymentMethodID:   "pix",
		Payer:             model.PaymentPayer{Email: payerEmail},
		Metadata: map[string]any{
			"userId":        userID,
			"endereco":      addressOrEmpty(req.Address),
			"itens":         req.Items,
			"cupom":         coupon,
			"valorOriginal": total.InexactFloat64(),
			"valorFinal":    amount.InexactFloat64(),
		},
		AdditionalInfo:  &client.PaymentAdditionalInfo{Items: additional},
		NotificationURL: s.cfg.NotificationURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create pix payment: %w", err)
	}
	s.log.Info("pix payment created", zap.String("payment_id", payment.ID.String()), zap.String("coupon", req.Coupon))

	tx := payment.PointOfInteraction.TransactionData
	return &dto.PixPaymentResponse{
		Success:      true,
		PaymentID:    payment.ID,
		QRCode:       tx.QRCode,
		QRCodeBase64: tx.QRCodeBase64,
		TicketURL:    tx.TicketURL,
		Status:       payment.Status,
	}, nil
}

// CreatePixPreference starts a hosted checkout defaulting to Pix. Lines for unknown products,
// without a price or above the current stock are left out.
func (s *paymentServiceImpl) CreatePixPreference(ctx context.Context, userID string, req *dto.PixPreferenceRequest) (*dto.PreferenceResponse, error) {
	if len(req.Items) == 0 {
		return nil, invalid("Itens do carrinho vazios")
	}

	var items []client.PreferenceItem
	for _, it := range parseOrderItems(req.Items) {
		product, err := s.findProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || !product.NewPrice.IsPositive() || it.Quantity > product.Stock {
			continue
		}
		items = append(items, client.PreferenceItem{
			Title:      product.Name,
			Quantity:   it.Quantity,
			UnitPrice:  product.NewPrice.InexactFloat64(),
			CurrencyID: currencyBRL,
		})
	}
	if len(items) == 0 {
		return nil, invalid("Nenhum item válido para criar a preferência")
	}

	front := s.cfg.Frontend()
	pref, err := s.gateway.CreatePreference(ctx, &client.PreferenceRequest{
		Items: items,
		Payer: s.preferencePayer(ctx, userID),
		PaymentMethods: &client.PaymentMethods{
			DefaultPaymentMethodID: "pix",
			ExcludedPaymentTypes:   []client.PaymentTypeRef{{ID: "ticket"}},
			Installments:           1,
		},
		BackURLs: client.BackURLs{
			Success: front + "/checkout/sucesso",
			Failure: front + "/checkout/falha",
			Pending: front + "/checkout/pendente",
		},
		NotificationURL: s.cfg.NotificationURL(),
		Metadata: map[string]any{
			"userId":   userID,
			"endereco": addressOrEmpty(req.Address),
			"itens":    req.Items,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create pix preference: %w", err)
	}
	return &dto.PreferenceResponse{Success: true, ID: pref.ID, InitPoint: pref.InitPoint}, nil
}

func (s *paymentServiceImpl) PaymentStatus(ctx context.Context, paymentID string, withPayment bool) (*dto.PaymentStatusResponse, error) {
	if paymentID == "" {
		return nil, ErrPaymentIDRequired
	}
	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	resp := &dto.PaymentStatusResponse{
		Success:      true,
		Status:       payment.Status,
		StatusDetail: payment.StatusDetail,
	}
	if withPayment {
		resp.Payment = payment
	}
	return resp, nil
}

// HandleWebhook processes one gateway notification and logs the delivery. It never fails:
// the gateway redelivers anything that is not acknowledged.
func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, topic, resourceID string) *model.WebhookEvent {
	event := &model.WebhookEvent{Topic: topic, ResourceID: resourceID, Outcome: "ignored"}
	log := s.log.With(zap.String("topic", topic), zap.String("resource_id", resourceID))

	if topic == webhookTopicPay && resourceID != "" {
		res, err := s.materializer.Materialize(ctx, MaterializeRequest{PaymentID: resourceID})
		switch {
		case err != nil:
			event.Outcome = "error"
			event.Detail = err.Error()
			log.Error("webhook materialization failed", zap.Error(err))
		default:
			event.Outcome = string(res.Status)
			if res.OrderID != 0 {
				orderID := res.OrderID
				event.OrderID = &orderID
			}
			event.Detail = outcomeDetail(res)
			log.Info("webhook processed", zap.String("outcome", event.Outcome), zap.String("payment_status", res.PaymentStatus))
		}
	}

	if err := s.webhookEventRepo.Record(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("record webhook event", zap.Error(err))
	}
	return event
}

func (s *paymentServiceImpl) ListWebhookEvents(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.webhookEventRepo.List(ctx, limit)
}

func outcomeDetail(res *MaterializationResult) string {
	switch {
	case res.Status == GatewayUnavailable && res.Err != nil:
		return truncate(res.Err.Error(), 512)
	case res.Status == NotApproved:
		return "status " + res.PaymentStatus
	}
	var parts []string
	for _, step := range res.Failed() {
		parts = append(parts, step.Name+": "+step.Err.Error())
	}
	return truncate(strings.Join(parts, "; "), 512)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// findProduct returns nil when the product does not exist.
func (s *paymentServiceImpl) findProduct(ctx context.Context, ref string) (*model.Product, error) {
	product, err := s.productRepo.FindByRef(ctx, ref)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find product %s: %w", ref, err)
	}
	return product, nil
}

func (s *paymentServiceImpl) accountEmail(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !repository.IsNotFound(err) {
			s.log.Warn("account lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return ""
	}
	return user.Email
}

func (s *paymentServiceImpl) preferencePayer(ctx context.Context, userID string) *client.PreferencePayer {
	if email := s.accountEmail(ctx, userID); email != "" {
		return &client.PreferencePayer{Email: email}
	}
	return nil
}

// addressOrEmpty keeps the address as sent, or an empty object.
func addressOrEmpty(raw json.RawMessage) any {
	if present(raw) {
		return raw
	}
	return map[string]any{}
}

func payerIdentification(id *model.Identification, addr map[string]interface{}) *model.Identification {
	if id != nil && id.Number != "" {
		return id
	}
	cpf := onlyDigits(addressField(addr, "cpf"))
	if cpf == "" {
		return nil
	}
	return &model.Identification{Type: "CPF", Number: cpf}
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
