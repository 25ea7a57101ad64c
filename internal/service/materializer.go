package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"asapshop-backend/internal/client"
	"asapshop-backend/internal/metrics"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type MaterializationStatus string

const (
	Materialized       MaterializationStatus = "materialized"
	AlreadyProcessed   MaterializationStatus = "already_processed"
	NotApproved        MaterializationStatus = "not_approved"
	GatewayUnavailable MaterializationStatus = "gateway_unavailable"
)

// StepOutcome reports one advisory step. A failed step never undoes the order.
type StepOutcome struct {
	Name string
	Err  error
}

type MaterializationResult struct {
	Status MaterializationStatus
	// OrderID is set for Materialized and AlreadyProcessed.
	OrderID uint
	// PaymentStatus is the gateway status, set whenever the gateway answered.
	PaymentStatus string
	// Err is the gateway failure for GatewayUnavailable.
	Err   error
	Steps []StepOutcome
}

// Failed returns the advisory steps that did not succeed.
func (r *MaterializationResult) Failed() []StepOutcome {
	var out []StepOutcome
	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// OrderOverride carries checkout data from an authenticated client instead of gateway
// metadata. Empty fields fall back to the metadata.
type OrderOverride struct {
	UserID  string
	Items   []json.RawMessage
	Address json.RawMessage
	Coupon  string
}

type MaterializeRequest struct {
	PaymentID string
	Override  *OrderOverride
}

type OrderMaterializer interface {
	Materialize(ctx context.Context, req MaterializeRequest) (*MaterializationResult, error)
	// Wait blocks until notifications already dispatched have finished.
	Wait()
}

type orderMaterializerImpl struct {
	gateway  client.MercadoPagoClient
	orders   repository.OrderRepository
	products repository.ProductRepository
	users    repository.UserRepository
	history  repository.HistoryRepository
	cache    repository.PaymentCache
	notifier Notifier
	log      *zap.Logger

	wg       sync.WaitGroup
	dispatch func(func())
}

func NewOrderMaterializer(
	gateway client.MercadoPagoClient,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	history repository.HistoryRepository,
	cache repository.PaymentCache,
	notifier Notifier,
	log *zap.Logger,
) OrderMaterializer {
	m := &orderMaterializerImpl{
		gateway:  gateway,
		orders:   orders,
		products: products,
		users:    users,
		history:  history,
		cache:    cache,
		notifier: notifier,
		log:      log,
	}
	m.dispatch = func(f func()) { go f() }
	return m
}

func (m *orderMaterializerImpl) Materialize(ctx context.Context, req MaterializeRequest) (*MaterializationResult, error) {
	if req.PaymentID == "" {
		return nil, ErrPaymentIDRequired
	}

	ctx, span := otel.Tracer("asapshop/materializer").Start(ctx, "Materialize")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", req.PaymentID))

	res, err := m.materialize(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.Materializations.WithLabelValues("error").Inc()
		return nil, err
	}
	span.SetAttributes(attribute.String("materialization.status", string(res.Status)))
	metrics.Materializations.WithLabelValues(string(res.Status)).Inc()
	return res, nil
}

func (m *orderMaterializerImpl) materialize(ctx context.Context, req MaterializeRequest) (*MaterializationResult, error) {
	log := m.log.With(zap.String("payment_id", req.PaymentID))

	if orderID, ok, err := m.cache.Recall(ctx, req.PaymentID); err != nil {
		log.Warn("payment cache recall failed", zap.Error(err))
	} else if ok {
		return &MaterializationResult{Status: AlreadyProcessed, OrderID: orderID}, nil
	}

	payment, err := m.gateway.GetPayment(ctx, req.PaymentID)
	if err != nil {
		log.Error("gateway lookup failed", zap.Error(err))
		return &MaterializationResult{Status: GatewayUnavailable, Err: err}, nil
	}
	if !payment.Approved() {
		return &MaterializationResult{Status: NotApproved, PaymentStatus: payment.Status}, nil
	}

	existing, err := m.orders.FindByPaymentID(ctx, req.PaymentID)
	if err == nil {
		m.remember(ctx, log, req.PaymentID, existing.ID)
		return &MaterializationResult{Status: AlreadyProcessed, OrderID: existing.ID, PaymentStatus: payment.Status}, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("find order: %w", err)
	}

	d := m.details(payment, req)
	order := &model.Order{
		PaymentID:     req.PaymentID,
		UserID:        d.userID,
		Status:        payment.Status,
		PaymentMethod: classifyPaymentMethod(payment.PaymentMethodID, payment.PaymentTypeID),
		Items:         d.items,
		Amount:        payment.TransactionAmount,
		Shipping:      decimal.Zero,
		Total:         payment.TransactionAmount,
		Address:       d.address,
		Phone:         addressField(d.address, "telefone", "phone"),
		PayerEmail:    payment.Payer.Email,
		Gateway:       model.GatewayMercadoPago,
		Raw:           datatypes.JSON(payment.Raw),
	}

	if err := m.orders.Create(ctx, order); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create order: %w", err)
		}
		// Another delivery won the insert.
		winner, err := m.orders.FindByPaymentID(ctx, req.PaymentID)
		if err != nil {
			return nil, fmt.Errorf("find order after duplicate: %w", err)
		}
		m.remember(ctx, log, req.PaymentID, winner.ID)
		return &MaterializationResult{Status: AlreadyProcessed, OrderID: winner.ID, PaymentStatus: payment.Status}, nil
	}
	log = log.With(zap.Uint("order_id", order.ID))
	log.Info("order materialized", zap.Int("items", len(order.Items)), zap.String("total", order.Total.StringFixed(2)))
	m.remember(ctx, log, req.PaymentID, order.ID)

	res := &MaterializationResult{Status: Materialized, OrderID: order.ID, PaymentStatus: payment.Status}

	for _, it := range order.Items {
		res.Steps = append(res.Steps, m.decrementStock(ctx, log, it))
	}

	var account *model.User
	if order.UserID != "" {
		var step StepOutcome
		account, step = m.appendHistory(ctx, log, order)
		res.Steps = append(res.Steps, step)
	}

	to := resolveRecipient(account, payment.Payer.Email, order.Address)
	mail := OrderMail{
		ID:      order.PaymentID,
		Items:   order.Items,
		Total:   order.Total,
		Address: order.Address,
		Coupon:  d.coupon,
	}
	m.wg.Add(1)
	m.dispatch(func() {
		defer m.wg.Done()
		// The request context may already be gone.
		if err := m.notifier.NotifyOrderPaid(context.WithoutCancel(ctx), mail, to); err != nil {
			log.Warn("order notification failed", zap.Error(err))
		}
	})
	res.Steps = append(res.Steps, StepOutcome{Name: "notification"})

	return res, nil
}

func (m *orderMaterializerImpl) Wait() {
	m.wg.Wait()
}

func (m *orderMaterializerImpl) remember(ctx context.Context, log *zap.Logger, paymentID string, orderID uint) {
	if err := m.cache.Remember(ctx, paymentID, orderID); err != nil {
		log.Warn("payment cache remember failed", zap.Error(err))
	}
}

func (m *orderMaterializerImpl) decrementStock(ctx context.Context, log *zap.Logger, it model.OrderItem) StepOutcome {
	step := StepOutcome{Name: "stock:" + it.ProductID}
	ok, err := m.products.DecrementStock(ctx, nil, it.ProductID, it.Quantity)
	switch {
	case err != nil:
		step.Err = err
	case !ok:
		step.Err = fmt.Errorf("insufficient stock or unknown product %s (qty %d)", it.ProductID, it.Quantity)
	}
	if step.Err != nil {
		metrics.StockDecrementFailures.Inc()
		log.Warn("stock decrement skipped", zap.String("product_id", it.ProductID), zap.Error(step.Err))
	}
	return step
}

func (m *orderMaterializerImpl) appendHistory(ctx context.Context, log *zap.Logger, order *model.Order) (*model.User, StepOutcome) {
	step := StepOutcome{Name: "history"}

	items := make([]model.HistoryItem, 0, len(order.Items))
	for _, it := range order.Items {
		size, color := it.Size, it.Color
		if size == "" {
			size = model.DefaultSize
		}
		if color == "" {
			color = model.DefaultColor
		}
		items = append(items, model.HistoryItem{
			ID:        it.ProductID,
			Qty:       it.Quantity,
			Name:      it.Title,
			UnitPrice: it.UnitPrice,
			Size:      size,
			Color:     color,
		})
	}
	orderID := order.ID
	entry := &model.HistoryEntry{
		UserID:        order.UserID,
		PaymentID:     order.PaymentID,
		OrderID:       &orderID,
		Items:         items,
		Address:       order.Address,
		Total:         order.Total,
		Status:        model.HistoryStatusApproved,
		PaymentMethod: order.PaymentMethod,
	}
	if err := m.history.Append(ctx, nil, entry); err != nil {
		step.Err = err
		log.Warn("history append failed", zap.String("user_id", order.UserID), zap.Error(err))
		return nil, step
	}

	user, err := m.users.FindByID(ctx, order.UserID)
	if err != nil {
		log.Warn("account lookup failed", zap.String("user_id", order.UserID), zap.Error(err))
		return nil, step
	}
	return user, step
}

type orderDetails struct {
	userID  string
	items   []model.OrderItem
	address datatypes.JSONMap
	coupon  string
}

func (m *orderMaterializerImpl) details(p *model.Payment, req MaterializeRequest) orderDetails {
	d := orderDetails{
		userID:  flexString(p.Meta("userId", "user_id")),
		address: parseAddress(p.Meta("endereco", "address")),
		coupon:  flexString(p.Meta("cupom", "coupon")),
	}
	d.items = itemsFromPayment(p)

	if o := req.Override; o != nil {
		if o.UserID != "" {
			d.userID = o.UserID
		}
		if len(o.Items) > 0 {
			d.items = parseOrderItems(o.Items)
		}
		if present(o.Address) {
			d.address = parseAddress(o.Address)
		}
		if o.Coupon != "" {
			d.coupon = o.Coupon
		}
	}
	return d
}

// resolveRecipient picks the account e-mail, then a usable payer e-mail, then the address
// e-mail. The name comes from the account or the address.
func resolveRecipient(account *model.User, payerEmail string, addr datatypes.JSONMap) Recipient {
	var to Recipient
	if account != nil {
		to.Email, to.Name = account.Email, account.Name
	}
	if to.Email == "" && usablePayerEmail(payerEmail) {
		to.Email = payerEmail
	}
	if to.Email == "" {
		to.Email = addressField(addr, "email")
	}
	if to.Name == "" {
		to.Name = addressField(addr, "nome", "name")
	}
	return to
}
