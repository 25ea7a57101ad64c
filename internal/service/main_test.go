package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"asapshop-backend/internal/client"
	"asapshop-backend/internal/config"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := client.InitDB(config.Database{
		Driver:       "sqlite",
		URL:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fakeGateway serves canned payments and records what was sent to it.
type fakeGateway struct {
	mu          sync.Mutex
	payments    map[string]*model.Payment
	err         error
	getCalls    int
	paymentReqs []*client.PaymentRequest
	prefs       []*client.PreferenceRequest
	created     *model.Payment
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]*model.Payment{}}
}

func (g *fakeGateway) add(p *model.Payment) {
	if p.Raw == nil {
		p.Raw, _ = json.Marshal(map[string]any{"id": p.ID, "status": p.Status})
	}
	g.payments[p.ID.String()] = p
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (*model.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if g.err != nil {
		return nil, g.err
	}
	p, ok := g.payments[id]
	if !ok {
		return nil, &client.GatewayError{StatusCode: 404, Message: "Payment not found"}
	}
	return p, nil
}

func (g *fakeGateway) CreatePayment(_ context.Context, req *client.PaymentRequest) (*model.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.paymentReqs = append(g.paymentReqs, req)
	if g.created != nil {
		return g.created, nil
	}
	return &model.Payment{ID: "1001", Status: model.PaymentStatusPending}, nil
}

func (g *fakeGateway) CreatePreference(_ context.Context, req *client.PreferenceRequest) (*client.Preference, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.prefs = append(g.prefs, req)
	return &client.Preference{ID: "pref-1", InitPoint: "https://mp.test/init/pref-1"}, nil
}

type sentOrderMail struct {
	order OrderMail
	to    Recipient
}

type fakeNotifier struct {
	mu       sync.Mutex
	orders   []sentOrderMail
	codes    map[string]string
	contacts []ContactMessage
	err      error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: map[string]string{}}
}

func (n *fakeNotifier) NotifyOrderPaid(_ context.Context, order OrderMail, to Recipient) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, sentOrderMail{order: order, to: to})
	return n.err
}

func (n *fakeNotifier) SendVerificationCode(_ context.Context, to Recipient, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[to.Email] = code
	return n.err
}

func (n *fakeNotifier) SendContact(_ context.Context, msg ContactMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contacts = append(n.contacts, msg)
	return n.err
}

// memCache is an in-process PaymentCache.
type memCache struct {
	mu sync.Mutex
	m  map[string]uint
}

func newMemCache() *memCache { return &memCache{m: map[string]uint{}} }

func (c *memCache) Recall(_ context.Context, paymentID string) (uint, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.m[paymentID]
	return id, ok, nil
}

func (c *memCache) Remember(_ context.Context, paymentID string, orderID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.m[paymentID]; !ok {
		c.m[paymentID] = orderID
	}
	return nil
}

var _ repository.PaymentCache = (*memCache)(nil)
