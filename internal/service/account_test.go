package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"asapshop-backend/internal/auth"
	"asapshop-backend/internal/config"
	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type accountFixture struct {
	db       *gorm.DB
	svc      *accountServiceImpl
	tokens   *auth.HSProvider
	notifier *fakeNotifier
	users    repository.UserRepository
	products repository.ProductRepository
	history  repository.HistoryRepository
}

func newAccountFixture(t *testing.T) *accountFixture {
	db := newTestDB(t)
	f := &accountFixture{
		db:       db,
		tokens:   auth.NewHSProvider("test-secret", time.Hour),
		notifier: newFakeNotifier(),
		users:    repository.NewUserRepository(db),
		products: repository.NewProductRepository(db),
		history:  repository.NewHistoryRepository(db),
	}
	cfg := &config.Config{BaseURL: "http://shop.test"}
	f.svc = NewAccountService(
		db, cfg, f.users,
		repository.NewPendingUserRepository(db),
		f.history,
		repository.NewCartRepository(db),
		f.products,
		auth.NewBcrypt(bcrypt.MinCost),
		f.tokens,
		f.notifier,
		zap.NewNop(),
	).(*accountServiceImpl)
	return f
}

func (f *accountFixture) register(t *testing.T, name, email, password string) *dto.AuthResponse {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.Signup(ctx, &dto.SignupRequest{Username: name, Email: email, Password: password}))
	code := f.notifier.codes[normalizeEmail(email)]
	require.NotEmpty(t, code)
	resp, err := f.svc.Confirm(ctx, &dto.ConfirmRequest{Email: email, Code: code})
	require.NoError(t, err)
	return resp
}

func (f *accountFixture) product(t *testing.T, name string, price int64, stock int) string {
	t.Helper()
	p := &model.Product{
		Name:      name,
		Category:  "camisetas",
		NewPrice:  decimal.NewFromInt(price),
		DropID:    "drop",
		Available: true,
		Stock:     stock,
		Images:    []string{"http://shop.test/images/" + name + ".png"},
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p.ID
}

func TestSignupAndConfirm(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)

	resp := f.register(t, "Ana", "Ana@Example.com", "secret1")
	assert.True(t, resp.Success)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.Equal(t, "http://shop.test/images/default.png", resp.User.Image)

	principal, err := f.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, principal.ID)
	assert.False(t, principal.IsAdmin)

	var pending int64
	require.NoError(t, f.db.Model(&model.PendingUser{}).Count(&pending).Error)
	assert.Zero(t, pending)

	err = f.svc.Signup(ctx, &dto.SignupRequest{Username: "Ana", Email: "ana@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := f.svc.Login(ctx, &dto.LoginRequest{Email: " ANA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = f.svc.Login(ctx, &dto.LoginRequest{Email: "ana@example.com", Password: "wrong!"})
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = f.svc.Login(ctx, &dto.LoginRequest{Email: "bob@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrWrongEmail)
}

func TestSignupValidation(t *testing.T) {
	f := newAccountFixture(t)
	tests := []struct {
		name string
		req  dto.SignupRequest
		msg  string
	}{
		{"missing fields", dto.SignupRequest{Email: "a@b.co"}, "Campos obrigatórios ausentes"},
		{"bad email", dto.SignupRequest{Username: "a", Email: "a@b", Password: "secret1"}, "Formato de email inválido"},
		{"short password", dto.SignupRequest{Username: "a", Email: "a@b.co", Password: "123"}, "Senha deve ter no mínimo 6 caracteres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Signup(context.Background(), &tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.msg, verr.Message)
		})
	}
	assert.Empty(t, f.notifier.codes)
}

func TestConfirmRejectsBadOrExpiredCode(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	f.svc.newCode = func() (string, error) { return "ABC123", nil }

	require.NoError(t, f.svc.Signup(ctx, &dto.SignupRequest{Username: "Bia", Email: "bia@example.com", Password: "secret1"}))

	_, err := f.svc.Confirm(ctx, &dto.ConfirmRequest{Email: "bia@example.com", Code: "000000"})
	assert.ErrorIs(t, err, ErrInvalidCode)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.svc.Confirm(ctx, &dto.ConfirmRequest{Email: "bia@example.com", Code: "ABC123"})
	assert.ErrorIs(t, err, ErrCodeExpired)

	// the expired signup is gone
	_, err = f.svc.Confirm(ctx, &dto.ConfirmRequest{Email: "bia@example.com", Code: "ABC123"})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestSignupAgainReplacesCode(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	codes := []string{"FIRST1", "SECND2"}
	f.svc.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	req := &dto.SignupRequest{Username: "Caio", Email: "caio@example.com", Password: "secret1"}
	require.NoError(t, f.svc.Signup(ctx, req))
	require.NoError(t, f.svc.Signup(ctx, req))

	_, err := f.svc.Confirm(ctx, &dto.ConfirmRequest{Email: "caio@example.com", Code: "FIRST1"})
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = f.svc.Confirm(ctx, &dto.ConfirmRequest{Email: "caio@example.com", Code: "SECND2"})
	assert.NoError(t, err)
}

func TestNormalizeImageURL(t *testing.T) {
	f := newAccountFixture(t)
	tests := map[string]string{
		"":                          "http://shop.test/images/default.png",
		"https://cdn.test/a.png":    "https://cdn.test/a.png",
		"http://cdn.test/a.png":     "http://cdn.test/a.png",
		"/images/avatar.png":        "http://shop.test/images/avatar.png",
		"images/avatar.png":         "http://shop.test/images/avatar.png",
		"C:\\fakepath\\avatar.png":  "http://shop.test/images/default.png",
		"data:image/png;base64,AAA": "http://shop.test/images/default.png",
	}
	for in, want := range tests {
		assert.Equal(t, want, f.svc.normalizeImageURL(in), in)
	}
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	ana := f.register(t, "Ana", "ana@example.com", "secret1")
	f.register(t, "Bia", "bia@example.com", "secret1")

	_, err := f.svc.UpdateUser(ctx, ana.User.ID, &dto.UpdateUserRequest{Email: "bia@example.com"})
	assert.ErrorIs(t, err, ErrEmailInUse)

	user, err := f.svc.UpdateUser(ctx, ana.User.ID, &dto.UpdateUserRequest{Name: "Ana Maria", Password: "newsecret", Image: "/images/me.png"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", user.Name)
	assert.Equal(t, "http://shop.test/images/me.png", user.Image)

	_, err = f.svc.Login(ctx, &dto.LoginRequest{Email: "ana@example.com", Password: "newsecret"})
	assert.NoError(t, err)

	_, err = f.svc.UpdateUser(ctx, "missing", &dto.UpdateUserRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCart(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	ana := f.register(t, "Ana", "ana@example.com", "secret1")
	uid := ana.User.ID

	shirt := &dto.CartLineRequest{ItemID: json.RawMessage(`7`)}
	hat := &dto.CartLineRequest{ItemID: json.RawMessage(`"8"`), Size: "G", Color: "Azul"}
	require.NoError(t, f.svc.AddToCart(ctx, uid, shirt))
	require.NoError(t, f.svc.AddToCart(ctx, uid, shirt))
	require.NoError(t, f.svc.AddToCart(ctx, uid, hat))

	cart, err := f.svc.GetCart(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, dto.CartLine{Qty: 2, Size: model.DefaultSize, Color: model.DefaultColor, ID: "7"}, cart["7_Único_Padrão"])
	assert.Equal(t, dto.CartLine{Qty: 1, Size: "G", Color: "Azul", ID: "8"}, cart["8_G_Azul"])

	require.NoError(t, f.svc.RemoveFromCart(ctx, uid, shirt))
	require.NoError(t, f.svc.RemoveFromCart(ctx, uid, hat))
	cart, err = f.svc.GetCart(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, cart, 1)
	assert.Equal(t, 1, cart["7_Único_Padrão"].Qty)

	assert.ErrorIs(t, f.svc.AddToCart(ctx, "missing", shirt), ErrUserNotFound)

	var verr *ValidationError
	assert.ErrorAs(t, f.svc.AddToCart(ctx, uid, &dto.CartLineRequest{}), &verr)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	ana := f.register(t, "Ana", "ana@example.com", "secret1")
	shirt := f.product(t, "Shirt", 20, 5)
	hat := f.product(t, "Cap", 35, 1)

	err := f.svc.Checkout(ctx, ana.User.ID, &dto.CheckoutRequest{
		Items: []dto.CheckoutItem{
			{ID: json.RawMessage(`"` + shirt + `"`), Qty: 2, Size: "M"},
			{ID: json.RawMessage(`"` + hat + `"`), Qty: 1},
		},
		Address: json.RawMessage(`{"rua":"A"}`),
	})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, ana.User.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	entry := history[0]
	assert.Equal(t, model.HistoryStatusPending, entry.Status)
	assert.True(t, decimal.NewFromInt(75).Equal(entry.Total))
	assert.Equal(t, "A", entry.Address["rua"])
	require.Len(t, entry.Items, 2)
	assert.Equal(t, "M", entry.Items[0].Size)
	assert.Equal(t, model.DefaultColor, entry.Items[0].Color)
	assert.Equal(t, "http://shop.test/images/Shirt.png", entry.Items[0].Image)

	p, err := f.products.FindByRef(ctx, shirt)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
	p, err = f.products.FindByRef(ctx, hat)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestCheckoutRejectsWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	ana := f.register(t, "Ana", "ana@example.com", "secret1")
	shirt := f.product(t, "Shirt", 20, 5)
	hat := f.product(t, "Cap", 35, 1)

	err := f.svc.Checkout(ctx, ana.User.ID, &dto.CheckoutRequest{
		Items: []dto.CheckoutItem{
			{ID: json.RawMessage(`"` + shirt + `"`), Qty: 2},
			{ID: json.RawMessage(`"` + hat + `"`), Qty: 3},
			{ID: json.RawMessage(`"nope"`), Qty: 1},
			{ID: json.RawMessage(`"` + shirt + `"`), Qty: 0},
		},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t,
		"Estoque insuficiente para \"Cap\"\nProduto com ID nope não encontrado\nQuantidade inválida para \"Shirt\"",
		verr.Message)

	p, err := f.products.FindByRef(ctx, shirt)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	history, err := f.svc.History(ctx, ana.User.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	err = f.svc.Checkout(ctx, ana.User.ID, &dto.CheckoutRequest{})
	assert.ErrorAs(t, err, &verr)
}

func TestCheckoutUnknownUserRollsBackStock(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	shirt := f.product(t, "Shirt", 20, 5)

	err := f.svc.Checkout(ctx, "missing", &dto.CheckoutRequest{
		Items: []dto.CheckoutItem{{ID: json.RawMessage(`"` + shirt + `"`), Qty: 2}},
	})
	assert.ErrorIs(t, err, ErrUserNotFound)

	p, err := f.products.FindByRef(ctx, shirt)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestAdminHistoryTools(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t)
	ana := f.register(t, "Ana", "ana@example.com", "secret1")
	shirt := f.product(t, "Shirt", 20, 5)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.svc.Checkout(ctx, ana.User.ID, &dto.CheckoutRequest{
			Items: []dto.CheckoutItem{{ID: json.RawMessage(`"` + shirt + `"`), Qty: 1}},
		}))
	}

	rows, err := f.svc.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana", rows[0].UserName)
	assert.Equal(t, "ana@example.com", rows[0].UserEmail)

	require.NoError(t, f.svc.UpdateOrderStatus(ctx, rows[0].ID, "Enviado"))
	assert.ErrorIs(t, f.svc.UpdateOrderStatus(ctx, "missing", "Enviado"), ErrHistoryEntryNotFound)
	var verr *ValidationError
	assert.ErrorAs(t, f.svc.UpdateOrderStatus(ctx, rows[0].ID, " "), &verr)

	require.NoError(t, f.svc.DeleteHistoryEntry(ctx, ana.User.ID, rows[0].ID))
	assert.ErrorIs(t, f.svc.DeleteHistoryEntry(ctx, ana.User.ID, rows[0].ID), ErrHistoryEntryNotFound)

	user, err := f.svc.ClearHistory(ctx, ana.User.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.User.ID, user.ID)
	history, err := f.svc.History(ctx, ana.User.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.svc.ClearHistory(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	admin, err := f.svc.IsAdmin(ctx, ana.User.ID)
	require.NoError(t, err)
	assert.False(t, admin)
}
