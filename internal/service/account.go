package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"asapshop-backend/internal/auth"
	"asapshop-backend/internal/config"
	"asapshop-backend/internal/dto"
	"asapshop-backend/internal/model"
	"asapshop-backend/internal/repository"

	"github.com/nanorand/nanorand"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minPasswordLen     = 6
	verificationCodeLn = 6
	verificationTTL    = time.Hour
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type TokenIssuer interface {
	Sign(user auth.Principal) (string, error)
}

type AccountService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) error
	Confirm(ctx context.Context, req *dto.ConfirmRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	GetUser(ctx context.Context, userID string) (*dto.UserProfile, error)
	UpdateUser(ctx context.Context, userID string, req *dto.UpdateUserRequest) (*model.User, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)

	AddToCart(ctx context.Context, userID string, req *dto.CartLineRequest) error
	RemoveFromCart(ctx context.Context, userID string, req *dto.CartLineRequest) error
	GetCart(ctx context.Context, userID string) (map[string]dto.CartLine, error)
	Checkout(ctx context.Context, userID string, req *dto.CheckoutRequest) error
	History(ctx context.Context, userID string) ([]*model.HistoryEntry, error)

	ListOrders(ctx context.Context) ([]*repository.HistoryRow, error)
	UpdateOrderStatus(ctx context.Context, entryID, status string) error
	ListUsers(ctx context.Context) ([]*model.User, error)
	ClearHistory(ctx context.Context, userID string) (*model.User, error)
	DeleteHistoryEntry(ctx context.Context, userID, entryID string) error
}

type accountServiceImpl struct {
	db              *gorm.DB
	cfg             *config.Config
	userRepo        repository.UserRepository
	pendingUserRepo repository.PendingUserRepository
	historyRepo     repository.HistoryRepository
	cartRepo        repository.CartRepository
	productRepo     repository.ProductRepository
	hasher          PasswordHasher
	tokens          TokenIssuer
	notifier        Notifier
	log             *zap.Logger
	now             func() time.Time
	newCode         func() (string, error)
}

func NewAccountService(
	db *gorm.DB,
	cfg *config.Config,
	userRepo repository.UserRepository,
	pendingUserRepo repository.PendingUserRepository,
	historyRepo repository.HistoryRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	notifier Notifier,
	log *zap.Logger,
) AccountService {
	return &accountServiceImpl{
		db:              db,
		cfg:             cfg,
		userRepo:        userRepo,
		pendingUserRepo: pendingUserRepo,
		historyRepo:     historyRepo,
		cartRepo:        cartRepo,
		productRepo:     productRepo,
		hasher:          hasher,
		tokens:          tokens,
		notifier:        notifier,
		log:             log,
		now:             time.Now,
		newCode:         func() (string, error) { return nanorand.Gen(verificationCodeLn) },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeImageURL keeps absolute URLs, resolves paths under /images against the public base
// URL and falls back to the default avatar for anything else.
func (s *accountServiceImpl) normalizeImageURL(image string) string {
	switch {
	case image == "":
		return s.cfg.DefaultImage()
	case strings.HasPrefix(image, "http://"), strings.HasPrefix(image, "https://"):
		return image
	case strings.HasPrefix(image, "/images/"), strings.HasPrefix(image, "images/"):
		return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(image, "/")
	}
	return s.cfg.DefaultImage()
}

// Signup parks the account until the e-mailed code is confirmed. Asking again replaces the
// previous code.
func (s *accountServiceImpl) Signup(ctx context.Context, req *dto.SignupRequest) error {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return invalid("Campos obrigatórios ausentes")
	}
	if !emailPattern.MatchString(req.Email) {
		return invalid("Formato de email inválido")
	}
	if len(req.Password) < minPasswordLen {
		return invalid("Senha deve ter no mínimo 6 caracteres")
	}

	email := normalizeEmail(req.Email)
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if !repository.IsNotFound(err) {
		return fmt.Errorf("find user by email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	pending := &model.PendingUser{
		Name:      req.Username,
		Email:     email,
		Password:  hash,
		Image:     s.normalizeImageURL(req.Image),
		Code:      code,
		ExpiresAt: s.now().Add(verificationTTL),
	}
	if err := s.pendingUserRepo.Upsert(ctx, pending); err != nil {
		return fmt.Errorf("store pending user: %w", err)
	}

	if err := s.notifier.SendVerificationCode(ctx, Recipient{Email: email, Name: req.Username}, code); err != nil {
		s.log.Error("send verification code", zap.String("email", email), zap.Error(err))
	}
	return nil
}

func (s *accountServiceImpl) Confirm(ctx context.Context, req *dto.ConfirmRequest) (*dto.AuthResponse, error) {
	if req.Email == "" || req.Code == "" {
		return nil, invalid("email e code obrigatórios")
	}

	pending, err := s.pendingUserRepo.FindByEmailAndCode(ctx, normalizeEmail(req.Email), strings.TrimSpace(req.Code))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if pending.ExpiresAt.Before(s.now()) {
		if err := s.pendingUserRepo.Delete(ctx, pending.ID); err != nil {
			s.log.Warn("delete expired pending user", zap.Uint("pending_id", pending.ID), zap.Error(err))
		}
		return nil, ErrCodeExpired
	}

	user := &model.User{
		Name:     pending.Name,
		Email:    pending.Email,
		Password: pending.Password,
		Image:    s.normalizeImageURL(pending.Image),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.pendingUserRepo.Delete(ctx, pending.ID); err != nil {
		s.log.Warn("delete pending user", zap.Uint("pending_id", pending.ID), zap.Error(err))
	}
	s.log.Info("account confirmed", zap.String("user_id", user.ID))

	return s.session(user)
}

func (s *accountServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrWrongEmail
		}
		return nil, err
	}
	if !s.hasher.Compare(user.Password, req.Password) {
		return nil, ErrWrongPassword
	}
	return s.session(user)
}

func (s *accountServiceImpl) session(user *model.User) (*dto.AuthResponse, error) {
	token, err := s.tokens.Sign(auth.Principal{ID: user.ID, IsAdmin: user.IsAdmin})
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &dto.AuthResponse{
		Success: true,
		Token:   token,
		User: dto.UserSummary{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Image: s.normalizeImageURL(user.Image),
		},
	}, nil
}

func (s *accountServiceImpl) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *accountServiceImpl) GetUser(ctx context.Context, userID string) (*dto.UserProfile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.historyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return &dto.UserProfile{
		Name:     user.Name,
		Email:    user.Email,
		Image:    s.normalizeImageURL(user.Image),
		CartData: cart,
		History:  history,
		Date:     user.Date,
	}, nil
}

func (s *accountServiceImpl) UpdateUser(ctx context.Context, userID string, req *dto.UpdateUserRequest) (*model.User, error) {
	var upd repository.UserUpdate
	if name := strings.TrimSpace(req.Name); name != "" {
		upd.Name = &name
	}
	if req.Email != "" {
		email := normalizeEmail(req.Email)
		if !emailPattern.MatchString(email) {
			return nil, invalid("Formato de email inválido")
		}
		taken, err := s.userRepo.EmailTakenByOther(ctx, email, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailInUse
		}
		upd.Email = &email
	}
	if req.Password != "" {
		if len(req.Password) < minPasswordLen {
			return nil, invalid("Senha deve ter no mínimo 6 caracteres")
		}
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		upd.Password = &hash
	}
	if req.Image != "" {
		image := s.normalizeImageURL(req.Image)
		upd.Image = &image
	}

	user, err := s.userRepo.Update(ctx, userID, upd)
	switch {
	case repository.IsNotFound(err):
		return nil, ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrEmailInUse
	case err != nil:
		return nil, err
	}
	user.Image = s.normalizeImageURL(user.Image)
	return user, nil
}

func (s *accountServiceImpl) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

func cartLine(req *dto.CartLineRequest) (itemID, size, color string) {
	itemID, size, color = flexString(req.ItemID), req.Size, req.Color
	if size == "" {
		size = model.DefaultSize
	}
	if color == "" {
		color = model.DefaultColor
	}
	return itemID, size, color
}

func (s *accountServiceImpl) AddToCart(ctx context.Context, userID string, req *dto.CartLineRequest) error {
	itemID, size, color := cartLine(req)
	if itemID == "" {
		return invalid("itemId obrigatório")
	}
	if _, err := s.findUser(ctx, userID); err != nil {
		return err
	}
	return s.cartRepo.Increment(ctx, &model.CartItem{
		UserID:     userID,
		LineKey:    model.CartKey(itemID, size, color),
		ProductRef: itemID,
		Size:       size,
		Color:      color,
	})
}

func (s *accountServiceImpl) RemoveFromCart(ctx context.Context, userID string, req *dto.CartLineRequest) error {
	itemID, size, color := cartLine(req)
	if _, err := s.findUser(ctx, userID); err != nil {
		return err
	}
	return s.cartRepo.Decrement(ctx, userID, model.CartKey(itemID, size, color))
}

func (s *accountServiceImpl) GetCart(ctx context.Context, userID string) (map[string]dto.CartLine, error) {
	items, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	cart := make(map[string]dto.CartLine, len(items))
	for _, it := range items {
		cart[it.LineKey] = dto.CartLine{Qty: it.Qty, Size: it.Size, Color: it.Color, ID: it.ProductRef}
	}
	return cart, nil
}

// Checkout records a purchase settled outside the gateway. Every line is checked against the
// catalog first; stock is then taken and the history entry written in one transaction, so a
// line that lost a race for stock rolls the whole purchase back.
func (s *accountServiceImpl) Checkout(ctx context.Context, userID string, req *dto.CheckoutRequest) error {
	if len(req.Items) == 0 {
		return invalid("Itens inválidos ou ausentes.")
	}

	type line struct {
		ref     string
		qty     int
		product *model.Product
		size    string
		color   string
	}
	lines := make([]line, 0, len(req.Items))
	var problems []string
	for _, it := range req.Items {
		ref := flexString(it.ID)
		product, err := s.productRepo.FindByRef(ctx, ref)
		if err != nil {
			if !repository.IsNotFound(err) {
				return fmt.Errorf("find product %s: %w", ref, err)
			}
			problems = append(problems, fmt.Sprintf("Produto com ID %s não encontrado", ref))
			continue
		}
		if it.Qty <= 0 {
			problems = append(problems, fmt.Sprintf("Quantidade inválida para \"%s\"", product.Name))
			continue
		}
		if it.Qty > product.Stock {
			problems = append(problems, fmt.Sprintf("Estoque insuficiente para \"%s\"", product.Name))
			continue
		}
		lines = append(lines, line{ref: ref, qty: it.Qty, product: product, size: it.Size, color: it.Color})
	}
	if len(problems) > 0 {
		return invalid(strings.Join(problems, "\n"))
	}

	total := decimal.Zero
	items := make([]model.HistoryItem, 0, len(lines))
	for _, l := range lines {
		total = total.Add(l.product.NewPrice.Mul(decimal.NewFromInt(int64(l.qty))))
		size, color := l.size, l.color
		if size == "" {
			size = model.DefaultSize
		}
		if color == "" {
			color = model.DefaultColor
		}
		items = append(items, model.HistoryItem{
			ID:        l.ref,
			Qty:       l.qty,
			Name:      l.product.Name,
			UnitPrice: l.product.NewPrice,
			Size:      size,
			Color:     color,
			Image:     l.product.FirstImage(),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range lines {
			ok, err := s.productRepo.DecrementStock(ctx, tx, l.ref, l.qty)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return invalid(fmt.Sprintf("Estoque insuficiente para \"%s\"", l.product.Name))
			}
		}
		return s.historyRepo.Append(ctx, tx, &model.HistoryEntry{
			UserID:  userID,
			Items:   items,
			Address: parseAddress(req.Address),
			Total:   total,
			Status:  model.HistoryStatusPending,
		})
	})
	if repository.IsNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

func (s *accountServiceImpl) History(ctx context.Context, userID string) ([]*model.HistoryEntry, error) {
	return s.historyRepo.ListByUser(ctx, userID)
}

func (s *accountServiceImpl) ListOrders(ctx context.Context) ([]*repository.HistoryRow, error) {
	return s.historyRepo.ListAll(ctx)
}

func (s *accountServiceImpl) UpdateOrderStatus(ctx context.Context, entryID, status string) error {
	if strings.TrimSpace(status) == "" {
		return invalid("status obrigatório")
	}
	err := s.historyRepo.UpdateStatus(ctx, entryID, status)
	if repository.IsNotFound(err) {
		return ErrHistoryEntryNotFound
	}
	return err
}

func (s *accountServiceImpl) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.List(ctx)
}

func (s *accountServiceImpl) ClearHistory(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	removed, err := s.historyRepo.Clear(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("clear history: %w", err)
	}
	s.log.Info("history cleared", zap.String("user_id", userID), zap.Int64("entries", removed))
	return user, nil
}

func (s *accountServiceImpl) DeleteHistoryEntry(ctx context.Context, userID, entryID string) error {
	if _, err := s.findUser(ctx, userID); err != nil {
		return err
	}
	err := s.historyRepo.Delete(ctx, userID, entryID)
	if repository.IsNotFound(err) {
		return ErrHistoryEntryNotFound
	}
	return err
}
