package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the identity carried by a session token.
type Principal struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
}

type customClaims struct {
	User Principal `json:"user"`
	jwt.RegisteredClaims
}

// HSProvider signs and verifies HS256 session tokens.
type HSProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewHSProvider(secret string, ttl time.Duration) *HSProvider {
	return &HSProvider{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (p *HSProvider) Sign(user Principal) (string, error) {
	now := p.now()
	claims := customClaims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *HSProvider) Parse(token string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	cc, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid || cc.User.ID == "" {
		return nil, ErrInvalidToken
	}
	u := cc.User
	return &u, nil
}
