package middleware

import (
	"context"
	"net/http"
	"strings"

	"asapshop-backend/internal/auth"

	"github.com/labstack/echo/v4"
)

const (
	userIDKey  = "user_id"
	isAdminKey = "is_admin"
)

type TokenParser interface {
	Parse(token string) (*auth.Principal, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// tokenFrom reads "Authorization: Bearer <t>" and falls back to the auth-token header.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		if _, t, ok := strings.Cut(h, " "); ok && t != "" {
			return strings.TrimSpace(t)
		}
	}
	return strings.TrimSpace(r.Header.Get("auth-token"))
}

// Auth rejects requests without a valid session token and stores the caller's id.
func Auth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := tokenFrom(c.Request())
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token ausente")
			}
			principal, err := tokens.Parse(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token inválido")
			}
			c.Set(userIDKey, principal.ID)
			c.Set(isAdminKey, principal.IsAdmin)
			return next(c)
		}
	}
}

// RequireAdmin runs after Auth. The admin flag is read from the account, not the token, so
// revoking it takes effect immediately.
func RequireAdmin(accounts AdminChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := UserID(c)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token ausente")
			}
			ok, err := accounts.IsAdmin(c.Request().Context(), userID)
			if err != nil || !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Acesso negado. Apenas admins.")
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated caller, or "" on public routes.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
