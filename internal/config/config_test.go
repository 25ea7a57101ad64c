package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}))

	assert.Equal(t, "secret_ecom", cfg.JWT.Secret)
	assert.Equal(t, 168*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "https://api.mercadopago.com", cfg.MercadoPago.BaseApiURL)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "http://localhost:3000", cfg.Frontend())
}

func TestParsePrefixedGroups(t *testing.T) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{
		"MP_ACCESS_TOKEN": "TEST-123",
		"SMTP_HOST":       "smtp.example.com",
		"SMTP_USER":       "shop@example.com",
		"REDIS_ADDR":      "localhost:6379",
		"DATABASE_DRIVER": "postgres",
		"CORS_ORIGINS":    "https://a.com,https://b.com",
		"FRONTEND_URL":    "https://shop.example.com/",
	}})
	require.NoError(t, err)

	assert.Equal(t, "TEST-123", cfg.MercadoPago.AccessToken)
	assert.Equal(t, "shop@example.com", cfg.SMTP.Sender())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "https://shop.example.com", cfg.Frontend())
}

func TestNotificationURL(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    string
	}{
		{"unset", "", ""},
		{"localhost", "http://localhost:4000", ""},
		{"loopback", "http://127.0.0.1:4000/", ""},
		{"not http", "ftp://example.com", ""},
		{"public", "https://abc.ngrok.io/", "https://abc.ngrok.io/pagamento/mp/webhook"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{BackendPublicURL: tt.backend}
			assert.Equal(t, tt.want, cfg.NotificationURL())
		})
	}
}
