package config

import (
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Environment      Environment
	Log              Log
	HTTP             HTTPServer
	BaseURL          string `env:"BASE_URL" envDefault:"http://localhost:4000"`
	FrontendURL      string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	BackendPublicURL string `env:"BACKEND_PUBLIC_URL"`
	AdminEmail       string `env:"ADMIN_EMAIL"`
	ContactEmail     string `env:"CONTACT_EMAIL" envDefault:"contatoasapdev@gmail.com"`

	Database    Database    `envPrefix:"DATABASE_"`
	JWT         JWT         `envPrefix:"JWT_"`
	MercadoPago MercadoPago `envPrefix:"MP_"`
	SMTP        SMTP        `envPrefix:"SMTP_"`
	Redis       Redis       `envPrefix:"REDIS_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"7"`
}

type HTTPServer struct {
	Host        string   `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port        string   `env:"HTTP_PORT" envDefault:"4000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	BodyLimit   string   `env:"BODY_LIMIT" envDefault:"50M"`
	ImagesDir   string   `env:"IMAGES_DIR" envDefault:"upload/images"`
}

type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"` // sqlite | mysql | postgres
	URL             string        `env:"URL" envDefault:"asapshop.db"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

type JWT struct {
	Secret string        `env:"SECRET" envDefault:"secret_ecom"`
	TTL    time.Duration `env:"TTL" envDefault:"168h"`
}

type MercadoPago struct {
	AccessToken string        `env:"ACCESS_TOKEN"`
	BaseApiURL  string        `env:"BASE_API_URL" envDefault:"https://api.mercadopago.com"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type SMTP struct {
	Host   string `env:"HOST"`
	Port   int    `env:"PORT" envDefault:"587"`
	User   string `env:"USER"`
	Pass   string `env:"PASS"`
	From   string `env:"FROM"`
	Secure bool   `env:"SECURE" envDefault:"false"`
}

// Sender returns the From address, falling back to the SMTP user.
func (s SMTP) Sender() string {
	if s.From != "" {
		return s.From
	}
	return s.User
}

type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TTL" envDefault:"72h"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

func (c *Config) Frontend() string {
	return strings.TrimRight(c.FrontendURL, "/")
}

func (c *Config) DefaultImage() string {
	return strings.TrimRight(c.BaseURL, "/") + "/images/default.png"
}

// NotificationURL is the webhook address handed to the gateway. It is empty unless
// BACKEND_PUBLIC_URL is a public http(s) address, since the gateway rejects local ones.
func (c *Config) NotificationURL() string {
	base := strings.TrimRight(c.BackendPublicURL, "/")
	if base == "" {
		return ""
	}
	u, err := url.Parse(base + "/pagamento/mp/webhook")
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	switch u.Hostname() {
	case "", "localhost", "127.0.0.1":
		return ""
	}
	return u.String()
}
