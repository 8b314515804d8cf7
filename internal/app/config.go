package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERDESK_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ORDERDESK_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`

	Admin    AdminConfig
	Receipts ReceiptConfig
	Notify   NotifyConfig

	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// AdminConfig controls who counts as an administrator and where admin
// notifications land.
type AdminConfig struct {
	// Emails is the static allow-list; API keys with the admin scope are
	// admins regardless of this list.
	Emails []string `usage:"Admin email allow-list" flag:"admin-emails"`
	// Inbox receives the receipt-awaiting-review notifications.
	Inbox string `default:"orders@veloshop.example" usage:"Admin notification inbox" flag:"admin-inbox"`
	// HistoryURL is linked from order confirmation emails.
	HistoryURL string `default:"https://veloshop.example/account/orders" usage:"Customer order history URL" flag:"history-url"`
}

// ReceiptConfig controls receipt file storage.
type ReceiptConfig struct {
	Dir     string `default:"./receipts" usage:"Directory for stored receipt files" flag:"receipt-dir"`
	BaseURL string `default:"" usage:"Base URL prepended to stored receipt references" flag:"receipt-base-url"`
	MaxSize int64  `default:"5242880" usage:"Receipt size ceiling in bytes" flag:"receipt-max-size"`
}

// NotifyConfig controls notification dispatch.
type NotifyConfig struct {
	// AMQPURL enables the RabbitMQ transport; empty means notifications are
	// only logged (development mode).
	AMQPURL  string `usage:"RabbitMQ URL for the mail exchange" flag:"amqp-url"`
	Exchange string `default:"orderdesk.mail" usage:"AMQP topic exchange for notifications"`
	// RedisAddr enables cross-process notification dedupe; empty falls back
	// to in-memory dedupe.
	RedisAddr string        `usage:"Redis address for notification dedupe" flag:"redis-addr"`
	Timeout   time.Duration `default:"5s" usage:"Per-notification delivery timeout"`
	DedupeTTL time.Duration `default:"24h" usage:"How long a sent notification suppresses duplicates" flag:"dedupe-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERDESK",
		Files:     []string{"config.yaml", "/etc/orderdesk/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ORDERDESK_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's ORDERDESK_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
