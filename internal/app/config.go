package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Commerce    CommerceConfig
	PayPal      PayPalConfig
	Webhook     WebhookConfig
	Revalidate  RevalidateConfig
	Shipping    ShippingConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CommerceConfig points at the remote commerce platform's admin API.
type CommerceConfig struct {
	BaseURL     string        `usage:"Commerce platform admin API base URL" flag:"commerce-base-url"`
	AccessToken string        `usage:"Commerce platform access token (SHOP_COMMERCE_ACCESS_TOKEN)" flag:"commerce-access-token"`
	Timeout     time.Duration `default:"8s" usage:"Commerce platform request timeout"`
	Currency    string        `default:"EUR" usage:"Store default currency code"`
}

// PayPalConfig holds PayPal REST API credentials. Empty credentials disable
// PayPal at call time, not at startup, so the rest of the API stays up.
type PayPalConfig struct {
	BaseURL  string `usage:"PayPal API base URL (defaults to the sandbox)" flag:"paypal-base-url"`
	ClientID string `usage:"PayPal OAuth2 client id (SHOP_PAYPAL_CLIENT_ID)" flag:"paypal-client-id"`
	Secret   string `usage:"PayPal OAuth2 client secret (SHOP_PAYPAL_SECRET)" flag:"paypal-secret"`
}

// WebhookConfig holds the inbound webhook authentication settings.
type WebhookConfig struct {
	Secret          string `usage:"Shared HMAC secret for webhook signatures (SHOP_WEBHOOK_SECRET)" flag:"webhook-secret"`
	RevalidateToken string `usage:"Bearer token admitting operator-triggered revalidation calls" flag:"webhook-revalidate-token"`
}

// RevalidateConfig points at the storefront frontend's cache revalidation
// endpoint. An empty URL disables dispatch.
type RevalidateConfig struct {
	URL     string        `usage:"Frontend revalidation endpoint URL" flag:"revalidate-url"`
	Token   string        `usage:"Bearer token for the frontend revalidation endpoint" flag:"revalidate-token"`
	Timeout time.Duration `default:"5s" usage:"Frontend revalidation request timeout"`
}

// ShippingConfig is the flat-rate shipping table. Rates are decimal strings
// so they survive config round-trips without float drift.
type ShippingConfig struct {
	FreeThreshold string `default:"50" usage:"Subtotal at which standard shipping becomes free" flag:"shipping-free-threshold"`
	StandardRate  string `default:"5.99" usage:"Standard shipping rate" flag:"shipping-standard-rate"`
	ExpressRate   string `default:"12.99" usage:"Express shipping rate" flag:"shipping-express-rate"`
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
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Commerce.BaseURL == "" {
		return nil, errors.New("commerce base URL is required: set SHOP_COMMERCE_BASE_URL")
	}
	if _, err := cfg.ShippingTable(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ShippingTable parses the configured shipping rates into decimals.
func (c *Config) ShippingTable() (checkout.ShippingConfig, error) {
	threshold, err := decimal.NewFromString(c.Shipping.FreeThreshold)
	if err != nil {
		return checkout.ShippingConfig{}, errors.Wrap(err, "parse shipping free threshold")
	}
	standard, err := decimal.NewFromString(c.Shipping.StandardRate)
	if err != nil {
		return checkout.ShippingConfig{}, errors.Wrap(err, "parse standard shipping rate")
	}
	express, err := decimal.NewFromString(c.Shipping.ExpressRate)
	if err != nil {
		return checkout.ShippingConfig{}, errors.Wrap(err, "parse express shipping rate")
	}
	return checkout.ShippingConfig{
		FreeThreshold: threshold,
		StandardRate:  standard,
		ExpressRate:   express,
	}, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's SHOP_-prefixed configuration.
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
