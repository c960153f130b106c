package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (RELAY_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (RELAY_DATABASE_URL or DATABASE_URL)" flag:"database-url"`

	Paystack      PaystackConfig
	SMS           SMSConfig
	Notifications NotificationsConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// PaystackConfig holds payment processor credentials.
type PaystackConfig struct {
	SecretKey string `usage:"Paystack secret key (RELAY_PAYSTACK_SECRET_KEY)" flag:"paystack-secret-key"`
	BaseURL   string `default:"" usage:"Paystack API base URL override (tests only)" flag:"paystack-base-url"`
}

// SMSConfig holds messaging gateway credentials. All fields are optional;
// without them SMS dispatch degrades to logged failures instead of crashing.
type SMSConfig struct {
	ClientID     string `usage:"SMS gateway client id" flag:"sms-client-id"`
	ClientSecret string `usage:"SMS gateway client secret" flag:"sms-client-secret"`
	SenderID     string `default:"STOREFRONT" usage:"SMS sender id shown to recipients" flag:"sms-sender-id"`
	BaseURL      string `default:"" usage:"SMS gateway base URL override (tests only)" flag:"sms-base-url"`
}

// NotificationsConfig controls the reservation change-feed reactor.
type NotificationsConfig struct {
	Enabled bool `default:"true" usage:"Enable reservation status SMS notifications"`

	ConfirmedMessage string `default:"" usage:"Override SMS text for confirmed reservations" flag:"confirmed-message"`
	CompletedMessage string `default:"" usage:"Override SMS text for completed reservations" flag:"completed-message"`
	CancelledMessage string `default:"" usage:"Override SMS text for cancelled reservations" flag:"cancelled-message"`
}

// RateLimitConfig controls the per-client rate limiter.
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
// files, and platform defaults, then validates the required fields. Missing
// optional credentials degrade named features instead of failing startup.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "RELAY",
		Files:     []string{"config.yaml", "/etc/relay/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set RELAY_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Paystack.SecretKey == "" {
		return nil, errors.New("paystack secret key is required: set RELAY_PAYSTACK_SECRET_KEY")
	}

	return &cfg, nil
}

// ReservationMessages builds the tracked status→message table, applying any
// configured overrides on top of the defaults.
func (c *Config) ReservationMessages(defaults map[string]string) map[string]string {
	messages := make(map[string]string, len(defaults))
	for k, v := range defaults {
		messages[k] = v
	}
	if c.Notifications.ConfirmedMessage != "" {
		messages["confirmed"] = c.Notifications.ConfirmedMessage
	}
	if c.Notifications.CompletedMessage != "" {
		messages["completed"] = c.Notifications.CompletedMessage
	}
	if c.Notifications.CancelledMessage != "" {
		messages["cancelled"] = c.Notifications.CancelledMessage
	}
	return messages
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's RELAY_-prefixed configuration.
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
