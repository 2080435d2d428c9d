package accounts

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// AppConfig is the concrete Config implementation. Load it once at process
// start; nothing in this package mutates it afterwards.
type AppConfig struct {
	SigningKey            string
	SigningMethod         string
	ContextKey            string
	TokenExpiration       int
	ExtendedTokenDuration int
	TokenLookup           string
	AuthScheme            string
	Issuer                string
	Audience              []string
	Domain                string
	SenderName            string
	ResetTokenTTL         time.Duration
	RejectedRouteKey      string
	RejectedRouteDefault  string
}

var _ Config = (*AppConfig)(nil)

// DefaultConfig returns a config with every non secret field filled in.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		SigningMethod:         "HS256",
		ContextKey:            "accounts:session",
		TokenExpiration:       24,
		ExtendedTokenDuration: 24 * 7,
		TokenLookup:           "header:Authorization,cookie:accounts:session",
		AuthScheme:            "Bearer",
		Issuer:                "go-accounts",
		Domain:                "http://localhost:3000",
		SenderName:            "Accounts",
		ResetTokenTTL:         15 * time.Minute,
		RejectedRouteKey:      "accounts:rejected_route",
		RejectedRouteDefault:  "/",
	}
}

// LoadConfig reads APP_* environment variables on top of the defaults.
// Recognized variables follow the upstream service: APP_SECRET, APP_DOMAIN,
// APP_ISSUER, APP_AUDIENCE (comma separated), APP_SENDER_NAME,
// APP_TOKEN_EXPIRATION (hours), APP_RESET_TOKEN_TTL (duration string).
func LoadConfig() (*AppConfig, error) {
	cfg := DefaultConfig()

	k := koanf.New(".")
	if err := k.Load(env.Provider("APP_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "APP_"))
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load environment configuration")
	}

	if v := k.String("secret"); v != "" {
		cfg.SigningKey = v
	}
	if v := k.String("domain"); v != "" {
		cfg.Domain = v
	}
	if v := k.String("issuer"); v != "" {
		cfg.Issuer = v
	}
	if v := k.String("audience"); v != "" {
		parts := strings.Split(v, ",")
		cfg.Audience = cfg.Audience[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Audience = append(cfg.Audience, p)
			}
		}
	}
	if v := k.String("sender_name"); v != "" {
		cfg.SenderName = v
	}
	if v := k.Int("token_expiration"); v > 0 {
		cfg.TokenExpiration = v
	}
	if v := k.String("reset_token_ttl"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryValidation, "invalid APP_RESET_TOKEN_TTL duration")
		}
		cfg.ResetTokenTTL = ttl
	}

	if cfg.SigningKey == "" {
		return nil, errors.New("APP_SECRET is required", errors.CategoryValidation)
	}

	return cfg, nil
}

func (c *AppConfig) GetSigningKey() string        { return c.SigningKey }
func (c *AppConfig) GetSigningMethod() string     { return c.SigningMethod }
func (c *AppConfig) GetContextKey() string        { return c.ContextKey }
func (c *AppConfig) GetTokenExpiration() int      { return c.TokenExpiration }
func (c *AppConfig) GetExtendedTokenDuration() int {
	return c.ExtendedTokenDuration
}
func (c *AppConfig) GetTokenLookup() string          { return c.TokenLookup }
func (c *AppConfig) GetAuthScheme() string           { return c.AuthScheme }
func (c *AppConfig) GetIssuer() string               { return c.Issuer }
func (c *AppConfig) GetAudience() []string           { return c.Audience }
func (c *AppConfig) GetDomain() string               { return c.Domain }
func (c *AppConfig) GetSenderName() string           { return c.SenderName }
func (c *AppConfig) GetResetTokenTTL() time.Duration { return c.ResetTokenTTL }
func (c *AppConfig) GetRejectedRouteKey() string     { return c.RejectedRouteKey }
func (c *AppConfig) GetRejectedRouteDefault() string { return c.RejectedRouteDefault }
