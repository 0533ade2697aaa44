package accounts

import (
	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig implements Config from environment variables.
type EnvConfig struct {
	SigningKey            string   `env:"ACCOUNTS_SIGNING_KEY"`
	SigningMethod         string   `env:"ACCOUNTS_SIGNING_METHOD" envDefault:"HS256"`
	ContextKey            string   `env:"ACCOUNTS_CONTEXT_KEY" envDefault:"user"`
	TokenExpiration       int      `env:"ACCOUNTS_TOKEN_EXPIRATION" envDefault:"24"`
	ExtendedTokenDuration int      `env:"ACCOUNTS_EXTENDED_TOKEN_DURATION" envDefault:"720"`
	TokenLookup           string   `env:"ACCOUNTS_TOKEN_LOOKUP" envDefault:"cookie:user"`
	AuthScheme            string   `env:"ACCOUNTS_AUTH_SCHEME" envDefault:"Bearer"`
	Issuer                string   `env:"ACCOUNTS_ISSUER" envDefault:"accounts"`
	Audience              []string `env:"ACCOUNTS_AUDIENCE" envSeparator:","`
	RejectedRouteKey      string   `env:"ACCOUNTS_REJECTED_ROUTE_KEY" envDefault:"rejected_route"`
	RejectedRouteDefault  string   `env:"ACCOUNTS_REJECTED_ROUTE_DEFAULT" envDefault:"/"`
	LoginRoute            string   `env:"ACCOUNTS_LOGIN_ROUTE" envDefault:"/login"`
	Environment           string   `env:"ACCOUNTS_ENVIRONMENT" envDefault:"development"`

	BypassPaths    []string `env:"ACCOUNTS_BYPASS_PATHS" envSeparator:","`
	BypassPrefixes []string `env:"ACCOUNTS_BYPASS_PREFIXES" envSeparator:","`
}

// NewConfigFromEnv parses the environment into an EnvConfig.
func NewConfigFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse environment configuration")
	}

	if cfg.SigningKey == "" {
		return nil, errors.New("ACCOUNTS_SIGNING_KEY is required", errors.CategoryBadInput).
			WithTextCode("MISSING_SIGNING_KEY")
	}

	return cfg, nil
}

// BypassRules builds reconciliation bypass rules from the configured lists,
// merged on top of the defaults.
func (c *EnvConfig) BypassRules() *BypassRules {
	rules := DefaultBypassRules()
	rules.AddExact(c.BypassPaths...)
	rules.AddPrefix(c.BypassPrefixes...)
	return rules
}

func (c *EnvConfig) GetSigningKey() string    { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *EnvConfig) GetContextKey() string    { return c.ContextKey }

func (c *EnvConfig) GetTokenExpiration() int       { return c.TokenExpiration }
func (c *EnvConfig) GetExtendedTokenDuration() int { return c.ExtendedTokenDuration }

func (c *EnvConfig) GetTokenLookup() string { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string  { return c.AuthScheme }
func (c *EnvConfig) GetIssuer() string      { return c.Issuer }
func (c *EnvConfig) GetAudience() []string  { return c.Audience }

func (c *EnvConfig) GetRejectedRouteKey() string     { return c.RejectedRouteKey }
func (c *EnvConfig) GetRejectedRouteDefault() string { return c.RejectedRouteDefault }
func (c *EnvConfig) GetLoginRoute() string           { return c.LoginRoute }
func (c *EnvConfig) GetEnvironment() string          { return c.Environment }

var _ Config = (*EnvConfig)(nil)
