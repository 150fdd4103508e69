package magiclink

import (
	"strings"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// Config holds the options the authentication core consumes. Constructors
// take the interface so applications can back it with whatever configuration
// system they already run.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetTokenExpiryDays() int
	GetSessionExpiration() int
	GetAllowedDomain() string
	GetBypassLogin() bool
	GetDebug() bool
	GetBaseURL() string
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
}

// truthy matches the original deployment's accepted flag spellings.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// EnvConfig is the environment-backed Config implementation. Variable names
// mirror the council deployment.
type EnvConfig struct {
	SigningKey        string `env:"SECRET_KEY"`
	SigningMethod     string `env:"SIGNING_METHOD" envDefault:"HS256"`
	TokenExpiryDays   int    `env:"EMAIL_LOGIN_JWT_EXPIRY_DAYS" envDefault:"7"`
	SessionExpiration int    `env:"SESSION_EXPIRATION_HOURS" envDefault:"24"`
	AllowedDomain     string `env:"LGA_DOMAIN" envDefault:"murweh.qld.gov.au"`
	BypassLogin       string `env:"BYPASS_LOGIN" envDefault:"false"`
	Debug             string `env:"DEBUG" envDefault:"false"`
	BaseURL           string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Issuer            string `env:"TOKEN_ISSUER" envDefault:"murweh-lga"`
	ContextKey        string `env:"SESSION_COOKIE_NAME" envDefault:"magiclink_session"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"25"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	FromAddress  string `env:"DEFAULT_FROM_EMAIL"`
}

var _ Config = (*EnvConfig)(nil)

// NewEnvConfig parses configuration from the environment and validates it.
func NewEnvConfig() (*EnvConfig, error) {
	cfg, err := env.ParseAs[EnvConfig]()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse environment configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate enforces the invariants the core depends on: a signing secret
// must exist, the domain gate must be configured, and TTLs must be positive.
func (c *EnvConfig) Validate() error {
	if strings.TrimSpace(c.SigningKey) == "" {
		return goerrors.New("SECRET_KEY must be set", goerrors.CategoryBadInput)
	}
	if c.GetAllowedDomain() == "" {
		return goerrors.New("LGA_DOMAIN must be set", goerrors.CategoryBadInput)
	}
	if c.TokenExpiryDays <= 0 {
		return goerrors.New("EMAIL_LOGIN_JWT_EXPIRY_DAYS must be positive", goerrors.CategoryBadInput)
	}
	if c.SessionExpiration <= 0 {
		return goerrors.New("SESSION_EXPIRATION_HOURS must be positive", goerrors.CategoryBadInput)
	}
	return nil
}

func (c *EnvConfig) GetSigningKey() string    { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *EnvConfig) GetTokenExpiryDays() int  { return c.TokenExpiryDays }

// GetSessionExpiration returns the session token lifetime in hours.
func (c *EnvConfig) GetSessionExpiration() int { return c.SessionExpiration }

// GetAllowedDomain returns the organizational domain with any leading "@"
// stripped, as the original deployment tolerated both spellings.
func (c *EnvConfig) GetAllowedDomain() string {
	return strings.TrimPrefix(strings.TrimSpace(strings.ToLower(c.AllowedDomain)), "@")
}

// GetBypassLogin reports whether the development bypass is active. The flag
// is only honored while debug mode is also on, so a stray BYPASS_LOGIN in a
// production environment stays inert.
func (c *EnvConfig) GetBypassLogin() bool {
	return c.GetDebug() && truthy(c.BypassLogin)
}

func (c *EnvConfig) GetDebug() bool      { return truthy(c.Debug) }
func (c *EnvConfig) GetBaseURL() string  { return strings.TrimRight(c.BaseURL, "/") }
func (c *EnvConfig) GetIssuer() string   { return c.Issuer }
func (c *EnvConfig) GetAudience() []string {
	return nil
}
func (c *EnvConfig) GetContextKey() string { return c.ContextKey }

// GetFromAddress returns the sender address, defaulting to the no-reply
// alias on the allowed domain.
func (c *EnvConfig) GetFromAddress() string {
	if c.FromAddress != "" {
		return c.FromAddress
	}
	return "no-reply@" + c.GetAllowedDomain()
}
