package guard

import (
	"strings"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultLoginPath is where unauthenticated visitors land.
	DefaultLoginPath = "/auth/login"
	// DefaultLandingPath is where authenticated visitors land when they hit
	// a public-only route.
	DefaultLandingPath = "/dashboard"
	// DefaultAccessCookieName matches the Supabase/GoTrue cookie convention.
	DefaultAccessCookieName = "sb-access-token"
	// DefaultRefreshCookieName matches the Supabase/GoTrue cookie convention.
	DefaultRefreshCookieName = "sb-refresh-token"
	// DefaultRejectedRouteKey names the return-to cookie.
	DefaultRejectedRouteKey = "guard_return_to"
	// DefaultContextKey is where the guard stores the snapshot in locals.
	DefaultContextKey = "guard_snapshot"
)

var _ Config = &GuardConfig{}

// GuardConfig is the concrete Config implementation. Zero values fall back
// to the package defaults; use NewConfigFromEnv for environment wiring.
type GuardConfig struct {
	LoginPath         string `env:"GUARD_LOGIN_PATH" json:"login_path"`
	LandingPath       string `env:"GUARD_LANDING_PATH" json:"landing_path"`
	AccessCookieName  string `env:"GUARD_ACCESS_COOKIE" json:"access_cookie"`
	RefreshCookieName string `env:"GUARD_REFRESH_COOKIE" json:"refresh_cookie"`
	RejectedRouteKey  string `env:"GUARD_REJECTED_ROUTE_KEY" json:"rejected_route_key"`
	ContextKey        string `env:"GUARD_CONTEXT_KEY" json:"context_key"`
	SecureCookies     bool   `env:"GUARD_SECURE_COOKIES" json:"secure_cookies"`
}

// NewConfig returns a config carrying the package defaults.
func NewConfig() *GuardConfig {
	return &GuardConfig{
		LoginPath:         DefaultLoginPath,
		LandingPath:       DefaultLandingPath,
		AccessCookieName:  DefaultAccessCookieName,
		RefreshCookieName: DefaultRefreshCookieName,
		RejectedRouteKey:  DefaultRejectedRouteKey,
		ContextKey:        DefaultContextKey,
	}
}

// NewConfigFromEnv loads the config from the environment on top of the
// defaults and validates the result.
func NewConfigFromEnv() (*GuardConfig, error) {
	cfg := NewConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse guard environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate will run validation rules
func (c *GuardConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LoginPath, validation.Required, validation.By(validateLeadingSlash)),
		validation.Field(&c.LandingPath, validation.Required, validation.By(validateLeadingSlash)),
		validation.Field(&c.AccessCookieName, validation.Required),
		validation.Field(&c.RefreshCookieName, validation.Required),
		validation.Field(&c.RejectedRouteKey, validation.Required),
		validation.Field(&c.ContextKey, validation.Required),
	)
}

func validateLeadingSlash(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") {
		return goerrors.New("path must start with /", goerrors.CategoryValidation)
	}
	return nil
}

func (c *GuardConfig) GetLoginPath() string {
	if c.LoginPath == "" {
		return DefaultLoginPath
	}
	return c.LoginPath
}

func (c *GuardConfig) GetLandingPath() string {
	if c.LandingPath == "" {
		return DefaultLandingPath
	}
	return c.LandingPath
}

func (c *GuardConfig) GetAccessCookieName() string {
	if c.AccessCookieName == "" {
		return DefaultAccessCookieName
	}
	return c.AccessCookieName
}

func (c *GuardConfig) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return DefaultRefreshCookieName
	}
	return c.RefreshCookieName
}

func (c *GuardConfig) GetRejectedRouteKey() string {
	if c.RejectedRouteKey == "" {
		return DefaultRejectedRouteKey
	}
	return c.RejectedRouteKey
}

func (c *GuardConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return DefaultContextKey
	}
	return c.ContextKey
}

func (c *GuardConfig) GetSecureCookies() bool {
	return c.SecureCookies
}
