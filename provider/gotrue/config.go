package gotrue

import (
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Config holds GoTrue connection and token validation options.
type Config struct {
	// BaseURL is the GoTrue root (e.g. "https://xyz.supabase.co/auth/v1").
	BaseURL string

	// APIKey is the public (anon) key sent as the apikey header.
	APIKey string

	// JWTSecret is the HS256 signing secret. Leave empty when the
	// deployment signs with asymmetric keys and set JWKSURL instead.
	JWTSecret string

	// JWKSURL is the JWK Set endpoint for asymmetric deployments.
	JWKSURL string

	// Timeout bounds every HTTP call. Default: 10 seconds.
	Timeout time.Duration

	// HTTPClient overrides the default client (useful for tests).
	HTTPClient *http.Client
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.APIKey, validation.Required),
	)
}

func (c Config) baseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 10 * time.Second
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.timeout()}
}
