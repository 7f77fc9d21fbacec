package gotrue

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	guard "github.com/goliatone/go-session-guard"
)

// TokenValidator verifies GoTrue access tokens locally, either with the
// shared HS256 secret or against a JWKS endpoint.
type TokenValidator struct {
	keyFunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
	logger  guard.Logger
}

// NewTokenValidator picks the validation strategy from the config: JWKSURL
// wins when set, otherwise the HS256 secret.
func NewTokenValidator(cfg Config, logger guard.Logger) (*TokenValidator, error) {
	if logger == nil {
		logger = guard.DefaultLogger()
	}

	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Error("JWKS background refresh failed: %v", err)
			},
		})
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load JWK Set")
		}
		return &TokenValidator{keyFunc: jwks.Keyfunc, jwks: jwks, logger: logger}, nil
	}

	if cfg.JWTSecret == "" {
		return nil, goerrors.New("gotrue: JWTSecret or JWKSURL is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	secret := []byte(cfg.JWTSecret)
	hmacOnly := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}

	return &TokenValidator{keyFunc: hmacOnly, logger: logger}, nil
}

// Validate parses and verifies a token string, returning its claims.
func (v *TokenValidator) Validate(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return nil, normalizeValidationError(err)
	}

	if !token.Valid {
		return nil, guard.ErrUnableToParseClaims
	}

	return claims, nil
}

// Close stops the JWKS background refresh, when one is running.
func (v *TokenValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func normalizeValidationError(err error) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, jwt.ErrTokenExpired) {
		clone := guard.ErrSessionExpired.Clone()
		clone.Source = err
		return clone.WithMetadata(map[string]any{
			"provider": "gotrue",
			"cause":    err.Error(),
		})
	}

	return goerrors.Wrap(err, goerrors.CategoryAuth, "invalid access token").
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{"provider": "gotrue"})
}
