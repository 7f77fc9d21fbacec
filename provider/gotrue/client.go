package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	guard "github.com/goliatone/go-session-guard"
)

// Client is a GoTrue API client. It satisfies guard.IdentityBackend and,
// because GoTrue rotates refresh tokens, guard.SessionRefresher as well.
type Client struct {
	cfg       Config
	validator *TokenValidator
	client    *http.Client
	logger    guard.Logger
	now       func() time.Time
}

var _ guard.IdentityBackend = &Client{}
var _ guard.SessionRefresher = &Client{}

// Option configures the client.
type Option func(*Client)

// WithLogger overrides the client logger.
func WithLogger(l guard.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source, used by tests to pin expiry math.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New validates the config and builds a client, including its token
// validator. Call Close when done to stop any JWKS refresh goroutine.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid gotrue config").
			WithCode(goerrors.CodeBadRequest)
	}

	c := &Client{
		cfg:    cfg,
		client: cfg.httpClient(),
		logger: guard.DefaultLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	validator, err := NewTokenValidator(cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.validator = validator

	return c, nil
}

// Close releases validator resources.
func (c *Client) Close() {
	if c.validator != nil {
		c.validator.Close()
	}
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// GetUser fetches the token owner from the /user endpoint. Hitting the
// service instead of trusting claims means a deleted or banned account fails
// here even while its token still verifies.
func (c *Client) GetUser(ctx context.Context, tokens guard.TokenPair) (*guard.User, error) {
	if tokens.AccessToken == "" {
		return nil, guard.ErrNoSessionTokens
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.baseURL()+"/user", nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to build user request")
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	req.Header.Set("apikey", c.cfg.APIKey)

	var payload userPayload
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}

	if payload.ID == "" {
		return nil, goerrors.New("gotrue: user response missing id", goerrors.CategoryOperation).
			WithCode(goerrors.CodeInternal)
	}

	return &guard.User{ID: payload.ID, Email: payload.Email}, nil
}

// GetSession validates the access token locally and derives the session from
// its claims. No network call is made; expiry comes straight from the token.
func (c *Client) GetSession(_ context.Context, tokens guard.TokenPair) (*guard.Session, error) {
	if tokens.AccessToken == "" {
		return nil, guard.ErrNoSessionTokens
	}

	claims, err := c.validator.Validate(tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	return guard.SessionFromClaims(claims, tokens)
}

type refreshPayload struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         *userPayload `json:"user"`
}

// RefreshSession exchanges the refresh token for a rotated pair. The caller
// owns persisting the new tokens.
func (c *Client) RefreshSession(ctx context.Context, tokens guard.TokenPair) (*guard.Session, error) {
	if tokens.RefreshToken == "" {
		return nil, guard.ErrNoSessionTokens
	}

	body, err := json.Marshal(map[string]string{"refresh_token": tokens.RefreshToken})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to encode refresh request")
	}

	url := c.cfg.baseURL() + "/token?grant_type=refresh_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to build refresh request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.cfg.APIKey)

	var payload refreshPayload
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}

	if payload.AccessToken == "" {
		return nil, goerrors.New("gotrue: refresh response missing access token", goerrors.CategoryOperation).
			WithCode(goerrors.CodeInternal)
	}

	session := &guard.Session{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    c.expiry(payload),
	}
	if payload.User != nil {
		session.UserID = payload.User.ID
		session.Email = payload.User.Email
	}

	c.logger.Debug("refreshed session for user %s", session.UserID)

	return session, nil
}

func (c *Client) expiry(p refreshPayload) time.Time {
	if p.ExpiresAt > 0 {
		return time.Unix(p.ExpiresAt, 0)
	}
	return c.now().Add(time.Duration(p.ExpiresIn) * time.Second)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.client.Do(req)
	if err != nil {
		failure := guard.ErrIdentityBackend.Clone()
		failure.Source = err
		return failure.WithMetadata(map[string]any{
			"provider": "gotrue",
			"url":      req.URL.Path,
		})
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read gotrue response")
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return goerrors.New("gotrue rejected the token", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithMetadata(map[string]any{"status": res.StatusCode})
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return goerrors.New("unexpected gotrue response", goerrors.CategoryOperation).
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{
				"status": res.StatusCode,
				"body":   string(data),
			})
	}

	if err := json.Unmarshal(data, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode gotrue response")
	}

	return nil
}
