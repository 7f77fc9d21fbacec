package guard

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the server-recognized proof of authentication. It is owned by
// the cookie store and mutated only through refresh or logout.
type Session struct {
	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
}

func (s *Session) GetUserID() string {
	return s.UserID
}

func (s *Session) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

// ValidAt reports whether the session is still usable at the given instant.
// A session whose expiry equals now is already invalid, token presence
// notwithstanding.
func (s *Session) ValidAt(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.ExpiresAt.After(now)
}

// Expired is the complement of ValidAt for readability at call sites.
func (s *Session) Expired(now time.Time) bool {
	return !s.ValidAt(now)
}

// Tokens returns the raw pair the session carries.
func (s *Session) Tokens() TokenPair {
	if s == nil {
		return TokenPair{}
	}
	return TokenPair{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

func (s Session) String() string {
	return fmt.Sprintf(
		"user=%s exp=%s access_token=%d bytes refresh_token=%d bytes",
		s.UserID,
		s.ExpiresAt.Format(time.RFC1123),
		len(s.AccessToken),
		len(s.RefreshToken),
	)
}

// SessionFromClaims builds a Session from validated access token claims plus
// the raw pair the claims came from.
func SessionFromClaims(claims jwt.Claims, tokens TokenPair) (*Session, error) {
	if claims == nil {
		return nil, ErrUnableToParseClaims
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrUnableToParseClaims
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrUnableToParseClaims
	}

	return &Session{
		UserID:       sub,
		ExpiresAt:    exp.Time,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}
