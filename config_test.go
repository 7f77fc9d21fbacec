package guard_test

import (
	"testing"

	guard "github.com/goliatone/go-session-guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := guard.NewConfig()

	assert.Equal(t, guard.DefaultLoginPath, cfg.GetLoginPath())
	assert.Equal(t, guard.DefaultLandingPath, cfg.GetLandingPath())
	assert.Equal(t, guard.DefaultAccessCookieName, cfg.GetAccessCookieName())
	assert.Equal(t, guard.DefaultRefreshCookieName, cfg.GetRefreshCookieName())
	assert.Equal(t, guard.DefaultRejectedRouteKey, cfg.GetRejectedRouteKey())
	assert.Equal(t, guard.DefaultContextKey, cfg.GetContextKey())
	assert.False(t, cfg.GetSecureCookies())

	require.NoError(t, cfg.Validate())
}

func TestGuardConfigZeroValueFallsBack(t *testing.T) {
	cfg := &guard.GuardConfig{}

	assert.Equal(t, guard.DefaultLoginPath, cfg.GetLoginPath())
	assert.Equal(t, guard.DefaultLandingPath, cfg.GetLandingPath())
	assert.Equal(t, guard.DefaultAccessCookieName, cfg.GetAccessCookieName())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("GUARD_LOGIN_PATH", "/signin")
	t.Setenv("GUARD_LANDING_PATH", "/home")
	t.Setenv("GUARD_SECURE_COOKIES", "true")

	cfg, err := guard.NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/signin", cfg.GetLoginPath())
	assert.Equal(t, "/home", cfg.GetLandingPath())
	assert.True(t, cfg.GetSecureCookies())

	// untouched keys keep their defaults
	assert.Equal(t, guard.DefaultAccessCookieName, cfg.GetAccessCookieName())
}

func TestGuardConfigValidateRejectsRelativePaths(t *testing.T) {
	cfg := guard.NewConfig()
	cfg.LoginPath = "auth/login"
	assert.Error(t, cfg.Validate())

	cfg = guard.NewConfig()
	cfg.LandingPath = ""
	assert.Error(t, cfg.Validate())
}

func TestNewConfigFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("GUARD_LOGIN_PATH", "not-a-path")

	_, err := guard.NewConfigFromEnv()
	assert.Error(t, err)
}
