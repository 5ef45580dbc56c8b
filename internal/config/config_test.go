package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-orders-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, "http://127.0.0.1:8000", c.GetAPIURL())
	require.Equal(t, config.SessionBackendFile, c.GetSessionBackend())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 10*time.Second, c.GetRequestTimeout())
	require.Equal(t, 5*time.Minute, c.GetCacheTTL())
	require.Equal(t, 100, c.GetCacheMaxItems())
	require.Equal(t, "/ws", c.GetRealtimePath())
	require.Equal(t, 2*time.Second, c.GetReconnectBaseDelay())
	require.Equal(t, 5, c.GetMaxReconnectAttempts())
	require.Equal(t, time.Second, c.GetDebounceWindow())
	require.Equal(t, "X-CSRF-Token", c.GetCSRFHeaderName())
	require.Contains(t, c.GetCSRFExemptPaths(), "/security/csrf-token")
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("API_URL", "https://pedidos.example.com/")
	t.Setenv("SESSION_BACKEND", "REDIS")
	t.Setenv("ENV", "PROD")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "https://pedidos.example.com", c.GetAPIURL())
	require.Equal(t, config.SessionBackendRedis, c.GetSessionBackend())
	require.Equal(t, "PROD", c.GetEnv())
}

func TestGetSessionBackend_UnknownFallsBackToFile(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "sqlite")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, config.SessionBackendFile, c.GetSessionBackend())
}
