package session_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-orders-client/session"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestParseRole(t *testing.T) {
	require.Equal(t, session.RoleAdmin, session.ParseRole("admin"))
	require.Equal(t, session.RoleManager, session.ParseRole("GESTOR"))
	require.Equal(t, session.RoleManager, session.ParseRole("manager"))
	require.Equal(t, session.RoleCommon, session.ParseRole("comum"))
	require.Equal(t, session.RoleCommon, session.ParseRole(""))

	require.True(t, session.RoleAdmin.IsPrivileged())
	require.True(t, session.RoleManager.IsPrivileged())
	require.False(t, session.RoleCommon.IsPrivileged())
}

func TestParseExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.MapClaims{"sub": "ana@example.com", "exp": exp.Unix()})

	require.True(t, exp.Equal(session.ParseExpiry(token)))
	require.Equal(t, "ana@example.com", session.ParseSubject(token))
}

func TestParseExpiry_OpaqueToken(t *testing.T) {
	require.True(t, session.ParseExpiry("abc").IsZero())
	require.Empty(t, session.ParseSubject("abc"))

	noExp := signedToken(t, jwt.MapClaims{"sub": "ana@example.com"})
	require.True(t, session.ParseExpiry(noExp).IsZero())
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, session.Session{}.Expired(now))
	require.False(t, session.Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	require.True(t, session.Session{ExpiresAt: now.Add(-time.Minute)}.Expired(now))
}

func TestSession_TokenSetsBearerHeader(t *testing.T) {
	s := session.Session{AccessToken: "abc", TokenType: "bearer"}

	req, err := http.NewRequest(http.MethodGet, "http://localhost/pedidos", nil)
	require.NoError(t, err)
	s.Token().SetAuthHeader(req)

	require.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
}

func TestSession_HasSector(t *testing.T) {
	require.False(t, session.Session{}.HasSector())
	require.False(t, session.Session{Sector: "  "}.HasSector())
	require.True(t, session.Session{Sector: "TI"}.HasSector())
}
