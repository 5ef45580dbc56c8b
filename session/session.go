package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Role is the user type reported by the backend at login ("tipo_usuario").
type Role string

const (
	RoleAdmin   Role = "admin"  // Sees every order and every login
	RoleManager Role = "gestor" // Same visibility as admin, no user management
	RoleCommon  Role = "comum"  // Restricted to the orders of its own sector
)

// ParseRole maps the backend value onto a Role, defaulting to RoleCommon.
func ParseRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager, "manager":
		return RoleManager
	default:
		return RoleCommon
	}
}

// IsPrivileged reports whether the role sees data across all sectors.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// Session is the authenticated state created by a successful login. It stays
// valid until an explicit logout or until the backend answers 401.
type Session struct {
	AccessToken        string    `json:"access_token"`
	TokenType          string    `json:"token_type"`
	Role               Role      `json:"tipo_usuario"`
	Name               string    `json:"nome,omitempty"`
	Sector             string    `json:"setor,omitempty"` // Empty when the user has no sector
	MustChangePassword bool      `json:"primeiro_login,omitempty"`
	ExpiresAt          time.Time `json:"expires_at,omitempty"` // Zero for opaque tokens
}

// HasSector reports whether the backend assigned a sector to the user.
func (s Session) HasSector() bool {
	return strings.TrimSpace(s.Sector) != ""
}

// Expired reports whether the access token's exp claim has passed. Sessions
// holding opaque tokens never expire locally.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Token exposes the session as an oauth2 token so callers can use
// SetAuthHeader and the oauth2.TokenSource plumbing.
func (s Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		Expiry:      s.ExpiresAt,
	}
}

// CSRFToken is the anti-forgery secret sent on state-changing requests.
type CSRFToken struct {
	Value      string
	AcquiredAt time.Time
}

// ParseExpiry reads the exp claim from a JWT access token without verifying
// its signature. Tokens that are not JWTs, or carry no exp, yield zero time.
func ParseExpiry(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// ParseSubject reads the sub claim (the user's email) without verification.
func ParseSubject(accessToken string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
