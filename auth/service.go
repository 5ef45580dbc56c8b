// Package auth drives the session lifecycle against the backend: login,
// logout, token validation and user registration.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-orders-client/apiclient"
	ierrors "github.com/jrsteele09/go-orders-client/internal/errors"
	"github.com/jrsteele09/go-orders-client/session"
	"github.com/jrsteele09/go-orders-client/validation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	loginPath         = "/token"
	logoutPath        = "/auth/logout"
	validateTokenPath = "/auth/validate-token"
	usersPath         = "/usuarios/"
)

// API is the part of apiclient.Client the service uses.
type API interface {
	Request(ctx context.Context, method, path string, body any, options ...apiclient.RequestOption) (*apiclient.Response, error)
	InvalidateCache(prefix string) int
}

// SessionStore is the part of session.Store the service uses.
type SessionStore interface {
	SetSession(session.Session)
	Session() (session.Session, bool)
	ClearSession()
	ClearCSRF()
	Clear()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"tipo_usuario"`
	Name        string `json:"nome"`
	Sector      string `json:"setor"`
	FirstLogin  bool   `json:"primeiro_login"`
}

// NewUser is the registration form.
type NewUser struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
	Sector   string `json:"setor"`
}

// User is a registered user as returned by the backend.
type User struct {
	Name   string `json:"nome"`
	Email  string `json:"email"`
	Sector string `json:"setor"`
}

type Service struct {
	api      API
	store    SessionStore
	onLogout []func()
	nowFunc  func() time.Time
	logger   zerolog.Logger
}

type ServiceOption func(*Service)

// WithOnLogout runs fn after every logout, once local state is cleared.
func WithOnLogout(fn func()) ServiceOption {
	return func(s *Service) {
		s.onLogout = append(s.onLogout, fn)
	}
}

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(api API, store SessionStore, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, ierrors.New("[NewService] api is required")
	}
	if store == nil {
		return nil, ierrors.New("[NewService] session store is required")
	}
	s := &Service{
		api:     api,
		store:   store,
		nowFunc: time.Now,
		logger:  log.Logger.With().Str("component", "auth").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login exchanges credentials for a session and stores it. Any CSRF token
// and cached read from a previous session are dropped.
func (s *Service) Login(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Session{}, apiclient.ValidationError("Email e senha são obrigatórios.", ierrors.ErrInvalidArgument)
	}

	resp, err := s.api.Request(ctx, http.MethodPost, loginPath, loginRequest{Email: email, Password: password})
	if err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("Login failed")
		return session.Session{}, err
	}
	var body loginResponse
	if err := resp.Decode(&body); err != nil {
		return session.Session{}, err
	}
	if body.AccessToken == "" {
		return session.Session{}, ierrors.Wrapf(ierrors.ErrNoSession, "login response without access token")
	}

	tokenType := body.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	current := session.Session{
		AccessToken:        body.AccessToken,
		TokenType:          tokenType,
		Role:               session.ParseRole(body.Role),
		Name:               body.Name,
		Sector:             strings.TrimSpace(body.Sector),
		MustChangePassword: body.FirstLogin,
		ExpiresAt:          session.ParseExpiry(body.AccessToken),
	}

	s.store.ClearCSRF()
	s.api.InvalidateCache("")
	s.store.SetSession(current)

	s.logger.Info().
		Str("user", current.Name).
		Str("role", string(current.Role)).
		Str("sector", current.Sector).
		Msg("Logged in")
	return current, nil
}

// Logout asks the backend to end the session, then clears local state
// whatever the outcome of that call.
func (s *Service) Logout(ctx context.Context) {
	if _, ok := s.store.Session(); ok {
		if _, err := s.api.Request(ctx, http.MethodPost, logoutPath, nil); err != nil {
			s.logger.Warn().Err(err).Msg("Backend logout failed, clearing local session anyway")
		}
	}

	s.store.Clear()
	s.api.InvalidateCache("")
	for _, fn := range s.onLogout {
		fn()
	}
	s.logger.Info().Msg("Logged out")
}

// ValidateToken checks the session against the backend and returns the user
// it belongs to. A token that has already expired locally is dropped without
// a network call.
func (s *Service) ValidateToken(ctx context.Context) (string, error) {
	current, ok := s.store.Session()
	if !ok || current.AccessToken == "" {
		return "", ierrors.ErrNoSession
	}
	if current.Expired(s.nowFunc()) {
		s.logger.Info().Msg("Access token expired, clearing session")
		s.store.ClearSession()
		return "", ierrors.ErrSessionExpired
	}

	resp, err := s.api.Request(ctx, http.MethodGet, validateTokenPath, nil)
	if err != nil {
		return "", err
	}
	var body struct {
		Status string `json:"status"`
		User   string `json:"user"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", err
	}
	return body.User, nil
}

// CurrentUser returns the logged in session, if any.
func (s *Service) CurrentUser() (session.Session, bool) {
	return s.store.Session()
}

func (s *Service) IsAdmin() bool {
	current, ok := s.store.Session()
	return ok && current.Role == session.RoleAdmin
}

// IsAuthenticated reports whether a session is stored and not expired locally.
func (s *Service) IsAuthenticated() bool {
	current, ok := s.store.Session()
	return ok && current.AccessToken != "" && !current.Expired(s.nowFunc())
}

// Register creates a user account. The endpoint does not require a session.
func (s *Service) Register(ctx context.Context, user NewUser) (User, error) {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(user.Email)
	user.Sector = strings.TrimSpace(user.Sector)
	switch {
	case user.Name == "":
		return User{}, apiclient.ValidationError("Nome é obrigatório.", ierrors.ErrInvalidArgument)
	case user.Email == "" || !strings.Contains(user.Email, "@"):
		return User{}, apiclient.ValidationError("Email inválido.", ierrors.ErrInvalidArgument)
	case user.Password == "":
		return User{}, apiclient.ValidationError("Senha é obrigatória.", ierrors.ErrInvalidArgument)
	case user.Sector == "":
		return User{}, apiclient.ValidationError("Setor é obrigatório.", ierrors.ErrInvalidArgument)
	}
	if err := validation.ValidatePassword(user.Password); err != nil {
		return User{}, apiclient.ValidationError(err.Error(), ierrors.ErrInvalidArgument)
	}

	resp, err := s.api.Request(ctx, http.MethodPost, usersPath, user)
	if err != nil {
		return User{}, err
	}
	var created User
	if err := resp.Decode(&created); err != nil {
		return User{}, err
	}
	s.logger.Info().Str("email", created.Email).Msg("User registered")
	return created, nil
}
