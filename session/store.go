package session

import (
	"context"
	"sync"
	"time"

	ierrors "github.com/jrsteele09/go-orders-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Store holds the bearer session and the CSRF token for the lifetime of the
// process. Every operation is total: a failing Repo is logged and ignored.
type Store struct {
	mu      sync.RWMutex
	session *Session
	csrf    *CSRFToken
	repo    Repo
	nowFunc func() time.Time
	logger  zerolog.Logger
}

var _ oauth2.TokenSource = (*Store)(nil)

type StoreOption func(*Store)

// WithRepo mirrors the session into a durable Repo.
func WithRepo(repo Repo) StoreOption {
	return func(s *Store) {
		s.repo = repo
	}
}

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(options ...StoreOption) *Store {
	s := &Store{
		logger: log.Logger.With().Str("component", "session").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.nowFunc == nil {
		s.nowFunc = time.Now
	}
	return s
}

// Restore loads the mirrored session, if any. Sessions whose token has
// already expired are removed instead of loaded.
func (s *Store) Restore(ctx context.Context) bool {
	if s.repo == nil {
		return false
	}
	saved, err := s.repo.Load(ctx)
	if err != nil {
		if !ierrors.Is(err, ErrNotFound) {
			s.logger.Err(err).Msg("Failed to load saved session")
		}
		return false
	}
	if saved.Expired(s.nowFunc()) {
		s.logger.Info().Msg("Saved session has expired, discarding it")
		s.removeSaved(ctx)
		return false
	}

	s.mu.Lock()
	s.session = saved
	s.mu.Unlock()
	return true
}

// SetSession replaces the current session.
func (s *Store) SetSession(session Session) {
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = ParseExpiry(session.AccessToken)
	}

	s.mu.Lock()
	s.session = &session
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(context.Background(), &session); err != nil {
			s.logger.Err(err).Msg("Failed to save session")
		}
	}
}

// Session returns a copy of the current session.
func (s *Store) Session() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// ClearSession forgets the session and its durable mirror.
func (s *Store) ClearSession() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	s.removeSaved(context.Background())
}

// CSRF returns the current CSRF token value.
func (s *Store) CSRF() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.csrf == nil || s.csrf.Value == "" {
		return "", false
	}
	return s.csrf.Value, true
}

// CSRFToken returns the token together with its acquisition time.
func (s *Store) CSRFToken() (CSRFToken, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.csrf == nil {
		return CSRFToken{}, false
	}
	return *s.csrf, true
}

func (s *Store) SetCSRF(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csrf = &CSRFToken{Value: token, AcquiredAt: s.nowFunc()}
}

func (s *Store) ClearCSRF() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csrf = nil
}

// Clear removes session and CSRF token together, as logout requires.
func (s *Store) Clear() {
	s.mu.Lock()
	s.session = nil
	s.csrf = nil
	s.mu.Unlock()
	s.removeSaved(context.Background())
}

// AccessToken returns the bearer token of the current session.
func (s *Store) AccessToken() (string, bool) {
	session, ok := s.Session()
	if !ok || session.AccessToken == "" {
		return "", false
	}
	return session.AccessToken, true
}

// Token implements oauth2.TokenSource.
func (s *Store) Token() (*oauth2.Token, error) {
	session, ok := s.Session()
	if !ok || session.AccessToken == "" {
		return nil, ierrors.ErrNoSession
	}
	return session.Token(), nil
}

func (s *Store) removeSaved(ctx context.Context) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Remove(ctx); err != nil {
		s.logger.Err(err).Msg("Failed to remove saved session")
	}
}
