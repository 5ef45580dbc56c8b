package reporedis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-orders-client/session"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "orders-client:session:"

var _ session.Repo = (*RedisRepo)(nil)

// RedisRepo mirrors the session into a Redis string key so several processes
// on the same profile share one login.
type RedisRepo struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

type Option func(*RedisRepo)

// WithTTL bounds how long the saved session lives in Redis. Zero keeps it
// until removed.
func WithTTL(ttl time.Duration) Option {
	return func(r *RedisRepo) {
		r.ttl = ttl
	}
}

// New stores the session under orders-client:session:<profile>.
func New(client redis.UniversalClient, profile string, options ...Option) *RedisRepo {
	if profile == "" {
		profile = "default"
	}
	r := &RedisRepo{
		client: client,
		key:    keyPrefix + profile,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// NewFromURL parses a redis:// URL and connects lazily.
func NewFromURL(url, profile string, options ...Option) (*RedisRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return New(redis.NewClient(opts), profile, options...), nil
}

func (r *RedisRepo) Key() string {
	return r.key
}

func (r *RedisRepo) Load(ctx context.Context) (*session.Session, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisRepo) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ttl := r.ttl
	if !s.ExpiresAt.IsZero() {
		if remaining := time.Until(s.ExpiresAt); remaining > 0 && (ttl == 0 || remaining < ttl) {
			ttl = remaining
		}
	}
	return r.client.Set(ctx, r.key, data, ttl).Err()
}

func (r *RedisRepo) Remove(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *RedisRepo) Close() error {
	return r.client.Close()
}
