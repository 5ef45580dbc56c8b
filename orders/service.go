// Package orders is the order CRUD surface over the backend API.
package orders

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-orders-client/apiclient"
	ierrors "github.com/jrsteele09/go-orders-client/internal/errors"
	"github.com/jrsteele09/go-orders-client/validation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	ordersPath = "/pedidos"

	DefaultCacheTTL = 30 * time.Second
)

// API is the part of apiclient.Client the service uses.
type API interface {
	Request(ctx context.Context, method, path string, body any, options ...apiclient.RequestOption) (*apiclient.Response, error)
	InvalidateCache(prefix string) int
	RefreshCSRF(ctx context.Context) (string, error)
}

type Service struct {
	api      API
	tokens   oauth2.TokenSource
	cacheTTL time.Duration
	logger   zerolog.Logger
}

type ServiceOption func(*Service)

// WithCacheTTL sets how long reads are served from the cache. Zero disables
// caching.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(api API, tokens oauth2.TokenSource, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, ierrors.New("[NewService] api is required")
	}
	if tokens == nil {
		return nil, ierrors.New("[NewService] token source is required")
	}
	s := &Service{
		api:      api,
		tokens:   tokens,
		cacheTTL: DefaultCacheTTL,
		logger:   log.Logger.With().Str("component", "orders").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// List returns every order visible to the current user.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := s.read(ctx, ordersPath, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) Get(ctx context.Context, id int) (Order, error) {
	if err := checkID(id); err != nil {
		return Order{}, err
	}
	var order Order
	if err := s.read(ctx, orderPath(id), &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// History returns the recorded changes of an order, oldest first as the
// backend sends them.
func (s *Service) History(ctx context.Context, id int) ([]HistoryEntry, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var entries []HistoryEntry
	if err := s.read(ctx, orderPath(id)+"/historico", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Create validates input and submits a new order.
func (s *Service) Create(ctx context.Context, input OrderInput) (Order, error) {
	if err := validateCreate(input); err != nil {
		return Order{}, err
	}
	resp, err := s.api.Request(ctx, http.MethodPost, ordersPath+"/", input)
	if err != nil {
		return Order{}, err
	}
	s.api.InvalidateCache(ordersPath)

	var created Order
	if err := resp.Decode(&created); err != nil {
		return Order{}, err
	}
	s.logger.Info().Int("id", created.ID).Msg("Order created")
	return created, nil
}

// Update changes the fields set in input. The backend answers with a
// confirmation message, which is returned.
func (s *Service) Update(ctx context.Context, id int, input OrderInput) (string, error) {
	return s.update(ctx, id, orderPath(id), input)
}

// UpdateWithHistory is Update with the change recorded in the order history.
func (s *Service) UpdateWithHistory(ctx context.Context, id int, input OrderInput) (string, error) {
	return s.update(ctx, id, orderPath(id)+"/com-historico", input)
}

// Reset forces a new CSRF token and checks the order list. It reports
// whether the service is usable again, and is false without a session.
func (s *Service) Reset(ctx context.Context) bool {
	if _, err := s.api.RefreshCSRF(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Reset failed to refresh the CSRF token")
		return false
	}
	if _, err := s.tokens.Token(); err != nil {
		s.logger.Warn().Msg("Reset without a session")
		return false
	}
	s.api.InvalidateCache(ordersPath)
	if _, err := s.api.Request(ctx, http.MethodGet, ordersPath, nil); err != nil {
		s.logger.Warn().Err(err).Msg("Reset order check failed")
		return false
	}
	s.logger.Info().Msg("Order service reset")
	return true
}

func (s *Service) update(ctx context.Context, id int, path string, input OrderInput) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	if err := validateUpdate(input); err != nil {
		return "", err
	}
	resp, err := s.api.Request(ctx, http.MethodPut, path, input)
	if err != nil {
		return "", err
	}
	s.api.InvalidateCache(ordersPath)

	var body struct {
		Message string `json:"message"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", err
	}
	s.logger.Info().Int("id", id).Str("path", path).Msg("Order updated")
	return body.Message, nil
}

func (s *Service) read(ctx context.Context, path string, out any) error {
	var options []apiclient.RequestOption
	if s.cacheTTL > 0 {
		options = append(options, apiclient.WithCacheTTL(s.cacheTTL))
	}
	resp, err := s.api.Request(ctx, http.MethodGet, path, nil, options...)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func orderPath(id int) string {
	return fmt.Sprintf("%s/%d", ordersPath, id)
}

func checkID(id int) error {
	if id <= 0 {
		return apiclient.ValidationError("ID do pedido é obrigatório.", ierrors.Wrapf(ierrors.ErrInvalidID, "order id %d", id))
	}
	return nil
}

func validateCreate(input OrderInput) error {
	checks := []validation.Result{
		validation.ValidateText(input.Description, validation.TextOptions{FieldName: "Descrição", MaxLength: 500}),
		validation.ValidateQuantity(input.Quantity),
		validation.ValidateDate(input.DeliveryDate, validation.DateOptions{}),
		validation.ValidateText(input.Sender, validation.TextOptions{FieldName: "Solicitante"}),
	}
	return firstInvalid(checks)
}

func validateUpdate(input OrderInput) error {
	var checks []validation.Result
	if input.Description != "" {
		checks = append(checks, validation.ValidateText(input.Description, validation.TextOptions{FieldName: "Descrição", MaxLength: 500}))
	}
	if input.Quantity != nil {
		checks = append(checks, validation.ValidateQuantity(input.Quantity))
	}
	if strings.TrimSpace(input.DeliveryDate) != "" {
		checks = append(checks, validation.ValidateDate(input.DeliveryDate, validation.DateOptions{}))
	}
	return firstInvalid(checks)
}

func firstInvalid(checks []validation.Result) error {
	for _, check := range checks {
		if !check.IsValid {
			return apiclient.ValidationError(check.Message, ierrors.ErrInvalidArgument)
		}
	}
	return nil
}
