package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies every failure the client reports.
type Kind string

const (
	KindConnection Kind = "connection" // No response was received
	KindTimeout    Kind = "timeout"    // The request deadline passed
	KindHTTP       Kind = "http"       // The backend answered with a non-2xx status
	KindCSRF       Kind = "csrf"       // CSRF refresh failed or the replay was rejected again
	KindValidation Kind = "validation" // The caller passed malformed input
)

// Error is the single error type returned by Client. Use errors.As to reach it.
type Error struct {
	Kind   Kind
	Status int    // HTTP status, zero when no response was received
	Detail string // Server-provided detail or a description of the problem
	Method string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Method != "" || e.Path != "" {
		fmt.Fprintf(&b, " on %s %s", e.Method, e.Path)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the localized text shown to the user for this failure.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindConnection:
		return "Não foi possível conectar ao servidor. Verifique sua conexão com a internet."
	case KindTimeout:
		return "O servidor demorou muito para responder. Verifique sua conexão e tente novamente."
	case KindCSRF:
		return "Falha na verificação de segurança. Tente novamente."
	case KindValidation:
		if e.Detail != "" {
			return e.Detail
		}
		return "Dados inválidos."
	}

	switch {
	case e.Status == 401 && isLoginPath(e.Path):
		return "Credenciais inválidas."
	case e.Status == 401:
		return "Sua sessão expirou. Por favor, faça login novamente."
	case e.Status == 403:
		return "Acesso negado. Você não tem permissão para realizar esta operação."
	case e.Status == 404:
		return "Recurso não encontrado."
	case e.Status >= 500:
		return "Erro no servidor. Tente novamente mais tarde."
	case e.Detail != "":
		return e.Detail
	default:
		return "Requisição inválida."
	}
}

// ValidationError reports malformed caller input, such as a missing order id.
func ValidationError(detail string, cause error) *Error {
	return &Error{Kind: KindValidation, Detail: detail, Err: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage returns the localized text for any error the client returned.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return "Ocorreu um erro inesperado."
}

func transportError(method, path string, err error) *Error {
	kind := KindConnection
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Method: method, Path: path, Err: err}
}

func httpError(method, path string, status int, body []byte) *Error {
	return &Error{Kind: KindHTTP, Status: status, Detail: parseDetail(body), Method: method, Path: path}
}

// parseDetail extracts FastAPI's {"detail": ...}. Validation errors carry a
// list of {"msg": ...}; anything else falls back to the raw body.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return text
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		return string(payload.Detail)
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// isCSRFRejection reports a 403 whose detail names the CSRF check, as
// opposed to an ordinary permission failure.
func isCSRFRejection(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == KindHTTP && apiErr.Status == 403 && strings.Contains(strings.ToLower(apiErr.Detail), "csrf")
}

func isLoginPath(path string) bool {
	return path == "/token" || path == "/login"
}
