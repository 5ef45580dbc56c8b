// Package notice carries cross-cutting notices (session expired, server
// errors, realtime connectivity) from the client core to whoever renders them.
package notice

import "time"

type Kind string

const (
	SessionExpired    Kind = "session_expired"
	AccessDenied      Kind = "access_denied"
	ServerError       Kind = "server_error"
	ConnectionLost    Kind = "connection_lost"
	RealtimeConnected Kind = "realtime_connected"
	RealtimeFatal     Kind = "realtime_fatal"
)

// Notice is a user-facing signal. Message is already localized.
type Notice struct {
	Kind    Kind
	Message string
	Err     error
	At      time.Time
}

// Bus is the notice channel shared by the API and realtime clients.
type Bus = Subject[Notice]

func NewBus() *Bus {
	return NewSubject[Notice]()
}

// New builds a notice stamped with the current time.
func New(kind Kind, message string, err error) Notice {
	return Notice{Kind: kind, Message: message, Err: err, At: time.Now()}
}
