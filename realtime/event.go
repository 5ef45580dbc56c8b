package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Frame is one message on the channel: a named event and its JSON data.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Named events sent by the backend.
const (
	EventNotification          = "notification"
	EventConnectionEstablished = "connection_established"
	EventOrderCreated          = "pedido_criado"
	EventOrderCompleted        = "pedido_concluido"
	EventOrderCanceled         = "pedido_cancelado"
	EventOrderUpdated          = "pedido_atualizado"
	EventNewOrder              = "novo_pedido"
	EventUserLogin             = "user_login"
	EventTest                  = "teste"

	// AnyEvent registers a listener for every event type.
	AnyEvent = "*"
)

// envelope is the data of a "notification" frame.
type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	Sector    string          `json:"setor"`
	Message   string          `json:"message"`
}

// Event is a domain event after it has been unwrapped from its frame.
type Event struct {
	Type      string
	Payload   json.RawMessage
	Timestamp string
	Sector    string // Sector stamped on the envelope, if any
	Message   string // Message stamped on the envelope, if any

	fields payloadFields
}

// payloadFields are the parts of an event payload the client looks at.
// Envelope payloads nest the order under "pedido"; named order events carry
// the order itself.
type payloadFields struct {
	ID          json.RawMessage `json:"id"`
	Description string          `json:"descricao"`
	Sector      string          `json:"setor"`
	Message     string          `json:"message"`
	Timestamp   string          `json:"timestamp"`
	UserName    string          `json:"usuario_nome"`
	CompletedBy string          `json:"usuario_conclusao"`
	CanceledBy  string          `json:"usuario_cancelamento"`
	Order       *orderFields    `json:"pedido"`
	User        *userFields     `json:"user"`
}

type orderFields struct {
	ID     json.RawMessage `json:"id"`
	Sector string          `json:"setor"`
}

type userFields struct {
	Role string `json:"tipo_usuario"`
}

// decodeFrame unwraps a frame into an Event. Notification frames are
// unwrapped from their envelope; every other frame becomes an event named
// after the frame.
func decodeFrame(frame Frame) (Event, error) {
	var event Event
	if frame.Event == EventNotification {
		var env envelope
		if err := json.Unmarshal(frame.Data, &env); err != nil {
			return Event{}, fmt.Errorf("failed to decode notification: %w", err)
		}
		if env.Type == "" {
			return Event{}, fmt.Errorf("notification without type")
		}
		event = Event{Type: env.Type, Payload: env.Data, Timestamp: env.Timestamp, Sector: env.Sector, Message: env.Message}
	} else {
		event = Event{Type: frame.Event, Payload: frame.Data}
	}

	if len(event.Payload) > 0 && event.Payload[0] == '{' {
		if err := json.Unmarshal(event.Payload, &event.fields); err != nil {
			return Event{}, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
		}
	}
	if event.Timestamp == "" {
		event.Timestamp = event.fields.Timestamp
	}
	return event, nil
}

// NewEvent builds an event from its parts, as decoded from a notification.
func NewEvent(eventType string, payload json.RawMessage, timestamp string) (Event, error) {
	data, err := json.Marshal(envelope{Type: eventType, Data: payload, Timestamp: timestamp})
	if err != nil {
		return Event{}, err
	}
	return decodeFrame(Frame{Event: EventNotification, Data: data})
}

// OrderID returns the id of the order the event is about, or "unknown".
func (e Event) OrderID() string {
	if e.fields.Order != nil {
		if id := rawID(e.fields.Order.ID); id != "" {
			return id
		}
	}
	if id := rawID(e.fields.ID); id != "" {
		return id
	}
	return "unknown"
}

// OrderSector returns the sector of the order the event is about.
func (e Event) OrderSector() string {
	if e.fields.Order != nil && e.fields.Order.Sector != "" {
		return e.fields.Order.Sector
	}
	return e.fields.Sector
}

// LoginRole returns the role of the user a user_login event is about,
// defaulting to comum.
func (e Event) LoginRole() string {
	if e.fields.User != nil && e.fields.User.Role != "" {
		return e.fields.User.Role
	}
	return "comum"
}

// Identity derives the key used to drop duplicate deliveries.
func (e Event) Identity() string {
	return e.Type + "_" + e.OrderID() + "_" + e.Timestamp
}

func rawID(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" || text == `""` {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return text
}
