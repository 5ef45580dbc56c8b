package realtime

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/go-orders-client/session"
)

// DefaultSector is assumed for users the backend did not assign a sector.
const DefaultSector = "Escritório"

// Viewer is the user an event would be shown to.
type Viewer struct {
	Role   session.Role
	Sector string
}

// ViewerOf derives the viewer from a session.
func ViewerOf(s session.Session) Viewer {
	return Viewer{Role: session.ParseRole(string(s.Role)), Sector: s.Sector}
}

// Visible decides whether event should be shown to viewer.
//
// Admins and managers see every event. Common users see logins of admins and
// managers only, and order events only when the order's sector or the sector
// stamped on the notification matches their own.
func Visible(event Event, viewer Viewer) bool {
	role := session.ParseRole(string(viewer.Role))
	if role.IsPrivileged() {
		return true
	}

	if event.Type == EventUserLogin {
		return session.ParseRole(event.LoginRole()).IsPrivileged()
	}

	sector := strings.TrimSpace(viewer.Sector)
	if sector == "" {
		sector = DefaultSector
	}
	for _, candidate := range []string{event.OrderSector(), event.Sector} {
		if candidate = strings.TrimSpace(candidate); candidate != "" && candidate == sector {
			return true
		}
	}
	return false
}

// Level is the severity a toast is rendered with.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toast is the user-facing rendering of an event.
type Toast struct {
	Level   Level
	Title   string
	Message string
}

func (t Toast) String() string {
	if t.Title == "" {
		return t.Message
	}
	return t.Title + ": " + t.Message
}

// Describe renders event for display. A message sent with the event wins over
// the text built from the order fields.
func Describe(event Event) Toast {
	message := event.fields.Message
	if message == "" {
		message = event.Message
	}

	var toast Toast
	switch event.Type {
	case EventOrderCreated:
		toast = Toast{Level: LevelInfo, Title: "Novo Pedido"}
		if message == "" {
			if event.fields.UserName != "" {
				message = fmt.Sprintf("%s criou um novo pedido: %s", event.fields.UserName, event.fields.Description)
			} else {
				message = "Novo pedido criado: " + event.fields.Description
			}
		}
	case EventOrderCompleted:
		toast = Toast{Level: LevelSuccess, Title: "Pedido Concluído"}
		if message == "" {
			message = fmt.Sprintf("Pedido #%s foi concluído por %s", event.OrderID(), orDash(event.fields.CompletedBy))
		}
	case EventOrderCanceled:
		toast = Toast{Level: LevelError, Title: "Pedido Cancelado"}
		if message == "" {
			message = fmt.Sprintf("Pedido #%s foi cancelado por %s", event.OrderID(), orDash(event.fields.CanceledBy))
		}
	case EventOrderUpdated:
		toast = Toast{Level: LevelWarning, Title: "Pedido Atualizado"}
	case EventNewOrder:
		toast = Toast{Level: LevelInfo, Title: "Novo Pedido"}
	case EventUserLogin:
		toast = Toast{Level: LevelInfo, Title: "Login"}
	default:
		toast = Toast{Level: LevelInfo, Title: "Notificação"}
	}

	if message == "" {
		message = "Nova notificação"
	}
	toast.Message = message
	return toast
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
