package orders

// Default status the backend assigns to new orders.
const StatusPending = "Pendente"

// Order is an order as the backend returns it.
type Order struct {
	ID           int    `json:"id"`
	Description  string `json:"descricao"`
	Quantity     int    `json:"quantidade"`
	Urgent       bool   `json:"urgencia"`
	Notes        string `json:"observacao,omitempty"`
	Attachment   string `json:"anexo,omitempty"`
	Status       string `json:"status,omitempty"`
	UserID       string `json:"usuario_id,omitempty"`
	DeliveryDate string `json:"deliveryDate,omitempty"`
	Sender       string `json:"sender"`
	Sector       string `json:"setor,omitempty"`
}

// OrderInput is the body of a create or update. Nil fields are left out so an
// update only touches what was set.
type OrderInput struct {
	Description  string   `json:"descricao,omitempty"`
	Quantity     *float64 `json:"quantidade,omitempty"`
	Notes        *string  `json:"observacao,omitempty"`
	Urgent       *bool    `json:"urgencia,omitempty"`
	DeliveryDate string   `json:"orderDeliveryDate,omitempty"`
	Sender       string   `json:"sender,omitempty"`
	File         *string  `json:"file,omitempty"` // Base64 attachment
	Status       *string  `json:"status,omitempty"`
}

// HistoryEntry is one change recorded against an order. Its fields are
// defined by the backend and passed through untouched.
type HistoryEntry map[string]any
