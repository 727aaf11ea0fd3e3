package adapter

import "context"

// StatusUpdate is the payload published to downstream notification
// consumers when a payment or subscription changes state. Side-effect only;
// broadcasting never mutates ledger state.
type StatusUpdate struct {
	Subject      string `json:"subject"` // "payment" | "subscription"
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	OrderID      string `json:"order_id,omitempty"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

// Broadcaster publishes status changes to whatever transport carries them
// to notification consumers.
type Broadcaster interface {
	Publish(ctx context.Context, update StatusUpdate) error
}
