package model

import "time"

type RefundStatus string

const (
	RefundStatusInitiated RefundStatus = "initiated"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund references a successful payment being returned, fully or partially.
type Refund struct {
	ID        string // ULID, sortable
	PaymentID string
	RefundID  string // gateway-assigned refund id
	UserID    string
	Amount    int64
	Reason    string
	Status    RefundStatus
	Gateway   string
	Meta      map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}
