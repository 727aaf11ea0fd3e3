package model

import "time"

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusExpired   OrderStatus = "expired"
)

// Order is a request to collect a specific amount, created at the gateway
// before the local record. OrderID is the gateway-assigned identifier and is
// immutable once set; status transitions are the only mutation.
type Order struct {
	ID        string // UUID
	OrderID   string // gateway order id, unique
	UserID    string
	Amount    int64
	Currency  string
	Status    OrderStatus
	Gateway   string
	Meta      map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}
