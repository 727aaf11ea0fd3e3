package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")

	// Gateway resolution / capability errors
	ErrUnknownGateway        = errors.New("unknown payment gateway")
	ErrGatewayDisabled       = errors.New("payment gateway is disabled")
	ErrUnsupportedOperation  = errors.New("operation not supported by gateway")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrSignatureInvalid      = errors.New("signature verification failed")
	ErrInvalidSubscriptionState = errors.New("subscription is not in the required state")

	// Storage errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context for query")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
