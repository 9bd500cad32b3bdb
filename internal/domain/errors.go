package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the remote catalog is unreachable
	ErrServerOffline = errors.New("book catalog is unreachable")

	// ErrUnexpectedStatus indicates the remote catalog answered with a non-200 status
	ErrUnexpectedStatus = errors.New("unexpected status from book catalog")

	// ErrInvalidAmount indicates a transaction amount is missing, unparsable or not positive
	ErrInvalidAmount = errors.New("amount must be a positive number")

	// ErrMissingName indicates a transaction was submitted without a name
	ErrMissingName = errors.New("name is required")

	// ErrInvalidPhone indicates a reference phone number failed validation
	ErrInvalidPhone = errors.New("invalid reference phone")

	// ErrStoreClosed indicates a store was used after Close
	ErrStoreClosed = errors.New("store is closed")
)
