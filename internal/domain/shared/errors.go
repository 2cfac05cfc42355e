package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidConfig = NewDomainError("INVALID_CONFIG", "Invalid configuration")
)

// Pricing errors
var (
	// ErrUnsupportedValueKind is returned when a tax function receives a value that is
	// not one of Money, TaxedMoney, MoneyRange or TaxedMoneyRange.
	ErrUnsupportedValueKind = NewDomainError("UNSUPPORTED_VALUE_KIND", "Unsupported price value kind")
	// ErrUnknownDefaultRate is returned when a rate lookup falls back to the default
	// rate name and the table has no entry for it.
	ErrUnknownDefaultRate = NewDomainError("UNKNOWN_DEFAULT_RATE", "Default tax rate is not configured")
	// ErrCurrencyMismatch is returned by arithmetic between different currencies.
	ErrCurrencyMismatch = NewDomainError("CURRENCY_MISMATCH", "Currencies do not match")
)

// ErrorCode returns the code of the DomainError wrapped by err, or "" if there is none.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
