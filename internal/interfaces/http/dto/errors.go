package dto

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error codes returned by the API
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeValidation is used when request binding rules fail
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeNotFound is used when a referenced line or resource does not exist
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeForbidden is used when the client may not access a resource
	ErrCodeForbidden = "ERR_FORBIDDEN"

	// ErrCodeCurrencyMismatch is used when amounts in different currencies meet
	ErrCodeCurrencyMismatch = "ERR_CURRENCY_MISMATCH"
	// ErrCodeUnsupportedValueKind is used when a price has a shape the tax stages can't handle
	ErrCodeUnsupportedValueKind = "ERR_UNSUPPORTED_VALUE_KIND"
	// ErrCodeUnknownDefaultRate is used when a rate lookup needs the missing default rate
	ErrCodeUnknownDefaultRate = "ERR_UNKNOWN_DEFAULT_RATE"
	// ErrCodeInvalidConfig is used when the server's tax configuration is unusable
	ErrCodeInvalidConfig = "ERR_INVALID_CONFIG"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeInvalidConfig: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeNotFound:  http.StatusNotFound,
	ErrCodeForbidden: http.StatusForbidden,

	ErrCodeCurrencyMismatch:     http.StatusUnprocessableEntity,
	ErrCodeUnsupportedValueKind: http.StatusUnprocessableEntity,
	ErrCodeUnknownDefaultRate:   http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_CONFIG":         ErrCodeInvalidConfig,
	"CURRENCY_MISMATCH":      ErrCodeCurrencyMismatch,
	"UNSUPPORTED_VALUE_KIND": ErrCodeUnsupportedValueKind,
	"UNKNOWN_DEFAULT_RATE":   ErrCodeUnknownDefaultRate,
}

// NormalizeErrorCode converts a domain error code to its API form.
// Codes that are already API codes, or unknown, are returned as is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}

// ValidationDetails turns binding failures into per-field details. It returns
// nil when err is not a validation failure.
func ValidationDetails(err error) []ValidationDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]ValidationDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ValidationDetail{
			Field:   fieldPath(fe.Namespace()),
			Message: validationMessage(fe),
		})
	}
	return details
}

// fieldPath drops the root struct name: "ApplyRequest.Price.Amount" -> "Price.Amount".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "numeric":
		return "must be a decimal number"
	case "uuid":
		return "must be a UUID"
	case "len":
		return fmt.Sprintf("must be %s characters long", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}
