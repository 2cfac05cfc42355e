package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeInvalidConfig, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeCurrencyMismatch, http.StatusUnprocessableEntity},
		{ErrCodeUnsupportedValueKind, http.StatusUnprocessableEntity},
		{ErrCodeUnknownDefaultRate, http.StatusUnprocessableEntity},
		{"ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeCurrencyMismatch, NormalizeErrorCode("CURRENCY_MISMATCH"))
	assert.Equal(t, ErrCodeUnknownDefaultRate, NormalizeErrorCode("UNKNOWN_DEFAULT_RATE"))
	assert.Equal(t, ErrCodeBadRequest, NormalizeErrorCode(ErrCodeBadRequest))
	assert.Equal(t, "CUSTOM", NormalizeErrorCode("CUSTOM"))
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "line not found", "req-123")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "line not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_NOT_FOUND","message":"line not found","request_id":"req-123"}}`, string(data))
}

func TestNewSuccessResponse(t *testing.T) {
	data, err := json.Marshal(NewSuccessResponse(map[string]string{"rate": "10"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"rate":"10"}}`, string(data))
}

type sampleRequest struct {
	Currency string `validate:"required,len=3"`
	Lines    []struct {
		Quantity int `validate:"min=1"`
	} `validate:"required,dive"`
}

func TestValidationDetails(t *testing.T) {
	req := sampleRequest{Currency: "US"}
	req.Lines = append(req.Lines, struct {
		Quantity int `validate:"min=1"`
	}{Quantity: 0})

	err := validator.New().Struct(req)
	require.Error(t, err)

	details := ValidationDetails(err)
	require.Len(t, details, 2)
	assert.Equal(t, ValidationDetail{Field: "Currency", Message: "must be 3 characters long"}, details[0])
	assert.Equal(t, ValidationDetail{Field: "Lines[0].Quantity", Message: "must be at least 1"}, details[1])

	resp := NewValidationErrorResponse("Request validation failed", "req-1", details)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 2)
}

func TestValidationDetails_NotValidationError(t *testing.T) {
	assert.Nil(t, ValidationDetails(errors.New("boom")))
	assert.Nil(t, ValidationDetails(nil))
}
