package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/flattax/internal/domain/shared"
	"github.com/erp/flattax/internal/infrastructure/logger"
	"github.com/erp/flattax/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	c, _ := newTestContext()
	assert.Empty(t, getRequestID(c))

	c.Request.Header.Set(logger.RequestIDHeader, "header-id")
	assert.Equal(t, "header-id", getRequestID(c))

	ctx, _ := logger.WithRequestID(c.Request.Context(), zap.NewNop(), "ctx-id")
	c.Request = c.Request.WithContext(ctx)
	assert.Equal(t, "ctx-id", getRequestID(c))
}

func TestBaseHandlerHandleError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("%w: line 7 is not part of checkout", shared.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrCodeNotFound,
			wantMsg:    "Resource not found: line 7 is not part of checkout",
		},
		{
			name:       "currency mismatch",
			err:        shared.ErrCurrencyMismatch,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeCurrencyMismatch,
			wantMsg:    "Currencies do not match",
		},
		{
			name:       "invalid config",
			err:        fmt.Errorf("%w: bad rate", shared.ErrInvalidConfig),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInvalidConfig,
			wantMsg:    "Invalid configuration: bad rate",
		},
		{
			name:       "unknown error",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
			wantMsg:    "An unexpected error occurred",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			c.Request.Header.Set(logger.RequestIDHeader, "req-42")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
			assert.Equal(t, "req-42", resp.Error.RequestID)
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestBaseHandlerHandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, nil)

	assert.Empty(t, w.Body.String())
	assert.Empty(t, c.Errors)
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Success(c, map[string]string{"ok": "yes"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}
