package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeOutOfStock, http.StatusUnprocessableEntity},
		{ErrCodePlatformNotConnected, http.StatusUnprocessableEntity},
		{ErrCodeCredentialsExpired, http.StatusUnprocessableEntity},
		{ErrCodeUnsupportedOperation, http.StatusUnprocessableEntity},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}

	t.Run("unrecognized code falls back to 500", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("SOMETHING_ODD"))
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(""))
	})
}

func TestNormalizeErrorCode(t *testing.T) {
	t.Run("bare domain codes map to API codes", func(t *testing.T) {
		tests := []struct {
			input    string
			expected string
		}{
			{"NOT_FOUND", ErrCodeNotFound},
			{"ALREADY_EXISTS", ErrCodeAlreadyExists},
			{"INVALID_INPUT", ErrCodeInvalidInput},
			{"INVALID_STATE", ErrCodeInvalidState},
			{"OUT_OF_STOCK", ErrCodeOutOfStock},
			{"BAD_REQUEST", ErrCodeBadRequest},
			{"INTERNAL_ERROR", ErrCodeInternal},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input), tt.input)
		}
	})

	t.Run("API codes pass through", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
		assert.Equal(t, ErrCodePlatformNotConnected, NormalizeErrorCode(ErrCodePlatformNotConnected))
	})

	t.Run("unknown codes pass through", func(t *testing.T) {
		assert.Equal(t, "EBAY_SIDE_FAILURE", NormalizeErrorCode("EBAY_SIDE_FAILURE"))
	})
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("NOT_FOUND", "Listing not found")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code, "bare code should be normalized")
	assert.Equal(t, "Listing not found", resp.Error.Message)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeCredentialsExpired, "Reconnect your Depop account", "req-4471")

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCredentialsExpired, resp.Error.Code)
	assert.Equal(t, "req-4471", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "platform", Message: "Unknown marketplace"},
		{Field: "quantity", Message: "Must be at least 1"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "platform", resp.Error.Details[0].Field)
	assert.Equal(t, "Unknown marketplace", resp.Error.Details[0].Message)
}

func TestNewErrorResponseWithHelp(t *testing.T) {
	help := "https://docs.example.com/errors/platforms"
	resp := NewErrorResponseWithHelp(ErrCodePlatformNotConnected, "Connect eBay first", "req-001", help)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodePlatformNotConnected, resp.Error.Code)
	assert.Equal(t, help, resp.Error.Help)
}

func TestErrorResponseRoundTrip(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Listing not found", "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "Listing not found", decoded.Error.Message)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "Server error")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before))
	assert.False(t, resp.Error.Timestamp.After(after))
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"sku": "CAM-014"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		name          string
		total         int64
		page          int
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{"exact pages", 100, 1, 10, 10, 10},
		{"partial last page", 101, 1, 10, 11, 10},
		{"empty result", 0, 1, 10, 0, 10},
		{"under one page", 9, 1, 10, 1, 10},
		{"exactly one page", 10, 1, 10, 1, 10},
		{"just over one page", 11, 1, 10, 2, 10},
		{"zero page size defaults", 100, 1, 0, 5, 20},
		{"negative page size defaults", 100, 1, -1, 5, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta(nil, tt.total, tt.page, tt.pageSize)

			assert.True(t, resp.Success)
			require.NotNil(t, resp.Meta)
			assert.Equal(t, tt.total, resp.Meta.Total)
			assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
			assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
		})
	}
}
