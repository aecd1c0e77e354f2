package handler

import (
	"errors"
	"net/http"

	"github.com/crosslist/backend/internal/domain/catalog"
	"github.com/crosslist/backend/internal/domain/listing"
	"github.com/crosslist/backend/internal/domain/shared"
	"github.com/crosslist/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RequestIDKey is the context and header key carrying the request ID.
const RequestIDKey = "X-Request-ID"

// BaseHandler provides the response vocabulary shared by all handlers.
// Handlers embed it and speak in terms of Success, Created, BadRequest
// and so on instead of building envelopes by hand.
type BaseHandler struct{}

// getRequestID returns the request ID set by the middleware, falling
// back to the inbound header for requests that bypassed it.
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// Success writes a 200 with the standard success envelope.
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta writes a 200 with pagination metadata.
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created writes a 201 with the standard success envelope.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent writes a bare 204.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes an error envelope with an explicit HTTP status.
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest writes a 400 for malformed or invalid input.
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound writes a 404.
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict writes a 409, used for duplicate listings and replayed events.
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity writes a 422 with a caller-chosen error code, used
// when a request is well formed but the listing state rejects it.
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError writes a 500.
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// TooManyRequests writes a 429, used when a platform adapter reports
// rate limiting.
func (h *BaseHandler) TooManyRequests(c *gin.Context, message string) {
	h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, message)
}

// ValidationError writes a 400 carrying per-field validation details.
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// sentinelCode maps a domain sentinel error to its API error code, or ""
// when the error is not a recognized sentinel.
func sentinelCode(err error) string {
	switch {
	case errors.Is(err, listing.ErrListingNotFound),
		errors.Is(err, listing.ErrSyncLogNotFound),
		errors.Is(err, listing.ErrNotificationNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		return dto.ErrCodeNotFound
	case errors.Is(err, listing.ErrDuplicateListing):
		return dto.ErrCodeConflict
	case errors.Is(err, listing.ErrPlatformUnknown):
		return dto.ErrCodeBadRequest
	case errors.Is(err, listing.ErrPlatformUnavailable),
		errors.Is(err, listing.ErrPlatformNotProvisioned):
		return dto.ErrCodePlatformNotConnected
	case errors.Is(err, listing.ErrCredentialsExpired):
		return dto.ErrCodeCredentialsExpired
	case errors.Is(err, listing.ErrUnsupportedOperation):
		return dto.ErrCodeUnsupportedOperation
	case errors.Is(err, listing.ErrListingNotActive),
		errors.Is(err, listing.ErrInvalidTransition),
		errors.Is(err, listing.ErrNotApprovable),
		errors.Is(err, listing.ErrSyncLogAlreadyFinal):
		return dto.ErrCodeInvalidState
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return dto.ErrCodeUpstreamUnavailable
	default:
		return ""
	}
}

// HandleError translates an error from the application layer into an
// HTTP response. Domain sentinels and DomainError values map to their
// API codes; anything unrecognized becomes a 500 with a generic message
// so internal detail never leaks to callers.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if code := sentinelCode(err); code != "" {
		h.Error(c, dto.GetHTTPStatus(code), code, err.Error())
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
