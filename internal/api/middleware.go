// Package api exposes the ledger service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"herbtrace/internal/ledger"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID contextKey = "request_id"
)

// RequestID injects a request ID into the context and response header,
// reusing the caller's header when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), ctxKeyRequestID, rid),
		)
		c.Next()
	}
}

// GetRequestID extracts the request ID from ctx.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler turns the last error recorded with c.Error into a JSON
// ErrorResponse.
func ErrorHandler(logger ledger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, resp := classify(err)
		rid := GetRequestID(c.Request.Context())
		if status >= http.StatusInternalServerError {
			logger.Error("unhandled request error", "request_id", rid, "path", c.FullPath(), "error", err)
		} else {
			logger.Warn("request error", "request_id", rid, "path", c.FullPath(), "code", resp.Code, "error", err)
		}
		c.JSON(status, resp)
	}
}

// classify maps ledger errors to an HTTP status and error code.
func classify(err error) (int, ErrorResponse) {
	var ce *ledger.ComplianceError
	switch {
	case errors.As(err, &ce):
		return http.StatusUnprocessableEntity, ErrorResponse{Code: string(ce.Verdict.Status), Message: ce.Verdict.Message}
	case errors.Is(err, ledger.ErrInvalidSerial):
		return http.StatusBadRequest, ErrorResponse{Code: "INVALID_SERIAL", Message: err.Error()}
	case errors.Is(err, ledger.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict, ErrorResponse{Code: "CONFLICT", Message: "The ledger is busy, try again"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}
	}
}
