package respond

import (
	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/shared/telemetry"
)

// Error codes shared by every handler.
const (
	CodeValidation        = "validation_error"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal_error"
	CodeRemote            = "remote_error"
	CodeNotLoaded         = "not_loaded"
	CodeAssistant         = "assistant_error"
	CodeAssistantDisabled = "assistant_not_configured"
	CodeNotify            = "notify_error"
	CodeNotifyDisabled    = "notify_not_configured"
)

// ErrorBody is the error object every failed request returns.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details any `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody under "error".
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with status and a {"error":{...}} body. Server-side failures are
// logged at error level, client mistakes at warn.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"route":      c.FullPath(),
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if owner := c.GetString("userId"); owner != "" {
		fields["owner_id"] = owner
	}
	if id := c.Param("id"); id != "" {
		fields["applicant_id"] = id
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}})
}
