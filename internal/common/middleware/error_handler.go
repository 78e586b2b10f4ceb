package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chart-analyst-bot/internal/common/errors"
)

const (
	requestIDKey = "request_id"
	userIDKey    = "user_id"
)

// ErrorHandler recovers panics and answers with a JSON AppError.
func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().
			Str("request_id", getRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithDetail("panic", fmt.Sprintf("%v", recovered))
		SendError(c, log, appErr)
	})
}

// RequestID propagates X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
	Path      string           `json:"path,omitempty"`
	Method    string           `json:"method,omitempty"`
}

// SendError aborts the request with err rendered as an ErrorResponse.
func SendError(c *gin.Context, log zerolog.Logger, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrCodeInternal, "Handler error occurred")
	}
	requestID := getRequestID(c)
	appErr.WithRequestID(requestID)
	if uid := getUserID(c); uid != 0 && appErr.UserID == 0 {
		appErr.WithUserID(uid)
	}

	status := StatusCode(appErr)
	logError(log, c, appErr, status)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: requestID,
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

// StatusCode maps an error code to the HTTP status returned to API clients.
func StatusCode(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeNoPendingImage:
		return http.StatusNotFound
	case errors.ErrCodeAccessDenied:
		return http.StatusForbidden
	case errors.ErrCodeAnalysisInProgress:
		return http.StatusConflict
	case errors.ErrCodeBusy:
		return http.StatusTooManyRequests
	case errors.ErrCodeStorage:
		return http.StatusServiceUnavailable
	case errors.ErrCodeProvider, errors.ErrCodeTelegramAPI, errors.ErrCodeNotification:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func logError(log zerolog.Logger, c *gin.Context, appErr *errors.AppError, status int) {
	event := log.Error()
	switch {
	case status == http.StatusForbidden:
		event = log.Warn()
	case status < 500:
		event = log.Info()
	}
	if appErr.UserID != 0 {
		event = event.Int64("user_id", appErr.UserID)
	}
	if len(appErr.Details) > 0 {
		event = event.Interface("details", appErr.Details)
	}
	if appErr.Cause != nil {
		event = event.AnErr("cause", appErr.Cause)
	}
	if status >= 500 && len(appErr.Stack) > 0 {
		event = event.Strs("stack", appErr.Stack)
	}
	event.
		Str("request_id", appErr.RequestID).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Msg(appErr.Message)
}

func getRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return "unknown"
}

func getUserID(c *gin.Context) int64 {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
