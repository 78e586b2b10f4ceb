package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode classifies an AppError.
type ErrorCode string

const (
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"

	// Access registry
	ErrCodeAccessDenied ErrorCode = "ACCESS_DENIED"

	// Upload intake
	ErrCodeNoPendingImage ErrorCode = "NO_PENDING_IMAGE"
	ErrCodeStorage        ErrorCode = "STORAGE_ERROR"

	// Analysis dispatch
	ErrCodeProvider           ErrorCode = "PROVIDER_ERROR"
	ErrCodeAnalysisInProgress ErrorCode = "ANALYSIS_IN_PROGRESS"
	ErrCodeBusy               ErrorCode = "BUSY"

	// Outbound messaging
	ErrCodeNotification ErrorCode = "NOTIFICATION_ERROR"
	ErrCodeTelegramAPI  ErrorCode = "TELEGRAM_API_ERROR"
)

// AppError is a typed application error.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	// Stack holds the frames above New, logged for unexpected failures.
	Stack     []string               `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    int64                  `json:"user_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code, so sentinel comparisons work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsUserFacing reports whether the error is recovered locally and shown to the user
// as a plain explanation rather than a generic failure.
func (e *AppError) IsUserFacing() bool {
	switch e.Code {
	case ErrCodeAccessDenied, ErrCodeNoPendingImage, ErrCodeValidation,
		ErrCodeAnalysisInProgress, ErrCodeBusy:
		return true
	}
	return false
}

// WithDetail attaches a detail value.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID attaches the request id.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// WithUserID attaches the Telegram user id.
func (e *AppError) WithUserID(userID int64) *AppError {
	e.UserID = userID
	return e
}

// New creates an AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

// Wrap wraps err into an AppError.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

func NewAccessDeniedError(callerID int64, action string) *AppError {
	return New(ErrCodeAccessDenied, fmt.Sprintf("Access denied: %s", action)).
		WithUserID(callerID).
		WithDetail("action", action)
}

func NewNoPendingImageError(userID int64) *AppError {
	return New(ErrCodeNoPendingImage, "No pending image").WithUserID(userID)
}

func NewStorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorage, fmt.Sprintf("Storage operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewProviderError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeProvider, fmt.Sprintf("Provider call failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewNotificationError(recipientID int64, err error) *AppError {
	return Wrap(err, ErrCodeNotification, fmt.Sprintf("Failed to notify %d", recipientID)).
		WithUserID(recipientID)
}

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewTelegramAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTelegramAPI, fmt.Sprintf("Telegram API operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// CodeOf returns the error code of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
