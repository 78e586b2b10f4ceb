package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := NewStorageError("put", stderrors.New("disk full"))
	assert.Equal(t, "[STORAGE_ERROR] Storage operation failed: put: disk full", err.Error())
	assert.Equal(t, "put", err.Details["operation"])
}

func TestAsAppError_FindsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("receive: %w", NewNoPendingImageError(42))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNoPendingImage, appErr.Code)
	assert.Equal(t, int64(42), appErr.UserID)
}

func TestHasCode(t *testing.T) {
	err := NewAccessDeniedError(777, "activate")
	assert.True(t, HasCode(err, ErrCodeAccessDenied))
	assert.False(t, HasCode(err, ErrCodeStorage))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeAccessDenied))
	assert.False(t, HasCode(nil, ErrCodeAccessDenied))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeProvider, CodeOf(NewProviderError("analyze", stderrors.New("timeout"))))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeBusy, "pool full")
	b := New(ErrCodeBusy, "another message")
	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, New(ErrCodeStorage, "x")))
}

func TestIsUserFacing(t *testing.T) {
	assert.True(t, New(ErrCodeAccessDenied, "").IsUserFacing())
	assert.True(t, New(ErrCodeNoPendingImage, "").IsUserFacing())
	assert.False(t, New(ErrCodeStorage, "").IsUserFacing())
	assert.False(t, New(ErrCodeProvider, "").IsUserFacing())
}

func TestStackIsCaptured(t *testing.T) {
	err := New(ErrCodeInternal, "boom")
	require.NotEmpty(t, err.Stack)
	for _, frame := range err.Stack {
		assert.NotContains(t, frame, "internal/common/errors.")
	}
}
