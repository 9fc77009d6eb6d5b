package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrValidation, "from must be YYYY-MM-DD")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "from must be YYYY-MM-DD", err.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestWrapAsKeepsCause(t *testing.T) {
	err := WrapAs(ErrFetchTimeout, context.DeadlineExceeded, "")
	assert.ErrorIs(t, err, ErrFetchTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, err.Status)
	assert.Contains(t, err.Error(), "spreadsheet fetch timed out")
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	plain := fmt.Errorf("boom")
	appErr := FromError(plain)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, plain)

	wrapped := fmt.Errorf("load: %w", ErrAuth)
	assert.Equal(t, ErrAuth.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}
