package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("tavily")

	assert.Equal(t, ErrUpstreamError, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, root)
	assert.Equal(t, "[UPSTREAM_ERROR] upstream failed: root", err.Error())
}

func TestError_WrappedByFmt(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrRateLimited, "slow down").WithRetryable(true)
	outer := NewError(ErrRetrievalFailed, "search failed").WithCause(inner)
	wrapped := fmt.Errorf("research: %w", outer)

	assert.Equal(t, ErrRetrievalFailed, GetErrorCode(wrapped))
	assert.True(t, IsErrorCode(wrapped, ErrRateLimited))
	assert.True(t, IsErrorCode(wrapped, ErrRetrievalFailed))
	assert.False(t, IsErrorCode(wrapped, ErrCheckpointFailed))
	// Retryability is read from the outermost structured error.
	assert.False(t, IsRetryable(wrapped))
}

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := Errorf(ErrPreconditionFailed, "node %s requires %s", "generate", "research_data")
	assert.Equal(t, "[PRECONDITION_FAILED] node generate requires research_data", err.Error())
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}
