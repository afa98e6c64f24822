package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewResult(t *testing.T) {
	tests := []struct {
		name       string
		state      State
		wantStatus Status
		wantOutput string
	}{
		{
			name:       "accepted",
			state:      State{DraftAnswer: Str("d"), FinalAnswer: Str("final"), RetryCount: 1},
			wantStatus: StatusAccepted,
			wantOutput: "final",
		},
		{
			name:       "best effort",
			state:      State{DraftAnswer: Str("rewritten draft"), RetryCount: 3},
			wantStatus: StatusBestEffort,
			wantOutput: "rewritten draft",
		},
		{
			name:       "empty",
			state:      State{RetryCount: 0},
			wantStatus: StatusEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult("abc", tt.state)
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.Equal(t, tt.wantOutput, r.FinalOutput)
			assert.Equal(t, tt.state.RetryCount, r.Cycles)
			assert.Equal(t, "abc", r.ThreadID)
		})
	}
}

func TestStatus_Summary(t *testing.T) {
	assert.Equal(t, "Accepted and Finalized", StatusAccepted.Summary())
	assert.Equal(t, "Best Draft after Max Retries", StatusBestEffort.Summary())
	assert.Equal(t, "Completed", StatusEmpty.Summary())
}

func TestNodeError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("run: %w", &NodeError{Node: NodeGenerate, ThreadID: "t1", Err: cause})

	assert.ErrorIs(t, err, cause)
	node, ok := FailedNode(err)
	assert.True(t, ok)
	assert.Equal(t, NodeGenerate, node)
	assert.Contains(t, err.Error(), "generate")

	_, ok = FailedNode(cause)
	assert.False(t, ok)
}
