package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/BaSui01/researchflow/testutil"
	"github.com/BaSui01/researchflow/testutil/mocks"
	"github.com/BaSui01/researchflow/types"
	"github.com/BaSui01/researchflow/workflow"
)

type harness struct {
	retriever *mocks.MockRetriever
	generator *mocks.ScriptedGenerator
	critic    *mocks.ScriptedCritic
	manager   *workflow.CheckpointManager
	ctrl      *workflow.Controller
}

func newHarness(t require.TestingT, cfg workflow.Config, store workflow.CheckpointStore, opts ...workflow.Option) *harness {
	if store == nil {
		store = workflow.NewInMemoryCheckpointStore()
	}
	h := &harness{
		retriever: mocks.NewMockRetriever(),
		generator: mocks.NewScriptedGenerator(),
		critic:    mocks.NewScriptedCritic(),
		manager:   workflow.NewCheckpointManager(store, nil),
	}
	ctrl, err := workflow.NewController(cfg, h.retriever, h.generator, h.critic, h.manager, opts...)
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func TestController_AcceptedOnSecondCycle(t *testing.T) {
	ctx := testutil.TestContext(t)
	h := newHarness(t, workflow.DefaultConfig(), nil, workflow.WithLogger(zaptest.NewLogger(t)))
	h.critic.Reject("add the release date").Accept("")

	result, err := h.ctrl.Run(ctx, "X")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusAccepted, result.Status)
	assert.Equal(t, 2, result.Cycles)
	assert.Equal(t, "draft 2", result.FinalOutput)
	assert.Equal(t, workflow.ThreadID("X"), result.ThreadID)
	assert.Equal(t, workflow.AcceptedReflection, workflow.Value(result.State.Reflection))

	calls := h.retriever.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "X", calls[0].Query)
	assert.Equal(t, "Based on this critique: 'add the release date', refine the search query for: X", calls[1].Query)
	assert.Equal(t, 3, calls[0].TopK)

	critiques := h.critic.Calls()
	require.Len(t, critiques, 2)
	assert.Equal(t, "draft 2", critiques[1].Draft)
	assert.Equal(t, workflow.CriticDirective, critiques[0].Directive)
	assert.Equal(t, workflow.GeneratorDirective, h.generator.Calls()[0].Directive)
}

func TestController_RejectedEveryCycleIsBestEffort(t *testing.T) {
	ctx := testutil.TestContext(t)
	h := newHarness(t, workflow.DefaultConfig(), nil)
	h.critic.Reject("reason 1").Reject("reason 2").Reject("reason 3")

	result, err := h.ctrl.Run(ctx, "X")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusBestEffort, result.Status)
	assert.Equal(t, 3, result.Cycles)
	assert.Equal(t, 3, h.retriever.CallCount())
	assert.Equal(t, workflow.RejectedDraft("reason 3", "draft 3"), result.FinalOutput)
	assert.Contains(t, result.FinalOutput, "reason 3")
	assert.Nil(t, result.State.FinalAnswer)
}

func TestController_RetrievalFailureOnFirstCycle(t *testing.T) {
	ctx := testutil.TestContext(t)
	h := newHarness(t, workflow.DefaultConfig(), nil)
	transport := errors.New("connection reset")
	h.retriever.WithFailOnCall(1, transport)

	result, err := h.ctrl.Run(ctx, "X")
	require.Error(t, err)
	assert.Nil(t, result)

	node, ok := workflow.FailedNode(err)
	require.True(t, ok)
	assert.Equal(t, workflow.NodeResearch, node)
	assert.ErrorIs(t, err, transport)
	assert.True(t, types.IsErrorCode(err, types.ErrRetrievalFailed))
	assert.Zero(t, h.generator.CallCount())

	state, err := h.manager.Get(ctx, workflow.ThreadID("X"))
	require.NoError(t, err)
	assert.Equal(t, 0, state.RetryCount)
	assert.Nil(t, state.DraftAnswer)
	assert.Equal(t, "X", state.Question)
}

func TestController_ResumeAcceptedThreadMakesNoCalls(t *testing.T) {
	ctx := testutil.TestContext(t)
	store := workflow.NewInMemoryCheckpointStore()

	first := newHarness(t, workflow.DefaultConfig(), store)
	first.critic.Accept("looks good")
	want, err := first.ctrl.Run(ctx, "X")
	require.NoError(t, err)

	second := newHarness(t, workflow.DefaultConfig(), store)
	got, err := second.ctrl.Run(ctx, "X")
	require.NoError(t, err)

	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.FinalOutput, got.FinalOutput)
	assert.Equal(t, want.Cycles, got.Cycles)
	assert.Zero(t, second.retriever.CallCount())
	assert.Zero(t, second.generator.CallCount())
	assert.Zero(t, second.critic.CallCount())

	history, err := second.manager.History(ctx, workflow.ThreadID("X"))
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestController_ResumeContinuesFromFailedNode(t *testing.T) {
	ctx := testutil.TestContext(t)
	store := workflow.NewInMemoryCheckpointStore()

	first := newHarness(t, workflow.DefaultConfig(), store)
	first.generator.WithError(errors.New("quota exceeded"))
	_, err := first.ctrl.Run(ctx, "X")
	require.Error(t, err)
	node, _ := workflow.FailedNode(err)
	assert.Equal(t, workflow.NodeGenerate, node)
	assert.True(t, types.IsErrorCode(err, types.ErrGenerationFailed))

	second := newHarness(t, workflow.DefaultConfig(), store)
	second.critic.Accept("")
	result, err := second.ctrl.Run(ctx, "X")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusAccepted, result.Status)
	assert.Equal(t, 1, result.Cycles)
	assert.Equal(t, 1, first.retriever.CallCount())
	assert.Zero(t, second.retriever.CallCount())
	assert.Equal(t, 1, second.generator.CallCount())
}

func TestController_AcceptanceWinsAtCeiling(t *testing.T) {
	ctx := testutil.TestContext(t)
	h := newHarness(t, workflow.Config{MaxRetries: 1, TopK: 2}, nil)
	h.critic.Accept("ok")

	result, err := h.ctrl.Run(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusAccepted, result.Status)
	assert.Equal(t, 1, result.Cycles)
	assert.Equal(t, 2, h.retriever.Calls()[0].TopK)
}

func TestController_InvalidInput(t *testing.T) {
	ctx := testutil.TestContext(t)
	h := newHarness(t, workflow.DefaultConfig(), nil)

	_, err := h.ctrl.Run(ctx, "   ")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidInput))
	assert.Zero(t, h.retriever.CallCount())
}

func TestController_ThreadBelongsToAnotherQuestion(t *testing.T) {
	ctx := testutil.TestContext(t)
	h := newHarness(t, workflow.DefaultConfig(), nil)
	_, err := h.manager.Save(ctx, workflow.ThreadID("X"), workflow.SourceInput,
		workflow.Update{Question: workflow.Str("Y")}, workflow.NodeResearch)
	require.NoError(t, err)

	_, err = h.ctrl.Run(ctx, "X")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidInput))
	assert.Zero(t, h.retriever.CallCount())
}

func TestController_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		update workflow.Update
		next   workflow.Node
	}{
		{
			name:   "generate without research data",
			update: workflow.Update{Question: workflow.Str("X"), RetryCount: workflow.Int(1)},
			next:   workflow.NodeGenerate,
		},
		{
			name:   "critique without draft",
			update: workflow.Update{Question: workflow.Str("X"), ResearchData: workflow.Str("r"), RetryCount: workflow.Int(1)},
			next:   workflow.NodeCritique,
		},
		{
			name:   "research at the ceiling",
			update: workflow.Update{Question: workflow.Str("X"), RetryCount: workflow.Int(3)},
			next:   workflow.NodeResearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.TestContext(t)
			h := newHarness(t, workflow.DefaultConfig(), nil)
			_, err := h.manager.Save(ctx, workflow.ThreadID("X"), workflow.SourceInput, tt.update, tt.next)
			require.NoError(t, err)

			_, err = h.ctrl.Run(ctx, "X")
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrPreconditionFailed))
			node, _ := workflow.FailedNode(err)
			assert.Equal(t, tt.next, node)
			assert.Zero(t, h.retriever.CallCount()+h.generator.CallCount()+h.critic.CallCount())
		})
	}
}

func TestController_EmptyDraftIsAnError(t *testing.T) {
	ctx := testutil.TestContext(t)
	h := newHarness(t, workflow.DefaultConfig(), nil)
	h.generator = mocks.NewScriptedGenerator("  ")
	ctrl, err := workflow.NewController(workflow.DefaultConfig(), h.retriever, h.generator, h.critic, h.manager)
	require.NoError(t, err)

	_, err = ctrl.Run(ctx, "X")
	assert.True(t, types.IsErrorCode(err, types.ErrGenerationFailed))
	assert.Zero(t, h.critic.CallCount())
}

func TestController_CritiqueFailureKeepsDraft(t *testing.T) {
	ctx := testutil.TestContext(t)
	h := newHarness(t, workflow.DefaultConfig(), nil)
	h.critic.WithError(types.NewError(types.ErrRateLimited, "slow down").WithRetryable(true))

	_, err := h.ctrl.Run(ctx, "X")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrCritiqueFailed))
	assert.True(t, types.IsRetryable(err))

	state, err := h.manager.Get(ctx, workflow.ThreadID("X"))
	require.NoError(t, err)
	assert.Equal(t, "draft 1", workflow.Value(state.DraftAnswer))
	assert.Equal(t, 1, state.RetryCount)
}

func TestController_CancelledContext(t *testing.T) {
	h := newHarness(t, workflow.DefaultConfig(), nil)

	_, err := h.ctrl.Run(testutil.CancelledContext(), "X")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestController_StreamEvents(t *testing.T) {
	h := newHarness(t, workflow.DefaultConfig(), nil)
	h.critic.Accept("")

	var mu sync.Mutex
	var events []string
	ctx := workflow.WithStreamEmitter(testutil.TestContext(t), func(ev workflow.StreamEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, fmt.Sprintf("%s:%s:%s", ev.Type, ev.Node, ev.Next))
	})

	_, err := h.ctrl.Run(ctx, "X")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"node_start:research:",
		"node_complete:research:generate",
		"node_start:generate:",
		"node_complete:generate:critique",
		"node_start:critique:",
		"node_complete:critique:end",
		"route:critique:end",
	}, events)
}

type recordingMetrics struct {
	mu     sync.Mutex
	nodes  map[string]int
	routes []string
	runs   []string
}

func (r *recordingMetrics) RecordNode(node string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nodes == nil {
		r.nodes = make(map[string]int)
	}
	key := node
	if err != nil {
		key += ":error"
	}
	r.nodes[key]++
}

func (r *recordingMetrics) RecordRoute(decision string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, decision)
}

func (r *recordingMetrics) RecordRun(status string, cycles int, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, fmt.Sprintf("%s/%d", status, cycles))
}

func TestController_RecordsMetrics(t *testing.T) {
	rec := &recordingMetrics{}
	h := newHarness(t, workflow.DefaultConfig(), nil, workflow.WithMetrics(rec))
	h.critic.Reject("more").Accept("")

	_, err := h.ctrl.Run(testutil.TestContext(t), "X")
	require.NoError(t, err)

	assert.Equal(t, 2, rec.nodes["research"])
	assert.Equal(t, 2, rec.nodes["critique"])
	assert.Equal(t, []string{"research", "end"}, rec.routes)
	assert.Equal(t, []string{"accepted/2"}, rec.runs)
}

func TestNewController_Validation(t *testing.T) {
	mgr := workflow.NewCheckpointManager(workflow.NewInMemoryCheckpointStore(), nil)

	_, err := workflow.NewController(workflow.Config{MaxRetries: 0, TopK: 3},
		mocks.NewMockRetriever(), mocks.NewScriptedGenerator(), mocks.NewScriptedCritic(), mgr)
	assert.Error(t, err)

	_, err = workflow.NewController(workflow.DefaultConfig(), nil, mocks.NewScriptedGenerator(), mocks.NewScriptedCritic(), mgr)
	assert.Error(t, err)
}

func TestProperty_ControllerBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxRetries := rapid.IntRange(1, 5).Draw(rt, "maxRetries")
		verdicts := rapid.SliceOfN(rapid.Bool(), maxRetries, maxRetries).Draw(rt, "verdicts")

		h := newHarness(rt, workflow.Config{MaxRetries: maxRetries, TopK: 3}, nil)
		acceptedAt := 0
		for i, ok := range verdicts {
			if ok {
				h.critic.Accept("")
				if acceptedAt == 0 {
					acceptedAt = i + 1
				}
			} else {
				h.critic.Reject(fmt.Sprintf("reason %d", i+1))
			}
		}

		result, err := h.ctrl.Run(context.Background(), "property question")
		require.NoError(rt, err)

		assert.LessOrEqual(rt, result.Cycles, maxRetries)
		assert.Equal(rt, result.Cycles, h.retriever.CallCount())

		if acceptedAt > 0 {
			assert.Equal(rt, workflow.StatusAccepted, result.Status)
			assert.Equal(rt, acceptedAt, result.Cycles)
			assert.Equal(rt, h.critic.Calls()[acceptedAt-1].Draft, result.FinalOutput)
		} else {
			assert.Equal(rt, workflow.StatusBestEffort, result.Status)
			assert.Equal(rt, maxRetries, result.Cycles)
			assert.Contains(rt, result.FinalOutput, fmt.Sprintf("reason %d", maxRetries))
		}
	})
}
