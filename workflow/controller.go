package workflow

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/types"
)

const instrumentationName = "github.com/BaSui01/researchflow/workflow"

// MetricsRecorder 接收运行与节点指标，由 internal/metrics.Collector 实现。
type MetricsRecorder interface {
	RecordNode(node string, duration time.Duration, err error)
	RecordRoute(decision string)
	RecordRun(status string, cycles int, duration time.Duration, err error)
}

type nodeFunc func(ctx context.Context, state State) (Update, error)

// Controller 驱动 research → generate → critique 有界循环。
// 同一 thread 同一时间只应有一个 Run。
type Controller struct {
	cfg         Config
	retriever   Retriever
	generator   DraftGenerator
	critic      Critic
	checkpoints *CheckpointManager
	nodes       map[Node]nodeFunc
	logger      *zap.Logger
	tracer      trace.Tracer
	metrics     MetricsRecorder
}

// Option 控制器选项
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithMetrics records node and run metrics.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// NewController wires the collaborators into a controller.
func NewController(cfg Config, retriever Retriever, generator DraftGenerator, critic Critic, checkpoints *CheckpointManager, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if retriever == nil || generator == nil || critic == nil || checkpoints == nil {
		return nil, types.NewError(types.ErrInvalidInput, "retriever, generator, critic and checkpoint manager are required")
	}

	c := &Controller{
		cfg:         cfg,
		retriever:   retriever,
		generator:   generator,
		critic:      critic,
		checkpoints: checkpoints,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "workflow_controller"))

	c.nodes = map[Node]nodeFunc{
		NodeResearch: c.research,
		NodeGenerate: c.generate,
		NodeCritique: c.critique,
	}
	return c, nil
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Checkpoints returns the checkpoint manager used by the controller.
func (c *Controller) Checkpoints() *CheckpointManager {
	return c.checkpoints
}

// Run 执行（或恢复）question 对应 thread 的循环，直到终止或出错。
//
// 出错时已写入的 checkpoint 保留，再次 Run 同一问题会从失败的节点继续。
func (c *Controller) Run(ctx context.Context, question string) (result *Result, err error) {
	if strings.TrimSpace(question) == "" {
		return nil, types.NewError(types.ErrInvalidInput, "question must not be empty")
	}
	threadID := ThreadID(question)
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(attribute.String("workflow.thread_id", threadID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("workflow.status", string(result.Status)),
				attribute.Int("workflow.cycles", result.Cycles),
			)
		}
		span.End()
		if c.metrics != nil {
			status, cycles := "error", 0
			if result != nil {
				status, cycles = string(result.Status), result.Cycles
			}
			c.metrics.RecordRun(status, cycles, time.Since(start), err)
		}
	}()

	logger := c.logger.With(zap.String("thread_id", threadID))

	cp, err := c.checkpoints.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		cp, err = c.checkpoints.Save(ctx, threadID, SourceInput,
			Update{Question: Str(question), RetryCount: Int(0)}, NodeResearch)
		if err != nil {
			return nil, err
		}
		logger.Info("starting new thread")
	} else {
		if cp.State.Question != question {
			return nil, types.Errorf(types.ErrInvalidInput,
				"thread %s belongs to a different question", threadID)
		}
		logger.Info("resuming thread",
			zap.Int("version", cp.Version),
			zap.String("next", cp.Next.String()),
			zap.Int("retry_count", cp.State.RetryCount),
		)
	}

	state, next := cp.State, cp.Next
	for next != NodeEnd {
		handler, ok := c.nodes[next]
		if !ok {
			return nil, &NodeError{Node: next, ThreadID: threadID,
				Err: types.Errorf(types.ErrPreconditionFailed, "no handler for node %q", next)}
		}

		saved, err := c.step(ctx, threadID, next, handler, state)
		if err != nil {
			logger.Error("node failed", zap.String("node", next.String()), zap.Error(err))
			return nil, &NodeError{Node: next, ThreadID: threadID, Err: err}
		}
		state, next = saved.State, saved.Next
	}

	result = NewResult(threadID, state)
	logger.Info("workflow finished",
		zap.String("status", string(result.Status)),
		zap.Int("cycles", result.Cycles),
	)
	return result, nil
}

// step 执行单个节点并写入 checkpoint
func (c *Controller) step(ctx context.Context, threadID string, node Node, handler nodeFunc, state State) (_ *Checkpoint, err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "workflow.node."+node.String(),
		trace.WithAttributes(
			attribute.String("workflow.thread_id", threadID),
			attribute.String("workflow.node", node.String()),
			attribute.Int("workflow.retry_count", state.RetryCount),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			emit(ctx, StreamEvent{Type: EventNodeError, ThreadID: threadID, Node: node, Error: err})
		}
		span.End()
		if c.metrics != nil {
			c.metrics.RecordNode(node.String(), time.Since(start), err)
		}
	}()

	emit(ctx, StreamEvent{Type: EventNodeStart, ThreadID: threadID, Node: node})

	update, err := handler(ctx, state)
	if err != nil {
		return nil, err
	}

	following := successor(node, Merge(state, update), c.cfg.MaxRetries)
	cp, err := c.checkpoints.Save(ctx, threadID, node.String(), update, following)
	if err != nil {
		return nil, err
	}

	snapshot := cp.State.clone()
	emit(ctx, StreamEvent{Type: EventNodeComplete, ThreadID: threadID, Node: node,
		Next: following, Version: cp.Version, State: &snapshot})

	if node == NodeCritique {
		span.SetAttributes(attribute.String("workflow.route", following.String()))
		emit(ctx, StreamEvent{Type: EventRoute, ThreadID: threadID, Node: node, Next: following, Version: cp.Version})
		if c.metrics != nil {
			c.metrics.RecordRoute(following.String())
		}
		c.logRoute(threadID, cp.State, following)
	}
	return cp, nil
}

func (c *Controller) logRoute(threadID string, state State, next Node) {
	logger := c.logger.With(zap.String("thread_id", threadID))
	switch {
	case state.Accepted():
		logger.Info("answer accepted")
	case next == NodeEnd:
		logger.Warn("max retries reached",
			zap.Int("retry_count", state.RetryCount),
			zap.Int("max_retries", c.cfg.MaxRetries))
	default:
		logger.Info("retrying",
			zap.Int("cycle", state.RetryCount),
			zap.Int("max_retries", c.cfg.MaxRetries))
	}
}

// research 检索资料并递增 RetryCount
func (c *Controller) research(ctx context.Context, state State) (Update, error) {
	if state.RetryCount >= c.cfg.MaxRetries {
		return Update{}, types.Errorf(types.ErrPreconditionFailed,
			"retry ceiling reached: retry_count=%d max_retries=%d", state.RetryCount, c.cfg.MaxRetries)
	}

	query := ResearchQuery(state.Question, Value(state.Reflection))
	snippets, err := c.retriever.Search(ctx, query, c.cfg.TopK)
	if err != nil {
		return Update{}, wrapCollaboratorError(err, types.ErrRetrievalFailed, "retrieval failed")
	}
	if len(snippets) > c.cfg.TopK {
		snippets = snippets[:c.cfg.TopK]
	}
	if len(snippets) == 0 {
		c.logger.Warn("retrieval returned no results", zap.String("query", query))
	}

	return Update{
		ResearchData: Str(FormatResearch(snippets)),
		RetryCount:   Int(state.RetryCount + 1),
	}, nil
}

// generate 依据 ResearchData 起草答案
func (c *Controller) generate(ctx context.Context, state State) (Update, error) {
	if state.ResearchData == nil {
		return Update{}, types.NewError(types.ErrPreconditionFailed, "generate requires research data")
	}

	draft, err := c.generator.Complete(ctx, GeneratorDirective, state.Question, *state.ResearchData)
	if err != nil {
		return Update{}, wrapCollaboratorError(err, types.ErrGenerationFailed, "draft generation failed")
	}
	if strings.TrimSpace(draft) == "" {
		return Update{}, types.NewError(types.ErrGenerationFailed, "generator returned an empty draft")
	}
	return Update{DraftAnswer: Str(draft)}, nil
}

// critique 评审草稿；通过时写入 FinalAnswer，拒绝时改写草稿
func (c *Controller) critique(ctx context.Context, state State) (Update, error) {
	if state.ResearchData == nil || state.DraftAnswer == nil {
		return Update{}, types.NewError(types.ErrPreconditionFailed, "critique requires research data and a draft")
	}

	verdict, err := c.critic.Extract(ctx, CriticDirective, state.Question, *state.ResearchData, *state.DraftAnswer)
	if err != nil {
		return Update{}, wrapCollaboratorError(err, types.ErrCritiqueFailed, "critique failed")
	}
	verdict = verdict.Normalize()

	if verdict.IsAcceptable {
		return Update{
			FinalAnswer: Str(*state.DraftAnswer),
			Reflection:  Str(verdict.Reflection),
		}, nil
	}
	return Update{
		Reflection:  Str(verdict.Reflection),
		DraftAnswer: Str(RejectedDraft(verdict.Reflection, *state.DraftAnswer)),
	}, nil
}

// wrapCollaboratorError 用节点错误码包装协作者错误，保留可重试标记
func wrapCollaboratorError(err error, code types.ErrorCode, msg string) error {
	if types.IsErrorCode(err, code) {
		return err
	}
	return types.NewError(code, msg).WithCause(err).WithRetryable(types.IsRetryable(err))
}
