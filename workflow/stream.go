package workflow

import "context"

// StreamEventType 节点执行事件类型
type StreamEventType string

const (
	EventNodeStart    StreamEventType = "node_start"
	EventNodeComplete StreamEventType = "node_complete"
	EventNodeError    StreamEventType = "node_error"
	// EventRoute CRITIQUE 之后的路由决策
	EventRoute StreamEventType = "route"
)

// StreamEvent 节点执行事件
type StreamEvent struct {
	Type     StreamEventType `json:"type"`
	ThreadID string          `json:"thread_id"`
	Node     Node            `json:"node"`
	// Next 仅 node_complete / route 事件填写
	Next Node `json:"next,omitempty"`
	// Version 本次写入的 checkpoint 版本
	Version int    `json:"version,omitempty"`
	State   *State `json:"state,omitempty"`
	Error   error  `json:"-"`
}

// StreamEmitter 接收节点事件
type StreamEmitter func(StreamEvent)

type streamEmitterKey struct{}

// WithStreamEmitter attaches an emitter that receives node events for runs using ctx.
func WithStreamEmitter(ctx context.Context, emit StreamEmitter) context.Context {
	if emit == nil {
		return ctx
	}
	return context.WithValue(ctx, streamEmitterKey{}, emit)
}

func streamEmitterFromContext(ctx context.Context) (StreamEmitter, bool) {
	if ctx == nil {
		return nil, false
	}
	emit, ok := ctx.Value(streamEmitterKey{}).(StreamEmitter)
	return emit, ok && emit != nil
}

func emit(ctx context.Context, ev StreamEvent) {
	if fn, ok := streamEmitterFromContext(ctx); ok {
		fn(ev)
	}
}
