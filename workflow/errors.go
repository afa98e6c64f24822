package workflow

import (
	"errors"
	"fmt"
)

// ErrCheckpointNotFound 表示 thread 或版本不存在。后端应返回（或包装）该错误。
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// NodeError 标记失败发生在哪个节点。
type NodeError struct {
	Node     Node
	ThreadID string
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("workflow node %s failed (thread %s): %v", e.Node, e.ThreadID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// FailedNode returns the node recorded in err's chain, if any.
func FailedNode(err error) (Node, bool) {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Node, true
	}
	return "", false
}
