package workflow

import "fmt"

// Node 状态机节点
type Node string

const (
	NodeResearch Node = "research"
	NodeGenerate Node = "generate"
	NodeCritique Node = "critique"
	// NodeEnd 终止状态，没有处理器
	NodeEnd Node = "end"
)

// String implements fmt.Stringer.
func (n Node) String() string {
	return string(n)
}

// Valid 报告 n 是否为已知节点
func (n Node) Valid() bool {
	switch n {
	case NodeResearch, NodeGenerate, NodeCritique, NodeEnd:
		return true
	}
	return false
}

// ParseNode parses a persisted node name.
func ParseNode(s string) (Node, error) {
	n := Node(s)
	if !n.Valid() {
		return "", fmt.Errorf("unknown workflow node %q", s)
	}
	return n, nil
}

// Route 在 CRITIQUE 之后决定下一个节点。
//
// 优先级：已有 FinalAnswer → END；RetryCount 达到上限 → END；否则回到 RESEARCH。
func Route(state State, maxRetries int) Node {
	if state.Accepted() {
		return NodeEnd
	}
	if state.RetryCount >= maxRetries {
		return NodeEnd
	}
	return NodeResearch
}

// successor 返回 from 节点完成后的下一个节点
func successor(from Node, state State, maxRetries int) Node {
	switch from {
	case NodeResearch:
		return NodeGenerate
	case NodeGenerate:
		return NodeCritique
	case NodeCritique:
		return Route(state, maxRetries)
	default:
		return NodeEnd
	}
}
