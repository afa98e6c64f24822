// 工作流协作者的脚本化模拟实现：检索、起草、评审。
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/researchflow/retrieval"
	"github.com/BaSui01/researchflow/workflow"
)

// =============================================================================
// 🔎 MockRetriever
// =============================================================================

// RetrieverCall 记录单次检索
type RetrieverCall struct {
	Query string
	TopK  int
}

// MockRetriever 实现 workflow.Retriever
type MockRetriever struct {
	mu sync.Mutex

	results [][]retrieval.Snippet
	err     error
	failOn  map[int]error
	calls   []RetrieverCall
}

// NewMockRetriever 创建默认为每个查询生成 topK 条结果的 MockRetriever
func NewMockRetriever() *MockRetriever {
	return &MockRetriever{failOn: make(map[int]error)}
}

// WithResults 按调用顺序返回结果，用完后回落到自动生成的结果
func (m *MockRetriever) WithResults(results ...[]retrieval.Snippet) *MockRetriever {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, results...)
	return m
}

// WithError 每次调用都返回 err
func (m *MockRetriever) WithError(err error) *MockRetriever {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailOnCall 第 n 次调用（从 1 开始）返回 err
func (m *MockRetriever) WithFailOnCall(n int, err error) *MockRetriever {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[n] = err
	return m
}

// Search 实现 workflow.Retriever
func (m *MockRetriever) Search(ctx context.Context, query string, topK int) ([]retrieval.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, RetrieverCall{Query: query, TopK: topK})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.failOn[len(m.calls)]; ok {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}

	var out []retrieval.Snippet
	if len(m.results) > 0 {
		out = m.results[0]
		m.results = m.results[1:]
	} else {
		for i := 0; i < topK; i++ {
			out = append(out, retrieval.Snippet{
				Source:  fmt.Sprintf("https://example.com/%d/%d", len(m.calls), i+1),
				Content: fmt.Sprintf("finding %d for %s", i+1, query),
			})
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// Calls 返回所有调用记录
func (m *MockRetriever) Calls() []RetrieverCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RetrieverCall(nil), m.calls...)
}

// CallCount 返回调用次数
func (m *MockRetriever) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// =============================================================================
// ✍️ ScriptedGenerator
// =============================================================================

// GeneratorCall 记录单次起草
type GeneratorCall struct {
	Directive    string
	Question     string
	ResearchData string
}

// ScriptedGenerator 实现 workflow.DraftGenerator
type ScriptedGenerator struct {
	mu sync.Mutex

	drafts []string
	err    error
	failOn map[int]error
	calls  []GeneratorCall
}

// NewScriptedGenerator 按顺序返回 drafts，用完后返回 "draft <n>"
func NewScriptedGenerator(drafts ...string) *ScriptedGenerator {
	return &ScriptedGenerator{
		drafts: append([]string(nil), drafts...),
		failOn: make(map[int]error),
	}
}

// WithError 每次调用都返回 err
func (g *ScriptedGenerator) WithError(err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
	return g
}

// WithFailOnCall 第 n 次调用（从 1 开始）返回 err
func (g *ScriptedGenerator) WithFailOnCall(n int, err error) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failOn[n] = err
	return g
}

// Complete 实现 workflow.DraftGenerator
func (g *ScriptedGenerator) Complete(ctx context.Context, directive, question, researchData string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, GeneratorCall{Directive: directive, Question: question, ResearchData: researchData})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := g.failOn[len(g.calls)]; ok {
		return "", err
	}
	if g.err != nil {
		return "", g.err
	}
	if len(g.drafts) > 0 {
		d := g.drafts[0]
		g.drafts = g.drafts[1:]
		return d, nil
	}
	return fmt.Sprintf("draft %d", len(g.calls)), nil
}

// Calls 返回所有调用记录
func (g *ScriptedGenerator) Calls() []GeneratorCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GeneratorCall(nil), g.calls...)
}

// CallCount 返回调用次数
func (g *ScriptedGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// =============================================================================
// 🧐 ScriptedCritic
// =============================================================================

// CriticCall 记录单次评审
type CriticCall struct {
	Directive    string
	Question     string
	ResearchData string
	Draft        string
}

// ScriptedCritic 实现 workflow.Critic
type ScriptedCritic struct {
	mu sync.Mutex

	verdicts []workflow.Verdict
	fallback workflow.Verdict
	err      error
	failOn   map[int]error
	calls    []CriticCall
}

// NewScriptedCritic 创建脚本评审者，脚本用完后拒绝并要求补充细节
func NewScriptedCritic() *ScriptedCritic {
	return &ScriptedCritic{
		fallback: workflow.Verdict{IsAcceptable: false, Reflection: "needs more detail"},
		failOn:   make(map[int]error),
	}
}

// Accept 追加一次通过
func (c *ScriptedCritic) Accept(reflection string) *ScriptedCritic {
	return c.Then(workflow.Verdict{IsAcceptable: true, Reflection: reflection})
}

// Reject 追加一次拒绝
func (c *ScriptedCritic) Reject(reflection string) *ScriptedCritic {
	return c.Then(workflow.Verdict{IsAcceptable: false, Reflection: reflection})
}

// Then 追加任意结论
func (c *ScriptedCritic) Then(v workflow.Verdict) *ScriptedCritic {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdicts = append(c.verdicts, v)
	return c
}

// WithFallback 设置脚本用完后的结论
func (c *ScriptedCritic) WithFallback(v workflow.Verdict) *ScriptedCritic {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = v
	return c
}

// WithError 每次调用都返回 err
func (c *ScriptedCritic) WithError(err error) *ScriptedCritic {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	return c
}

// WithFailOnCall 第 n 次调用（从 1 开始）返回 err
func (c *ScriptedCritic) WithFailOnCall(n int, err error) *ScriptedCritic {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failOn[n] = err
	return c
}

// Extract 实现 workflow.Critic
func (c *ScriptedCritic) Extract(ctx context.Context, directive, question, researchData, draft string) (workflow.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, CriticCall{Directive: directive, Question: question, ResearchData: researchData, Draft: draft})
	if err := ctx.Err(); err != nil {
		return workflow.Verdict{}, err
	}
	if err, ok := c.failOn[len(c.calls)]; ok {
		return workflow.Verdict{}, err
	}
	if c.err != nil {
		return workflow.Verdict{}, c.err
	}
	if len(c.verdicts) > 0 {
		v := c.verdicts[0]
		c.verdicts = c.verdicts[1:]
		return v, nil
	}
	return c.fallback, nil
}

// Calls 返回所有调用记录
func (c *ScriptedCritic) Calls() []CriticCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CriticCall(nil), c.calls...)
}

// CallCount 返回调用次数
func (c *ScriptedCritic) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}
