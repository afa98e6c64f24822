package workflow

import "strings"

// State 是在节点之间流转并被 checkpoint 的工作流状态。
// 指针字段为 nil 表示尚未写入。
type State struct {
	Question     string  `json:"question"`
	ResearchData *string `json:"research_data,omitempty"`
	DraftAnswer  *string `json:"draft_answer,omitempty"`
	Reflection   *string `json:"reflection,omitempty"`
	RetryCount   int     `json:"retry_count"`
	FinalAnswer  *string `json:"final_answer,omitempty"`
}

// Update 是节点返回的部分更新。nil 字段保持原值不变。
type Update struct {
	Question     *string `json:"question,omitempty"`
	ResearchData *string `json:"research_data,omitempty"`
	DraftAnswer  *string `json:"draft_answer,omitempty"`
	Reflection   *string `json:"reflection,omitempty"`
	RetryCount   *int    `json:"retry_count,omitempty"`
	FinalAnswer  *string `json:"final_answer,omitempty"`
}

// Str returns a pointer to s, for building updates.
func Str(s string) *string { return &s }

// Int returns a pointer to n, for building updates.
func Int(n int) *int { return &n }

// Merge applies update on top of current. Question is only written while
// current has none.
func Merge(current State, update Update) State {
	next := current.clone()

	if update.Question != nil && next.Question == "" {
		next.Question = *update.Question
	}
	if update.ResearchData != nil {
		next.ResearchData = Str(*update.ResearchData)
	}
	if update.DraftAnswer != nil {
		next.DraftAnswer = Str(*update.DraftAnswer)
	}
	if update.Reflection != nil {
		next.Reflection = Str(*update.Reflection)
	}
	if update.RetryCount != nil {
		next.RetryCount = *update.RetryCount
	}
	if update.FinalAnswer != nil {
		next.FinalAnswer = Str(*update.FinalAnswer)
	}
	return next
}

// Accepted 报告评审是否已通过（FinalAnswer 非空）。
func (s State) Accepted() bool {
	return s.FinalAnswer != nil && strings.TrimSpace(*s.FinalAnswer) != ""
}

// Value returns the pointed-to string, or "" when p is nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// clone 深拷贝指针字段，避免调用方与 checkpoint 共享底层字符串指针
func (s State) clone() State {
	out := s
	if s.ResearchData != nil {
		out.ResearchData = Str(*s.ResearchData)
	}
	if s.DraftAnswer != nil {
		out.DraftAnswer = Str(*s.DraftAnswer)
	}
	if s.Reflection != nil {
		out.Reflection = Str(*s.Reflection)
	}
	if s.FinalAnswer != nil {
		out.FinalAnswer = Str(*s.FinalAnswer)
	}
	return out
}
