package workflow

import "strings"

// Status 运行结果状态
type Status string

const (
	// StatusAccepted 评审通过
	StatusAccepted Status = "accepted"
	// StatusBestEffort 达到重试上限，返回最后一版草稿
	StatusBestEffort Status = "best_effort"
	// StatusEmpty 既无最终答案也无草稿
	StatusEmpty Status = "empty"
)

// Summary 返回面向用户的状态描述
func (s Status) Summary() string {
	switch s {
	case StatusAccepted:
		return "Accepted and Finalized"
	case StatusBestEffort:
		return "Best Draft after Max Retries"
	default:
		return "Completed"
	}
}

// Result 是一次运行交给调用方的结果。
type Result struct {
	Status      Status `json:"status"`
	FinalOutput string `json:"final_output"`
	// 完成的检索轮数（即 RetryCount）
	Cycles   int    `json:"cycles"`
	ThreadID string `json:"thread_id"`
	// 终止时的完整状态
	State State `json:"state"`
}

// NewResult builds the caller-facing result from a terminal state.
func NewResult(threadID string, state State) *Result {
	r := &Result{
		Status:   StatusEmpty,
		Cycles:   state.RetryCount,
		ThreadID: threadID,
		State:    state,
	}
	switch {
	case state.Accepted():
		r.Status = StatusAccepted
		r.FinalOutput = *state.FinalAnswer
	case strings.TrimSpace(Value(state.DraftAnswer)) != "":
		r.Status = StatusBestEffort
		r.FinalOutput = *state.DraftAnswer
	}
	return r
}
