package workflow

import (
	"context"
	"strings"

	"github.com/BaSui01/researchflow/retrieval"
)

// Retriever 检索协作者。返回的片段数不超过 topK。
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]retrieval.Snippet, error)
}

// DraftGenerator 起草协作者：只依据 researchData 回答 question。
type DraftGenerator interface {
	Complete(ctx context.Context, directive, question, researchData string) (string, error)
}

// Critic 评审协作者。
type Critic interface {
	Extract(ctx context.Context, directive, question, researchData, draft string) (Verdict, error)
}

// Verdict 评审结论
type Verdict struct {
	IsAcceptable bool   `json:"is_acceptable"`
	Reflection   string `json:"reflection"`
}

// Normalize 保证 Reflection 非空：通过时使用固定确认语，拒绝时使用通用补充检索提示。
func (v Verdict) Normalize() Verdict {
	v.Reflection = strings.TrimSpace(v.Reflection)
	if v.Reflection != "" {
		return v
	}
	if v.IsAcceptable {
		v.Reflection = AcceptedReflection
	} else {
		v.Reflection = RejectedReflectionFallback
	}
	return v
}
