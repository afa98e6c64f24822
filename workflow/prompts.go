package workflow

import (
	"fmt"
	"strings"

	"github.com/BaSui01/researchflow/retrieval"
)

// GeneratorDirective 起草指令
const GeneratorDirective = "You are an expert Q-A assistant. Generate a detailed, professional, and " +
	"well-structured answer based *only* on the provided research context."

// CriticDirective 评审指令
const CriticDirective = "You are a meticulous editorial reviewer. Your sole task is to analyze the " +
	"'Draft Answer' against the 'Original Question' and the 'Research Context'. If the answer is " +
	"factually correct, directly addresses the question, and is complete, set 'is_acceptable' to True " +
	"and set 'reflection' to 'Answer accepted, finalizing.'. If the answer is vague, misses key facts, " +
	"or needs more context, set 'is_acceptable' to False and provide detailed instructions in the " +
	"'reflection' for what needs to be fixed or researched further."

// AcceptedReflection 评审通过时的固定确认语
const AcceptedReflection = "Answer accepted, finalizing."

// RejectedReflectionFallback 评审拒绝但未给出理由时使用
const RejectedReflectionFallback = "The draft was rejected without a specific critique. " +
	"Research the question again and cover the missing facts."

// ResearchQuery 返回本轮检索使用的查询：没有评审意见时直接使用问题。
func ResearchQuery(question, reflection string) string {
	if strings.TrimSpace(reflection) == "" {
		return question
	}
	return fmt.Sprintf("Based on this critique: '%s', refine the search query for: %s", reflection, question)
}

// FormatResearch 把检索片段格式化为 "Source <i> (<source>): <content>"，以空行分隔。
func FormatResearch(snippets []retrieval.Snippet) string {
	parts := make([]string, 0, len(snippets))
	for i, s := range snippets {
		parts = append(parts, fmt.Sprintf("Source %d (%s): %s", i+1, s.Source, s.Content))
	}
	return strings.Join(parts, "\n\n")
}

// RejectedDraft 拒绝路径上改写后的草稿：评审意见 + 上一版草稿。
func RejectedDraft(reflection, draft string) string {
	return "Refinement needed based on critique: " + reflection + "\n\nPrevious Draft:\n" + draft
}
