package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/BaSui01/researchflow/types"
	"github.com/BaSui01/researchflow/workflow"
)

const missingAnswer = "Execution Complete (Final Answer Missing)"

var banner = strings.Repeat("=", 50)

var nodeLabels = map[workflow.Node]string{
	workflow.NodeResearch: "🔍 RESEARCH NODE: Executing web search...",
	workflow.NodeGenerate: "✍️ GENERATE NODE: Drafting answer...",
	workflow.NodeCritique: "✨ CRITIQUE NODE: Reviewing draft...",
}

// progressPrinter 每个节点输出一行进度，评审后输出路由决策
func progressPrinter(w io.Writer, maxRetries int) workflow.StreamEmitter {
	var (
		mu   sync.Mutex
		last workflow.State
	)
	return func(ev workflow.StreamEvent) {
		mu.Lock()
		defer mu.Unlock()

		switch ev.Type {
		case workflow.EventNodeStart:
			if label, ok := nodeLabels[ev.Node]; ok {
				fmt.Fprintf(w, "--- %s ---\n", label)
			}
		case workflow.EventNodeComplete:
			if ev.State != nil {
				last = *ev.State
			}
		case workflow.EventNodeError:
			fmt.Fprintf(w, "--- ❌ %s NODE failed: %v ---\n", strings.ToUpper(ev.Node.String()), ev.Error)
		case workflow.EventRoute:
			fmt.Fprintln(w, routeLine(last, ev.Next, maxRetries))
		}
	}
}

func routeLine(state workflow.State, next workflow.Node, maxRetries int) string {
	switch {
	case state.Accepted():
		return "--- ✅ ROUTER: Answer accepted. Proceeding to END. ---"
	case next == workflow.NodeEnd:
		return fmt.Sprintf("--- 🛑 ROUTER: Max retries (%d) reached. Proceeding to END. ---", maxRetries)
	default:
		return fmt.Sprintf("--- 🔄 ROUTER: Retrying. Cycle %d/%d. Going back to research. ---", state.RetryCount, maxRetries)
	}
}

// printSummary 输出运行结果
func printSummary(w io.Writer, result *workflow.Result) {
	output := result.FinalOutput
	if result.Status == workflow.StatusEmpty {
		output = missingAnswer
	}

	fmt.Fprintf(w, "\n%s\n", banner)
	fmt.Fprintf(w, "Execution Summary (ID: %s)\n", result.ThreadID)
	fmt.Fprintf(w, "Status: %s\n", result.Status.Summary())
	fmt.Fprintf(w, "Total Research/Refinement Cycles: %d\n", result.Cycles)
	fmt.Fprintf(w, "\n[ FINAL ANSWER ]\n%s\n", output)
	fmt.Fprintln(w, banner)
	fmt.Fprintf(w, "\n💡 Note: The state is saved under ID '%s'. Run the same question again to resume, "+
		"or use 'researchflow history %s' to inspect it.\n", result.ThreadID, result.ThreadID)
}

// printFailure 输出失败节点与恢复提示
func printFailure(w io.Writer, threadID string, err error) {
	fmt.Fprintf(w, "\nWorkflow failed: %v\n", err)
	if node, ok := workflow.FailedNode(err); ok {
		fmt.Fprintf(w, "Failed node: %s\n", node)
	}
	if code := types.GetErrorCode(err); code != "" {
		fmt.Fprintf(w, "Error code: %s\n", code)
	}
	if types.IsRetryable(err) {
		fmt.Fprintln(w, "The failure looks transient.")
	}
	fmt.Fprintf(w, "Progress is saved under thread '%s'; re-run the same question to resume.\n", threadID)
}
