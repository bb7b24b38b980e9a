package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viant/outlook-toolbox/outlook/graph"
	"github.com/viant/outlook-toolbox/outlook/llm"
	"go.uber.org/zap"
)

const (
	NodeStart = "START"
	NodeEnd   = "END"
)

const plannerInstructions = `You operate a Microsoft Outlook account through the tools listed below.
Pick exactly one tool that accomplishes the user's request and reply in this format only:

TOOL: <tool name>
ARGUMENTS: <JSON object with the tool arguments>

Use identifiers found in previous tool results when the request refers to earlier steps.`

// ToolResult records one executor step.
type ToolResult struct {
	Prompt    string         `json:"prompt" yaml:"prompt"`
	Tool      string         `json:"tool,omitempty" yaml:"tool,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Result    string         `json:"result,omitempty" yaml:"result,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
	Duration  time.Duration  `json:"duration" yaml:"duration"`
}

// Failed reports whether the step recorded an error.
func (r *ToolResult) Failed() bool { return r.Error != "" }

// State is the workflow state carried from node to node.
type State struct {
	RunID   string
	Prompts []string
	Results []*ToolResult
	// Trace lists visited nodes in order.
	Trace []string

	reply   string
	planErr error
}

func plannerNode(i int) string  { return fmt.Sprintf("planner_%d", i) }
func executorNode(i int) string { return fmt.Sprintf("executor_%d", i) }

// Run executes prompts sequentially. Each prompt is planned by the LLM and the
// chosen tool is executed; any failure is recorded on that prompt's result and
// the run moves on. Only context cancellation stops it early.
func (a *AppAgent) Run(ctx context.Context, prompts ...string) (*State, error) {
	state := &State{RunID: uuid.New().String(), Prompts: prompts, Trace: []string{NodeStart}}
	logger := a.logger.With(zap.String("run", state.RunID))
	for i, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		state.Trace = append(state.Trace, plannerNode(i))
		a.plan(ctx, state, prompt)

		state.Trace = append(state.Trace, executorNode(i))
		result := a.execute(ctx, state, prompt)
		state.Results = append(state.Results, result)
		if result.Failed() {
			logger.Warn("step failed", zap.Int("step", i), zap.String("tool", result.Tool), zap.String("error", result.Error))
		} else {
			logger.Debug("step done", zap.Int("step", i), zap.String("tool", result.Tool), zap.Duration("duration", result.Duration))
		}
	}
	state.Trace = append(state.Trace, NodeEnd)
	return state, nil
}

func (a *AppAgent) plan(ctx context.Context, state *State, prompt string) {
	state.reply, state.planErr = "", nil
	reply, err := a.complete(ctx,
		llm.System(plannerInstructions+"\n\n## Tools\n\n"+a.Describe()),
		llm.User(a.plannerPrompt(state, prompt)),
	)
	if err != nil {
		state.planErr = fmt.Errorf("planner: %w", err)
		return
	}
	state.reply = reply
}

func (a *AppAgent) plannerPrompt(state *State, prompt string) string {
	if len(state.Results) == 0 {
		return prompt
	}
	var sb strings.Builder
	sb.WriteString("## Previous tool results\n\n")
	sb.WriteString(a.formatResults(state.Results))
	sb.WriteString("\n\n## Request\n\n")
	sb.WriteString(prompt)
	return sb.String()
}

func (a *AppAgent) execute(ctx context.Context, state *State, prompt string) *ToolResult {
	result := &ToolResult{Prompt: prompt}
	if state.planErr != nil {
		result.Error = state.planErr.Error()
		return result
	}
	plan, err := ParsePlan(state.reply)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Tool = plan.Tool
	result.Arguments = plan.Arguments
	if !a.offers(plan.Tool) {
		result.Error = fmt.Sprintf("%v: %v", graph.ErrUnknownEndpoint, plan.Tool)
		return result
	}
	started := time.Now()
	resp, err := a.tools.Call(ctx, plan.Tool, plan.Arguments)
	result.Duration = time.Since(started)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Result = formatResponse(resp)
	return result
}

func formatResponse(resp *graph.Response) string {
	if resp == nil {
		return ""
	}
	switch {
	case len(resp.Body) > 0:
		return string(resp.Body)
	case resp.Text != "":
		return resp.Text
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

// formatResults renders results as the tool_results block fed back to the model.
func (a *AppAgent) formatResults(results []*ToolResult) string {
	type entry struct {
		Step      int            `json:"step"`
		Prompt    string         `json:"prompt"`
		Tool      string         `json:"tool,omitempty"`
		Arguments map[string]any `json:"arguments,omitempty"`
		Result    string         `json:"result,omitempty"`
		Error     string         `json:"error,omitempty"`
	}
	entries := make([]entry, 0, len(results))
	for i, r := range results {
		entries = append(entries, entry{
			Step: i, Prompt: r.Prompt, Tool: r.Tool, Arguments: r.Arguments,
			Result: truncate(r.Result, a.maxResultBytes), Error: r.Error,
		})
	}
	data, err := json.MarshalIndent(map[string]any{"tool_results": entries}, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", entries)
	}
	return string(data)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
