// Package agent drives an LLM through the Outlook tools: a planner picks one
// tool per prompt, an executor invokes it, and a validator judges the
// collected results against natural-language assertions.
package agent

import (
	"context"
	"sort"
	"strings"

	"github.com/viant/outlook-toolbox/outlook/graph"
	"github.com/viant/outlook-toolbox/outlook/llm"
	"go.uber.org/zap"
)

// Toolset is the tool surface an agent can call. *graph.App satisfies it.
type Toolset interface {
	Endpoints() []*graph.Endpoint
	Call(ctx context.Context, name string, args graph.Args) (*graph.Response, error)
}

// AppAgent pairs a Toolset with an LLM provider.
type AppAgent struct {
	tools    Toolset
	provider llm.Provider
	logger   *zap.Logger
	segments map[string]bool
	// maxResultBytes caps each tool result echoed back to the planner.
	maxResultBytes int
	temperature    float64
}

// Option customizes an AppAgent.
type Option func(a *AppAgent)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *AppAgent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithSegments restricts the tools offered to the planner to the given segments.
func WithSegments(segments ...string) Option {
	return func(a *AppAgent) {
		for _, s := range segments {
			if s = strings.TrimSpace(s); s != "" {
				a.segments[s] = true
			}
		}
	}
}

// WithMaxResultBytes caps each tool result passed back to the model.
func WithMaxResultBytes(n int) Option {
	return func(a *AppAgent) { a.maxResultBytes = n }
}

// NewAppAgent creates an agent.
func NewAppAgent(tools Toolset, provider llm.Provider, options ...Option) *AppAgent {
	a := &AppAgent{
		tools:          tools,
		provider:       provider,
		logger:         zap.NewNop(),
		segments:       map[string]bool{},
		maxResultBytes: 8 * 1024,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Tools returns the endpoints offered to the planner, sorted by name.
func (a *AppAgent) Tools() []*graph.Endpoint {
	var out []*graph.Endpoint
	for _, e := range a.tools.Endpoints() {
		if len(a.segments) > 0 && !a.segments[e.Segment] {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (a *AppAgent) offers(name string) bool {
	for _, e := range a.Tools() {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Describe renders the tool catalog for prompts.
func (a *AppAgent) Describe() string {
	var sb strings.Builder
	for _, e := range a.Tools() {
		sb.WriteString("### ")
		sb.WriteString(e.Name)
		sb.WriteString("\n")
		sb.WriteString(e.Usage())
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (a *AppAgent) complete(ctx context.Context, messages ...llm.Message) (string, error) {
	temperature := a.temperature
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{Messages: messages, Temperature: &temperature})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
