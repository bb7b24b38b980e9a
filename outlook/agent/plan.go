package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/outlook-toolbox/outlook/graph"
)

const (
	toolPrefix      = "TOOL:"
	argumentsPrefix = "ARGUMENTS:"
)

// ErrNoPlan is returned when a planner reply names no tool.
var ErrNoPlan = errors.New("planner reply has no TOOL line")

// Plan is a parsed planner reply.
type Plan struct {
	Tool      string
	Arguments graph.Args
}

// ParsePlan parses a reply of the form
//
//	TOOL: mailListMessages
//	ARGUMENTS: {"top": 5}
//
// The ARGUMENTS object may span several lines and may be wrapped in a code
// fence. A missing ARGUMENTS line yields empty arguments.
func ParsePlan(reply string) (*Plan, error) {
	lines := strings.Split(strings.ReplaceAll(reply, "\r\n", "\n"), "\n")
	plan := &Plan{Arguments: graph.Args{}}
	argStart := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*`"))
		switch {
		case plan.Tool == "" && hasPrefixFold(trimmed, toolPrefix):
			plan.Tool = strings.Trim(trimmed[len(toolPrefix):], "*`\"' \t")
		case plan.Tool != "" && argStart < 0 && hasPrefixFold(trimmed, argumentsPrefix):
			argStart = i
			lines[i] = strings.TrimSpace(line)
			idx := strings.Index(strings.ToUpper(lines[i]), argumentsPrefix)
			lines[i] = lines[i][idx+len(argumentsPrefix):]
		}
	}
	if plan.Tool == "" {
		return nil, ErrNoPlan
	}
	if argStart < 0 {
		return plan, nil
	}
	raw := strings.Join(lines[argStart:], "\n")
	start := strings.Index(raw, "{")
	if start < 0 {
		if strings.TrimSpace(strings.Trim(raw, "`")) == "" {
			return plan, nil
		}
		return nil, fmt.Errorf("tool %v: arguments are not a JSON object", plan.Tool)
	}
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw[start:])))
	decoder.UseNumber()
	var args map[string]any
	if err := decoder.Decode(&args); err != nil {
		return nil, fmt.Errorf("tool %v: invalid arguments: %w", plan.Tool, err)
	}
	for k, v := range args {
		plan.Arguments[k] = v
	}
	return plan, nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
