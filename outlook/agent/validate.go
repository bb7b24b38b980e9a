package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/outlook-toolbox/outlook/llm"
	"go.uber.org/zap"
)

const validatorInstructions = `You verify the outcome of an automated Outlook session.
Given the tool results and one assertion, decide whether the results satisfy the assertion.
Reply in this format only:

VERDICT: PASS or FAIL
REASON: <one sentence>`

// ErrNoVerdict is returned when a validator reply carries no VERDICT line.
var ErrNoVerdict = errors.New("validator reply has no VERDICT line")

// Verdict is the judgment of one assertion.
type Verdict struct {
	Assertion string `json:"assertion" yaml:"assertion"`
	Passed    bool   `json:"passed" yaml:"passed"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ParseVerdict parses "VERDICT: PASS|FAIL" with an optional "REASON:" line.
func ParseVerdict(reply string) (passed bool, reason string, err error) {
	found := false
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*`"))
		switch {
		case !found && hasPrefixFold(line, "VERDICT:"):
			value := strings.ToUpper(strings.Trim(line[len("VERDICT:"):], "*`.\"' \t"))
			switch {
			case strings.HasPrefix(value, "PASS"):
				passed, found = true, true
			case strings.HasPrefix(value, "FAIL"):
				passed, found = false, true
			default:
				return false, "", fmt.Errorf("unrecognized verdict %q", value)
			}
		case reason == "" && hasPrefixFold(line, "REASON:"):
			reason = strings.TrimSpace(strings.TrimLeft(line[len("REASON:"):], "*` \t"))
		}
	}
	if !found {
		return false, "", ErrNoVerdict
	}
	return passed, reason, nil
}

// Report aggregates a scenario run.
type Report struct {
	Scenario string        `json:"scenario" yaml:"scenario"`
	RunID    string        `json:"runId" yaml:"runId"`
	Results  []*ToolResult `json:"results" yaml:"results"`
	Verdicts []*Verdict    `json:"verdicts" yaml:"verdicts"`
	Trace    []string      `json:"trace" yaml:"trace"`
}

// Passed reports whether every assertion passed.
func (r *Report) Passed() bool {
	for _, v := range r.Verdicts {
		if !v.Passed {
			return false
		}
	}
	return true
}

// Failures returns the verdicts that did not pass.
func (r *Report) Failures() []*Verdict {
	var out []*Verdict
	for _, v := range r.Verdicts {
		if !v.Passed {
			out = append(out, v)
		}
	}
	return out
}

// Validate runs the scenario prompts and judges each assertion against the results.
// A validator error fails that assertion and the loop continues.
func (a *AppAgent) Validate(ctx context.Context, scenario *Scenario) (*Report, error) {
	if scenario == nil {
		return nil, errors.New("scenario was nil")
	}
	state, err := a.Run(ctx, scenario.Prompts...)
	report := &Report{Scenario: scenario.Name}
	if state != nil {
		report.RunID, report.Results, report.Trace = state.RunID, state.Results, state.Trace
	}
	if err != nil {
		return report, err
	}
	results := a.formatResults(state.Results)
	for _, assertion := range scenario.Assertions {
		verdict := &Verdict{Assertion: assertion}
		report.Verdicts = append(report.Verdicts, verdict)
		reply, err := a.complete(ctx,
			llm.System(validatorInstructions),
			llm.User(results+"\n\n## Assertion\n\n"+assertion),
		)
		if err == nil {
			verdict.Passed, verdict.Reason, err = ParseVerdict(reply)
		}
		if err != nil {
			verdict.Error = err.Error()
		}
		a.logger.Info("assertion",
			zap.String("scenario", scenario.Name),
			zap.String("assertion", assertion),
			zap.Bool("passed", verdict.Passed))
	}
	return report, nil
}
