package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/outlook-toolbox/outlook/graph"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		passed bool
		reason string
		err    bool
	}{
		{name: "pass", reply: "VERDICT: PASS\nREASON: the subject is present", passed: true, reason: "the subject is present"},
		{name: "fail", reply: "VERDICT: FAIL\nREASON: inbox is empty", reason: "inbox is empty"},
		{name: "decorated", reply: "**Verdict:** pass.\n**Reason:** ok", passed: true, reason: "ok"},
		{name: "no reason", reply: "VERDICT: FAIL"},
		{name: "missing", reply: "looks fine to me", err: true},
		{name: "unknown value", reply: "VERDICT: MAYBE", err: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			passed, reason, err := ParseVerdict(tc.reply)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.passed, passed)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestValidateScenario(t *testing.T) {
	tools := newFakeTools()
	tools.responses["mailSendMail"] = &graph.Response{StatusCode: 202}
	tools.responses["mailListMessages"] = &graph.Response{StatusCode: 200, Body: []byte(`{"value":[{"subject":"hello"}]}`)}
	model := &scriptedLLM{
		replies: []string{
			"TOOL: mailSendMail\nARGUMENTS: {}",
			"TOOL: mailListMessages\nARGUMENTS: {}",
			"VERDICT: PASS\nREASON: found hello",
			"VERDICT: FAIL\nREASON: no reply",
			"",
		},
		errs: []error{nil, nil, nil, nil, errors.New("boom")},
	}
	agent := NewAppAgent(tools, model)
	report, err := agent.Validate(context.Background(), &Scenario{
		Name:       "send-and-list",
		Prompts:    []string{"send hello", "list inbox"},
		Assertions: []string{"inbox has hello", "a reply arrived", "nothing broke"},
	})
	require.NoError(t, err)
	assert.Equal(t, "send-and-list", report.Scenario)
	require.Len(t, report.Verdicts, 3)
	assert.True(t, report.Verdicts[0].Passed)
	assert.Equal(t, "found hello", report.Verdicts[0].Reason)
	assert.False(t, report.Verdicts[1].Passed)
	assert.Equal(t, "boom", report.Verdicts[2].Error)
	assert.False(t, report.Passed())
	assert.Len(t, report.Failures(), 2)
	assert.Len(t, report.Results, 2)

	judged := model.requests[2].Messages[1].Content
	assert.Contains(t, judged, `{\"value\":[{\"subject\":\"hello\"}]}`)
	assert.Contains(t, judged, "inbox has hello")

	_, err = agent.Validate(context.Background(), nil)
	assert.Error(t, err)
}

func TestReportPassed(t *testing.T) {
	assert.True(t, (&Report{}).Passed())
	assert.True(t, (&Report{Verdicts: []*Verdict{{Passed: true}}}).Passed())
}
