package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/outlook-toolbox/outlook/graph"
	"github.com/viant/outlook-toolbox/outlook/llm"
	"go.uber.org/goleak"
)

// scriptedLLM replies with canned responses in order.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	requests []llm.CompletionRequest
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.replies) {
		return nil, errors.New("no scripted reply")
	}
	return &llm.CompletionResponse{Content: s.replies[i]}, nil
}

type call struct {
	name string
	args graph.Args
}

// fakeTools serves canned responses keyed by tool name.
type fakeTools struct {
	endpoints []*graph.Endpoint
	responses map[string]*graph.Response
	errs      map[string]error
	calls     []call
}

func newFakeTools() *fakeTools {
	return &fakeTools{
		endpoints: []*graph.Endpoint{
			{Name: "mailSendMail", Segment: graph.SegmentMail, Method: "POST", Path: "/me/sendMail", Description: "Send a message."},
			{Name: "mailListMessages", Segment: graph.SegmentMail, Method: "GET", Path: "/me/messages", Description: "List messages."},
			{Name: "placesListRooms", Segment: graph.SegmentPlaces, Method: "GET", Path: "/places/microsoft.graph.room", Description: "List rooms."},
		},
		responses: map[string]*graph.Response{},
		errs:      map[string]error{},
	}
}

func (f *fakeTools) Endpoints() []*graph.Endpoint { return f.endpoints }

func (f *fakeTools) Call(_ context.Context, name string, args graph.Args) (*graph.Response, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.responses[name], nil
}

func TestRunChainsResults(t *testing.T) {
	defer goleak.VerifyNone(t)
	tools := newFakeTools()
	tools.responses["mailSendMail"] = &graph.Response{StatusCode: 202}
	tools.responses["mailListMessages"] = &graph.Response{StatusCode: 200, Body: []byte(`{"value":[{"id":"m1","subject":"hello"}]}`)}
	model := &scriptedLLM{replies: []string{
		"TOOL: mailSendMail\nARGUMENTS: {\"message\": {\"subject\": \"hello\"}}",
		"TOOL: mailListMessages\nARGUMENTS: {\"top\": 5}",
	}}
	agent := NewAppAgent(tools, model)

	state, err := agent.Run(context.Background(), "send hello", "list inbox")
	require.NoError(t, err)
	assert.NotEmpty(t, state.RunID)
	assert.Equal(t, []string{"START", "planner_0", "executor_0", "planner_1", "executor_1", "END"}, state.Trace)
	require.Len(t, state.Results, 2)
	assert.Equal(t, "status 202", state.Results[0].Result)
	assert.Equal(t, `{"value":[{"id":"m1","subject":"hello"}]}`, state.Results[1].Result)

	require.Len(t, tools.calls, 2)
	assert.Equal(t, "mailListMessages", tools.calls[1].name)
	assert.Equal(t, json.Number("5"), tools.calls[1].args["top"])

	require.Len(t, model.requests, 2)
	assert.Equal(t, "send hello", model.requests[0].Messages[1].Content)
	second := model.requests[1].Messages[1].Content
	assert.Contains(t, second, `"tool_results"`)
	assert.Contains(t, second, `"tool": "mailSendMail"`)
	assert.True(t, strings.HasSuffix(second, "list inbox"))
	assert.Contains(t, model.requests[0].Messages[0].Content, "### mailListMessages")
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	defer goleak.VerifyNone(t)
	tools := newFakeTools()
	tools.errs["mailListMessages"] = &graph.ValidationError{Endpoint: "mailListMessages", Missing: []string{"folder_id"}}
	tools.responses["placesListRooms"] = &graph.Response{StatusCode: 200, Body: []byte(`{"value":[]}`)}
	model := &scriptedLLM{
		replies: []string{"", "I am not sure", "TOOL: mailListMessages\nARGUMENTS: {}", "TOOL: calendarListEvents", "TOOL: placesListRooms"},
		errs:    []error{errors.New("throttled")},
	}
	agent := NewAppAgent(tools, model)

	state, err := agent.Run(context.Background(), "a", "b", "c", "d", "e")
	require.NoError(t, err)
	require.Len(t, state.Results, 5)
	assert.Equal(t, "planner: throttled", state.Results[0].Error)
	assert.Equal(t, ErrNoPlan.Error(), state.Results[1].Error)
	assert.Contains(t, state.Results[2].Error, "folder_id")
	assert.Contains(t, state.Results[3].Error, "calendarListEvents")
	assert.False(t, state.Results[4].Failed())
	assert.Equal(t, NodeEnd, state.Trace[len(state.Trace)-1])
	assert.Len(t, tools.calls, 2)
}

func TestRunHonoursSegments(t *testing.T) {
	tools := newFakeTools()
	model := &scriptedLLM{replies: []string{"TOOL: mailSendMail\nARGUMENTS: {}"}}
	agent := NewAppAgent(tools, model, WithSegments(graph.SegmentPlaces))

	assert.Len(t, agent.Tools(), 1)
	assert.NotContains(t, agent.Describe(), "mailSendMail")
	state, err := agent.Run(context.Background(), "send")
	require.NoError(t, err)
	assert.True(t, state.Results[0].Failed())
	assert.Empty(t, tools.calls)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := NewAppAgent(newFakeTools(), &scriptedLLM{}).Run(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{NodeStart}, state.Trace)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...(truncated)", truncate("abc", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
}
