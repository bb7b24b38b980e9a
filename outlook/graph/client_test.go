package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the fake Graph server received.
type recordedRequest struct {
	Method  string
	RawPath string
	Query   string
	Header  http.Header
	Body    []byte
}

type fakeGraph struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	ctype    string
	body     string
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:  r.Method,
		RawPath: r.URL.EscapedPath(),
		Query:   r.URL.RawQuery,
		Header:  r.Header.Clone(),
		Body:    data,
	})
	f.mu.Unlock()
	if f.ctype != "" {
		w.Header().Set("Content-Type", f.ctype)
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, f.body)
}

func (f *fakeGraph) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "expected a request to be sent")
	return f.requests[len(f.requests)-1]
}

func (f *fakeGraph) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestApp(t *testing.T, fake *fakeGraph) *App {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	app, err := NewApp(NewClient(&ClientOptions{BaseURL: srv.URL + "/v1.0"}), nil)
	require.NoError(t, err)
	return app
}

// failingTransport fails the test if any request reaches the network.
type failingTransport struct{ t *testing.T }

func (f failingTransport) Do(req *http.Request) (*http.Response, error) {
	f.t.Errorf("unexpected request %v %v", req.Method, req.URL)
	return nil, errors.New("no network")
}

func TestCallMissingRequiredSendsNothing(t *testing.T) {
	client := NewClient(&ClientOptions{Transport: failingTransport{t: t}})
	app, err := NewApp(client, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		tool    string
		args    Args
		missing []string
	}{
		{name: "path param", tool: "mailGetMessage", args: Args{}, missing: []string{"message_id"}},
		{name: "blank path param", tool: "mailDeleteMessage", args: Args{"message_id": "  "}, missing: []string{"message_id"}},
		{name: "nil path param", tool: "calendarGetEvent", args: Args{"event_id": nil}, missing: []string{"event_id"}},
		{name: "body param", tool: "mailMoveMessage", args: Args{"message_id": "m1"}, missing: []string{"destination_id"}},
		{name: "all reported", tool: "groupsReplyPost", args: Args{"group_id": "g"}, missing: []string{"thread_id", "post_id", "post"}},
		{name: "query param", tool: "calendarListView", args: Args{"start_date_time": "2025-01-01T00:00:00Z"}, missing: []string{"end_date_time"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Call(context.Background(), tc.tool, tc.args)
			assert.Nil(t, resp)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tc.missing, verr.Missing)
			assert.Equal(t, tc.tool, verr.Endpoint)
		})
	}
}

func TestCallRejectsUnknownArguments(t *testing.T) {
	client := NewClient(&ClientOptions{Transport: failingTransport{t: t}})
	app, err := NewApp(client, nil)
	require.NoError(t, err)
	_, err = app.Call(context.Background(), "mailListMessages", Args{"topp": 5, "folder": "inbox"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"folder", "topp"}, verr.Unknown)
	assert.EqualError(t, err, "mailListMessages: unknown folder, topp")

	_, err = app.Call(context.Background(), "mailNoSuchTool", nil)
	assert.True(t, errors.Is(err, ErrUnknownEndpoint))
}

func TestCallQueryOmitsUnsetOptionals(t *testing.T) {
	fake := &fakeGraph{ctype: "application/json", body: `{"value":[]}`}
	app := newTestApp(t, fake)

	_, err := app.Call(context.Background(), "mailListMessages", Args{
		"top":     5,
		"filter":  "",
		"select":  []any{},
		"search":  nil,
		"orderby": []any{"receivedDateTime DESC"},
	})
	require.NoError(t, err)
	req := fake.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v1.0/me/messages", req.RawPath)
	assert.Equal(t, "$orderby=receivedDateTime%20DESC&$top=5", req.Query)

	_, err = app.Call(context.Background(), "mailListMessages", nil)
	require.NoError(t, err)
	assert.Equal(t, "", fake.last(t).Query)
}

func TestCallQueryFormatting(t *testing.T) {
	fake := &fakeGraph{ctype: "application/json", body: `{}`}
	app := newTestApp(t, fake)
	_, err := app.Call(context.Background(), "calendarListView", Args{
		"start_date_time": "2025-01-01T00:00:00Z",
		"end_date_time":   "2025-01-08T00:00:00Z",
		"select":          []string{"subject", "start"},
		"top":             float64(25),
	})
	require.NoError(t, err)
	req := fake.last(t)
	assert.Equal(t, "$select=subject%2Cstart&$top=25&endDateTime=2025-01-08T00%3A00%3A00Z&startDateTime=2025-01-01T00%3A00%3A00Z", req.Query)
}

func TestCallSizedNumericArguments(t *testing.T) {
	fake := &fakeGraph{ctype: "application/json", body: `{}`}
	app := newTestApp(t, fake)
	_, err := app.Call(context.Background(), "mailListMessages", Args{"top": int32(5), "skip": uint(3)})
	require.NoError(t, err)
	assert.Equal(t, "$skip=3&$top=5", fake.last(t).Query)

	_, err = app.Call(context.Background(), "calendarListView", Args{
		"start_date_time": "2025-01-01T00:00:00Z",
		"end_date_time":   "2025-01-02T00:00:00Z",
		"top":             float32(1.5),
	})
	require.NoError(t, err)
	assert.Contains(t, fake.last(t).Query, "$top=1.5")
}

func TestCallPathSubstitution(t *testing.T) {
	fake := &fakeGraph{status: http.StatusNoContent}
	app := newTestApp(t, fake)

	_, err := app.Call(context.Background(), "mailDeleteAttachment", Args{"message_id": "AAMk/AGI=", "attachment_id": "att1"})
	require.NoError(t, err)
	req := fake.last(t)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/v1.0/me/messages/AAMk%2FAGI=/attachments/att1", req.RawPath)
	assert.Empty(t, req.Body)

	_, err = app.Call(context.Background(), "placesListRoomsInRoomList", Args{"room_list_email": "bldg1@contoso.com"})
	require.NoError(t, err)
	assert.Equal(t, "/v1.0/places/bldg1@contoso.com/microsoft.graph.roomlist/rooms", fake.last(t).RawPath)
}

func TestCallBodyAndHeaders(t *testing.T) {
	fake := &fakeGraph{status: http.StatusCreated, ctype: "application/json", body: `{"id":"ev1"}`}
	app := newTestApp(t, fake)

	_, err := app.Call(context.Background(), "calendarCreateEvent", Args{
		"subject":    "Standup",
		"start":      map[string]any{"dateTime": "2025-01-01T09:00:00", "timeZone": "UTC"},
		"end":        map[string]any{"dateTime": "2025-01-01T09:15:00", "timeZone": "UTC"},
		"location":   nil,
		"time_zone":  "Pacific Standard Time",
		"is_all_day": false,
	})
	require.NoError(t, err)
	req := fake.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, `outlook.timezone="Pacific Standard Time"`, req.Header.Get("Prefer"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.Equal(t, map[string]any{
		"subject":  "Standup",
		"start":    map[string]any{"dateTime": "2025-01-01T09:00:00", "timeZone": "UTC"},
		"end":      map[string]any{"dateTime": "2025-01-01T09:15:00", "timeZone": "UTC"},
		"isAllDay": false,
	}, sent)
}

func TestCallSpreadAndODataType(t *testing.T) {
	fake := &fakeGraph{status: http.StatusCreated, ctype: "application/json", body: `{}`}
	app := newTestApp(t, fake)
	_, err := app.Call(context.Background(), "mailCreateMessageExtension", Args{
		"message_id":     "m1",
		"odata_type":     "#microsoft.graph.openTypeExtension",
		"extension_name": "Com.Contoso.Referral",
		"data":           map[string]any{"companyName": "Wingtip", "skip": nil},
	})
	require.NoError(t, err)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(fake.last(t).Body, &sent))
	assert.Equal(t, map[string]any{
		"@odata.type":   "#microsoft.graph.openTypeExtension",
		"extensionName": "Com.Contoso.Referral",
		"companyName":   "Wingtip",
	}, sent)

	_, err = app.Call(context.Background(), "mailCreateMessageExtension", Args{
		"message_id": "m1", "odata_type": "x", "extension_name": "y", "data": "not an object",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"data"}, verr.Invalid)
}

func TestUpdateMessageExtension(t *testing.T) {
	fake := &fakeGraph{ctype: "application/json", body: `{}`}
	app := newTestApp(t, fake)
	_, err := app.Call(context.Background(), "mailUpdateMessageExtension", Args{
		"message_id":   "m1",
		"extension_id": "Com.Contoso.Referral",
		"odata_type":   "#microsoft.graph.openTypeExtension",
		"data":         map[string]any{"companyName": "Fabrikam"},
	})
	require.NoError(t, err)
	req := fake.last(t)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/v1.0/me/messages/m1/extensions/Com.Contoso.Referral", req.RawPath)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.Equal(t, map[string]any{"@odata.type": "#microsoft.graph.openTypeExtension", "companyName": "Fabrikam"}, sent)
}

func TestCallActionWithoutBody(t *testing.T) {
	fake := &fakeGraph{status: http.StatusAccepted}
	app := newTestApp(t, fake)
	resp, err := app.Call(context.Background(), "mailSendDraft", Args{"message_id": "draft1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Empty(t, resp.Body)
	req := fake.last(t)
	assert.Equal(t, "/v1.0/me/messages/draft1/send", req.RawPath)
	assert.Empty(t, req.Body)
}

func TestResponseBodyReturnedVerbatim(t *testing.T) {
	payload := `{"value": [ {"id":"1","subject":"héllo é"} ],
  "@odata.nextLink":"https://graph.microsoft.com/v1.0/me/messages?$skip=10"}`
	fake := &fakeGraph{ctype: "application/json; odata.metadata=minimal", body: payload}
	app := newTestApp(t, fake)
	resp, err := app.Call(context.Background(), "mailListMessages", Args{"top": 1})
	require.NoError(t, err)
	assert.Equal(t, payload, string(resp.Body))
	assert.Equal(t, "https://graph.microsoft.com/v1.0/me/messages?$skip=10", resp.NextLink)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestResponseNonJSONContent(t *testing.T) {
	mime := "From: alice@contoso.com\r\nSubject: hi\r\n\r\nbody"
	fake := &fakeGraph{ctype: "text/plain", body: mime}
	app := newTestApp(t, fake)
	resp, err := app.Call(context.Background(), "mailGetMimeContent", Args{"message_id": "m1"})
	require.NoError(t, err)
	assert.Equal(t, "/v1.0/me/messages/m1/$value", fake.last(t).RawPath)
	assert.Empty(t, resp.Body)
	assert.Equal(t, mime, resp.Text)
}

func TestNon2xxReturnsResponseError(t *testing.T) {
	body := `{"error":{"code":"ErrorItemNotFound","message":"The specified object was not found in the store."}}`
	fake := &fakeGraph{status: http.StatusNotFound, ctype: "application/json", body: body}
	app := newTestApp(t, fake)
	resp, err := app.Call(context.Background(), "mailGetMessage", Args{"message_id": "gone"})
	assert.Nil(t, resp)
	require.Error(t, err)

	var respErr *azcore.ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusNotFound, respErr.StatusCode)
	assert.Equal(t, "ErrorItemNotFound", respErr.ErrorCode)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, body, ErrorBody(err))
	assert.Equal(t, 1, fake.count(), "no retries expected")
}

func TestServiceUnavailableIsNotRetried(t *testing.T) {
	fake := &fakeGraph{status: http.StatusServiceUnavailable, body: "busy"}
	app := newTestApp(t, fake)
	_, err := app.Call(context.Background(), "mailListFolders", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, 1, fake.count())
	assert.True(t, strings.Contains(ErrorBody(err), "busy"))
}

func TestFollowNextLink(t *testing.T) {
	fake := &fakeGraph{ctype: "application/json", body: `{"value":[]}`}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	client := NewClient(&ClientOptions{BaseURL: srv.URL + "/v1.0"})

	_, err := client.FollowNextLink(context.Background(), srv.URL+"/v1.0/me/messages?%24skip=10&%24top=5")
	require.NoError(t, err)
	req := fake.last(t)
	assert.Equal(t, "/v1.0/me/messages", req.RawPath)
	assert.Equal(t, "%24skip=10&%24top=5", req.Query)

	_, err = client.FollowNextLink(context.Background(), "https://evil.example.com/v1.0/me/messages")
	assert.Error(t, err)
	assert.Equal(t, 1, fake.count())
}
