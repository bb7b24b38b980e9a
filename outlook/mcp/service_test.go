package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/outlook-toolbox/outlook/graph"
)

const azurePrompt = "To sign in, use a web browser to open the page https://microsoft.com/devicelogin and enter the code ABCD-1234 to authenticate."

func TestDevicePromptParsing(t *testing.T) {
	assert.Equal(t, "https://microsoft.com/devicelogin", extractURL(azurePrompt))
	assert.Equal(t, "ABCD-1234", extractCode(azurePrompt))
	assert.Equal(t, deviceLoginURL, extractURL("no link here"))
	assert.Equal(t, "", extractCode("nothing"))

	page := buildDeviceLoginHTML(azurePrompt)
	assert.Contains(t, page, "<code>ABCD-1234</code>")
	assert.Contains(t, page, `href="https://microsoft.com/devicelogin"`)

	fallback := buildDeviceLoginHTML("open https://example.com/<x> now")
	assert.Contains(t, fallback, "<pre>open https://example.com/&lt;x&gt; now</pre>")
	assert.Contains(t, buildWaitingForDeviceHTML(), `http-equiv="refresh"`)
}

func newTestService() *Service {
	svc := NewService(&Config{ClientID: "client", TenantID: "organizations", CallbackBaseURL: "http://localhost:7788/"})
	svc.promptWait = 10 * time.Millisecond
	return svc
}

func TestDeviceHandler(t *testing.T) {
	svc := newTestService()
	mux := http.NewServeMux()
	svc.RegisterHTTP(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/outlook/auth/device/missing")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/outlook/auth/device/a/b")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	pend := &PendingAuth{UUID: "u1", Alias: "work"}
	svc.Pending().Put(pend)
	assert.Equal(t, "http://localhost:7788/outlook/auth/device/u1", svc.DeviceLoginURL(pend))
	resp, err = http.Get(srv.URL + "/outlook/auth/device/u1")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Preparing device login")

	resp, err = http.Get(srv.URL + "/outlook/auth/start")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNeedsLoginWithoutAuthRecord(t *testing.T) {
	svc := NewService(&Config{ClientID: "client", SecretsBase: "mem://localhost/outlook-empty"})
	started := time.Now()
	assert.True(t, needsLogin(context.Background(), svc, &graph.Account{Alias: "work", TenantID: "organizations"}))
	assert.Less(t, time.Since(started), 400*time.Millisecond)
}

func TestPendingHandlers(t *testing.T) {
	svc := newTestService()
	svc.Pending().Put(&PendingAuth{UUID: "u1", Alias: "work", TenantID: "t1"})
	svc.Pending().Put(&PendingAuth{UUID: "u2", Alias: "home", Namespace: "bob@contoso.com"})

	rec := httptest.NewRecorder()
	svc.PendingListHandler()(rec, httptest.NewRequest(http.MethodGet, "/outlook/auth/pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Equal(t, []map[string]string{{"UUID": "u1", "Alias": "work", "TenantID": "t1", "Namespace": "default"}}, rows)

	rec = httptest.NewRecorder()
	svc.PendingListHandler()(rec, httptest.NewRequest(http.MethodPost, "/outlook/auth/pending", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	svc.PendingClearHandler()(rec, httptest.NewRequest(http.MethodPost, "/outlook/auth/pending/clear?namespace=bob@contoso.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared struct {
		Cleared int      `json:"cleared"`
		UUIDs   []string `json:"uuids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, 1, cleared.Cleared)
	assert.Equal(t, []string{"u2"}, cleared.UUIDs)
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/outlook-config/config.yaml"
	require.NoError(t, fs.Upload(ctx, URL, 0o644, strings.NewReader(`clientID: app-1
tenantID: contoso.onmicrosoft.com
secretsBase: mem://localhost/records
graphBaseURL: http://127.0.0.1:9999/v1.0
useData: true
segments: [mail, places]
`)))
	cfg, err := LoadConfig(ctx, fs, URL)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		ClientID:     "app-1",
		TenantID:     "contoso.onmicrosoft.com",
		SecretsBase:  "mem://localhost/records",
		GraphBaseURL: "http://127.0.0.1:9999/v1.0",
		UseData:      true,
		Segments:     []string{"mail", "places"},
	}, cfg)
	assert.True(t, cfg.segmentEnabled(graph.SegmentPlaces))
	assert.False(t, cfg.segmentEnabled(graph.SegmentGroups))
	assert.True(t, (&Config{}).segmentEnabled(graph.SegmentGroups))

	svc := NewService(cfg)
	assert.False(t, svc.UseTextField())
	assert.Equal(t, "app-1", svc.ClientID())

	_, err = LoadConfig(ctx, fs, "mem://localhost/outlook-config/missing.yaml")
	assert.Error(t, err)
}

func TestToolResults(t *testing.T) {
	svc := newTestService()
	result, rpcErr := responseResult(svc, &graph.Response{StatusCode: 200, Body: json.RawMessage(`{"value": [ ]}`)})
	require.Nil(t, rpcErr)
	assert.Equal(t, `{"value": [ ]}`, result.Content[0].Text)

	result, _ = responseResult(svc, &graph.Response{StatusCode: 200, Text: "MIME-Version: 1.0"})
	assert.Equal(t, "MIME-Version: 1.0", result.Content[0].Text)

	result, _ = responseResult(svc, &graph.Response{StatusCode: 204})
	assert.Equal(t, `{"statusCode":204}`, result.Content[0].Text)

	_, rpcErr = toolFailure(svc, &graph.ValidationError{Endpoint: "mailGetMessage", Missing: []string{"message_id"}})
	require.NotNil(t, rpcErr)
	assert.Contains(t, rpcErr.Message, "message_id")

	result, rpcErr = toolFailure(svc, errors.New("token expired"))
	require.Nil(t, rpcErr)
	require.NotNil(t, result.IsError)
	assert.True(t, *result.IsError)
	assert.Equal(t, "token expired", result.Content[0].Text)

	data := NewService(&Config{UseData: true})
	result, _ = buildSuccessResult(data, map[string]any{"status": "sent"})
	assert.Equal(t, map[string]any{"result": map[string]any{"status": "sent"}}, result.StructuredContent)

	pend := &PendingAuth{UUID: "u9", Alias: "work"}
	result = signInResult(svc, pend)
	assert.Contains(t, result.Content[0].Text, "http://localhost:7788/outlook/auth/device/u9")
}

func TestEndpointToolDescriptions(t *testing.T) {
	endpoints, err := catalog()
	require.NoError(t, err)
	require.NotEmpty(t, endpoints)
	for _, e := range endpoints {
		desc := endpointDescription(e)
		assert.True(t, strings.HasPrefix(desc, "Calls one Microsoft Graph Outlook endpoint"), e.Name)
		assert.Contains(t, desc, e.Path, e.Name)
	}
	for _, d := range []string{outlookListMailDesc, outlookSendMailDesc, outlookListEventsDesc, outlookCreateEventDesc, outlookWhoAmIDesc, outlookNextPageDesc} {
		assert.NotEmpty(t, strings.TrimSpace(d))
	}
}
