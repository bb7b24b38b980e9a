package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the Microsoft Graph v1.0 service root.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"
	moduleName     = "outlook-toolbox"
	// Version is reported in the User-Agent telemetry header.
	Version = "0.1.0"
)

// ClientOptions configures a Graph REST client.
type ClientOptions struct {
	// BaseURL overrides DefaultBaseURL (e.g. beta endpoint or a test server).
	BaseURL string
	// Credential authorizes requests; nil sends unauthenticated requests.
	Credential azcore.TokenCredential
	Scopes     []string
	// Transport replaces the default HTTP client.
	Transport policy.Transporter
	// InsecureAllowCredentialWithHTTP permits bearer tokens over plain http.
	InsecureAllowCredentialWithHTTP bool
	Logger                          *zap.Logger
}

// RequestOptions carries the optional parts of a verb call.
type RequestOptions struct {
	Query  url.Values
	Header http.Header
	Body   any
}

// Client sends Graph REST requests through an azcore pipeline.
// Retries are disabled: every call is a single request/response.
type Client struct {
	baseURL  string
	pipeline runtime.Pipeline
	logger   *zap.Logger
}

// NewClient creates a Client.
func NewClient(opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	plOpts := runtime.PipelineOptions{
		AllowedQueryParameters: []string{"$top", "$skip", "$select", "$orderby", "$expand", "$count"},
	}
	if opts.Credential != nil {
		scopes := opts.Scopes
		if len(scopes) == 0 {
			scopes = DefaultScopes()
		}
		plOpts.PerRetry = append(plOpts.PerRetry, runtime.NewBearerTokenPolicy(opts.Credential, scopes, &policy.BearerTokenOptions{
			InsecureAllowCredentialWithHTTP: opts.InsecureAllowCredentialWithHTTP,
		}))
	}
	clientOpts := &policy.ClientOptions{
		Retry:                           policy.RetryOptions{MaxRetries: -1},
		Transport:                       opts.Transport,
		InsecureAllowCredentialWithHTTP: opts.InsecureAllowCredentialWithHTTP,
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pipeline: runtime.NewPipeline(moduleName, Version, plOpts, clientOpts),
		logger:   logger,
	}
}

// BaseURL returns the service root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Get sends GET {base}{path}.
func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, opts)
}

// Post sends POST {base}{path} with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, opts)
}

// Patch sends PATCH {base}{path} with an optional JSON body.
func (c *Client) Patch(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.do(ctx, http.MethodPatch, path, opts)
}

// Delete sends DELETE {base}{path}.
func (c *Client) Delete(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, opts)
}

// Call validates args against the endpoint and dispatches the matching verb.
func (c *Client) Call(ctx context.Context, endpoint *Endpoint, args Args) (*Response, error) {
	req, err := endpoint.resolve(args)
	if err != nil {
		return nil, err
	}
	opts := &RequestOptions{Query: req.query, Header: req.header}
	if req.body != nil {
		opts.Body = req.body
	}
	switch req.method {
	case http.MethodGet:
		return c.Get(ctx, req.path, opts)
	case http.MethodPost:
		return c.Post(ctx, req.path, opts)
	case http.MethodPatch:
		return c.Patch(ctx, req.path, opts)
	case http.MethodDelete:
		return c.Delete(ctx, req.path, opts)
	}
	return nil, fmt.Errorf("%v: unsupported method %v", endpoint.Name, req.method)
}

// FollowNextLink fetches an @odata.nextLink (or deltaLink) returned by a previous page.
// The link must point at the client's service host.
func (c *Client) FollowNextLink(ctx context.Context, link string) (*Response, error) {
	target, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("invalid next link: %w", err)
	}
	base, _ := url.Parse(c.baseURL)
	if base == nil || !strings.EqualFold(target.Host, base.Host) || target.Scheme != base.Scheme {
		return nil, fmt.Errorf("next link %q does not belong to %v", link, c.baseURL)
	}
	return c.send(ctx, http.MethodGet, target, nil)
}

func (c *Client) do(ctx context.Context, method, path string, opts *RequestOptions) (*Response, error) {
	target, err := joinURL(c.baseURL, path)
	if err != nil {
		return nil, err
	}
	if opts != nil && len(opts.Query) > 0 {
		target.RawQuery = encodeQuery(opts.Query)
	}
	return c.send(ctx, method, target, opts)
}

func (c *Client) send(ctx context.Context, method string, target *url.URL, opts *RequestOptions) (*Response, error) {
	req, err := runtime.NewRequest(ctx, method, target.String())
	if err != nil {
		return nil, err
	}
	req.Raw().Header.Set("Accept", "application/json")
	if opts != nil {
		for k, values := range opts.Header {
			for _, v := range values {
				req.Raw().Header.Add(k, v)
			}
		}
		if opts.Body != nil {
			if err := runtime.MarshalAsJSON(req, opts.Body); err != nil {
				return nil, err
			}
		}
	}
	started := time.Now()
	resp, err := c.pipeline.Do(req)
	if err != nil {
		c.logger.Debug("graph request failed", zap.String("method", method), zap.String("path", target.Path), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("graph request",
		zap.String("method", method),
		zap.String("path", target.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))
	return handleResponse(resp)
}

// handleResponse turns non-2xx responses into *azcore.ResponseError and returns
// successful payloads unmodified.
func handleResponse(resp *http.Response) (*Response, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, runtime.NewResponseError(resp)
	}
	payload, err := runtime.Payload(resp)
	if err != nil {
		return nil, err
	}
	out := &Response{StatusCode: resp.StatusCode, ContentType: resp.Header.Get("Content-Type")}
	if len(payload) == 0 {
		return out, nil
	}
	if isJSONContent(out.ContentType) && json.Valid(payload) {
		out.Body = json.RawMessage(append([]byte(nil), payload...))
		out.NextLink, out.DeltaLink = pagingLinks(payload)
		return out, nil
	}
	out.Text = string(payload)
	return out, nil
}

func isJSONContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return media == "application/json" || strings.HasSuffix(media, "+json")
}

func pagingLinks(payload []byte) (next, delta string) {
	if len(payload) == 0 || payload[0] != '{' {
		return "", ""
	}
	var links struct {
		Next  string `json:"@odata.nextLink"`
		Delta string `json:"@odata.deltaLink"`
	}
	if err := json.Unmarshal(payload, &links); err != nil {
		return "", ""
	}
	return links.Next, links.Delta
}
