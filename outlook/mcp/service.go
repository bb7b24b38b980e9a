package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	oa "github.com/viant/outlook-toolbox/auth"
	"github.com/viant/outlook-toolbox/outlook/graph"
	"github.com/viant/scy"
	"github.com/viant/scy/cred"
	"go.uber.org/zap"
)

const (
	devicePath        = "/outlook/auth/device/"
	deviceLoginURL    = "https://microsoft.com/devicelogin"
	defaultPromptWait = 8 * time.Second
)

var (
	promptURL  = regexp.MustCompile(`https?://[^\s]+`)
	promptCode = regexp.MustCompile(`(?i)code\s+([A-Z0-9-]+)`)
)

// Service wires graph manager and the device-login HTTP helpers.
type Service struct {
	config     *Config
	graphMgr   *graph.Manager
	baseURL    string
	useText    bool
	pending    *PendingAuths
	auth       *oa.Service
	azure      *cred.Azure
	tenantID   string
	clientID   string
	logger     *zap.Logger
	promptWait time.Duration
}

type serviceOptions struct {
	logger *zap.Logger
	graph  []graph.Option
}

// Option customizes a Service.
type Option func(o *serviceOptions)

// WithLogger sets the service and graph manager logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithGraphOptions passes options through to the graph manager.
func WithGraphOptions(options ...graph.Option) Option {
	return func(o *serviceOptions) { o.graph = append(o.graph, options...) }
}

func NewService(cfg *Config, options ...Option) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	opts := &serviceOptions{}
	for _, opt := range options {
		opt(opts)
	}
	logger := opts.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// Optionally resolve Azure OAuth2 client from scy EncodedResource.
	var az *cred.Azure
	if cfg.AzureRef != "" {
		res := cfg.AzureRef.Decode(context.Background(), cred.Azure{})
		if sec, err := scy.New().Load(context.Background(), res); err == nil {
			if v, ok := sec.Target.(*cred.Azure); ok {
				az = v
			}
		} else {
			logger.Warn("azure ref not loaded", zap.Error(err))
		}
	}
	clientID := cfg.ClientID
	if az != nil && az.ClientID != "" {
		clientID = az.ClientID
	}
	tenantID := cfg.TenantID
	if (tenantID == "" || tenantID == "organizations") && az != nil && az.TenantID != "" {
		tenantID = az.TenantID
	}
	graphOptions := []graph.Option{graph.WithLogger(logger)}
	if cfg.GraphBaseURL != "" {
		graphOptions = append(graphOptions, graph.WithBaseURL(cfg.GraphBaseURL))
	}
	graphOptions = append(graphOptions, opts.graph...)
	return &Service{
		config:     cfg,
		graphMgr:   graph.NewManager(clientID, cfg.SecretsBase, graphOptions...),
		baseURL:    cfg.CallbackBaseURL,
		useText:    !cfg.UseData,
		pending:    NewPendingAuths(),
		auth:       oa.New(),
		azure:      az,
		tenantID:   tenantID,
		clientID:   clientID,
		logger:     logger,
		promptWait: defaultPromptWait,
	}
}

func (s *Service) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/outlook/auth/start", s.DeviceStartHandler())
	// Device code display page for a pending login.
	mux.HandleFunc(devicePath, s.DeviceHandler())
	mux.HandleFunc("/outlook/auth/pending", s.PendingListHandler())
	mux.HandleFunc("/outlook/auth/pending/clear", s.PendingClearHandler())
}

// DeviceStartHandler starts a background device-code login for ?alias=&tenant=
// and redirects to the device page that shows the code.
func (s *Service) DeviceStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		alias := strings.TrimSpace(r.URL.Query().Get("alias"))
		if alias == "" {
			http.Error(w, "alias required", http.StatusBadRequest)
			return
		}
		tenant := r.URL.Query().Get("tenant")
		if tenant == "" {
			tenant = s.tenantID
		}
		pend := s.StartLogin(r.Context(), alias, tenant)
		http.Redirect(w, r, devicePath+pend.UUID, http.StatusFound)
	}
}

// StartLogin registers a pending login and starts the device flow, or joins
// the one already running for the caller's namespace and alias.
func (s *Service) StartLogin(ctx context.Context, alias, tenant string) *PendingAuth {
	ns, _ := s.auth.Namespace(ctx)
	if ns == "" {
		ns = "default"
	}
	if pend, ok := s.pending.FindAlias(ns, alias); ok {
		return pend
	}
	pend := &PendingAuth{UUID: uuid.New().String(), Alias: alias, TenantID: tenant, Namespace: ns}
	s.pending.Put(pend)
	// The login outlives the request that started it. A joined login still
	// completes pend when it finishes.
	loginCtx := context.WithoutCancel(ctx)
	s.graphMgr.StartDeviceLogin(loginCtx, alias, tenant, graph.DefaultScopes(), func(err error) {
		s.pending.Complete(pend.UUID)
		if err == nil {
			s.logger.Info("device login completed", zap.String("alias", alias), zap.String("namespace", ns))
		}
	})
	return pend
}

// DeviceLoginURL returns the absolute URL of the device page for a pending login.
func (s *Service) DeviceLoginURL(pend *PendingAuth) string {
	return strings.TrimRight(s.baseURL, "/") + devicePath + url.PathEscape(pend.UUID)
}

// DeviceHandler serves the device login page for a pending auth UUID.
func (s *Service) DeviceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// URL: /outlook/auth/device/{uuid}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 { // outlook auth device {uuid}
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		pend, ok := s.pending.Get(parts[3])
		if !ok {
			http.Error(w, "no pending auth", http.StatusNotFound)
			return
		}
		msg := s.graphMgr.DevicePrompt(pend.Namespace, pend.Alias)
		deadline := time.Now().Add(s.promptWait)
		for msg == "" && time.Now().Before(deadline) {
			select {
			case <-r.Context().Done():
				return
			case <-pend.Done():
				deadline = time.Now()
			case <-time.After(200 * time.Millisecond):
			}
			msg = s.graphMgr.DevicePrompt(pend.Namespace, pend.Alias)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if msg == "" {
			_, _ = fmt.Fprint(w, buildWaitingForDeviceHTML())
			return
		}
		_, _ = fmt.Fprint(w, buildDeviceLoginHTML(msg))
	}
}

// buildDeviceLoginHTML converts the Azure device prompt into a clickable HTML with copyable code.
func buildDeviceLoginHTML(msg string) string {
	escURL := html.EscapeString(extractURL(msg))
	escCode := html.EscapeString(extractCode(msg))
	if escCode == "" {
		escMsg := html.EscapeString(msg)
		return fmt.Sprintf(`<html><body>
<h3>Sign in to Outlook</h3>
<p>Open <a href="%[1]s" target="_blank" rel="noopener noreferrer">%[1]s</a> and follow the instructions.</p>
<pre>%[2]s</pre>
<p>Keep this tab open; return to your assistant after completing sign-in.</p>
</body></html>`, escURL, escMsg)
	}
	return fmt.Sprintf(`<html><body style="font-family: -apple-system, Segoe UI, Roboto, sans-serif;">
<h3>Sign in to Outlook</h3>
<p>Click to open: <a href="%[1]s" target="_blank" rel="noopener noreferrer">%[1]s</a></p>
<p>Then enter this code:</p>
<p style="font-size: 1.4em; font-weight: 600;"><code>%[2]s</code> <button onclick="navigator.clipboard.writeText('%[2]s')">Copy</button></p>
<p>Keep this tab open; return to your assistant after completing sign-in.</p>
</body></html>`, escURL, escCode)
}

func buildWaitingForDeviceHTML() string {
	return fmt.Sprintf(`<!doctype html>
<html><head>
<meta http-equiv="refresh" content="2">
<meta charset="utf-8">
<title>Sign in to Outlook</title>
<style>body{font-family:-apple-system,Segoe UI,Roboto,sans-serif;margin:24px}</style>
</head><body>
<h3>Sign in to Outlook</h3>
<p>Preparing device login… this page refreshes automatically.</p>
<p>If it takes too long, you can open <a href="%[1]s" target="_blank" rel="noopener noreferrer">%[1]s</a> and follow the instructions.</p>
<p>Keep this tab open; return to your assistant after completing sign-in.</p>
</body></html>`, html.EscapeString(deviceLoginURL))
}

func extractURL(msg string) string {
	if m := promptURL.FindString(msg); m != "" {
		return m
	}
	return deviceLoginURL
}

func extractCode(msg string) string {
	if m := promptCode.FindStringSubmatch(msg); len(m) == 2 {
		return m[1]
	}
	return ""
}

func (s *Service) requestNamespace(r *http.Request) string {
	ns := r.URL.Query().Get("namespace")
	if ns == "" {
		if v, err := s.auth.Namespace(r.Context()); err == nil {
			ns = v
		}
	}
	return ns
}

// PendingListHandler returns JSON of pending auths for a namespace.
func (s *Service) PendingListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ns := s.requestNamespace(r)
		if ns == "" {
			http.Error(w, "namespace required", http.StatusBadRequest)
			return
		}
		list := s.pending.ListNamespace(ns)
		type row struct{ UUID, Alias, TenantID, Namespace string }
		out := make([]row, 0, len(list))
		for _, v := range list {
			out = append(out, row{UUID: v.UUID, Alias: v.Alias, TenantID: v.TenantID, Namespace: v.Namespace})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// PendingClearHandler clears all pending auths for a namespace.
func (s *Service) PendingClearHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ns := s.requestNamespace(r)
		if ns == "" {
			http.Error(w, "namespace required", http.StatusBadRequest)
			return
		}
		cleared := s.pending.ClearNamespace(ns)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"cleared": len(cleared), "uuids": cleared})
	}
}

func (s *Service) GraphManager() *graph.Manager { return s.graphMgr }
func (s *Service) Config() *Config              { return s.config }
func (s *Service) UseTextField() bool           { return s.useText }
func (s *Service) BaseURL() string              { return s.baseURL }
func (s *Service) Pending() *PendingAuths       { return s.pending }
func (s *Service) Auth() *oa.Service            { return s.auth }
func (s *Service) TenantID() string             { return s.tenantID }
func (s *Service) ClientID() string             { return s.clientID }
func (s *Service) Logger() *zap.Logger          { return s.logger }

// App resolves the Graph app for an account, filling in the default tenant.
func (s *Service) App(ctx context.Context, account *graph.Account) (*graph.App, error) {
	if account.TenantID == "" {
		account.TenantID = s.tenantID
	}
	return s.graphMgr.App(ctx, account.Alias, account.TenantID, graph.DefaultScopes(), nil)
}
