package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity/cache"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/viant/afs"
	oaauth "github.com/viant/outlook-toolbox/auth"
	"go.uber.org/zap"
)

// Manager provides Graph applications per account alias.
type Manager struct {
	clientID    string
	secretsBase string
	baseURL     string
	transport   policy.Transporter
	logger      *zap.Logger
	fs          afs.Service
	auth        *oaauth.Service

	// pending holds running device logins keyed by namespace+alias.
	pendingMu sync.Mutex
	pending   map[string]*pendingAuth
	// deviceFlow runs one device-code login and reports its prompt.
	deviceFlow func(ctx context.Context, alias, tenantID string, scopes []string, prompt func(string)) error
	// apps caches App instances per namespace+alias+tenant+scopes.
	mu   sync.RWMutex
	apps map[string]*App
	// creds caches device code credentials per namespace+alias, kept in memory until process restarts.
	creds map[string]*azidentity.DeviceCodeCredential
}

type pendingAuth struct {
	mu      sync.Mutex
	message string
	// waiters are guarded by Manager.pendingMu.
	waiters []func(error)
}

func (p *pendingAuth) set(msg string) {
	p.mu.Lock()
	p.message = msg
	p.mu.Unlock()
}

func (p *pendingAuth) get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.message
}

// Option customizes a Manager.
type Option func(m *Manager)

// WithBaseURL points created clients at another Graph service root.
func WithBaseURL(baseURL string) Option {
	return func(m *Manager) { m.baseURL = baseURL }
}

// WithTransport replaces the HTTP transport of created clients.
func WithTransport(transport policy.Transporter) Option {
	return func(m *Manager) { m.transport = transport }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager. secretsBase is an afs URL (file path,
// mem://, gs:// ...) where authentication records are persisted.
func NewManager(clientID, secretsBase string, options ...Option) *Manager {
	m := &Manager{
		clientID:    clientID,
		secretsBase: expandHome(secretsBase),
		logger:      zap.NewNop(),
		fs:          afs.New(),
		auth:        oaauth.New(),
		pending:     map[string]*pendingAuth{},
		apps:        map[string]*App{},
		creds:       map[string]*azidentity.DeviceCodeCredential{},
	}
	m.deviceFlow = func(ctx context.Context, alias, tenantID string, scopes []string, prompt func(string)) error {
		_, _, err := m.acquireCredential(ctx, alias, tenantID, scopes, prompt)
		return err
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *Manager) authRecordURL(ns, alias string) string {
	return strings.TrimRight(m.secretsBase, "/") + "/" + fmt.Sprintf("%s_%s_auth_record.json", safePart(ns), safePart(alias))
}

func safePart(s string) string {
	s = strings.TrimSpace(os.ExpandEnv(s))
	repl := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "|", "_", " ", "_", "@", "_")
	return repl.Replace(s)
}

func expandHome(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}

func (m *Manager) namespace(ctx context.Context) string {
	ns, _ := m.auth.Namespace(ctx)
	if ns == "" {
		ns = "default"
	}
	return ns
}

func (m *Manager) loadAuthRecord(ctx context.Context, ns, alias string) (azidentity.AuthenticationRecord, bool) {
	var rec azidentity.AuthenticationRecord
	if m.secretsBase == "" {
		return rec, false
	}
	URL := m.authRecordURL(ns, alias)
	if ok, _ := m.fs.Exists(ctx, URL); !ok {
		return rec, false
	}
	rc, err := m.fs.OpenURL(ctx, URL)
	if err != nil {
		m.logger.Warn("failed to open auth record", zap.String("url", URL), zap.Error(err))
		return rec, false
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		m.logger.Warn("failed to read auth record", zap.String("url", URL), zap.Error(err))
		return rec, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		m.logger.Warn("invalid auth record", zap.String("url", URL), zap.Error(err))
		return rec, false
	}
	return rec, true
}

func (m *Manager) saveAuthRecord(ctx context.Context, ns, alias string, rec azidentity.AuthenticationRecord) {
	if m.secretsBase == "" {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	URL := m.authRecordURL(ns, alias)
	if err := m.fs.Upload(ctx, URL, 0o600, bytes.NewReader(data)); err != nil {
		m.logger.Warn("failed to save auth record", zap.String("url", URL), zap.Error(err))
		return
	}
	m.logger.Debug("saved auth record", zap.String("namespace", ns), zap.String("alias", alias), zap.String("url", URL))
}

func (m *Manager) newCredential(ns, alias, tenantID string, rec *azidentity.AuthenticationRecord, prompt func(string)) (*azidentity.DeviceCodeCredential, error) {
	// Persist tokens via azidentity/cache (Keychain on macOS).
	aCache, err := cache.New(&cache.Options{Name: "mcp-outlook-" + safePart(ns) + "-" + safePart(alias)})
	if err != nil {
		return nil, err
	}
	// Always provide a prompt callback so the SDK never prints to stdout.
	opts := &azidentity.DeviceCodeCredentialOptions{
		TenantID: tenantID,
		ClientID: m.clientID,
		Cache:    aCache,
		UserPrompt: func(_ context.Context, msg azidentity.DeviceCodeMessage) error {
			if prompt != nil {
				prompt(msg.Message)
			}
			return nil
		},
	}
	if rec != nil {
		opts.AuthenticationRecord = *rec
	}
	return azidentity.NewDeviceCodeCredential(opts)
}

// NeedsInteractive checks quickly (non-interactive) whether a device flow is required.
func (m *Manager) NeedsInteractive(ctx context.Context, alias, tenantID string, scopes []string) bool {
	ns := m.namespace(ctx)
	var recPtr *azidentity.AuthenticationRecord
	if rec, ok := m.loadAuthRecord(ctx, ns, alias); ok {
		recPtr = &rec
	}
	cred, err := m.newCredential(ns, alias, tenantID, recPtr, nil)
	if err != nil {
		return true
	}
	ctx2, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	_, err = cred.GetToken(ctx2, policy.TokenRequestOptions{Scopes: scopes})
	return err != nil
}

// App returns a ready-to-use App for the account, authorized with scopes.
func (m *Manager) App(ctx context.Context, alias, tenantID string, scopes []string, prompt func(string)) (*App, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes()
	}
	ns := m.namespace(ctx)
	key := m.clientKey(ns, alias, tenantID, scopes)
	m.mu.RLock()
	if app, ok := m.apps[key]; ok {
		m.mu.RUnlock()
		return app, nil
	}
	m.mu.RUnlock()

	cred, err := m.Credential(ctx, alias, tenantID, scopes, prompt)
	if err != nil {
		return nil, err
	}
	// The SDK client only talks to the public service root; custom roots use REST.
	var sdk *msgraphsdk.GraphServiceClient
	if m.baseURL == "" || m.baseURL == DefaultBaseURL {
		if sdk, err = msgraphsdk.NewGraphServiceClientWithCredentials(cred, scopes); err != nil {
			return nil, err
		}
	}
	client := NewClient(&ClientOptions{
		BaseURL:    m.baseURL,
		Credential: cred,
		Scopes:     scopes,
		Transport:  m.transport,
		Logger:     m.logger.With(zap.String("alias", alias)),
	})
	app, err := NewApp(client, sdk)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	// Double-check in case another goroutine created it meanwhile.
	if existing, ok := m.apps[key]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.apps[key] = app
	m.mu.Unlock()
	return app, nil
}

// HasAuthRecord reports whether an auth record exists for alias.
func (m *Manager) HasAuthRecord(ctx context.Context, alias string) bool {
	if m.secretsBase == "" {
		return false
	}
	ok, _ := m.fs.Exists(ctx, m.authRecordURL(m.namespace(ctx), alias))
	return ok
}

// StartDeviceLogin launches the device code authentication in background for
// the caller's namespace. The prompt message is retrievable via DevicePrompt.
// It returns false when a login for the same namespace and alias is already
// running; onComplete then joins that login and receives its outcome.
func (m *Manager) StartDeviceLogin(ctx context.Context, alias, tenantID string, scopes []string, onComplete func(error)) bool {
	ns := m.namespace(ctx)
	key := loginKey(ns, alias)
	m.pendingMu.Lock()
	if holder, ok := m.pending[key]; ok {
		if onComplete != nil {
			holder.waiters = append(holder.waiters, onComplete)
		}
		m.pendingMu.Unlock()
		return false
	}
	holder := &pendingAuth{}
	if onComplete != nil {
		holder.waiters = append(holder.waiters, onComplete)
	}
	m.pending[key] = holder
	m.pendingMu.Unlock()
	go func() {
		err := m.deviceFlow(ctx, alias, tenantID, scopes, holder.set)
		if err != nil {
			m.logger.Warn("device login failed", zap.String("namespace", ns), zap.String("alias", alias), zap.Error(err))
		}
		m.pendingMu.Lock()
		delete(m.pending, key)
		waiters := holder.waiters
		holder.waiters = nil
		m.pendingMu.Unlock()
		for _, done := range waiters {
			done(err)
		}
	}()
	return true
}

func loginKey(ns, alias string) string {
	if ns == "" {
		ns = "default"
	}
	return ns + "|" + alias
}

// acquireCredential performs Device Code flow. If an auth record exists, use it for silent login.
func (m *Manager) acquireCredential(ctx context.Context, alias, tenantID string, scopes []string, prompt func(string)) (*azidentity.DeviceCodeCredential, azidentity.AuthenticationRecord, error) {
	ns := m.namespace(ctx)
	rec, haveRec := m.loadAuthRecord(ctx, ns, alias)
	var recPtr *azidentity.AuthenticationRecord
	if haveRec {
		recPtr = &rec
	}
	cred, err := m.newCredential(ns, alias, tenantID, recPtr, prompt)
	if err != nil {
		return nil, azidentity.AuthenticationRecord{}, err
	}
	if haveRec {
		// Try a quick silent token preflight; fall back to the interactive flow.
		tctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		_, preErr := cred.GetToken(tctx, policy.TokenRequestOptions{Scopes: scopes})
		cancel()
		if preErr == nil {
			return cred, rec, nil
		}
	}
	rec, err = cred.Authenticate(ctx, &policy.TokenRequestOptions{Scopes: scopes})
	if err != nil {
		return nil, azidentity.AuthenticationRecord{}, err
	}
	m.saveAuthRecord(ctx, ns, alias, rec)
	return cred, rec, nil
}

// DevicePrompt returns the last device-code prompt message for the login
// running under namespace ns for alias.
func (m *Manager) DevicePrompt(ns, alias string) string {
	m.pendingMu.Lock()
	p, ok := m.pending[loginKey(ns, alias)]
	m.pendingMu.Unlock()
	if !ok {
		return ""
	}
	return p.get()
}

// DefaultScopes returns the Graph scope granting the app's configured permissions.
func DefaultScopes() []string {
	return []string{
		"https://graph.microsoft.com/.default",
	}
}

// clientKey builds a stable cache key from namespace, alias, tenantID, and normalized scopes.
func (m *Manager) clientKey(ns, alias, tenantID string, scopes []string) string {
	if len(scopes) > 0 {
		norm := make([]string, 0, len(scopes))
		for _, s := range scopes {
			if s == "" {
				continue
			}
			norm = append(norm, strings.ToLower(s))
		}
		sort.Strings(norm)
		scopes = norm
	}
	if ns == "" {
		ns = "default"
	}
	return ns + "|" + alias + "|" + tenantID + "|" + strings.Join(scopes, ",")
}

// Credential returns a cached DeviceCodeCredential for alias, acquiring and caching if needed.
func (m *Manager) Credential(ctx context.Context, alias, tenantID string, scopes []string, prompt func(string)) (*azidentity.DeviceCodeCredential, error) {
	key := loginKey(m.namespace(ctx), alias)
	m.mu.RLock()
	if c := m.creds[key]; c != nil {
		m.mu.RUnlock()
		return c, nil
	}
	m.mu.RUnlock()
	cred, _, err := m.acquireCredential(ctx, alias, tenantID, scopes, prompt)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if existing := m.creds[key]; existing != nil {
		m.mu.Unlock()
		return existing, nil
	}
	m.creds[key] = cred
	m.mu.Unlock()
	return cred, nil
}
