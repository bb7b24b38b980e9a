package main

import (
	"context"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/viant/afs"
	"github.com/viant/mcp-protocol/authorization"
	oauthmeta "github.com/viant/mcp-protocol/oauth2/meta"
	"github.com/viant/mcp-protocol/schema"
	mcpsrv "github.com/viant/mcp/server"
	serverauth "github.com/viant/mcp/server/auth"
	"github.com/viant/outlook-toolbox/outlook/logging"
	"github.com/viant/outlook-toolbox/outlook/mcp"
	"github.com/viant/scy"
	"github.com/viant/scy/auth/flow"
	"github.com/viant/scy/cred"
	_ "github.com/viant/scy/kms/blowfish"
	"go.uber.org/zap"
)

// Options defines CLI flags for the Outlook MCP server.
type Options struct {
	HTTPAddr     string   `short:"a" long:"addr" description:"HTTP listen address (empty disables HTTP)"`
	ConfigURL    string   `short:"c" long:"config" description:"YAML config URL (afs), flags override its values"`
	ClientID     string   `long:"client-id" description:"Azure AD application (client) ID"`
	TenantID     string   `long:"tenant-id" description:"Tenant ID or 'organizations'"`
	SecretsBase  string   `long:"secretsBase" description:"AFS/scy base URL for persisting auth records (e.g., mem://localhost/mcp-outlook)"`
	GraphBaseURL string   `long:"graph-base-url" description:"Microsoft Graph service root override (e.g., https://graph.microsoft.us/v1.0)"`
	Segments     []string `long:"segment" description:"limit endpoint tools to a segment (mail, calendar, groups, places); repeatable"`
	AzureRef     string   `long:"azure-ref" description:"scy EncodedResource for Azure cred (e.g., gcp://...|blowfish://default)"`
	Oauth2Config string   `short:"o" long:"oauth2config" description:"Path to JSON OAuth2 configuration file (scy EncodedResource)"`
	UseIdToken   bool     `short:"i" long:"use-id-token" description:"Use ID token (instead of access token) for identity scoping"`
	UseData      bool     `long:"use-data" description:"Return tool results as structured content instead of text"`
	Debug        bool     `short:"d" long:"debug" description:"Enable debug logging (also OUTLOOK_MCP_DEBUG)"`
}

func main() {
	var opts Options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		os.Exit(2)
	}
	logger, err := logging.New(opts.Debug || logging.Debug())
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logging.BridgeAzure(logger)

	ctx := context.Background()
	cfg := &mcp.Config{}
	if opts.ConfigURL != "" {
		if cfg, err = mcp.LoadConfig(ctx, afs.New(), opts.ConfigURL); err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
	}
	applyOptions(cfg, &opts)
	if cfg.ClientID == "" && cfg.AzureRef == "" {
		logger.Fatal("missing --client-id/OUTLOOK_CLIENT_ID (or provide --azure-ref / OUTLOOK_AZURE_REF)")
	}
	if cfg.CallbackBaseURL == "" {
		cfg.CallbackBaseURL = callbackBaseURL(opts.HTTPAddr)
	}

	svc := mcp.NewService(cfg, mcp.WithLogger(logger))
	logger.Info("outlook mcp configured",
		zap.String("clientID", svc.ClientID()),
		zap.String("tenantID", svc.TenantID()),
		zap.String("secretsBase", cfg.SecretsBase),
		zap.Strings("segments", cfg.Segments))

	options := []mcpsrv.Option{
		mcpsrv.WithImplementation(schema.Implementation{Name: "mcp-outlook", Version: "0.1.0"}),
		mcpsrv.WithNewHandler(mcp.NewHandler(svc)),
		mcpsrv.WithEndpointAddress(opts.HTTPAddr),
		mcpsrv.WithRootRedirect(true),
		mcpsrv.WithStreamableURI("/mcp"),
		mcpsrv.WithCustomHTTPHandler("/outlook/auth/start", svc.DeviceStartHandler()),
		mcpsrv.WithCustomHTTPHandler("/outlook/auth/device/", svc.DeviceHandler()),
		mcpsrv.WithCustomHTTPHandler("/outlook/auth/pending", svc.PendingListHandler()),
		mcpsrv.WithCustomHTTPHandler("/outlook/auth/pending/clear", svc.PendingClearHandler()),
	}

	// Optional server-level OAuth2
	if v := strings.TrimSpace(opts.Oauth2Config); v != "" {
		res := scy.EncodedResource(v).Decode(ctx, cred.Oauth2Config{})
		sec, err := scy.New().Load(ctx, res)
		if err != nil {
			logger.Fatal("failed to load oauth2config", zap.Error(err))
		}
		oc, ok := sec.Target.(*cred.Oauth2Config)
		if !ok {
			logger.Fatal("invalid oauth2config secret type")
		}
		authPolicy := &authorization.Policy{
			Global: &authorization.Authorization{
				UseIdToken: opts.UseIdToken,
				ProtectedResourceMetadata: &oauthmeta.ProtectedResourceMetadata{
					AuthorizationServers: []string{oc.Config.Endpoint.AuthURL},
				}},
			// Device pages stay reachable from the browser without a bearer token.
			ExcludeURI: "/sse,/outlook/auth/device/",
		}
		bff := &serverauth.BackendForFrontend{Client: &oc.Config, AuthorizationExchangeHeader: flow.AuthorizationExchangeHeader}
		authSvc, err := serverauth.New(&serverauth.Config{Policy: authPolicy, BackendForFrontend: bff})
		if err != nil {
			logger.Fatal("failed to init auth service", zap.Error(err))
		}
		options = append(options,
			mcpsrv.WithAuthorizer(authSvc.Middleware),
			mcpsrv.WithProtectedResourcesHandler(authSvc.ProtectedResourcesHandler),
		)
	}

	server, err := mcpsrv.New(options...)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}
	if opts.HTTPAddr != "" {
		// Enable streamable HTTP so /mcp endpoint is active
		server.UseStreamableHTTP(true)
		logger.Info("listening", zap.String("addr", opts.HTTPAddr))
		if err := server.HTTP(ctx, opts.HTTPAddr).ListenAndServe(); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}
}

// applyOptions layers flags and environment over the file config.
func applyOptions(cfg *mcp.Config, opts *Options) {
	if opts.ClientID != "" {
		cfg.ClientID = opts.ClientID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = envOr("OUTLOOK_CLIENT_ID", "")
	}
	if opts.TenantID != "" {
		cfg.TenantID = opts.TenantID
	}
	if cfg.TenantID == "" {
		cfg.TenantID = envOr("OUTLOOK_TENANT_ID", "organizations")
	}
	if opts.SecretsBase != "" {
		cfg.SecretsBase = opts.SecretsBase
	}
	if cfg.SecretsBase == "" {
		cfg.SecretsBase = "mem://localhost/mcp-outlook"
	}
	cfg.SecretsBase = strings.Replace(cfg.SecretsBase, "$HOME", os.Getenv("HOME"), 1)
	if opts.GraphBaseURL != "" {
		cfg.GraphBaseURL = opts.GraphBaseURL
	}
	if len(opts.Segments) > 0 {
		cfg.Segments = opts.Segments
	}
	if opts.AzureRef != "" {
		cfg.AzureRef = scy.EncodedResource(opts.AzureRef)
	}
	if cfg.AzureRef == "" {
		cfg.AzureRef = scy.EncodedResource(envOr("OUTLOOK_AZURE_REF", ""))
	}
	if opts.UseData {
		cfg.UseData = true
	}
}

// callbackBaseURL derives the device page base URL from the listen address.
func callbackBaseURL(addr string) string {
	if addr == "" {
		return "http://localhost"
	}
	if addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
