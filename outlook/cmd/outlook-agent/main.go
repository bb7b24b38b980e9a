package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	flags "github.com/jessevdk/go-flags"
	"github.com/viant/afs"
	"github.com/viant/outlook-toolbox/outlook/agent"
	"github.com/viant/outlook-toolbox/outlook/graph"
	"github.com/viant/outlook-toolbox/outlook/llm"
	"github.com/viant/outlook-toolbox/outlook/logging"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Options defines CLI flags for the scenario runner.
type Options struct {
	Scenarios       string `short:"s" long:"scenarios" required:"true" description:"scenario YAML URL or folder URL (afs)"`
	Account         string `long:"account" description:"account alias used when a scenario names none" default:"default"`
	ClientID        string `long:"client-id" env:"OUTLOOK_CLIENT_ID" description:"Azure AD application (client) ID"`
	TenantID        string `long:"tenant-id" env:"OUTLOOK_TENANT_ID" default:"organizations" description:"Tenant ID or 'organizations'"`
	SecretsBase     string `long:"secretsBase" default:"mem://localhost/mcp-outlook" description:"AFS base URL for persisting auth records"`
	GraphBaseURL    string `long:"graph-base-url" description:"Microsoft Graph service root override"`
	AzureEndpoint   string `long:"openai-endpoint" env:"AZURE_OPENAI_ENDPOINT" required:"true" description:"Azure OpenAI resource URL"`
	AzureDeployment string `long:"openai-deployment" env:"AZURE_OPENAI_DEPLOYMENT" required:"true" description:"Azure OpenAI chat deployment"`
	AzureAPIKey     string `long:"openai-key" env:"AZURE_OPENAI_API_KEY" description:"Azure OpenAI key; Entra ID is used when empty"`
	AzureAPIVersion string `long:"openai-api-version" description:"Azure OpenAI API version"`
	MaxResultBytes  int    `long:"max-result-bytes" default:"8192" description:"cap on each tool result passed back to the model"`
	ReportURL       string `short:"r" long:"report" description:"afs URL to write the YAML report to (stdout when empty)"`
	Debug           bool   `short:"d" long:"debug" description:"Enable debug logging (also OUTLOOK_MCP_DEBUG)"`
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	passed, err := run(ctx, &opts, logger)
	if err != nil {
		logger.Error("scenario run failed", zap.Error(err))
		os.Exit(1)
	}
	if !passed {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *Options, logger *zap.Logger) (bool, error) {
	fs := afs.New()
	scenarios, err := agent.LoadScenarios(ctx, fs, opts.Scenarios)
	if err != nil {
		return false, err
	}
	if len(scenarios) == 0 {
		return false, fmt.Errorf("no scenarios found at %v", opts.Scenarios)
	}
	provider, err := newProvider(opts, logger)
	if err != nil {
		return false, err
	}
	if opts.ClientID == "" {
		return false, fmt.Errorf("missing --client-id/OUTLOOK_CLIENT_ID")
	}
	managerOptions := []graph.Option{graph.WithLogger(logger)}
	if opts.GraphBaseURL != "" {
		managerOptions = append(managerOptions, graph.WithBaseURL(opts.GraphBaseURL))
	}
	manager := graph.NewManager(opts.ClientID, opts.SecretsBase, managerOptions...)
	prompt := func(msg string) { _, _ = fmt.Fprintln(os.Stderr, msg) }

	var reports []*agent.Report
	passed := true
	for _, scenario := range scenarios {
		alias := scenario.Account
		if alias == "" {
			alias = opts.Account
		}
		app, err := manager.App(ctx, alias, opts.TenantID, graph.DefaultScopes(), prompt)
		if err != nil {
			return false, fmt.Errorf("scenario %v: %w", scenario.Name, err)
		}
		appAgent := agent.NewAppAgent(app, provider,
			agent.WithLogger(logger.With(zap.String("scenario", scenario.Name))),
			agent.WithSegments(scenario.Segments...),
			agent.WithMaxResultBytes(opts.MaxResultBytes))
		report, err := appAgent.Validate(ctx, scenario)
		if err != nil {
			return false, fmt.Errorf("scenario %v: %w", scenario.Name, err)
		}
		reports = append(reports, report)
		passed = passed && report.Passed()
		logger.Info("scenario done", zap.String("scenario", scenario.Name), zap.Bool("passed", report.Passed()))
	}
	return passed, writeReports(ctx, fs, opts.ReportURL, reports)
}

func newProvider(opts *Options, logger *zap.Logger) (llm.Provider, error) {
	azureOptions := &llm.AzureOptions{
		Endpoint:   opts.AzureEndpoint,
		Deployment: opts.AzureDeployment,
		APIVersion: opts.AzureAPIVersion,
		APIKey:     opts.AzureAPIKey,
		Logger:     logger,
	}
	if azureOptions.APIKey == "" {
		credential, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("azure openai credential: %w", err)
		}
		azureOptions.Credential = credential
	}
	return llm.NewAzure(azureOptions)
}

func writeReports(ctx context.Context, fs afs.Service, URL string, reports []*agent.Report) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return err
	}
	if URL == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return fs.Upload(ctx, URL, 0o644, bytes.NewReader(data))
}
