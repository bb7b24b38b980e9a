package mcp

import (
	"context"
	"fmt"
	"io"

	"github.com/viant/afs"
	"github.com/viant/scy"
	"gopkg.in/yaml.v3"
)

// Config controls Outlook MCP server behaviour and authentication.
type Config struct {
	// Azure AD application (client) ID for Microsoft Graph.
	ClientID string `json:"clientID" yaml:"clientID"`
	// Tenant ID or "organizations"/"common".
	TenantID string `json:"tenantID" yaml:"tenantID"`

	// SecretsBase is an afs URL where auth records are persisted per namespace and alias,
	// e.g. file://$HOME/.secret/mcp-outlook or mem://localhost/mcp-outlook.
	SecretsBase string `json:"secretsBase,omitempty" yaml:"secretsBase,omitempty"`

	// GraphBaseURL overrides the Graph service root (national clouds, test servers).
	GraphBaseURL string `json:"graphBaseURL,omitempty" yaml:"graphBaseURL,omitempty"`

	// CallbackBaseURL is used to generate absolute URLs for OOB flows.
	// Example: http://localhost:7788
	CallbackBaseURL string `json:"callbackBaseURL,omitempty" yaml:"callbackBaseURL,omitempty"`

	// If true, return tool results in the `data` field instead of `text`.
	UseData bool `json:"useData,omitempty" yaml:"useData,omitempty"`

	// Segments limits registered endpoint tools to the named segments (mail, calendar, groups, places).
	Segments []string `json:"segments,omitempty" yaml:"segments,omitempty"`

	// AzureRef optionally points to an Azure OAuth2 client config stored as a scy resource.
	// It uses EncodedResource syntax: "<URL>|<kmsKey>", where the key part is optional.
	// Examples:
	//  - file-based:    "~/.secret/azure.yaml|blowfish://default"
	//  - GCP secret:    "gcp://secretmanager/projects/myproj/secrets/azure-cred|blowfish://default"
	//  - AWS secret:    "aws://secretmanager/us-west-2/secret/prod/azure-cred|blowfish://default"
	// The referenced content should unmarshal into github.com/viant/scy/cred.Azure.
	AzureRef scy.EncodedResource `json:"azureRef,omitempty" yaml:"azureRef,omitempty"`
}

// LoadConfig reads a YAML config from an afs URL.
func LoadConfig(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	reader, err := fs.OpenURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("open config %v: %w", URL, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read config %v: %w", URL, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config %v: %w", URL, err)
	}
	return cfg, nil
}

// segmentEnabled reports whether endpoint tools of segment should be registered.
func (c *Config) segmentEnabled(segment string) bool {
	if len(c.Segments) == 0 {
		return true
	}
	for _, s := range c.Segments {
		if s == segment {
			return true
		}
	}
	return false
}
