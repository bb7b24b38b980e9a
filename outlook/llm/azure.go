package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"go.uber.org/zap"
)

const (
	// DefaultAPIVersion is the Azure OpenAI data-plane API version.
	DefaultAPIVersion = "2024-10-21"
	// CognitiveServicesScope authorizes Entra ID tokens for Azure OpenAI.
	CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"
	apiKeyHeader           = "api-key"
	moduleName             = "outlook-toolbox/llm"
	moduleVersion          = "0.1.0"
)

// AzureOptions configures an Azure OpenAI chat deployment.
type AzureOptions struct {
	// Endpoint is the resource URL, e.g. https://myres.openai.azure.com.
	Endpoint   string `json:"endpoint" yaml:"endpoint"`
	Deployment string `json:"deployment" yaml:"deployment"`
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	// APIKey authenticates with a resource key; Credential is used when empty.
	APIKey     string                 `json:"-" yaml:"apiKey,omitempty"`
	Credential azcore.TokenCredential `json:"-" yaml:"-"`
	Transport  policy.Transporter     `json:"-" yaml:"-"`
	// InsecureAllowCredentialWithHTTP permits keys/tokens over plain http (tests).
	InsecureAllowCredentialWithHTTP bool        `json:"-" yaml:"-"`
	Logger                          *zap.Logger `json:"-" yaml:"-"`
}

// Azure calls Azure OpenAI chat completions through an azcore pipeline.
type Azure struct {
	endpoint   string
	deployment string
	apiVersion string
	pipeline   runtime.Pipeline
	logger     *zap.Logger
}

// NewAzure creates an Azure OpenAI provider.
func NewAzure(opts *AzureOptions) (*Azure, error) {
	if opts == nil {
		return nil, errors.New("azure openai options were nil")
	}
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("azure openai endpoint was empty")
	}
	if strings.TrimSpace(opts.Deployment) == "" {
		return nil, errors.New("azure openai deployment was empty")
	}
	var authPolicy policy.Policy
	switch {
	case opts.APIKey != "":
		authPolicy = runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(opts.APIKey), apiKeyHeader, &runtime.KeyCredentialPolicyOptions{
			InsecureAllowCredentialWithHTTP: opts.InsecureAllowCredentialWithHTTP,
		})
	case opts.Credential != nil:
		authPolicy = runtime.NewBearerTokenPolicy(opts.Credential, []string{CognitiveServicesScope}, &policy.BearerTokenOptions{
			InsecureAllowCredentialWithHTTP: opts.InsecureAllowCredentialWithHTTP,
		})
	default:
		return nil, errors.New("azure openai requires an api key or a token credential")
	}
	apiVersion := opts.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clientOpts := &policy.ClientOptions{
		Transport:                       opts.Transport,
		InsecureAllowCredentialWithHTTP: opts.InsecureAllowCredentialWithHTTP,
	}
	return &Azure{
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		deployment: opts.Deployment,
		apiVersion: apiVersion,
		pipeline:   runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{PerRetry: []policy.Policy{authPolicy}}, clientOpts),
		logger:     logger,
	}, nil
}

func (a *Azure) Name() string { return "azure-openai" }

type chatRequest struct {
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage TokenUsage `json:"usage"`
}

// Complete sends a chat completion and returns the first choice.
func (a *Azure) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("completion request has no messages")
	}
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions", a.endpoint, url.PathEscape(a.deployment))
	httpReq, err := runtime.NewRequest(ctx, http.MethodPost, endpoint)
	if err != nil {
		return nil, err
	}
	query := httpReq.Raw().URL.Query()
	query.Set("api-version", a.apiVersion)
	httpReq.Raw().URL.RawQuery = query.Encode()
	httpReq.Raw().Header.Set("Accept", "application/json")
	body := chatRequest{Messages: req.Messages, Temperature: req.Temperature, MaxTokens: req.MaxTokens, Stop: req.Stop}
	if err := runtime.MarshalAsJSON(httpReq, body); err != nil {
		return nil, err
	}
	resp, err := a.pipeline.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}
	var out chatResponse
	if err := runtime.UnmarshalAsJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}
	a.logger.Debug("chat completion",
		zap.String("deployment", a.deployment),
		zap.String("finish", out.Choices[0].FinishReason),
		zap.Int("tokens", out.Usage.TotalTokens))
	return &CompletionResponse{
		Content:      out.Choices[0].Message.Content,
		FinishReason: out.Choices[0].FinishReason,
		Model:        out.Model,
		RequestID:    out.ID,
		Usage:        out.Usage,
	}, nil
}
