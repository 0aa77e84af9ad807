package anthropic

import (
	"net/http"
	"os"
	"time"

	"github.com/genflow-ai/genflow/internal/utils"
)

const (
	// defaultBaseURL is the canonical base URL for Anthropic's Messages API.
	defaultBaseURL = "https://api.anthropic.com/v1"

	// messagesEndpoint is the path for the Messages API endpoint.
	messagesEndpoint = "/messages"

	// anthropicVersion is the required anthropic-version header value.
	// Anthropic uses this to version-lock response formats independently of the URL.
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider streams generations from Anthropic's Messages API and
// folds its block-scoped SSE events into the shared chunk model.
type AnthropicProvider struct {
	apiKey         string
	baseURL        string
	client         *http.Client
	connectTimeout time.Duration
	maxAttempts    int
	headerHook     func(http.Header)
}

// New creates a new Anthropic provider, reading ANTHROPIC_API_KEY and
// ANTHROPIC_API_BASE_URL from the environment. Defaults: one attempt, no
// connect deadline.
func New() *AnthropicProvider {
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &AnthropicProvider{
		apiKey:      os.Getenv("ANTHROPIC_API_KEY"),
		baseURL:     baseURL,
		client:      &http.Client{},
		maxAttempts: 1,
	}
}

// WithAPIKey sets the API key used for authenticating requests.
func (provider *AnthropicProvider) WithAPIKey(apiKey string) *AnthropicProvider {
	provider.apiKey = apiKey
	return provider
}

// WithBaseURL overrides the default base URL for API requests.
func (provider *AnthropicProvider) WithBaseURL(baseURL string) *AnthropicProvider {
	provider.baseURL = baseURL
	return provider
}

// WithHttpClient sets the HTTP client used for outbound requests.
func (provider *AnthropicProvider) WithHttpClient(httpClient *http.Client) *AnthropicProvider {
	provider.client = httpClient
	return provider
}

// WithConnectTimeout bounds the time until response headers arrive.
func (provider *AnthropicProvider) WithConnectTimeout(timeout time.Duration) *AnthropicProvider {
	provider.connectTimeout = timeout
	return provider
}

// WithMaxAttempts sets the total number of times a streaming request is
// issued before the last attempt's error is surfaced.
func (provider *AnthropicProvider) WithMaxAttempts(attempts int) *AnthropicProvider {
	provider.maxAttempts = attempts
	return provider
}

// WithHeaderHook installs a per-request header mutation hook.
func (provider *AnthropicProvider) WithHeaderHook(hook func(http.Header)) *AnthropicProvider {
	provider.headerHook = hook
	return provider
}

// streamConfig assembles the transport knobs for one streaming call.
// x-api-key carries the credential (Anthropic does not use Bearer tokens);
// anthropic-version pins the wire format.
func (provider *AnthropicProvider) streamConfig() utils.StreamConfig {
	return utils.StreamConfig{
		MaxAttempts:    provider.maxAttempts,
		ConnectTimeout: provider.connectTimeout,
		Headers: []utils.HeaderOption{
			{Key: "x-api-key", Value: provider.apiKey},
			{Key: "anthropic-version", Value: anthropicVersion},
		},
		HeaderHook: provider.headerHook,
	}
}
