package openai

import (
	"net/http"
	"os"
	"time"

	"github.com/genflow-ai/genflow/internal/utils"
)

const (
	// defaultBaseURL is the canonical base URL for the OpenAI API.
	defaultBaseURL = "https://api.openai.com/v1"

	// chatCompletionsEndpoint serves the legacy choice-shaped SSE stream.
	chatCompletionsEndpoint = "/chat/completions"

	// responsesEndpoint serves the newer typed-event SSE stream.
	responsesEndpoint = "/responses"
)

// OpenAIProvider streams generations from OpenAI-compatible APIs. It supports
// both SSE event shapes the vendor exposes: the choice-shaped
// /chat/completions stream ([OpenAIProvider.StreamChatCompletions]) and the
// typed-event /responses stream ([OpenAIProvider.StreamResponses]). Both fold
// into the same normalized chunk sequence.
type OpenAIProvider struct {
	apiKey         string
	baseURL        string
	client         *http.Client
	connectTimeout time.Duration
	maxAttempts    int
	headerHook     func(http.Header)
}

// New creates a new OpenAI provider, reading OPENAI_API_KEY and
// OPENAI_API_BASE_URL from the environment. Defaults: one attempt, no
// connect deadline.
func New() *OpenAIProvider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProvider{
		apiKey:      os.Getenv("OPENAI_API_KEY"),
		baseURL:     baseURL,
		client:      &http.Client{},
		maxAttempts: 1,
	}
}

// WithAPIKey sets the API key used for authenticating requests.
func (provider *OpenAIProvider) WithAPIKey(apiKey string) *OpenAIProvider {
	provider.apiKey = apiKey
	return provider
}

// WithBaseURL overrides the default base URL for API requests.
func (provider *OpenAIProvider) WithBaseURL(baseURL string) *OpenAIProvider {
	provider.baseURL = baseURL
	return provider
}

// WithHttpClient sets the HTTP client used for outbound requests.
func (provider *OpenAIProvider) WithHttpClient(httpClient *http.Client) *OpenAIProvider {
	provider.client = httpClient
	return provider
}

// WithConnectTimeout bounds the time until response headers arrive. The
// deadline does not cover the open stream; see [utils.StreamConfig].
func (provider *OpenAIProvider) WithConnectTimeout(timeout time.Duration) *OpenAIProvider {
	provider.connectTimeout = timeout
	return provider
}

// WithMaxAttempts sets the total number of times a streaming request is
// issued before the last attempt's error is surfaced.
func (provider *OpenAIProvider) WithMaxAttempts(attempts int) *OpenAIProvider {
	provider.maxAttempts = attempts
	return provider
}

// WithHeaderHook installs a per-request header mutation hook, invoked after
// default and static headers have been applied.
func (provider *OpenAIProvider) WithHeaderHook(hook func(http.Header)) *OpenAIProvider {
	provider.headerHook = hook
	return provider
}

// streamConfig assembles the transport knobs for one streaming call.
func (provider *OpenAIProvider) streamConfig() utils.StreamConfig {
	return utils.StreamConfig{
		MaxAttempts:    provider.maxAttempts,
		ConnectTimeout: provider.connectTimeout,
		HeaderHook:     provider.headerHook,
	}
}
