package gemini

import (
	"net/http"
	"os"
	"time"

	"github.com/genflow-ai/genflow/internal/utils"
)

const (
	// defaultBaseURL is the canonical base URL for the Gemini generative
	// language API.
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiProvider streams generations from Google's Gemini API and folds its
// whole-candidate SSE events into the shared chunk model.
type GeminiProvider struct {
	apiKey         string
	baseURL        string
	client         *http.Client
	connectTimeout time.Duration
	maxAttempts    int
	headerHook     func(http.Header)
}

// New creates a new Gemini provider, reading GEMINI_API_KEY and
// GEMINI_API_BASE_URL from the environment. Defaults: one attempt, no
// connect deadline.
func New() *GeminiProvider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GeminiProvider{
		apiKey:      os.Getenv("GEMINI_API_KEY"),
		baseURL:     baseURL,
		client:      &http.Client{},
		maxAttempts: 1,
	}
}

// WithAPIKey sets the API key used for authenticating requests.
func (provider *GeminiProvider) WithAPIKey(apiKey string) *GeminiProvider {
	provider.apiKey = apiKey
	return provider
}

// WithBaseURL overrides the default base URL for API requests.
func (provider *GeminiProvider) WithBaseURL(baseURL string) *GeminiProvider {
	provider.baseURL = baseURL
	return provider
}

// WithHttpClient sets the HTTP client used for outbound requests.
func (provider *GeminiProvider) WithHttpClient(httpClient *http.Client) *GeminiProvider {
	provider.client = httpClient
	return provider
}

// WithConnectTimeout bounds the time until response headers arrive.
func (provider *GeminiProvider) WithConnectTimeout(timeout time.Duration) *GeminiProvider {
	provider.connectTimeout = timeout
	return provider
}

// WithMaxAttempts sets the total number of times a streaming request is
// issued before the last attempt's error is surfaced.
func (provider *GeminiProvider) WithMaxAttempts(attempts int) *GeminiProvider {
	provider.maxAttempts = attempts
	return provider
}

// WithHeaderHook installs a per-request header mutation hook.
func (provider *GeminiProvider) WithHeaderHook(hook func(http.Header)) *GeminiProvider {
	provider.headerHook = hook
	return provider
}

// streamConfig assembles the transport knobs for one streaming call.
// Gemini authenticates via the x-goog-api-key header, not a Bearer token.
func (provider *GeminiProvider) streamConfig() utils.StreamConfig {
	return utils.StreamConfig{
		MaxAttempts:    provider.maxAttempts,
		ConnectTimeout: provider.connectTimeout,
		Headers: []utils.HeaderOption{
			{Key: "x-goog-api-key", Value: provider.apiKey},
		},
		HeaderHook: provider.headerHook,
	}
}
