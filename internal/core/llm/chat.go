package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/neilberkman/escriba/internal/core/errs"
)

const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenAIBaseURL     = "https://api.openai.com/v1"

	defaultTemperature = 0.7
)

// providerDefaults holds the endpoint and model used when the config names
// a provider but leaves base_url or model empty
var providerDefaults = map[string]struct{ baseURL, model string }{
	"openrouter": {OpenRouterBaseURL, "anthropic/claude-3.5-sonnet"},
	"openai":     {OpenAIBaseURL, "gpt-4o-mini"},
}

// ChatConfig configures an OpenAI-compatible chat completions endpoint
type ChatConfig struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature *float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// ChatProvider implements Provider against /chat/completions.
// Requests are never retried.
type ChatProvider struct {
	name    string
	baseURL string
	model   string
	llm     *openai.LLM
	options []llms.CallOption
}

// chatError covers both {"error": {"message": ...}} and {"message": ...}
type chatError struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// NewChatProvider creates a chat completions provider. An empty BaseURL or
// Model falls back to the defaults of cfg.Name.
func NewChatProvider(cfg ChatConfig) (*ChatProvider, error) {
	if cfg.Name == "" {
		cfg.Name = "openrouter"
	}
	defaults, ok := providerDefaults[cfg.Name]
	if !ok {
		defaults = providerDefaults["openai"]
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.baseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.model
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		hc = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	model, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&capturingDoer{client: hc, openRouter: cfg.Name == "openrouter"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Name, err)
	}

	temperature := defaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	options := []llms.CallOption{llms.WithTemperature(temperature)}
	if cfg.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(cfg.MaxTokens))
		if cfg.Name != "openai" {
			// compatible servers still read max_tokens
			options = append(options, openai.WithLegacyMaxTokensField())
		}
	}

	return &ChatProvider{
		name:    cfg.Name,
		baseURL: baseURL,
		model:   cfg.Model,
		llm:     model,
		options: options,
	}, nil
}

// GenerateText implements Provider
func (p *ChatProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	const op = "llm.chat_completion"

	capture := &responseCapture{}
	text, err := llms.GenerateFromSinglePrompt(context.WithValue(ctx, captureKey{}, capture), p.llm, prompt, p.options...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err == nil {
		return text, nil
	}

	switch {
	case capture.status == 0 && capture.err != nil:
		return "", errs.Network(op, capture.err)
	case capture.status == 0:
		return "", errs.Network(op, err)
	case capture.status < 200 || capture.status >= 300:
		return "", errs.New(errs.KindProviderError, op, capture.status, errorMessage(capture.body, capture.status))
	default:
		return "", errs.New(errs.KindProviderError, op, capture.status, "unexpected response: "+err.Error())
	}
}

type captureKey struct{}

// responseCapture holds the status and error body of one exchange
type responseCapture struct {
	status int
	body   []byte
	err    error
}

// capturingDoer is the http client handed to the openai package
type capturingDoer struct {
	client     *http.Client
	openRouter bool
}

func (d *capturingDoer) Do(req *http.Request) (*http.Response, error) {
	if d.openRouter {
		req.Header.Set("X-Title", "Escriba")
	}
	capture, _ := req.Context().Value(captureKey{}).(*responseCapture)

	resp, err := d.client.Do(req)
	if capture == nil {
		return resp, err
	}
	if err != nil {
		capture.err = err
		return nil, err
	}
	capture.status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			capture.status = 0
			capture.err = readErr
			return nil, readErr
		}
		capture.body = data
		resp.Body = io.NopCloser(bytes.NewReader(data))
	}
	return resp, nil
}

func errorMessage(data []byte, status int) string {
	var ce chatError
	if json.Unmarshal(data, &ce) == nil {
		var nested struct {
			Message string `json:"message"`
		}
		if len(ce.Error) > 0 {
			if json.Unmarshal(ce.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if json.Unmarshal(ce.Error, &plain) == nil && plain != "" {
				return plain
			}
		}
		if ce.Message != "" {
			return ce.Message
		}
	}
	if msg := strings.TrimSpace(string(data)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}

// Name implements Provider
func (p *ChatProvider) Name() string {
	return p.name
}
