package commenter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panbanda/remark/internal/httputil"
	"github.com/panbanda/remark/pkg/config"
	"google.golang.org/genai"
)

// APIError is a non-success reply from the generation service.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini: HTTP %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// Gemini generates comments through the Gemini API.
type Gemini struct {
	models      *genai.Models
	retry       *httputil.Client
	endpoint    string
	model       string
	apiKey      string
	timeout     time.Duration
	temperature float32
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithAPIKey overrides the key read from the configured environment variable.
func WithAPIKey(key string) GeminiOption {
	return func(g *Gemini) { g.apiKey = key }
}

// WithClient replaces the retrying HTTP client.
func WithClient(c *httputil.Client) GeminiOption {
	return func(g *Gemini) { g.retry = c }
}

// NewGemini builds a client from cfg. It fails with ErrNoAPIKey when no key
// is available.
func NewGemini(ctx context.Context, cfg config.CommenterConfig, opts ...GeminiOption) (*Gemini, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = httputil.DefaultHTTPTimeout
	}

	g := &Gemini{
		retry:       httputil.NewClient(httputil.WithMaxRetries(cfg.MaxRetries)),
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey(),
		timeout:     timeout,
		temperature: float32(cfg.Temperature),
	}
	for _, o := range opts {
		o(g)
	}

	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: export %s", ErrNoAPIKey, cfg.APIKeyEnv)
	}
	if g.model == "" {
		return nil, errors.New("commenter model not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.retry.StandardClient(),
		HTTPOptions: genai.HTTPOptions{
			BaseURL: g.endpoint,
			Timeout: &g.timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.models = client.Models
	return g, nil
}

// Comment sends the prompt for req and returns the cleaned reply.
func (g *Gemini) Comment(ctx context.Context, req Request) (string, error) {
	contents := genai.Text(Prompt(req))
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &APIError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := Clean(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
