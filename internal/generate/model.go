// Package generate drafts structured content and email copy with a text
// generation model.
package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"

	"github.com/foxzi/copysmith/internal/metrics"
)

// Model produces a JSON completion for a system and user prompt
type Model interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// ExternalServiceError wraps a failed call to the generation provider
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s API error: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// Options selects and configures a provider
type Options struct {
	Provider string // openai, gemini or ollama
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewModel creates the model for opts.Provider
func NewModel(ctx context.Context, opts Options) (Model, error) {
	switch opts.Provider {
	case "openai", "":
		return NewOpenAIModel(opts)
	case "gemini":
		return NewGeminiModel(ctx, opts)
	case "ollama":
		return NewOllamaModel(opts)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", opts.Provider)
	}
}

// ChatModel adapts a langchaingo chat model
type ChatModel struct {
	service string
	llm     llms.Model
	timeout time.Duration
}

// NewOpenAIModel creates an OpenAI-compatible chat completions model
func NewOpenAIModel(opts Options) (*ChatModel, error) {
	llmOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
		openai.WithModel(opts.Model),
	}
	if opts.BaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
	}

	llm, err := openai.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init openai: %w", err)
	}
	return &ChatModel{service: "OpenAI", llm: llm, timeout: opts.Timeout}, nil
}

// NewOllamaModel creates a model served by a local Ollama instance
func NewOllamaModel(opts Options) (*ChatModel, error) {
	llmOpts := []ollama.Option{
		ollama.WithModel(opts.Model),
		ollama.WithFormat("json"),
	}
	if opts.BaseURL != "" {
		llmOpts = append(llmOpts, ollama.WithServerURL(opts.BaseURL))
	}

	llm, err := ollama.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init ollama: %w", err)
	}
	return &ChatModel{service: "Ollama", llm: llm, timeout: opts.Timeout}, nil
}

// CompleteJSON sends role-tagged system and user messages in JSON mode
func (m *ChatModel) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	label := strings.ToLower(m.service)
	resp, err := m.llm.GenerateContent(ctx, messages, llms.WithJSONMode())
	if err != nil {
		metrics.IncExternalCalls(label, "error")
		return "", &ExternalServiceError{Service: m.service, Err: err}
	}
	if len(resp.Choices) == 0 {
		metrics.IncExternalCalls(label, "error")
		return "", &ExternalServiceError{Service: m.service, Err: fmt.Errorf("empty completion")}
	}
	metrics.IncExternalCalls(label, "ok")
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// GeminiModel generates content through the Gemini API
type GeminiModel struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiModel creates a Gemini model
func NewGeminiModel(ctx context.Context, opts Options) (*GeminiModel, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiModel{client: client, model: opts.Model, timeout: opts.Timeout}, nil
}

// CompleteJSON asks Gemini for an application/json response
func (m *GeminiModel) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}
	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		metrics.IncExternalCalls("gemini", "error")
		return "", &ExternalServiceError{Service: "Gemini", Err: err}
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		metrics.IncExternalCalls("gemini", "error")
		return "", &ExternalServiceError{Service: "Gemini", Err: fmt.Errorf("empty completion")}
	}
	metrics.IncExternalCalls("gemini", "ok")
	return text, nil
}
