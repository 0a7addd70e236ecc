package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient talks to an OpenAI-compatible backend (hosted OpenAI,
// Zhipu, or any gateway exposing the same chat-completions surface).
type OpenAIClient struct {
	endpoint string
	model    string
	client   openai.Client
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// An empty baseURL targets the hosted OpenAI API.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	}
	endpoint := "https://api.openai.com/v1"
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
		endpoint = baseURL
	}
	return &OpenAIClient{
		endpoint: endpoint,
		model:    model,
		client:   openai.NewClient(opts...),
	}
}

// Generate issues one chat completion request.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if opts.System != "" {
		messages = append(messages, openai.SystemMessage(opts.System))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &BackendError{StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return nil, &ConnectionError{
			Endpoint: c.endpoint,
			Hint:     "Check the configured base_url and your network connectivity.",
			Err:      err,
		}
	}

	content := ""
	if len(completion.Choices) > 0 {
		content = completion.Choices[0].Message.Content
	}
	model := completion.Model
	if model == "" {
		model = c.model
	}

	return &Response{
		Content:          content,
		Model:            model,
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
	}, nil
}

// Analyze requests JSON output from the model and parses it; see Client.
func (c *OpenAIClient) Analyze(ctx context.Context, prompt string, out any, opts GenerateOptions) (*AnalyzeResult, error) {
	return analyze(ctx, c, prompt, out, opts)
}

// IsAvailable lists the backend's models and reports whether one prefix
// matches the configured model's base name. Any failure yields false.
func (c *OpenAIClient) IsAvailable(ctx context.Context) bool {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return false
	}

	base := modelBase(c.model)
	for _, m := range page.Data {
		if strings.HasPrefix(m.ID, base) {
			return true
		}
	}
	return false
}

// Close is a no-op; the SDK manages its own connections.
func (c *OpenAIClient) Close() error { return nil }
