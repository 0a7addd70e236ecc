package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const ollamaStartHint = "Is Ollama running? Start it with: ollama serve"

// OllamaClient talks to a local Ollama server over its native HTTP API.
// The underlying HTTP client is created lazily on first use and released
// by Close.
type OllamaClient struct {
	baseURL string
	model   string
	timeout time.Duration

	once       sync.Once
	httpClient *http.Client
}

// NewOllamaClient creates a client for the Ollama server at baseURL.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		timeout: timeout,
	}
}

func (c *OllamaClient) client() *http.Client {
	c.once.Do(func() {
		c.httpClient = &http.Client{Timeout: c.timeout}
	})
	return c.httpClient
}

// Close releases idle connections held by the client.
func (c *OllamaClient) Close() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// Generate issues one chat completion request to /api/chat.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	var messages []ollamaMessage
	if opts.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: prompt})

	options := map[string]any{
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}

	payload := ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  options,
	}

	body, err := c.post(ctx, "/api/chat", payload)
	if err != nil {
		return nil, err
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("parsing Ollama response: %w", err)
	}
	if chatResp.Model == "" {
		chatResp.Model = c.model
	}

	return &Response{
		Content:          chatResp.Message.Content,
		Model:            chatResp.Model,
		PromptTokens:     chatResp.PromptEvalCount,
		CompletionTokens: chatResp.EvalCount,
	}, nil
}

// Analyze requests JSON output from the model and parses it; see Client.
func (c *OllamaClient) Analyze(ctx context.Context, prompt string, out any, opts GenerateOptions) (*AnalyzeResult, error) {
	return analyze(ctx, c, prompt, out, opts)
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// IsAvailable queries /api/tags and reports whether a loaded model name
// starts with the configured model's base name. Any failure yields false.
func (c *OllamaClient) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}

	base := modelBase(c.model)
	for _, m := range tags.Models {
		if strings.HasPrefix(m.Name, base) {
			return true
		}
	}
	return false
}

// Pull asks the server to download the configured model via /api/pull.
// Model downloads can take a while, so the request gets its own generous
// deadline independent of the client timeout.
func (c *OllamaClient) Pull(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	payload := map[string]any{"name": c.model, "stream": false}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling pull request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Bypass the client timeout for the long-running pull.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return &ConnectionError{Endpoint: c.baseURL, Hint: ollamaStartHint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &BackendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// post sends a JSON payload and returns the response body, mapping
// transport failures to *ConnectionError and non-200 statuses to
// *BackendError.
func (c *OllamaClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, &ConnectionError{Endpoint: c.baseURL, Hint: ollamaStartHint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
