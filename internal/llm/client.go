package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sysaudit/sysaudit/internal/config"
)

// ErrDisabled is returned by Generate when generative analysis is turned off.
var ErrDisabled = errors.New("generative analysis is disabled")

// GenerateOptions controls a single generation request
type GenerateOptions struct {
	System      string  // optional system prompt
	Temperature float64 // sampling temperature (lower = more deterministic)
	MaxTokens   int     // maximum tokens in the response
}

// Response is the result of a raw completion request
type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// AnalyzeResult is the outcome of a structured-output request. Malformed
// model output never becomes an error: ParseError is set and RawContent
// carries the original text instead.
type AnalyzeResult struct {
	Value      any    // decoded JSON, or the out target when one was supplied
	RawContent string // unmodified model output
	ParseError bool   // true when the output could not be parsed as JSON
	Skipped    bool   // true when the client is disabled
}

// Client abstracts a remote text-generation backend. Implementations must
// never let a malformed model response surface as an error from Analyze,
// and IsAvailable must swallow all failures into false.
type Client interface {
	// Generate issues one completion request. It fails with a
	// *ConnectionError when the backend is unreachable and a
	// *BackendError when the backend returns a non-success status.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error)

	// Analyze requests JSON output and parses it. When out is non-nil the
	// decoded JSON is unmarshaled into it; otherwise the raw decoded
	// structure is returned in AnalyzeResult.Value. Parse failures are
	// reported through the result, not the error.
	Analyze(ctx context.Context, prompt string, out any, opts GenerateOptions) (*AnalyzeResult, error)

	// IsAvailable reports whether the configured model is loaded on the
	// backend. It returns false on any connectivity or parsing failure.
	IsAvailable(ctx context.Context) bool

	// Close releases the client's connection resources.
	Close() error
}

// ConnectionError indicates the backend could not be reached
type ConnectionError struct {
	Endpoint string
	Hint     string // how to bring the backend up
	Err      error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("could not connect to %s", e.Endpoint)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// BackendError indicates the backend answered with a non-success status
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

const jsonOnlyInstruction = "\n\nRespond with valid JSON only, no additional text."

// StripFences removes a surrounding fenced code block from content: the
// first line (the opening delimiter, with or without a language tag) and
// everything from the matching closing delimiter on. Content without a
// leading fence is returned unchanged apart from trimming.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	end := len(lines) - 1
	for i := 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "```") {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

// analyze implements the shared Analyze flow on top of a client's Generate.
func analyze(ctx context.Context, c Client, prompt string, out any, opts GenerateOptions) (*AnalyzeResult, error) {
	if out != nil {
		prompt += jsonOnlyInstruction
	}

	resp, err := c.Generate(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(resp.Content, out), nil
}

// decodeAnalysis extracts JSON from model output, stripping a fenced code
// block if present. Parse failures produce a fallback result carrying the
// raw content.
func decodeAnalysis(content string, out any) *AnalyzeResult {
	stripped := strings.TrimSpace(StripFences(content))

	if out != nil {
		if err := json.Unmarshal([]byte(stripped), out); err != nil {
			return &AnalyzeResult{RawContent: content, ParseError: true}
		}
		return &AnalyzeResult{Value: out, RawContent: content}
	}

	var value any
	if err := json.Unmarshal([]byte(stripped), &value); err != nil {
		return &AnalyzeResult{RawContent: content, ParseError: true}
	}
	return &AnalyzeResult{Value: value, RawContent: content}
}

// modelBase strips a trailing version tag from a model name, so
// "qwen2.5-coder:7b" matches catalog entries starting with "qwen2.5-coder".
func modelBase(model string) string {
	if idx := strings.Index(model, ":"); idx != -1 {
		return model[:idx]
	}
	return model
}

// NewFromConfig builds a client for the configured provider. Provider
// "none" yields the disabled client.
func NewFromConfig(cfg config.LLMConfig) Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model, timeout)
	case "none":
		return NewNoopClient()
	default:
		return NewOllamaClient(cfg.BaseURL, cfg.Model, timeout)
	}
}
