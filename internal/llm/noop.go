package llm

import "context"

// NoopClient satisfies the Client contract without a backend. It is used
// when the generative backend is unreachable or disabled: static analysis
// still runs, deep analysis is skipped.
type NoopClient struct{}

// NewNoopClient creates a disabled client.
func NewNoopClient() *NoopClient { return &NoopClient{} }

// Generate always fails with ErrDisabled.
func (c *NoopClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Response, error) {
	return nil, ErrDisabled
}

// Analyze returns a skipped result and never fails.
func (c *NoopClient) Analyze(ctx context.Context, prompt string, out any, opts GenerateOptions) (*AnalyzeResult, error) {
	return &AnalyzeResult{Skipped: true}, nil
}

// IsAvailable always reports false.
func (c *NoopClient) IsAvailable(ctx context.Context) bool { return false }

// Close is a no-op.
func (c *NoopClient) Close() error { return nil }
