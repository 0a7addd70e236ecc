package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysaudit/sysaudit/internal/config"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"trailing prose after fence", "```json\n{\"a\": 1}\n```\nHope this helps!", `{"a": 1}`},
		{"unterminated fence", "```json\n{\"a\": 1}\nstill going", "{\"a\": 1}"},
		{"surrounding whitespace", "  \n```json\n{\"a\": 1}\n```\n ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.content))
		})
	}
}

func TestDecodeAnalysisFencedEqualsDirect(t *testing.T) {
	type schema struct {
		Findings []struct {
			Title string `json:"title"`
		} `json:"findings"`
	}

	raw := `{"findings": [{"title": "long function"}]}`
	fenced := "```json\n" + raw + "\n```"

	var direct schema
	require.NoError(t, json.Unmarshal([]byte(raw), &direct))

	var got schema
	result := decodeAnalysis(fenced, &got)
	require.False(t, result.ParseError)
	assert.Equal(t, direct, got)
	assert.Equal(t, fenced, result.RawContent)
}

func TestDecodeAnalysisParseError(t *testing.T) {
	var out map[string]any
	result := decodeAnalysis("I could not produce JSON, sorry.", &out)
	assert.True(t, result.ParseError)
	assert.Equal(t, "I could not produce JSON, sorry.", result.RawContent)
}

func TestDecodeAnalysisWithoutSchema(t *testing.T) {
	result := decodeAnalysis(`{"key": "value"}`, nil)
	require.False(t, result.ParseError)
	value, ok := result.Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "value", value["key"])
}

func TestModelBase(t *testing.T) {
	assert.Equal(t, "qwen2.5-coder", modelBase("qwen2.5-coder:7b"))
	assert.Equal(t, "llama3", modelBase("llama3"))
}

func TestNoopClient(t *testing.T) {
	c := NewNoopClient()
	ctx := context.Background()

	_, err := c.Generate(ctx, "hello", GenerateOptions{})
	assert.ErrorIs(t, err, ErrDisabled)

	result, err := c.Analyze(ctx, "hello", nil, GenerateOptions{})
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	assert.False(t, c.IsAvailable(ctx))
	assert.NoError(t, c.Close())
}

func TestNewFromConfig(t *testing.T) {
	c := NewFromConfig(config.LLMConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "m", TimeoutSeconds: 10})
	assert.IsType(t, &OllamaClient{}, c)

	c = NewFromConfig(config.LLMConfig{Provider: "openai", Model: "gpt-4o", TimeoutSeconds: 10})
	assert.IsType(t, &OpenAIClient{}, c)

	c = NewFromConfig(config.LLMConfig{Provider: "none"})
	assert.IsType(t, &NoopClient{}, c)
}
