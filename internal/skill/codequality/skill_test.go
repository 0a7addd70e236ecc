package codequality

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysaudit/sysaudit/internal/config"
	"github.com/sysaudit/sysaudit/internal/domain"
	"github.com/sysaudit/sysaudit/internal/llm"
	"github.com/sysaudit/sysaudit/internal/skill"
)

// fakeClient returns canned JSON from Analyze by unmarshaling it into the
// caller's schema.
type fakeClient struct {
	content   string
	err       error
	available bool
	calls     int
}

func (c *fakeClient) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (*llm.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Content: c.content, Model: "fake"}, nil
}

func (c *fakeClient) Analyze(ctx context.Context, prompt string, out any, opts llm.GenerateOptions) (*llm.AnalyzeResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if out != nil {
		if err := json.Unmarshal([]byte(c.content), out); err != nil {
			return &llm.AnalyzeResult{RawContent: c.content, ParseError: true}, nil
		}
	}
	return &llm.AnalyzeResult{Value: out, RawContent: c.content}, nil
}

func (c *fakeClient) IsAvailable(ctx context.Context) bool { return c.available }
func (c *fakeClient) Close() error                         { return nil }

// fixedRunner returns canned stdout per tool name.
func fixedRunner(outputs map[string][]byte) toolRunner {
	return func(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
		out, ok := outputs[name]
		if !ok {
			return nil, errors.New("tool not installed")
		}
		return out, nil
	}
}

func testContext(t *testing.T) *skill.Context {
	t.Helper()
	return skill.NewContext(t.TempDir(), config.DefaultConfig())
}

func TestLintSeverity(t *testing.T) {
	tests := []struct {
		code string
		want domain.Severity
	}{
		{"F401", domain.SeverityHigh},
		{"E501", domain.SeverityMedium},
		{"W291", domain.SeverityLow},
		{"S608", domain.SeverityHigh},
		{"TRY003", domain.SeverityMedium}, // TRY wins over T by longest prefix
		{"T201", domain.SeverityLow},
		{"ZZ1", domain.SeverityMedium}, // unmatched defaults to medium
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, lintSeverity(tt.code), tt.code)
	}
}

func TestLintRecommendation(t *testing.T) {
	assert.Equal(t, "This is a likely bug - fix immediately", lintRecommendation("F841"))
	assert.Equal(t, "Reduce function complexity by extracting methods", lintRecommendation("C901"))
	assert.Equal(t, defaultRecommendation, lintRecommendation("PLR0913"))
}

func TestRunLint(t *testing.T) {
	ruffOut := `[
		{"code": "F401", "message": "os imported but unused", "filename": "app.py",
		 "location": {"row": 1}, "end_location": {"row": 1}},
		{"code": "E501", "message": "line too long", "filename": "app.py",
		 "location": {"row": 42}, "end_location": {"row": 42}}
	]`

	s := New()
	s.runTool = fixedRunner(map[string][]byte{"ruff": []byte(ruffOut)})

	findings := s.runLint(context.Background(), testContext(t))
	require.Len(t, findings, 2)

	first := findings[0]
	assert.Equal(t, "os imported but unused", first.Title)
	assert.Equal(t, domain.SeverityHigh, first.Severity)
	assert.Equal(t, "linting", first.Category)
	assert.Equal(t, domain.SourceStatic, first.Source)
	assert.Equal(t, 1.0, first.Confidence)
	assert.Equal(t, "F401", first.Metadata["rule_code"])
	assert.Equal(t, "code-quality", first.SkillName)
}

func TestRunLintDegradesGracefully(t *testing.T) {
	s := New()
	actx := testContext(t)

	// Missing tool
	s.runTool = fixedRunner(nil)
	assert.Empty(t, s.runLint(context.Background(), actx))

	// Malformed output
	s.runTool = fixedRunner(map[string][]byte{"ruff": []byte("not json")})
	assert.Empty(t, s.runLint(context.Background(), actx))

	// Empty output
	s.runTool = fixedRunner(map[string][]byte{"ruff": nil})
	assert.Empty(t, s.runLint(context.Background(), actx))
}

func TestMeasureComplexity(t *testing.T) {
	radonOut := `{
		"b.py": [
			{"name": "parse", "complexity": 8, "lineno": 10, "endline": 40},
			{"name": "render", "complexity": 5, "lineno": 45, "endline": 60}
		],
		"a.py": [
			{"name": "main", "complexity": 3, "lineno": 1, "endline": 12}
		],
		"broken.py": {"error": "invalid syntax"}
	}`

	s := New()
	s.runTool = fixedRunner(map[string][]byte{"radon": []byte(radonOut)})

	metrics := s.measureComplexity(context.Background(), testContext(t))
	require.Len(t, metrics, 2)

	// Sorted by file path, error entries skipped.
	assert.Equal(t, "a.py", metrics[0].FilePath)
	assert.Equal(t, 3, metrics[0].Cyclomatic)
	assert.Equal(t, 11, metrics[0].LOC)

	assert.Equal(t, "b.py", metrics[1].FilePath)
	assert.Equal(t, 13, metrics[1].Cyclomatic)
	assert.Equal(t, 45, metrics[1].LOC)
	require.Len(t, metrics[1].Functions, 2)
}

func TestDeepAnalyze(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "messy.py"), []byte("def soup():\n    pass\n"), 0o644))
	actx := skill.NewContext(dir, config.DefaultConfig())

	client := &fakeClient{content: `{
		"findings": [
			{"title": "Function does too much", "severity": "high",
			 "start_line": 1, "end_line": 2,
			 "explanation": "mixes parsing and IO",
			 "refactoring_suggestion": "split into two functions",
			 "effort": "small", "confidence": 0.9},
			{"title": "No confidence given", "severity": "weird",
			 "start_line": 3, "end_line": 4,
			 "explanation": "x", "refactoring_suggestion": "y", "effort": "huge"}
		]
	}`}

	s := New()
	findings := s.deepAnalyze(context.Background(), actx, client, ComplexityMetrics{
		FilePath: "messy.py", Cyclomatic: 15, LOC: 80,
	})
	require.Len(t, findings, 2)

	assert.Equal(t, domain.SeverityHigh, findings[0].Severity)
	assert.Equal(t, domain.SourceLLM, findings[0].Source)
	assert.Equal(t, "complexity", findings[0].Category)
	assert.Equal(t, 0.9, findings[0].Confidence)

	// Unknown severity and effort fall back to medium; missing confidence
	// gets the deep-analysis default.
	assert.Equal(t, domain.SeverityMedium, findings[1].Severity)
	assert.Equal(t, domain.EffortMedium, findings[1].EffortEstimate)
	assert.Equal(t, defaultDeepConfidence, findings[1].Confidence)
}

func TestDeepAnalyzeFailuresYieldNoFindings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.py"), []byte("pass\n"), 0o644))
	actx := skill.NewContext(dir, config.DefaultConfig())
	metrics := ComplexityMetrics{FilePath: "f.py", Cyclomatic: 20, LOC: 10}

	// Unreadable file
	s := New()
	assert.Empty(t, s.deepAnalyze(context.Background(), actx, &fakeClient{}, ComplexityMetrics{FilePath: "gone.py"}))

	// Backend error
	s = New()
	assert.Empty(t, s.deepAnalyze(context.Background(), actx, &fakeClient{err: errors.New("boom")}, metrics))

	// Unparseable model output
	s = New()
	assert.Empty(t, s.deepAnalyze(context.Background(), actx, &fakeClient{content: "prose, not JSON"}, metrics))

	// Disabled client
	s = New()
	assert.Empty(t, s.deepAnalyze(context.Background(), actx, llm.NewNoopClient(), metrics))
}

func TestDedupe(t *testing.T) {
	f := func(file string, line int, title string) domain.Finding {
		return domain.Finding{FilePath: file, LineStart: line, Title: title}
	}

	findings := []domain.Finding{
		f("a.py", 10, "line too long"),
		f("a.py", 10, "line too long"),  // exact duplicate
		f("a.py", 11, "line too long"),  // different line
		f("b.py", 10, "line too long"),  // different file
		f("a.py", 10, "something else"), // different title
	}

	unique := dedupe(findings)
	assert.Len(t, unique, 4)

	// Idempotent on its own output.
	assert.Equal(t, unique, dedupe(unique))
}

func TestDedupeKeyUsesTitlePrefix(t *testing.T) {
	long := "this title is exactly the same for the first fifty characters and then diverges here"
	other := "this title is exactly the same for the first fifty characters but ends differently"

	unique := dedupe([]domain.Finding{
		{FilePath: "a.py", LineStart: 1, Title: long},
		{FilePath: "a.py", LineStart: 1, Title: other},
	})
	assert.Len(t, unique, 1)
}

func TestAnalyzePipeline(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "complex.py"), []byte("def tangle():\n    pass\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Analysis.ComplexityThreshold = 10
	actx := skill.NewContext(dir, cfg)

	ruffOut := `[
		{"code": "E501", "message": "line too long", "filename": "complex.py",
		 "location": {"row": 3}, "end_location": {"row": 3}},
		{"code": "F841", "message": "local variable assigned but never used", "filename": "complex.py",
		 "location": {"row": 7}, "end_location": {"row": 7}}
	]`
	radonOut := `{
		"complex.py": [{"name": "tangle", "complexity": 15, "lineno": 1, "endline": 2}],
		"simple.py": [{"name": "ok", "complexity": 2, "lineno": 1, "endline": 5}]
	}`

	client := &fakeClient{content: `{
		"findings": [
			{"title": "Deeply nested branching", "severity": "high",
			 "start_line": 1, "end_line": 2,
			 "explanation": "hard to follow",
			 "refactoring_suggestion": "flatten with early returns",
			 "effort": "medium", "confidence": 0.85}
		]
	}`}

	s := New()
	s.runTool = fixedRunner(map[string][]byte{
		"ruff":  []byte(ruffOut),
		"radon": []byte(radonOut),
	})

	findings, err := s.Analyze(context.Background(), actx, client)
	require.NoError(t, err)
	require.Len(t, findings, 3)

	static := 0
	generative := 0
	for _, f := range findings {
		switch f.Source {
		case domain.SourceStatic:
			static++
		case domain.SourceLLM:
			generative++
		}
	}
	assert.Equal(t, 2, static)
	assert.Equal(t, 1, generative)

	// Only complex.py crossed the threshold.
	assert.Equal(t, 1, client.calls)
}

func TestAnalyzeCapsDeepFiles(t *testing.T) {
	dir := t.TempDir()
	radon := map[string]any{}
	for _, name := range []string{"a.py", "b.py", "c.py", "d.py", "e.py", "f.py", "g.py"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("pass\n"), 0o644))
		radon[name] = []map[string]any{{"name": "fn", "complexity": 20, "lineno": 1, "endline": 2}}
	}
	radonOut, err := json.Marshal(radon)
	require.NoError(t, err)

	actx := skill.NewContext(dir, config.DefaultConfig())
	client := &fakeClient{content: `{"findings": []}`}

	s := New()
	s.runTool = fixedRunner(map[string][]byte{"radon": radonOut})

	_, err = s.Analyze(context.Background(), actx, client)
	require.NoError(t, err)
	assert.Equal(t, maxDeepFiles, client.calls)
}

func TestAnalyzeWithoutToolsOrBackend(t *testing.T) {
	s := New()
	s.runTool = fixedRunner(nil)

	findings, err := s.Analyze(context.Background(), testContext(t), llm.NewNoopClient())
	require.NoError(t, err)
	assert.Empty(t, findings)
}
