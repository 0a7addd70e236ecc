package codequality

import (
	"context"
	"strings"

	"github.com/sysaudit/sysaudit/internal/domain"
	"github.com/sysaudit/sysaudit/internal/llm"
	"github.com/sysaudit/sysaudit/internal/skill"
	"github.com/sysaudit/sysaudit/internal/util"
)

// defaultDeepConfidence is assumed when the model omits a confidence score.
const defaultDeepConfidence = 0.8

// deepFinding is the JSON shape the model is asked to produce per issue.
type deepFinding struct {
	Title                 string  `json:"title"`
	Severity              string  `json:"severity"`
	StartLine             int     `json:"start_line"`
	EndLine               int     `json:"end_line"`
	Explanation           string  `json:"explanation"`
	RefactoringSuggestion string  `json:"refactoring_suggestion"`
	Effort                string  `json:"effort"`
	Confidence            float64 `json:"confidence"`
}

type deepFindings struct {
	Findings []deepFinding `json:"findings"`
}

var deepSeverities = map[string]domain.Severity{
	"critical": domain.SeverityCritical,
	"high":     domain.SeverityHigh,
	"medium":   domain.SeverityMedium,
	"low":      domain.SeverityLow,
	"info":     domain.SeverityInfo,
}

var deepEfforts = map[string]domain.Effort{
	"trivial": domain.EffortTrivial,
	"small":   domain.EffortSmall,
	"medium":  domain.EffortMedium,
	"large":   domain.EffortLarge,
}

func deepSeverity(s string) domain.Severity {
	if sev, ok := deepSeverities[strings.ToLower(s)]; ok {
		return sev
	}
	return domain.SeverityMedium
}

func deepEffort(s string) domain.Effort {
	if e, ok := deepEfforts[strings.ToLower(s)]; ok {
		return e
	}
	return domain.EffortMedium
}

type deepPromptData struct {
	Language   string
	FilePath   string
	Cyclomatic int
	LOC        int
	Code       string
}

const fence = "```"

var promptTemplates = map[string]string{
	"deep_analysis": deepAnalysisPrompt,
}

var deepAnalysisPrompt = `You are an expert code reviewer analyzing {{.Language}} code for maintainability issues.

## Code to Review

File: {{.FilePath}}
Cyclomatic Complexity: {{.Cyclomatic}}
Lines of Code: {{.LOC}}

` + fence + `{{.Language}}
{{.Code}}
` + fence + `

## Your Task

Identify specific maintainability issues in this code. For each issue:
1. Explain WHY it's a problem (not just what)
2. Suggest a concrete refactoring approach
3. Rate severity: critical/high/medium/low
4. Estimate effort: trivial/small/medium/large

Focus on:
- Functions doing too many things
- Deep nesting that harms readability
- Unclear variable/function names
- Missing abstractions
- Code that would be hard to test

## Response Format

Return JSON only:
` + fence + `json
{
  "findings": [
    {
      "title": "Brief issue title",
      "severity": "high",
      "start_line": 15,
      "end_line": 45,
      "explanation": "Why this is problematic...",
      "refactoring_suggestion": "Extract method for...",
      "effort": "medium",
      "confidence": 0.85
    }
  ]
}
` + fence + `

Be specific. Reference actual line numbers. Limit to 5 most important issues.`

// deepAnalyze asks the generative backend to review one high-complexity
// file. Any failure for this file (unreadable content, backend error,
// unparseable output) contributes no findings; the skill never aborts here.
func (s *Skill) deepAnalyze(ctx context.Context, actx *skill.Context, client llm.Client, metrics ComplexityMetrics) []domain.Finding {
	code, err := actx.ReadFile(metrics.FilePath)
	if err != nil {
		return nil
	}

	prompt, err := s.RenderPrompt(promptTemplates, "deep_analysis", deepPromptData{
		Language:   actx.DetectLanguage(metrics.FilePath),
		FilePath:   metrics.FilePath,
		Cyclomatic: metrics.Cyclomatic,
		LOC:        metrics.LOC,
		Code:       util.TruncateRunes(code, maxCodeChars),
	})
	if err != nil {
		return nil
	}

	var parsed deepFindings
	result, err := client.Analyze(ctx, prompt, &parsed, llm.GenerateOptions{Temperature: 0.1})
	if err != nil || result.ParseError || result.Skipped {
		return nil
	}

	findings := make([]domain.Finding, 0, len(parsed.Findings))
	for _, df := range parsed.Findings {
		confidence := df.Confidence
		if confidence == 0 {
			confidence = defaultDeepConfidence
		}
		findings = append(findings, s.NewFinding(skill.FindingParams{
			Title:          df.Title,
			Severity:       string(deepSeverity(df.Severity)),
			Category:       "complexity",
			Description:    df.Explanation,
			FilePath:       metrics.FilePath,
			LineStart:      df.StartLine,
			LineEnd:        df.EndLine,
			Recommendation: df.RefactoringSuggestion,
			Effort:         string(deepEffort(df.Effort)),
			Source:         string(domain.SourceLLM),
			Confidence:     confidence,
		}))
	}
	return findings
}
