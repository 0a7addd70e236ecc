package codequality

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sysaudit/sysaudit/internal/domain"
	"github.com/sysaudit/sysaudit/internal/skill"
)

// severityByRulePrefix maps ruff rule-code prefixes to severities. Codes
// are matched by longest prefix; unmatched codes default to medium.
var severityByRulePrefix = map[string]domain.Severity{
	"E":   domain.SeverityMedium, // pycodestyle errors
	"W":   domain.SeverityLow,    // pycodestyle warnings
	"F":   domain.SeverityHigh,   // pyflakes
	"C":   domain.SeverityMedium, // complexity
	"I":   domain.SeverityLow,    // isort
	"N":   domain.SeverityLow,    // naming
	"D":   domain.SeverityLow,    // docstrings
	"UP":  domain.SeverityLow,    // pyupgrade
	"B":   domain.SeverityMedium, // bugbear
	"A":   domain.SeverityMedium, // builtins
	"S":   domain.SeverityHigh,   // bandit security
	"T":   domain.SeverityLow,    // print statements
	"Q":   domain.SeverityLow,    // quotes
	"ARG": domain.SeverityLow,    // unused arguments
	"PTH": domain.SeverityLow,    // pathlib
	"ERA": domain.SeverityLow,    // commented out code
	"PL":  domain.SeverityMedium, // pylint
	"TRY": domain.SeverityMedium, // tryceratops
	"RUF": domain.SeverityMedium, // ruff specific
}

var recommendationByRulePrefix = map[string]string{
	"E":   "Fix the style issue to improve code consistency",
	"W":   "Consider fixing this warning for cleaner code",
	"F":   "This is a likely bug - fix immediately",
	"B":   "This pattern is error-prone - refactor for safety",
	"S":   "Security issue - review and fix",
	"C90": "Reduce function complexity by extracting methods",
}

const defaultRecommendation = "Review and fix if appropriate"

// lintSeverity maps a rule code to a severity by longest matching prefix.
func lintSeverity(code string) domain.Severity {
	best := ""
	for prefix := range severityByRulePrefix {
		if strings.HasPrefix(code, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return domain.SeverityMedium
	}
	return severityByRulePrefix[best]
}

// lintRecommendation returns the remediation text for a rule code by
// longest matching prefix.
func lintRecommendation(code string) string {
	best := ""
	for prefix := range recommendationByRulePrefix {
		if strings.HasPrefix(code, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return defaultRecommendation
	}
	return recommendationByRulePrefix[best]
}

type ruffLocation struct {
	Row int `json:"row"`
}

type ruffIssue struct {
	Code        string       `json:"code"`
	Message     string       `json:"message"`
	Filename    string       `json:"filename"`
	Location    ruffLocation `json:"location"`
	EndLocation ruffLocation `json:"end_location"`
}

// runLint invokes ruff against the repository root and converts its issue
// list into static findings with confidence 1.0. A missing binary,
// timeout, or unparseable output degrades to zero findings.
func (s *Skill) runLint(ctx context.Context, actx *skill.Context) []domain.Finding {
	out, err := s.runTool(ctx, lintTimeout, "ruff", "check", "--output-format=json", actx.RepoPath)
	if err != nil || len(out) == 0 {
		return nil
	}

	var issues []ruffIssue
	if err := json.Unmarshal(out, &issues); err != nil {
		return nil
	}

	findings := make([]domain.Finding, 0, len(issues))
	for _, issue := range issues {
		title := issue.Message
		if title == "" {
			title = "Linting issue"
		}
		findings = append(findings, s.NewFinding(skill.FindingParams{
			Title:          title,
			Severity:       string(lintSeverity(issue.Code)),
			Category:       "linting",
			FilePath:       issue.Filename,
			LineStart:      issue.Location.Row,
			LineEnd:        issue.EndLocation.Row,
			Recommendation: lintRecommendation(issue.Code),
			Source:         string(domain.SourceStatic),
			Confidence:     1.0,
			Metadata:       map[string]any{"rule_code": issue.Code},
		}))
	}
	return findings
}
