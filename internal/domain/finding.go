package domain

import (
	"strconv"
	"strings"
)

// Severity represents the importance level of a finding
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// SeverityOrder lists severities from most to least severe, used for
// grouping findings in reports.
var SeverityOrder = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// Rank returns the display position of the severity (0 = most severe).
// Unknown severities sort last.
func (s Severity) Rank() int {
	for i, sev := range SeverityOrder {
		if s == sev {
			return i
		}
	}
	return len(SeverityOrder)
}

// ParseSeverity converts a string to a Severity, case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	switch sev {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return sev, true
	}
	return "", false
}

// Source identifies the provenance of a finding
type Source string

const (
	SourceStatic   Source = "static"
	SourceLLM      Source = "llm"
	SourceCombined Source = "combined"
)

// ParseSource converts a string to a Source, case-insensitively.
func ParseSource(s string) (Source, bool) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	switch src {
	case SourceStatic, SourceLLM, SourceCombined:
		return src, true
	}
	return "", false
}

// Effort estimates the work required to fix a finding
type Effort string

const (
	EffortTrivial Effort = "trivial"
	EffortSmall   Effort = "small"
	EffortMedium  Effort = "medium"
	EffortLarge   Effort = "large"
)

// ParseEffort converts a string to an Effort, case-insensitively.
func ParseEffort(s string) (Effort, bool) {
	e := Effort(strings.ToLower(strings.TrimSpace(s)))
	switch e {
	case EffortTrivial, EffortSmall, EffortMedium, EffortLarge:
		return e, true
	}
	return "", false
}

// Finding represents a single normalized issue produced by a skill.
// It is immutable after creation; Confidence is always set (1.0 for
// static findings) and SkillName always matches the producing skill.
type Finding struct {
	SkillName      string         `json:"skill_name"`
	Severity       Severity       `json:"severity"`
	Category       string         `json:"category"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	FilePath       string         `json:"file_path,omitempty"`
	LineStart      int            `json:"line_start,omitempty"`
	LineEnd        int            `json:"line_end,omitempty"`
	CodeSnippet    string         `json:"code_snippet,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	EffortEstimate Effort         `json:"effort_estimate,omitempty"`
	Source         Source         `json:"source"`
	Confidence     float64        `json:"confidence"`
	Stakeholders   []string       `json:"stakeholders,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Location returns "path:line" for findings with a file location,
// or an empty string when the finding has none.
func (f *Finding) Location() string {
	if f.FilePath == "" {
		return ""
	}
	loc := f.FilePath
	if f.LineStart > 0 {
		loc += ":" + strconv.Itoa(f.LineStart)
	}
	return loc
}
