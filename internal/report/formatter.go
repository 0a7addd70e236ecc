// Package report renders audit results for human and machine consumers.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sysaudit/sysaudit/internal/domain"
	"github.com/sysaudit/sysaudit/internal/util"
)

// Format selects the report output format
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown report format: %s", s)
}

// maxFindingsPerSeverity caps the detailed section so reports on noisy
// codebases stay readable.
const maxFindingsPerSeverity = 20

// Formatter renders and persists audit reports
type Formatter struct {
	outputDir string
}

// NewFormatter creates a Formatter that writes into outputDir.
func NewFormatter(outputDir string) *Formatter {
	return &Formatter{outputDir: outputDir}
}

// Render formats the audit result in the requested format.
func (f *Formatter) Render(audit *domain.Audit, findings []domain.Finding, skillsRun []string, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return renderJSON(audit, findings, skillsRun)
	case FormatMarkdown:
		return renderMarkdown(audit, findings, skillsRun), nil
	}
	return "", fmt.Errorf("unknown report format: %s", format)
}

// Write persists rendered content under the output directory and returns
// the file path.
func (f *Formatter) Write(audit *domain.Audit, content string, format Format) (string, error) {
	if err := util.EnsureDir(f.outputDir); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	ext := "md"
	if format == FormatJSON {
		ext = "json"
	}
	path := filepath.Join(f.outputDir, fmt.Sprintf("audit-%s.%s", audit.ID, ext))

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

type jsonReport struct {
	RepoPath    string               `json:"repo_path"`
	AuditID     string               `json:"audit_id"`
	Status      domain.AuditStatus   `json:"status"`
	GeneratedAt time.Time            `json:"generated_at"`
	SkillsRun   []string             `json:"skills_run"`
	Summary     *domain.AuditSummary `json:"summary"`
	Findings    []domain.Finding     `json:"findings"`
}

func renderJSON(audit *domain.Audit, findings []domain.Finding, skillsRun []string) (string, error) {
	doc := jsonReport{
		RepoPath:    audit.RepoPath,
		AuditID:     audit.ID,
		Status:      audit.Status,
		GeneratedAt: time.Now(),
		SkillsRun:   skillsRun,
		Summary:     domain.Summarize(findings),
		Findings:    findings,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	return string(data), nil
}

func renderMarkdown(audit *domain.Audit, findings []domain.Finding, skillsRun []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Code Analysis Report: %s\n\n", filepath.Base(audit.RepoPath))
	fmt.Fprintf(&sb, "**Path:** `%s`\n", audit.RepoPath)
	fmt.Fprintf(&sb, "**Audit:** %s\n", audit.ID)
	fmt.Fprintf(&sb, "**Date:** %s\n", time.Now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "**Skills:** %s\n\n", strings.Join(skillsRun, ", "))
	sb.WriteString("---\n\n## Summary\n\n")
	fmt.Fprintf(&sb, "Total findings: **%d**\n\n", len(findings))

	bySeverity := groupBySeverity(findings)

	if len(findings) > 0 {
		sb.WriteString("### By Severity\n\n")
		for _, sev := range domain.SeverityOrder {
			if group := bySeverity[sev]; len(group) > 0 {
				fmt.Fprintf(&sb, "- **%s**: %d\n", titleCase(string(sev)), len(group))
			}
		}
		sb.WriteString("\n### By Skill\n\n")
		bySkill := domain.Summarize(findings).BySkill
		names := make([]string, 0, len(bySkill))
		for name := range bySkill {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "- **%s**: %d\n", name, bySkill[name])
		}
		sb.WriteString("\n---\n\n## Findings\n\n")

		for _, sev := range domain.SeverityOrder {
			group := bySeverity[sev]
			if len(group) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "### %s (%d)\n\n", titleCase(string(sev)), len(group))

			shown := group
			if len(shown) > maxFindingsPerSeverity {
				shown = shown[:maxFindingsPerSeverity]
			}
			for i := range shown {
				writeFinding(&sb, &shown[i])
			}
			if len(group) > maxFindingsPerSeverity {
				fmt.Fprintf(&sb, "_%d more %s findings omitted._\n\n", len(group)-maxFindingsPerSeverity, sev)
			}
		}
	}

	sb.WriteString("---\n\n*Generated by sysaudit*\n")
	return sb.String()
}

func writeFinding(sb *strings.Builder, f *domain.Finding) {
	fmt.Fprintf(sb, "#### %s\n\n", f.Title)
	if loc := f.Location(); loc != "" {
		fmt.Fprintf(sb, "**Location:** `%s`\n", loc)
	}
	fmt.Fprintf(sb, "**Category:** %s\n", f.Category)
	fmt.Fprintf(sb, "**Confidence:** %.0f%%\n\n", f.Confidence*100)
	if f.Description != "" {
		sb.WriteString(f.Description)
		sb.WriteString("\n\n")
	}
	if f.Recommendation != "" {
		fmt.Fprintf(sb, "**Recommendation:** %s\n\n", f.Recommendation)
	}
}

func groupBySeverity(findings []domain.Finding) map[domain.Severity][]domain.Finding {
	groups := make(map[domain.Severity][]domain.Finding)
	for _, f := range findings {
		groups[f.Severity] = append(groups[f.Severity], f)
	}
	return groups
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
