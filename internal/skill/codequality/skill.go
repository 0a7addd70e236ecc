// Package codequality implements the code-quality analysis skill: an
// external lint pass, an external complexity pass, generative deep
// analysis of the most complex files, and a final deduplication step.
package codequality

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/sysaudit/sysaudit/internal/domain"
	"github.com/sysaudit/sysaudit/internal/llm"
	"github.com/sysaudit/sysaudit/internal/skill"
	"github.com/sysaudit/sysaudit/internal/util"
)

const (
	lintTimeout       = 60 * time.Second
	complexityTimeout = 120 * time.Second

	// maxDeepFiles bounds generative-backend cost per run.
	maxDeepFiles = 5

	// maxCodeChars truncates file content sent to the model so prompts
	// stay inside the context window.
	maxCodeChars = 8000

	dedupTitleChars = 50
)

// toolRunner invokes an external tool and returns its stdout. Tests
// substitute this to simulate tool output without the binaries installed.
type toolRunner func(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error)

// runCommand is the default toolRunner. Linters exit nonzero when they
// find issues, so a failed exit still yields stdout when it carries output.
func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(out) > 0 {
			return out, nil
		}
		return nil, err
	}
	return out, nil
}

// Skill analyzes code for complexity, smells, and maintainability.
type Skill struct {
	skill.Base
	runTool toolRunner
}

// New creates the code-quality skill.
func New() *Skill {
	return &Skill{
		Base: skill.Base{
			SkillName:         "code-quality",
			SkillVersion:      "1.0.0",
			SkillDescription:  "Analyzes code for complexity, smells, and maintainability",
			SkillStakeholders: []string{"developer", "tech-lead"},
			SkillStaticTools:  []string{"ruff", "radon"},
		},
		runTool: runCommand,
	}
}

// Analyze runs the four-stage pipeline. Every stage degrades to zero
// findings on tool absence, timeout, or malformed output; the skill itself
// never fails for those reasons.
func (s *Skill) Analyze(ctx context.Context, actx *skill.Context, client llm.Client) ([]domain.Finding, error) {
	var findings []domain.Finding

	// Stage 1: external lint
	findings = append(findings, s.runLint(ctx, actx)...)

	// Stage 2: external complexity measurement
	metrics := s.measureComplexity(ctx, actx)

	// Stage 3: generative deep analysis of over-threshold files, capped
	// to bound backend cost. Candidates are taken in iteration order,
	// not ranked by complexity.
	threshold := actx.Config.Analysis.ComplexityThreshold
	candidates := make([]ComplexityMetrics, 0, maxDeepFiles)
	for _, m := range metrics {
		if m.Cyclomatic <= threshold {
			continue
		}
		candidates = append(candidates, m)
		if len(candidates) == maxDeepFiles {
			break
		}
	}
	for _, m := range candidates {
		findings = append(findings, s.deepAnalyze(ctx, actx, client, m)...)
	}

	// Stage 4: deduplication
	return dedupe(findings), nil
}

// Prompts lists the skill's prompt templates.
func (s *Skill) Prompts() map[string]string {
	refs := make(map[string]string, len(promptTemplates))
	for name := range promptTemplates {
		refs[name] = name + ".tmpl"
	}
	return refs
}

type dedupKey struct {
	file  string
	line  int
	title string
}

// dedupe collapses findings sharing (file, start line, first 50 title
// characters), keeping the first occurrence. Running it on its own output
// is a no-op.
func dedupe(findings []domain.Finding) []domain.Finding {
	seen := make(map[dedupKey]struct{}, len(findings))
	unique := make([]domain.Finding, 0, len(findings))

	for _, f := range findings {
		key := dedupKey{
			file:  f.FilePath,
			line:  f.LineStart,
			title: util.TruncateRunes(f.Title, dedupTitleChars),
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, f)
	}
	return unique
}
