package skill

import (
	"bytes"
	"context"
	"sync"
	"text/template"

	"github.com/sysaudit/sysaudit/internal/domain"
	"github.com/sysaudit/sysaudit/internal/llm"
)

// Skill is the contract every analysis unit implements. Skills are
// stateless between runs and registered once per process; Analyze may be
// called many times against different contexts.
type Skill interface {
	Name() string
	Version() string
	Description() string
	Stakeholders() []string
	StaticTools() []string

	// Analyze runs the skill against a repository and returns its findings.
	Analyze(ctx context.Context, actx *Context, client llm.Client) ([]domain.Finding, error)

	// Prompts maps prompt names to their template references. Skills
	// without generative prompts return an empty map.
	Prompts() map[string]string
}

// Base carries a skill's identity fields and provides the
// finding-construction helper, so individual skills never hand-roll
// skill name, stakeholders, or enum normalization.
type Base struct {
	SkillName         string
	SkillVersion      string
	SkillDescription  string
	SkillStakeholders []string
	SkillStaticTools  []string

	tmplOnce sync.Once
	tmpl     *template.Template
	tmplErr  error
}

func (b *Base) Name() string           { return b.SkillName }
func (b *Base) Version() string        { return b.SkillVersion }
func (b *Base) Description() string    { return b.SkillDescription }
func (b *Base) Stakeholders() []string { return b.SkillStakeholders }
func (b *Base) StaticTools() []string  { return b.SkillStaticTools }

// Prompts returns no templates by default.
func (b *Base) Prompts() map[string]string { return map[string]string{} }

// FindingParams are the raw inputs to NewFinding. Severity, Source, and
// Effort are free-form strings normalized case-insensitively; an empty
// Source means static, and a zero Confidence defaults to 1.0.
type FindingParams struct {
	Title          string
	Severity       string
	Category       string
	Description    string
	FilePath       string
	LineStart      int
	LineEnd        int
	CodeSnippet    string
	Recommendation string
	Effort         string
	Source         string
	Confidence     float64
	Metadata       map[string]any
}

// NewFinding builds a Finding stamped with this skill's name and
// stakeholders. Unrecognized severity strings fall back to medium.
func (b *Base) NewFinding(p FindingParams) domain.Finding {
	severity, ok := domain.ParseSeverity(p.Severity)
	if !ok {
		severity = domain.SeverityMedium
	}

	source, ok := domain.ParseSource(p.Source)
	if !ok {
		source = domain.SourceStatic
	}

	effort, _ := domain.ParseEffort(p.Effort)

	confidence := p.Confidence
	if confidence == 0 {
		confidence = 1.0
	}

	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return domain.Finding{
		SkillName:      b.SkillName,
		Severity:       severity,
		Category:       p.Category,
		Title:          p.Title,
		Description:    p.Description,
		FilePath:       p.FilePath,
		LineStart:      p.LineStart,
		LineEnd:        p.LineEnd,
		CodeSnippet:    p.CodeSnippet,
		Recommendation: p.Recommendation,
		EffortEstimate: effort,
		Source:         source,
		Confidence:     confidence,
		Stakeholders:   b.SkillStakeholders,
		Metadata:       metadata,
	}
}

// RenderPrompt lazily parses the skill's prompt templates on first use and
// executes the named one. The template set is parsed exactly once per
// skill instance.
func (b *Base) RenderPrompt(templates map[string]string, name string, data any) (string, error) {
	b.tmplOnce.Do(func() {
		b.tmpl = template.New(b.SkillName)
		for tmplName, text := range templates {
			if _, err := b.tmpl.New(tmplName).Parse(text); err != nil {
				b.tmplErr = err
				return
			}
		}
	})
	if b.tmplErr != nil {
		return "", b.tmplErr
	}

	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
