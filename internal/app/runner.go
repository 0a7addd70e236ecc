// Package app wires configuration, skills, the generative client, and the
// orchestrator into the standalone audit flow used by the CLI.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sysaudit/sysaudit/internal/config"
	"github.com/sysaudit/sysaudit/internal/domain"
	"github.com/sysaudit/sysaudit/internal/llm"
	"github.com/sysaudit/sysaudit/internal/orchestrator"
	"github.com/sysaudit/sysaudit/internal/report"
	"github.com/sysaudit/sysaudit/internal/skill"
	"github.com/sysaudit/sysaudit/internal/skill/codequality"
)

// NewRegistry creates a skill registry whose built-in skills load lazily
// on first lookup.
func NewRegistry() *skill.Registry {
	return skill.NewRegistry(func(r *skill.Registry) {
		r.Register(codequality.New())

		// Future skills: architecture, dependencies, testing.
	})
}

// Options controls one audit run
type Options struct {
	RepoPath string
	Skills   []string // empty = all registered skills
	Format   report.Format
	UseLLM   bool
	Persist  bool // save a copy under the configured reports directory
}

// Result is the outcome of one audit run
type Result struct {
	Audit      *domain.Audit
	Findings   []domain.Finding
	Report     string
	ReportPath string // set when the report was persisted
	SkillsRun  []string
}

// Runner executes audits end to end
type Runner struct {
	config    *config.Config
	logger    *log.Logger
	registry  *skill.Registry
	formatter *report.Formatter
}

// NewRunner creates a new Runner instance
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		config:    cfg,
		logger:    log.New(os.Stdout, "[sysaudit] ", log.LstdFlags),
		registry:  NewRegistry(),
		formatter: report.NewFormatter(cfg.Reports.OutputDir),
	}
}

// Registry exposes the runner's skill registry for skill management
// commands.
func (r *Runner) Registry() *skill.Registry {
	return r.registry
}

// Run executes one audit: it transitions the audit record to running,
// invokes the orchestrator, and records completion or failure. Setup
// errors (missing repository, no skills) fail the audit; individual skill
// failures inside the run do not.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	startTime := time.Now()

	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := r.buildClient(ctx, opts.UseLLM)
	defer client.Close()

	audit := domain.NewAudit(opts.RepoPath)
	orch := orchestrator.New(r.registry, client, r.config, r.logger)

	r.log("Starting audit %s for %s", audit.ID, opts.RepoPath)
	audit.Start()

	findings, err := orch.Run(ctx, opts.RepoPath, opts.Skills)
	if err != nil {
		audit.Fail(err)
		return nil, err
	}
	audit.Complete(domain.Summarize(findings))
	r.log("Audit complete in %s: %d findings", time.Since(startTime).Round(time.Millisecond), len(findings))

	skillsRun := r.selectedSkillNames(opts.Skills)

	rendered, err := r.formatter.Render(audit, findings, skillsRun, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	result := &Result{
		Audit:     audit,
		Findings:  findings,
		Report:    rendered,
		SkillsRun: skillsRun,
	}

	if opts.Persist {
		path, err := r.formatter.Write(audit, rendered, opts.Format)
		if err != nil {
			return nil, fmt.Errorf("saving report: %w", err)
		}
		r.log("Report saved to %s", path)
		result.ReportPath = path
	}

	return result, nil
}

// buildClient creates the generative client for the run, probing
// availability first: when the backend is unreachable or the model is not
// loaded, the run silently degrades to static analysis only.
func (r *Runner) buildClient(ctx context.Context, useLLM bool) llm.Client {
	if !useLLM || r.config.LLM.Provider == "none" {
		return llm.NewNoopClient()
	}

	client := llm.NewFromConfig(r.config.LLM)
	if !client.IsAvailable(ctx) {
		r.log("Generative backend unavailable, continuing with static analysis only")
		client.Close()
		return llm.NewNoopClient()
	}
	return client
}

func (r *Runner) selectedSkillNames(requested []string) []string {
	if len(requested) > 0 {
		names := make([]string, 0, len(requested))
		for _, name := range requested {
			if _, ok := r.registry.Get(name); ok {
				names = append(names, name)
			}
		}
		return names
	}

	skills := r.registry.All()
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name())
	}
	return names
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.config.Verbose {
		r.logger.Printf(format, args...)
	}
}
