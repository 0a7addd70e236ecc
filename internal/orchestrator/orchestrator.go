// Package orchestrator coordinates skill execution for one audit run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sysaudit/sysaudit/internal/config"
	"github.com/sysaudit/sysaudit/internal/domain"
	"github.com/sysaudit/sysaudit/internal/llm"
	"github.com/sysaudit/sysaudit/internal/skill"
	"github.com/sysaudit/sysaudit/internal/util"
)

// Setup errors abort a run before any skill executes. Everything else
// degrades: a failing skill is logged and contributes zero findings.
var (
	ErrRepoNotFound  = errors.New("repository path does not exist")
	ErrNoValidSkills = errors.New("no valid skills found")
	ErrNoSkills      = errors.New("no skills available for analysis")
)

// Orchestrator selects skills, builds the shared analysis context, runs
// each skill with failure isolation, and confidence-filters the aggregate.
type Orchestrator struct {
	registry *skill.Registry
	client   llm.Client
	cfg      *config.Config
	logger   *log.Logger
}

// New creates an Orchestrator. The registry and client are owned by the
// caller; Close on the client remains the caller's responsibility.
func New(registry *skill.Registry, client llm.Client, cfg *config.Config, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		client:   client,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run analyzes the repository with the named skills (all registered skills
// when skillNames is empty) and returns the findings at or above the
// configured confidence floor. Skills run sequentially in selection order;
// one skill's failure never prevents the others from running.
func (o *Orchestrator) Run(ctx context.Context, repoPath string, skillNames []string) ([]domain.Finding, error) {
	if !util.DirExists(repoPath) {
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, repoPath)
	}

	skills, err := o.resolveSkills(skillNames)
	if err != nil {
		return nil, err
	}

	actx := skill.NewContext(repoPath, o.cfg)

	var all []domain.Finding
	for _, s := range skills {
		findings, err := o.runSkill(ctx, s, actx)
		if err != nil {
			o.logger.Printf("Warning: skill %s failed: %v", s.Name(), err)
			continue
		}
		all = append(all, findings...)
	}

	filtered := make([]domain.Finding, 0, len(all))
	for _, f := range all {
		if f.Confidence >= o.cfg.Analysis.MinConfidence {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}

// resolveSkills maps explicit names to registered skills, dropping unknown
// names, or returns every registered skill when no names are given.
func (o *Orchestrator) resolveSkills(names []string) ([]skill.Skill, error) {
	if len(names) > 0 {
		skills := make([]skill.Skill, 0, len(names))
		for _, name := range names {
			s, ok := o.registry.Get(name)
			if !ok {
				o.logger.Printf("Warning: unknown skill %q, skipping", name)
				continue
			}
			skills = append(skills, s)
		}
		if len(skills) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoValidSkills, strings.Join(names, ", "))
		}
		return skills, nil
	}

	skills := o.registry.All()
	if len(skills) == 0 {
		return nil, ErrNoSkills
	}
	return skills, nil
}

// runSkill executes one skill, converting a panic into an error so a
// misbehaving skill cannot take down the run.
func (o *Orchestrator) runSkill(ctx context.Context, s skill.Skill, actx *skill.Context) (findings []domain.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("skill %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Analyze(ctx, actx, o.client)
}
