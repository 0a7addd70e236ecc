package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditStatus tracks the lifecycle of an audit run
type AuditStatus string

const (
	AuditPending   AuditStatus = "pending"
	AuditRunning   AuditStatus = "running"
	AuditCompleted AuditStatus = "completed"
	AuditFailed    AuditStatus = "failed"
)

// Audit records one analysis run against a repository. The runner
// transitions it pending → running before the orchestrator executes, then
// running → completed on success or running → failed with the error
// message if the run itself fails. Per-skill failures inside a run never
// mark the audit failed.
type Audit struct {
	ID          string        `json:"id"`
	RepoPath    string        `json:"repo_path"`
	Status      AuditStatus   `json:"status"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	ErrorMsg    string        `json:"error_message,omitempty"`
	Summary     *AuditSummary `json:"summary,omitempty"`
}

// NewAudit creates a pending audit for the given repository path.
func NewAudit(repoPath string) *Audit {
	return &Audit{
		ID:       uuid.NewString(),
		RepoPath: repoPath,
		Status:   AuditPending,
	}
}

// Start marks the audit as running.
func (a *Audit) Start() {
	a.Status = AuditRunning
	a.StartedAt = time.Now()
}

// Complete marks the audit as completed with the given summary.
func (a *Audit) Complete(summary *AuditSummary) {
	a.Status = AuditCompleted
	a.CompletedAt = time.Now()
	a.Summary = summary
}

// Fail marks the audit as failed, recording the error.
func (a *Audit) Fail(err error) {
	a.Status = AuditFailed
	a.CompletedAt = time.Now()
	if err != nil {
		a.ErrorMsg = err.Error()
	}
}

// Duration returns the elapsed run time, or zero before completion.
func (a *Audit) Duration() time.Duration {
	if a.StartedAt.IsZero() || a.CompletedAt.IsZero() {
		return 0
	}
	return a.CompletedAt.Sub(a.StartedAt)
}

// AuditSummary aggregates finding counts for a completed audit
type AuditSummary struct {
	TotalFindings int              `json:"total_findings"`
	BySeverity    map[Severity]int `json:"by_severity"`
	BySkill       map[string]int   `json:"by_skill"`
}

// Summarize builds an AuditSummary from a finding list.
func Summarize(findings []Finding) *AuditSummary {
	s := &AuditSummary{
		TotalFindings: len(findings),
		BySeverity:    make(map[Severity]int),
		BySkill:       make(map[string]int),
	}
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		s.BySkill[f.SkillName]++
	}
	return s
}

// Count returns the number of findings with the given severity.
func (s *AuditSummary) Count(sev Severity) int {
	if s == nil {
		return 0
	}
	return s.BySeverity[sev]
}
