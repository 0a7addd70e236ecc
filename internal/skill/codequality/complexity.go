package codequality

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/sysaudit/sysaudit/internal/skill"
)

// FunctionComplexity is one function's entry in the complexity tool output.
type FunctionComplexity struct {
	Name       string `json:"name"`
	Complexity int    `json:"complexity"`
	LineStart  int    `json:"lineno"`
	LineEnd    int    `json:"endline"`
}

// ComplexityMetrics aggregates complexity per file: summed cyclomatic
// complexity and summed line spans across the file's functions. Scoped to
// one skill invocation, never persisted.
type ComplexityMetrics struct {
	FilePath   string
	Cyclomatic int
	LOC        int
	Functions  []FunctionComplexity
}

// measureComplexity invokes radon and aggregates its per-function results
// by file. Results come back in file-path order so downstream candidate
// selection is deterministic. Tool absence, timeout, or malformed output
// degrades to an empty result.
func (s *Skill) measureComplexity(ctx context.Context, actx *skill.Context) []ComplexityMetrics {
	out, err := s.runTool(ctx, complexityTimeout, "radon", "cc", "-j", actx.RepoPath)
	if err != nil || len(out) == 0 {
		return nil
	}

	var perFile map[string]json.RawMessage
	if err := json.Unmarshal(out, &perFile); err != nil {
		return nil
	}

	paths := make([]string, 0, len(perFile))
	for path := range perFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	metrics := make([]ComplexityMetrics, 0, len(paths))
	for _, path := range paths {
		// radon reports per-file errors as an object instead of a
		// function list; skip those files.
		var functions []FunctionComplexity
		if err := json.Unmarshal(perFile[path], &functions); err != nil || len(functions) == 0 {
			continue
		}

		total := 0
		loc := 0
		for _, fn := range functions {
			total += fn.Complexity
			loc += fn.LineEnd - fn.LineStart
		}

		metrics = append(metrics, ComplexityMetrics{
			FilePath:   path,
			Cyclomatic: total,
			LOC:        loc,
			Functions:  functions,
		})
	}
	return metrics
}
