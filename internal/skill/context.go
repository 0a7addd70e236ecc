package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysaudit/sysaudit/internal/config"
)

// Context is the read-only handle skills receive during analysis. It is
// created once per audit run and shared across all skills; skills must not
// mutate it.
type Context struct {
	RepoPath string
	Config   *config.Config
	Metadata map[string]any
}

// NewContext creates the analysis context for one audit run.
func NewContext(repoPath string, cfg *config.Config) *Context {
	return &Context{
		RepoPath: repoPath,
		Config:   cfg,
		Metadata: make(map[string]any),
	}
}

// ReadFile reads a file from the repository. Relative paths are resolved
// against the repository root; absolute paths (as emitted by external
// tools) are read as-is.
func (c *Context) ReadFile(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(c.RepoPath, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// languageByExtension maps file extensions to language names.
var languageByExtension = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".jsx":   "javascript",
	".java":  "java",
	".kt":    "kotlin",
	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".cpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".hpp":   "cpp",
	".swift": "swift",
	".scala": "scala",
	".sh":    "bash",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".xml":   "xml",
	".html":  "html",
	".css":   "css",
	".sql":   "sql",
	".md":    "markdown",
}

// DetectLanguage returns the programming language for a file path based
// on its extension, or "text" when unrecognized.
func (c *Context) DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languageByExtension[ext]; ok {
		return lang
	}
	return "text"
}
