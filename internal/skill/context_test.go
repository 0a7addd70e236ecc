package skill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysaudit/sysaudit/internal/config"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('hi')\n"), 0o644))

	actx := NewContext(dir, config.DefaultConfig())

	content, err := actx.ReadFile("app.py")
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", content)

	// Absolute paths, as emitted by external tools, are read as-is.
	content, err = actx.ReadFile(filepath.Join(dir, "app.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", content)
}

func TestReadFileMissing(t *testing.T) {
	actx := NewContext(t.TempDir(), config.DefaultConfig())

	_, err := actx.ReadFile("nope.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found: nope.py")
}

func TestDetectLanguage(t *testing.T) {
	actx := NewContext(".", config.DefaultConfig())

	tests := []struct {
		path string
		want string
	}{
		{"src/main.py", "python"},
		{"cmd/server.go", "go"},
		{"app/Main.TSX", "typescript"},
		{"config.yml", "yaml"},
		{"README.md", "markdown"},
		{"Makefile", "text"},
		{"data.unknown", "text"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, actx.DetectLanguage(tt.path), tt.path)
	}
}
