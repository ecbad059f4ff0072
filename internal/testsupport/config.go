package testsupport

import (
	"path/filepath"
	"testing"

	"shelfsync/internal/config"
)

// NewConfig returns a default config rooted in a per-test temp directory with
// its runtime directories created.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Library.URL = "http://library.test"

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}
