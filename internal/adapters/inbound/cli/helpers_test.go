package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeConfig disables the package manager so command tests stay offline.
func writeConfig(t *testing.T) string {
	t.Helper()
	return writeFile(t, "version: 1\ndependencies:\n  audit: false\n  tree: false\n")
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".repocompat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
