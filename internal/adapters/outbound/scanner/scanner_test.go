package scanner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/scanner"
	"github.com/modoturbo/repocompat/internal/domain"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func kinds(result *domain.ScanResult) map[string]domain.FileKind {
	out := make(map[string]domain.FileKind, len(result.Files))
	for _, f := range result.Files {
		out[f.Path] = f.Kind
	}
	return out
}

func TestFileScanner_Scan(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json":                    `{"name":"app","dependencies":{"react":"^18.2.0"}}`,
		"tsconfig.json":                   `{"compilerOptions":{},"include":["src"]}`,
		"next.config.js":                  "module.exports = {}",
		".env.example":                    "API_URL=\n# comment\nexport TOKEN=x\n",
		"src/components/Button.tsx":       "export const Button = () => null",
		"src/components/Button.test.tsx":  "test('x', () => {})",
		"src/__tests__/util.ts":           "",
		"src/types/global.d.ts":           "declare const x: number",
		"src/styles/main.css":             "body {}",
		"node_modules/react/index.js":     "module.exports = {}",
		"dist/bundle.js":                  "",
		"src/services/api/UserService.ts": "export class UserService {}",
		"src/deep/nested/data.json":       "{}",
	})

	result, err := scanner.New().Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/components/Button.tsx", "src/services/api/UserService.ts"}, result.SourceFiles)

	k := kinds(result)
	assert.Equal(t, domain.FileManifest, k["package.json"])
	assert.Equal(t, domain.FileConfig, k["tsconfig.json"])
	assert.Equal(t, domain.FileConfig, k["next.config.js"])
	assert.Equal(t, domain.FileConfig, k[".env.example"])
	assert.Equal(t, domain.FileTest, k["src/components/Button.test.tsx"])
	assert.Equal(t, domain.FileTest, k["src/__tests__/util.ts"])
	assert.Equal(t, domain.FileDeclaration, k["src/types/global.d.ts"])
	assert.NotContains(t, k, "src/styles/main.css")
	assert.NotContains(t, k, "node_modules/react/index.js")
	assert.NotContains(t, k, "dist/bundle.js")
	assert.NotContains(t, k, "src/deep/nested/data.json")
	assert.Contains(t, result.Directories, "src/components")
	assert.NotContains(t, result.Directories, "node_modules")
}

func TestFileScanner_HashesAndConfigKeys(t *testing.T) {
	root := writeTree(t, map[string]string{
		"tsconfig.json": `{"compilerOptions":{},"include":["src"]}`,
		".env.example":  "API_URL=\nexport TOKEN=x\n",
		"config.yaml":   "server:\n  port: 80\nlogging: {}\n",
	})

	result, err := scanner.New().Scan(root)
	require.NoError(t, err)

	byPath := map[string]domain.FileEntry{}
	for _, f := range result.Files {
		byPath[f.Path] = f
	}
	ts := byPath["tsconfig.json"]
	assert.Len(t, ts.Hash, 64)
	assert.Equal(t, int64(len(`{"compilerOptions":{},"include":["src"]}`)), ts.Size)
	assert.Equal(t, []string{"compilerOptions", "include"}, ts.ConfigKeys)
	assert.Equal(t, []string{"API_URL", "TOKEN"}, byPath[".env.example"].ConfigKeys)
	assert.Equal(t, []string{"logging", "server"}, byPath["config.yaml"].ConfigKeys)
}

func TestFileScanner_SameContentSameHash(t *testing.T) {
	a := writeTree(t, map[string]string{"src/a.ts": "export const a = 1"})
	b := writeTree(t, map[string]string{"src/a.ts": "export const a = 1"})

	ra, err := scanner.New().Scan(a)
	require.NoError(t, err)
	rb, err := scanner.New().Scan(b)
	require.NoError(t, err)

	require.Len(t, ra.Files, 1)
	assert.Equal(t, ra.Files[0].Hash, rb.Files[0].Hash)
}

func TestFileScanner_CustomExcludePaths(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/generated/api.ts": "export const x = 1",
		"src/legacy/old.ts":    "export const y = 1",
		"src/app.ts":           "export const z = 1",
	})

	result, err := scanner.New().Scan(root, "src/generated/**", "legacy")
	require.NoError(t, err)

	assert.Equal(t, []string{"src/app.ts"}, result.SourceFiles)
}

func TestFileScanner_MissingRoot(t *testing.T) {
	_, err := scanner.New().Scan(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFileScanner_SkipsUnreadableEntries(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	root := writeTree(t, map[string]string{
		"src/ok.ts":            "export const ok = 1",
		"src/secret.ts":        "export const secret = 1",
		"src/locked/inner.ts":  "export const inner = 1",
		"src/visible/other.ts": "export const other = 1",
	})
	secret := filepath.Join(root, "src", "secret.ts")
	locked := filepath.Join(root, "src", "locked")
	require.NoError(t, os.Chmod(secret, 0))
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() {
		_ = os.Chmod(secret, 0o644)
		_ = os.Chmod(locked, 0o755)
	})

	result, err := scanner.New().Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/ok.ts", "src/visible/other.ts"}, result.SourceFiles)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, "src/locked", result.Skipped[0].Path)
	assert.Equal(t, "src/secret.ts", result.Skipped[1].Path)
	assert.Contains(t, result.Skipped[1].Reason, "permission denied")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want domain.FileKind
		ok   bool
	}{
		{"src/index.ts", domain.FileSource, true},
		{"src/App.jsx", domain.FileSource, true},
		{"lib/util.mjs", domain.FileSource, true},
		{"src/App.spec.ts", domain.FileTest, true},
		{"vite.config.ts", domain.FileConfig, true},
		{".eslintrc", domain.FileConfig, true},
		{".babelrc", domain.FileConfig, true},
		{"yarn.lock", domain.FileManifest, true},
		{"README.md", "", false},
		{"src/logo.svg", "", false},
	}
	for _, tt := range tests {
		got, ok := scanner.Classify(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestConfigKeys_Unparseable(t *testing.T) {
	assert.Empty(t, scanner.ConfigKeys("tsconfig.json", []byte("{ // comment\n")))
	assert.Empty(t, scanner.ConfigKeys("next.config.js", []byte("module.exports = {}")))
}
