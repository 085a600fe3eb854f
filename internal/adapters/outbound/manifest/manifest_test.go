package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/manifest"
	"github.com/modoturbo/repocompat/internal/domain"
)

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "name": "shop",
  "version": "1.2.0",
  "dependencies": {"react": "^18.2.0", "axios": "1.6.0"},
  "devDependencies": {"typescript": "~5.3.0", "react": "^18.2.0"},
  "optionalDependencies": {"fsevents": "^2.3.0"},
  "peerDependencies": {"react-dom": "^18.0.0"}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(content), 0o644))

	m, err := manifest.New().ReadManifest(dir)
	require.NoError(t, err)

	assert.Equal(t, "shop", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, map[string]string{"react": "^18.2.0", "axios": "1.6.0", "fsevents": "^2.3.0"}, m.Dependencies)
	assert.Equal(t, map[string]string{"typescript": "~5.3.0", "react": "^18.2.0"}, m.DevDependencies)

	records := m.Records()
	require.Len(t, records, 4)
	assert.Equal(t, "axios", records[0].Name)
	assert.Equal(t, domain.ScopeRuntime, records[2].Scope, "react is reported once as runtime")
	assert.Equal(t, domain.ScopeDev, records[3].Scope)
}

func TestReadManifest_Missing(t *testing.T) {
	_, err := manifest.New().ReadManifest(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrManifestMissing)
}

func TestReadManifest_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("{not json"), 0o644))

	_, err := manifest.New().ReadManifest(dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrManifestMissing)
}

func TestParse_EmptySections(t *testing.T) {
	m, err := manifest.Parse("package.json", []byte(`{"name":"bare"}`))
	require.NoError(t, err)
	assert.Empty(t, m.Dependencies)
	assert.Empty(t, m.Records())
}
