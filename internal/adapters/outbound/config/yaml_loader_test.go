package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/modoturbo/repocompat/internal/adapters/outbound/config"
	"github.com/modoturbo/repocompat/internal/domain"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, appconfig.FileName)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestYAMLLoader_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := appconfig.New().Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRunConfig(), cfg)
}

func TestYAMLLoader_ExplicitMissingFileFails(t *testing.T) {
	_, err := appconfig.New().Load(filepath.Join(t.TempDir(), "custom.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfigurationBootstrap)
}

func TestYAMLLoader_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
version: 1
concurrency:
  repositories: 2
timeouts:
  clone: 30s
scanner:
  exclude_paths: ["fixtures/**"]
dependencies:
  audit: false
endpoints:
  strategy: stub
scoring:
  penalties:
    deleted_file: 5
  rules:
    - id: no-moment
      severity: error
      dependency: moment
      dependency_change: added
store:
  dir: out/results
`)

	cfg, err := appconfig.New().Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Concurrency.Repositories)
	assert.Equal(t, 8, cfg.Concurrency.Files, "unset values keep their defaults")
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Clone)
	assert.Equal(t, time.Minute, cfg.Timeouts.Audit)
	assert.Equal(t, []string{"fixtures/**"}, cfg.Scanner.ExcludePaths)
	assert.False(t, cfg.AuditEnabled())
	assert.True(t, cfg.TreeEnabled())
	assert.Equal(t, domain.StrategyStub, cfg.Endpoints.Strategy)
	assert.Equal(t, 5, cfg.EffectivePenalties().DeletedFile)
	assert.Equal(t, 20, cfg.EffectivePenalties().RemovedDependency)
	require.Len(t, cfg.Scoring.Rules, 1)
	assert.Equal(t, "no-moment", cfg.Scoring.Rules[0].ID)
	assert.Equal(t, "out/results", cfg.Store.Dir)
}

func TestYAMLLoader_ExplicitFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ci.yaml")
	require.NoError(t, os.WriteFile(p, []byte("endpoints:\n  strategy: stub\n"), 0o644))

	cfg, err := appconfig.New().Load(p)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyStub, cfg.Endpoints.Strategy)
}

func TestYAMLLoader_EmptyFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")

	cfg, err := appconfig.New().Load(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRunConfig(), cfg)
}

func TestYAMLLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid yaml", `{{{invalid yaml`, "parsing .repocompat.yaml"},
		{"unknown key", "scannr:\n  exclude_paths: []\n", "field scannr not found"},
		{"future version", "version: 9\n", "unsupported config version 9"},
		{"bad strategy", "endpoints:\n  strategy: openapi\n", "unknown endpoint strategy"},
		{"bad severity", "scoring:\n  rules:\n    - id: x\n      severity: fatal\n      path: src/**\n", "unknown severity"},
		{"negative penalty", "scoring:\n  penalties:\n    rule_error: -1\n", "rule_error must be between 0 and 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := appconfig.New().Load(dir)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfigurationBootstrap)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
