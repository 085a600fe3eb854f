package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/manifest"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/parser"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/routes"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/scanner"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/store"
	"github.com/modoturbo/repocompat/internal/adapters/outbound/workspace"
	"github.com/modoturbo/repocompat/internal/application"
	"github.com/modoturbo/repocompat/internal/domain"
)

const (
	baseFixture   = "../../../../testdata/repos/base"
	targetFixture = "../../../../testdata/repos/target"
)

// noopPM stands in for npm so tests never execute processes.
type noopPM struct{}

func (noopPM) Tree(context.Context, string) ([]domain.DependencyTreeNode, error) {
	return nil, domain.ErrAuditUnavailable
}

func (noopPM) Audit(context.Context, string) ([]domain.VulnerabilityReport, error) {
	return nil, nil
}

func newTestServices(t *testing.T) Services {
	t.Helper()
	cfg := domain.DefaultRunConfig()
	quiet := application.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	endpoints, err := routes.New(cfg.Endpoints.Strategy)
	require.NoError(t, err)

	extractor := application.NewStructureExtractor(scanner.New(), parser.New(), quiet)
	deps := application.NewDependencyAnalyzer(manifest.New(), noopPM{}, quiet)
	return Services{
		Compatibility: application.NewCompatibilityService(
			application.NewSnapshotBuilder(workspace.New(), extractor, quiet),
			deps,
			application.NewEndpointValidator(endpoints, quiet),
			store.New(t.TempDir()),
			cfg,
			quiet,
		),
		Dependencies: deps,
		Structure:    extractor,
	}
}

func call(t *testing.T, h func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error), args map[string]any) (*mcplib.CallToolResult, string) {
	t.Helper()
	var req mcplib.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	return res, text.Text
}

func TestNewServer(t *testing.T) {
	s := NewServer(newTestServices(t), "test")
	require.NotNil(t, s)

	tools := s.ListTools()
	expectedTools := []string{
		"repocompat_analyze",
		"repocompat_get_result",
		"repocompat_list_results",
		"repocompat_compare_manifests",
		"repocompat_extract_structure",
	}
	for _, name := range expectedTools {
		_, exists := tools[name]
		assert.True(t, exists, "tool %q should be registered", name)
	}
	assert.Len(t, tools, len(expectedTools))
}

func TestAnalyzeThenFetch(t *testing.T) {
	svc := newTestServices(t)

	res, text := call(t, handleAnalyze(svc), map[string]any{
		"base":    baseFixture,
		"targets": targetFixture + ", " + baseFixture,
	})
	require.False(t, res.IsError, text)

	var result domain.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(text), &result))
	assert.Len(t, result.Comparisons, 2)

	res, text = call(t, handleGetResult(svc), map[string]any{"id": result.ID})
	require.False(t, res.IsError, text)
	assert.Contains(t, text, result.ID)

	res, text = call(t, handleListResults(svc), map[string]any{"limit": 5})
	require.False(t, res.IsError, text)
	var list []resultSummary
	require.NoError(t, json.Unmarshal([]byte(text), &list))
	require.Len(t, list, 1)
	assert.Equal(t, result.ID, list[0].ID)
	assert.Equal(t, 2, list[0].Comparisons)
}

func TestAnalyze_MissingArguments(t *testing.T) {
	res, _ := call(t, handleAnalyze(newTestServices(t)), map[string]any{"base": baseFixture})
	assert.True(t, res.IsError)
}

func TestGetResult_NotFound(t *testing.T) {
	res, text := call(t, handleGetResult(newTestServices(t)), map[string]any{"id": "20260101T000000Z-deadbeef"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "no analysis result")
}

func TestCompareManifests(t *testing.T) {
	res, text := call(t, handleCompareManifests(newTestServices(t)), map[string]any{
		"base_path":   baseFixture,
		"target_path": targetFixture,
	})
	require.False(t, res.IsError, text)

	var cs domain.DependencyChangeSet
	require.NoError(t, json.Unmarshal([]byte(text), &cs))
	require.Len(t, cs.Added, 1)
	assert.Equal(t, "dayjs", cs.Added[0].Name)
	require.Len(t, cs.Removed, 1)
	assert.Equal(t, "lodash", cs.Removed[0].Name)
}

func TestExtractStructure(t *testing.T) {
	res, text := call(t, handleExtractStructure(newTestServices(t)), map[string]any{"path": targetFixture})
	require.False(t, res.IsError, text)
	assert.Contains(t, text, "src/services/OrderService.ts")
	assert.Contains(t, text, "src/components/Button.tsx")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
