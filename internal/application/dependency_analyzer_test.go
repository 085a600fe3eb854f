package application_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoturbo/repocompat/internal/application"
	"github.com/modoturbo/repocompat/internal/domain"
)

func appManifest(dir string) fakeManifests {
	return fakeManifests{byDir: map[string]*domain.Manifest{
		dir: {
			Path:            filepath.Join(dir, "package.json"),
			Dependencies:    map[string]string{"react": "^18.2.0", "zod": "^3.22.0"},
			DevDependencies: map[string]string{"vitest": "^1.0.0"},
		},
	}}
}

func TestDependencyAnalyzer_ParseManifest(t *testing.T) {
	dir := t.TempDir()
	a := application.NewDependencyAnalyzer(appManifest(dir), &fakePM{}, quiet)

	recs, err := a.ParseManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, []domain.DependencyRecord{
		{Name: "react", VersionRange: "^18.2.0", Scope: domain.ScopeRuntime},
		{Name: "vitest", VersionRange: "^1.0.0", Scope: domain.ScopeDev},
		{Name: "zod", VersionRange: "^3.22.0", Scope: domain.ScopeRuntime},
	}, recs)

	_, err = a.ParseManifest(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, domain.ErrManifestMissing)
}

func TestDependencyAnalyzer_Compare(t *testing.T) {
	a := application.NewDependencyAnalyzer(fakeManifests{}, &fakePM{}, quiet)
	base := &domain.Manifest{Dependencies: map[string]string{"a": "1.0.0", "b": "2.0.0"}}
	target := &domain.Manifest{Dependencies: map[string]string{"a": "1.0.0", "c": "1.0.0"}}

	cs := a.Compare(base, target)
	require.Len(t, cs.Added, 1)
	require.Len(t, cs.Removed, 1)
	require.Len(t, cs.Unchanged, 1)
	assert.Equal(t, "c", cs.Added[0].Name)
	assert.Equal(t, "b", cs.Removed[0].Name)
	assert.Equal(t, "a", cs.Unchanged[0].Name)
	assert.Empty(t, cs.Updated)
}

func TestDependencyAnalyzer_BuildTreeIsMemoized(t *testing.T) {
	dir := t.TempDir()
	pm := &fakePM{tree: []domain.DependencyTreeNode{
		{Name: "react", Version: "18.2.0", Dependencies: []domain.DependencyTreeNode{{Name: "loose-envify", Version: "1.4.0"}}},
		{Name: "vitest", Version: "1.0.4"},
	}}
	a := application.NewDependencyAnalyzer(appManifest(dir), pm, quiet)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.BuildTree(context.Background(), dir)
		}()
	}
	wg.Wait()
	tree := a.BuildTree(context.Background(), dir+string(filepath.Separator)+".")

	assert.Equal(t, int32(1), pm.treeCalls.Load())
	require.Len(t, tree, 2)
	assert.Equal(t, domain.ScopeRuntime, tree[0].Scope)
	assert.Equal(t, domain.ScopeDev, tree[1].Scope)
	assert.Empty(t, tree[0].Dependencies[0].Scope)

	a.ClearCache()
	a.BuildTree(context.Background(), dir)
	assert.Equal(t, int32(2), pm.treeCalls.Load())
}

func TestDependencyAnalyzer_BuildTreeFallsBackToDirectDependencies(t *testing.T) {
	dir := t.TempDir()
	pm := &fakePM{treeErr: fmt.Errorf("npm ls: %w", domain.ErrTimeout)}
	a := application.NewDependencyAnalyzer(appManifest(dir), pm, quiet)

	tree := a.BuildTree(context.Background(), dir)
	require.Len(t, tree, 3)
	assert.Equal(t, domain.DependencyTreeNode{Name: "react", Version: "^18.2.0", Scope: domain.ScopeRuntime}, tree[0])

	empty := a.BuildTree(context.Background(), filepath.Join(dir, "nothing"))
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDependencyAnalyzer_AuditVulnerabilities(t *testing.T) {
	dir := t.TempDir()
	pm := &fakePM{vulns: map[string][]domain.VulnerabilityReport{
		filepath.Base(dir): {{Package: "lodash", Version: "4.17.20", Severity: domain.VulnHigh, Title: "Prototype Pollution"}},
	}}
	a := application.NewDependencyAnalyzer(appManifest(dir), pm, quiet)

	first := a.AuditVulnerabilities(context.Background(), dir)
	second := a.AuditVulnerabilities(context.Background(), dir)
	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), pm.auditCalls.Load())
}

func TestDependencyAnalyzer_AuditUnavailableIsEmptyAndNotCached(t *testing.T) {
	dir := t.TempDir()
	pm := &fakePM{audErr: fmt.Errorf("npm audit: %w", domain.ErrAuditUnavailable)}
	a := application.NewDependencyAnalyzer(appManifest(dir), pm, quiet)

	vulns := a.AuditVulnerabilities(context.Background(), dir)
	assert.NotNil(t, vulns)
	assert.Empty(t, vulns)

	a.AuditVulnerabilities(context.Background(), dir)
	assert.Equal(t, int32(2), pm.auditCalls.Load())
}

func TestDependencyAnalyzer_Inventory(t *testing.T) {
	dir := t.TempDir()

	t.Run("everything enabled", func(t *testing.T) {
		pm := &fakePM{tree: []domain.DependencyTreeNode{{Name: "react", Version: "18.2.0"}}}
		info := application.NewDependencyAnalyzer(appManifest(dir), pm, quiet).Inventory(context.Background(), dir)
		assert.Len(t, info.Records, 3)
		assert.Len(t, info.Tree, 1)
		assert.NotNil(t, info.Vulnerabilities)
	})

	t.Run("audit and tree disabled", func(t *testing.T) {
		pm := &fakePM{}
		a := application.NewDependencyAnalyzer(appManifest(dir), pm, quiet,
			application.WithAudit(false), application.WithTree(false))
		info := a.Inventory(context.Background(), dir)
		assert.Len(t, info.Records, 3)
		assert.Nil(t, info.Tree)
		assert.Nil(t, info.Vulnerabilities)
		assert.Zero(t, pm.treeCalls.Load())
		assert.Zero(t, pm.auditCalls.Load())
	})

	t.Run("missing manifest", func(t *testing.T) {
		pm := &fakePM{treeErr: errors.New("no package.json")}
		info := application.NewDependencyAnalyzer(fakeManifests{}, pm, quiet).Inventory(context.Background(), dir)
		assert.NotNil(t, info.Records)
		assert.Empty(t, info.Records)
		assert.Empty(t, info.Tree)
	})
}
