package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/modoturbo/repocompat/internal/domain"
	"github.com/modoturbo/repocompat/internal/domain/deps"
)

// DependencyAnalyzer reads manifests and queries the package manager. Trees
// and audits are memoized per absolute directory for the life of the
// analyzer; concurrent callers for the same directory share one invocation.
type DependencyAnalyzer struct {
	manifests domain.ManifestReader
	pm        domain.PackageManager
	audit     bool
	tree      bool
	logger    *slog.Logger

	trees  sync.Map // dir -> []domain.DependencyTreeNode
	audits sync.Map // dir -> []domain.VulnerabilityReport
	group  singleflight.Group
}

func NewDependencyAnalyzer(manifests domain.ManifestReader, pm domain.PackageManager, opts ...Option) *DependencyAnalyzer {
	o := buildOptions(opts)
	return &DependencyAnalyzer{
		manifests: manifests,
		pm:        pm,
		audit:     o.audit,
		tree:      o.tree,
		logger:    o.logger,
	}
}

// Manifest loads the manifest of dir. A missing manifest wraps
// domain.ErrManifestMissing.
func (a *DependencyAnalyzer) Manifest(dir string) (*domain.Manifest, error) {
	return a.manifests.ReadManifest(dir)
}

// ParseManifest returns the flattened dependency records of dir.
func (a *DependencyAnalyzer) ParseManifest(dir string) ([]domain.DependencyRecord, error) {
	m, err := a.manifests.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	return m.Records(), nil
}

// Compare diffs two manifests. Either side may be nil.
func (a *DependencyAnalyzer) Compare(base, target *domain.Manifest) domain.DependencyChangeSet {
	return deps.Compare(base, target)
}

// BuildTree returns the resolved dependency tree of dir. When the package
// manager cannot produce one it falls back to the direct dependencies as a
// flat list. It never fails.
func (a *DependencyAnalyzer) BuildTree(ctx context.Context, dir string) []domain.DependencyTreeNode {
	key := cacheKey(dir)
	if v, ok := a.trees.Load(key); ok {
		return v.([]domain.DependencyTreeNode)
	}
	v, _, _ := a.group.Do("tree:"+key, func() (any, error) {
		if v, ok := a.trees.Load(key); ok {
			return v, nil
		}
		nodes, err := a.pm.Tree(ctx, dir)
		if err != nil {
			a.logger.Warn("dependency tree unavailable, using direct dependencies", "path", dir, "error", err)
			return a.flatTree(dir), nil
		}
		nodes = a.annotateScopes(dir, nodes)
		a.trees.Store(key, nodes)
		return nodes, nil
	})
	return v.([]domain.DependencyTreeNode)
}

func (a *DependencyAnalyzer) flatTree(dir string) []domain.DependencyTreeNode {
	recs, err := a.ParseManifest(dir)
	if err != nil {
		return []domain.DependencyTreeNode{}
	}
	nodes := make([]domain.DependencyTreeNode, 0, len(recs))
	for _, r := range recs {
		nodes = append(nodes, domain.DependencyTreeNode{Name: r.Name, Version: r.VersionRange, Scope: r.Scope})
	}
	return nodes
}

// annotateScopes marks top-level nodes with the scope declared in the manifest.
func (a *DependencyAnalyzer) annotateScopes(dir string, nodes []domain.DependencyTreeNode) []domain.DependencyTreeNode {
	recs, err := a.ParseManifest(dir)
	if err != nil {
		return nodes
	}
	scopes := make(map[string]domain.DependencyScope, len(recs))
	for _, r := range recs {
		scopes[r.Name] = r.Scope
	}
	for i := range nodes {
		if s, ok := scopes[nodes[i].Name]; ok && nodes[i].Scope == "" {
			nodes[i].Scope = s
		}
	}
	return nodes
}

// AuditVulnerabilities returns the audit findings of dir. An unavailable or
// unparseable audit yields an empty list and is not cached.
func (a *DependencyAnalyzer) AuditVulnerabilities(ctx context.Context, dir string) []domain.VulnerabilityReport {
	key := cacheKey(dir)
	if v, ok := a.audits.Load(key); ok {
		return v.([]domain.VulnerabilityReport)
	}
	v, _, _ := a.group.Do("audit:"+key, func() (any, error) {
		if v, ok := a.audits.Load(key); ok {
			return v, nil
		}
		vulns, err := a.pm.Audit(ctx, dir)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, context.Canceled) {
				level = slog.LevelDebug
			}
			a.logger.Log(ctx, level, "vulnerability audit unavailable", "path", dir, "error", err)
			return []domain.VulnerabilityReport{}, nil
		}
		if vulns == nil {
			vulns = []domain.VulnerabilityReport{}
		}
		a.audits.Store(key, vulns)
		return vulns, nil
	})
	return v.([]domain.VulnerabilityReport)
}

// Inventory bundles the records, tree and audit of dir. Tree and audit are
// skipped when disabled. A missing manifest yields empty records.
func (a *DependencyAnalyzer) Inventory(ctx context.Context, dir string) *domain.DependencyInfo {
	info := &domain.DependencyInfo{Records: []domain.DependencyRecord{}}
	recs, err := a.ParseManifest(dir)
	switch {
	case err == nil:
		info.Records = recs
	case errors.Is(err, domain.ErrManifestMissing):
		a.logger.Debug("no dependency manifest", "path", dir)
	default:
		a.logger.Warn("reading dependency manifest", "path", dir, "error", err)
	}
	if a.tree {
		info.Tree = a.BuildTree(ctx, dir)
	}
	if a.audit {
		info.Vulnerabilities = a.AuditVulnerabilities(ctx, dir)
	}
	return info
}

// ClearCache drops every memoized tree and audit.
func (a *DependencyAnalyzer) ClearCache() {
	a.trees.Range(func(k, _ any) bool { a.trees.Delete(k); return true })
	a.audits.Range(func(k, _ any) bool { a.audits.Delete(k); return true })
}

func cacheKey(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	return abs
}

// manifestOrEmpty degrades a missing manifest to nil so comparisons treat the
// repository as declaring no dependencies.
func (a *DependencyAnalyzer) manifestOrEmpty(dir string) (*domain.Manifest, error) {
	m, err := a.manifests.ReadManifest(dir)
	if err != nil {
		if errors.Is(err, domain.ErrManifestMissing) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest of %s: %w", dir, err)
	}
	return m, nil
}
