package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/modoturbo/repocompat/internal/application"
	"github.com/modoturbo/repocompat/internal/domain"
)

var quiet = application.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

type fakeScanner struct {
	result *domain.ScanResult
	err    error
}

func (f fakeScanner) Scan(rootPath string, _ ...string) (*domain.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	r.RootPath = rootPath
	return &r, nil
}

type fakeParser struct {
	units map[string]*domain.SourceUnit
}

func (p fakeParser) ParseFile(ctx context.Context, _, relPath string) (*domain.SourceUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, ok := p.units[relPath]
	if !ok {
		return nil, fmt.Errorf("%s: %w", relPath, domain.ErrFileParse)
	}
	cp := *u
	cp.Path = relPath
	return &cp, nil
}

type fakeProvider struct {
	wc       *domain.WorkingCopy
	err      error
	released atomic.Int32
}

func (p *fakeProvider) Materialize(ctx context.Context, desc domain.RepositoryDescriptor) (*domain.WorkingCopy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.wc != nil {
		return p.wc, nil
	}
	return &domain.WorkingCopy{Path: desc.LocalPath}, nil
}

func (p *fakeProvider) Describe(string) (string, string, error) { return "", "", errors.New("not a repository") }

func (p *fakeProvider) Release(*domain.WorkingCopy) error {
	p.released.Add(1)
	return nil
}

type fakeManifests struct {
	byDir map[string]*domain.Manifest
}

func (f fakeManifests) ReadManifest(dir string) (*domain.Manifest, error) {
	m, ok := f.byDir[dir]
	if !ok {
		return nil, fmt.Errorf("%s/package.json: %w", dir, domain.ErrManifestMissing)
	}
	return m, nil
}

type fakePM struct {
	mu      sync.Mutex
	tree    []domain.DependencyTreeNode
	vulns   map[string][]domain.VulnerabilityReport
	treeErr error
	audErr  error

	treeCalls  atomic.Int32
	auditCalls atomic.Int32
}

func (f *fakePM) Tree(_ context.Context, _ string) ([]domain.DependencyTreeNode, error) {
	f.treeCalls.Add(1)
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DependencyTreeNode(nil), f.tree...), nil
}

func (f *fakePM) Audit(_ context.Context, dir string) ([]domain.VulnerabilityReport, error) {
	f.auditCalls.Add(1)
	if f.audErr != nil {
		return nil, f.audErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for suffix, v := range f.vulns {
		if strings.HasSuffix(dir, suffix) {
			return v, nil
		}
	}
	return nil, nil
}

type fakeEndpoints struct {
	byRoot map[string][]domain.EndpointDescriptor
	err    error
	files  [][]string
}

func (f *fakeEndpoints) ExtractEndpoints(_ context.Context, rootPath string, files []string) ([]domain.EndpointDescriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.files = append(f.files, files)
	return f.byRoot[rootPath], nil
}
