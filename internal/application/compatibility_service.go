package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/modoturbo/repocompat/internal/domain"
	"github.com/modoturbo/repocompat/internal/domain/deps"
	"github.com/modoturbo/repocompat/internal/domain/scoring"
)

// ErrNoTargets is returned when an analysis request names no target.
var ErrNoTargets = errors.New("analysis requires at least one target repository")

// CompatibilityService orchestrates a run:
// collect snapshots → inventory dependencies → compare base with each target →
// score → summarize → persist.
type CompatibilityService struct {
	snapshots *SnapshotBuilder
	deps      *DependencyAnalyzer
	endpoints *EndpointValidator
	store     domain.ResultStore
	assessor  *scoring.Assessor
	version   int

	workers int
	logger  *slog.Logger
	now     func() time.Time
	newID   func(time.Time) string
}

func NewCompatibilityService(
	snapshots *SnapshotBuilder,
	deps *DependencyAnalyzer,
	endpoints *EndpointValidator,
	store domain.ResultStore,
	cfg domain.RunConfig,
	opts ...Option,
) *CompatibilityService {
	o := buildOptions(opts)
	return &CompatibilityService{
		snapshots: snapshots,
		deps:      deps,
		endpoints: endpoints,
		store:     store,
		assessor:  scoring.NewAssessor(cfg),
		version:   cfg.Version,
		workers:   o.repoWorkers,
		logger:    o.logger,
		now:       o.now,
		newID:     o.newID,
	}
}

// NewResultID formats a sortable, collision resistant result id.
func NewResultID(t time.Time) string {
	return t.UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}

// Analyze runs a full analysis and persists the result. Unreachable
// repositories degrade their comparisons; only cancellation and persistence
// failures are returned.
func (s *CompatibilityService) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	if len(req.Targets) == 0 {
		return nil, ErrNoTargets
	}
	descs := append([]domain.RepositoryDescriptor{req.Base}, req.Targets...)

	// 1. Collect every repository on a bounded pool.
	snaps, err := s.Collect(ctx, descs)
	defer func() {
		for _, snap := range snaps {
			if err := snap.Close(); err != nil {
				s.logger.Warn("releasing working copy", "repo", snap.Name, "error", err)
			}
		}
	}()
	if err != nil {
		return nil, err
	}

	// 2. Compare base with every target, in request order.
	base := snaps[0]
	comparisons := make([]domain.ComparisonResult, 0, len(req.Targets))
	for _, target := range snaps[1:] {
		cmp, err := s.CompareRepositories(ctx, base, target)
		if err != nil {
			return nil, err
		}
		comparisons = append(comparisons, *cmp)
	}

	// 3. Summarize.
	repos := make([]domain.RepositoryResult, len(snaps))
	for i, snap := range snaps {
		repos[i] = snap.RepositoryResult
	}
	created := s.now().UTC()
	result := &domain.AnalysisResult{
		ID:            s.newID(created),
		CreatedAt:     created,
		ConfigVersion: s.version,
		Repositories:  repos,
		Comparisons:   comparisons,
		Summary:       scoring.Summarize(repos, comparisons),
	}

	// 4. Persist, unless the run was cancelled on the way.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.store.Save(result); err != nil {
		return nil, fmt.Errorf("saving analysis result: %w", err)
	}
	s.logger.Info("analysis complete",
		"id", result.ID,
		"repositories", len(repos),
		"comparisons", len(comparisons),
		"overall_risk", result.Summary.OverallRisk,
	)
	return result, nil
}

// Collect builds the snapshots of descs concurrently. Each accessible
// snapshot also receives its manifest and dependency inventory. The returned
// slice is index-aligned with descs and must be closed by the caller, even
// when an error is returned.
func (s *CompatibilityService) Collect(ctx context.Context, descs []domain.RepositoryDescriptor) ([]*Snapshot, error) {
	snaps := make([]*Snapshot, len(descs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, desc := range descs {
		g.Go(func() error {
			snap, err := s.snapshots.BuildSnapshot(gctx, desc)
			if err != nil {
				return err
			}
			snaps[i] = snap
			if !snap.IsAccessible {
				return nil
			}
			m, err := s.deps.manifestOrEmpty(snap.Path)
			if err != nil {
				s.logger.Warn("dependency manifest unreadable", "repo", snap.Name, "error", err)
			}
			snap.Manifest = m
			snap.Dependencies = s.deps.Inventory(gctx, snap.Path)
			return gctx.Err()
		})
	}
	err := g.Wait()

	out := snaps[:0]
	for _, snap := range snaps {
		if snap != nil {
			out = append(out, snap)
		}
	}
	return out, err
}

// CompareRepositories compares target with base. A pair with an inaccessible
// side yields a zero score result, not an error.
func (s *CompatibilityService) CompareRepositories(ctx context.Context, base, target *Snapshot) (*domain.ComparisonResult, error) {
	if !base.IsAccessible || !target.IsAccessible {
		cmp := scoring.NotComparable(&base.RepositoryResult, &target.RepositoryResult)
		s.logger.Warn("repositories not comparable", "base", base.Name, "target", target.Name)
		return &cmp, nil
	}

	cmp := &domain.ComparisonResult{
		Base:       base.Name,
		Target:     target.Name,
		Comparable: true,
		Changes:    s.snapshots.Diff(base.Structure, target.Structure),
	}

	dc := &domain.DependencyComparison{Changes: s.deps.Compare(base.Manifest, target.Manifest)}
	if base.Dependencies != nil && target.Dependencies != nil {
		dc.NewVulnerabilities = deps.NewVulnerabilities(base.Dependencies.Vulnerabilities, target.Dependencies.Vulnerabilities)
	}
	cmp.Dependencies = dc

	report, err := s.endpoints.Compare(ctx, base.Structure, target.Structure)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		s.logger.Warn("endpoint comparison skipped", "base", base.Name, "target", target.Name, "error", err)
	case report != nil:
		cmp.Endpoints = report
		cmp.Findings = append(append(cmp.Findings, report.BreakingChanges...), report.Deprecations...)
	}

	s.assessor.Assess(cmp, target.Structure)
	s.logger.Debug("compared repositories",
		"base", base.Name,
		"target", target.Name,
		"score", cmp.CompatibilityScore,
		"risk", cmp.RiskLevel,
	)
	return cmp, nil
}

// GetResult loads a stored analysis.
func (s *CompatibilityService) GetResult(id string) (*domain.AnalysisResult, error) {
	return s.store.Get(id)
}

// ListResults returns up to limit stored analyses, newest first.
func (s *CompatibilityService) ListResults(limit int) ([]domain.AnalysisResult, error) {
	return s.store.List(limit)
}
