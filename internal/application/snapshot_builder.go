package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/modoturbo/repocompat/internal/domain"
	"github.com/modoturbo/repocompat/internal/domain/changes"
)

// Snapshot is a collected repository: the serializable result plus the
// working copy it was read from. Close releases materialized clones.
type Snapshot struct {
	domain.RepositoryResult
	Path     string
	Manifest *domain.Manifest

	release func() error
}

// Close releases the working copy. Safe to call more than once.
func (s *Snapshot) Close() error {
	if s == nil || s.release == nil {
		return nil
	}
	release := s.release
	s.release = nil
	return release()
}

// SnapshotBuilder materializes a repository descriptor and extracts its
// structure. Collection failures degrade the snapshot instead of failing.
type SnapshotBuilder struct {
	provider  domain.WorkingCopyProvider
	extractor *StructureExtractor
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewSnapshotBuilder(provider domain.WorkingCopyProvider, extractor *StructureExtractor, opts ...Option) *SnapshotBuilder {
	o := buildOptions(opts)
	return &SnapshotBuilder{
		provider:  provider,
		extractor: extractor,
		validate:  validator.New(),
		logger:    o.logger,
	}
}

// BuildSnapshot returns an error only when ctx is done. Every other failure
// yields a snapshot with IsAccessible=false and the reason in Error.
func (b *SnapshotBuilder) BuildSnapshot(ctx context.Context, desc domain.RepositoryDescriptor) (*Snapshot, error) {
	snap := &Snapshot{RepositoryResult: domain.RepositoryResult{
		Name:      desc.DisplayName(),
		URL:       desc.URL,
		LocalPath: desc.LocalPath,
		Branch:    desc.Branch,
	}}

	if err := b.validate.Struct(desc); err != nil {
		return b.degrade(snap, fmt.Errorf("invalid repository descriptor: %v: %w", err, domain.ErrRepositoryInaccessible)), nil
	}

	wc, err := b.provider.Materialize(ctx, desc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return b.degrade(snap, err), nil
	}
	snap.Path = wc.Path
	snap.release = func() error { return b.provider.Release(wc) }
	if wc.Branch != "" {
		snap.Branch = wc.Branch
	}
	snap.CommitRef = wc.CommitRef

	ps, err := b.extractor.Extract(ctx, wc.Path)
	if err != nil {
		if ctx.Err() != nil {
			_ = snap.Close()
			return nil, ctx.Err()
		}
		return b.degrade(snap, err), nil
	}
	snap.Structure = ps
	snap.IsAccessible = true
	return snap, nil
}

func (b *SnapshotBuilder) degrade(snap *Snapshot, err error) *Snapshot {
	b.logger.Warn("repository inaccessible", "repo", snap.Name, "error", err)
	snap.IsAccessible = false
	snap.Error = err.Error()
	return snap
}

// Diff computes the file-level change set between two structures.
func (b *SnapshotBuilder) Diff(base, target *domain.ProjectStructure) domain.ChangeSet {
	return changes.Diff(base, target)
}
