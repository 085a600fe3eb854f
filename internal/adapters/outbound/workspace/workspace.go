// Package workspace materializes repositories as local working copies.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/modoturbo/repocompat/internal/domain"
)

// Provider implements domain.WorkingCopyProvider with go-git.
type Provider struct {
	baseDir      string
	cloneTimeout time.Duration
	keepClones   bool
}

type Option func(*Provider)

// WithBaseDir places clones under dir instead of the system temp directory.
func WithBaseDir(dir string) Option { return func(p *Provider) { p.baseDir = dir } }

func WithCloneTimeout(d time.Duration) Option { return func(p *Provider) { p.cloneTimeout = d } }

// WithKeepClones leaves clones on disk after Release.
func WithKeepClones(keep bool) Option { return func(p *Provider) { p.keepClones = keep } }

func New(opts ...Option) *Provider {
	p := &Provider{cloneTimeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Materialize returns a working copy for desc. Local paths are used in
// place; remote URLs are shallow-cloned. Failures wrap
// domain.ErrRepositoryInaccessible, or domain.ErrTimeout when the clone
// deadline passes.
func (p *Provider) Materialize(ctx context.Context, desc domain.RepositoryDescriptor) (*domain.WorkingCopy, error) {
	if desc.LocalPath != "" {
		return p.local(desc)
	}
	if desc.URL == "" {
		return nil, fmt.Errorf("repository has neither url nor local path: %w", domain.ErrRepositoryInaccessible)
	}

	if p.baseDir != "" {
		if err := os.MkdirAll(p.baseDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating clone directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(p.baseDir, "repocompat-*")
	if err != nil {
		return nil, fmt.Errorf("creating clone directory: %w", err)
	}

	cctx := ctx
	if p.cloneTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, p.cloneTimeout)
		defer cancel()
	}

	opts := &git.CloneOptions{
		URL:          desc.URL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if desc.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(desc.Branch)
	}
	if desc.AccessToken != "" {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: desc.AccessToken}
	}

	if _, err := git.PlainCloneContext(cctx, dir, false, opts); err != nil {
		_ = os.RemoveAll(dir)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("cloning %s: %w", desc.URL, domain.ErrTimeout)
		}
		return nil, fmt.Errorf("cloning %s: %v: %w", desc.URL, err, domain.ErrRepositoryInaccessible)
	}

	wc := &domain.WorkingCopy{Path: dir, Branch: desc.Branch, Ephemeral: !p.keepClones}
	if branch, commit, err := p.Describe(dir); err == nil {
		wc.Branch, wc.CommitRef = branch, commit
	}
	return wc, nil
}

func (p *Provider) local(desc domain.RepositoryDescriptor) (*domain.WorkingCopy, error) {
	abs, err := filepath.Abs(desc.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %v: %w", desc.LocalPath, err, domain.ErrRepositoryInaccessible)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", desc.LocalPath, err, domain.ErrRepositoryInaccessible)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", desc.LocalPath, domain.ErrRepositoryInaccessible)
	}
	wc := &domain.WorkingCopy{Path: abs, Branch: desc.Branch}
	if branch, commit, err := p.Describe(abs); err == nil {
		if wc.Branch == "" {
			wc.Branch = branch
		}
		wc.CommitRef = commit
	}
	return wc, nil
}

// Describe resolves the checked out branch and commit of the repository
// containing path.
func (p *Provider) Describe(path string) (branch, commitRef string, err error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", fmt.Errorf("opening git repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("getting HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}
	return branch, head.Hash().String(), nil
}

// Release removes ephemeral clones. Local working copies are never touched.
func (p *Provider) Release(wc *domain.WorkingCopy) error {
	if wc == nil || !wc.Ephemeral {
		return nil
	}
	if err := os.RemoveAll(wc.Path); err != nil {
		return fmt.Errorf("removing clone %s: %w", wc.Path, err)
	}
	return nil
}
