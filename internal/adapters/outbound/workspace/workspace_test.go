package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoturbo/repocompat/internal/adapters/outbound/workspace"
	"github.com/modoturbo/repocompat/internal/domain"
)

func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"fixture"}`), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("package.json")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@test.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir, hash.String()
}

func TestDescribe(t *testing.T) {
	dir, hash := initRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))

	branch, commit, err := workspace.New().Describe(filepath.Join(dir, "src"))
	require.NoError(t, err)
	assert.NotEmpty(t, branch)
	assert.Equal(t, hash, commit)
	assert.Len(t, commit, 40)
}

func TestDescribe_NotARepo(t *testing.T) {
	_, _, err := workspace.New().Describe(t.TempDir())
	assert.Error(t, err)
}

func TestMaterialize_LocalPath(t *testing.T) {
	dir, hash := initRepo(t)
	p := workspace.New()

	wc, err := p.Materialize(context.Background(), domain.RepositoryDescriptor{LocalPath: dir})
	require.NoError(t, err)
	assert.Equal(t, hash, wc.CommitRef)
	assert.False(t, wc.Ephemeral)

	require.NoError(t, p.Release(wc))
	assert.DirExists(t, dir, "local working copies are never removed")
}

func TestMaterialize_LocalPathWithoutGit(t *testing.T) {
	dir := t.TempDir()
	wc, err := workspace.New().Materialize(context.Background(), domain.RepositoryDescriptor{LocalPath: dir})
	require.NoError(t, err)
	assert.Empty(t, wc.CommitRef)
}

func TestMaterialize_MissingLocalPath(t *testing.T) {
	_, err := workspace.New().Materialize(context.Background(), domain.RepositoryDescriptor{
		LocalPath: filepath.Join(t.TempDir(), "missing"),
	})
	assert.ErrorIs(t, err, domain.ErrRepositoryInaccessible)
}

func TestMaterialize_CloneFailure(t *testing.T) {
	base := t.TempDir()
	p := workspace.New(workspace.WithBaseDir(base))

	_, err := p.Materialize(context.Background(), domain.RepositoryDescriptor{
		URL: filepath.Join(t.TempDir(), "not-a-repo"),
	})
	assert.ErrorIs(t, err, domain.ErrRepositoryInaccessible)

	entries, rerr := os.ReadDir(base)
	require.NoError(t, rerr)
	assert.Empty(t, entries, "failed clones are cleaned up")
}

func TestMaterialize_CloneTimeout(t *testing.T) {
	p := workspace.New(workspace.WithBaseDir(t.TempDir()), workspace.WithCloneTimeout(time.Nanosecond))

	_, err := p.Materialize(context.Background(), domain.RepositoryDescriptor{URL: "https://example.invalid/repo.git"})
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestRelease_RemovesEphemeralClone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clone")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	require.NoError(t, workspace.New().Release(&domain.WorkingCopy{Path: dir, Ephemeral: true}))
	assert.NoDirExists(t, dir)
	assert.NoError(t, workspace.New().Release(nil))
}
