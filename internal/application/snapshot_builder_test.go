package application_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoturbo/repocompat/internal/application"
	"github.com/modoturbo/repocompat/internal/domain"
)

func newBuilder(p *fakeProvider) *application.SnapshotBuilder {
	sc, parser := extractorFixture()
	return application.NewSnapshotBuilder(p, application.NewStructureExtractor(sc, parser, quiet), quiet)
}

func TestBuildSnapshot_Local(t *testing.T) {
	p := &fakeProvider{wc: &domain.WorkingCopy{Path: "/work/app", Branch: "main", CommitRef: "abc123"}}
	b := newBuilder(p)

	snap, err := b.BuildSnapshot(context.Background(), domain.RepositoryDescriptor{Name: "app", LocalPath: "/work/app"})
	require.NoError(t, err)

	assert.True(t, snap.IsAccessible)
	assert.Empty(t, snap.Error)
	assert.Equal(t, "app", snap.Name)
	assert.Equal(t, "main", snap.Branch)
	assert.Equal(t, "abc123", snap.CommitRef)
	assert.Equal(t, "/work/app", snap.Path)
	require.NotNil(t, snap.Structure)
	assert.Len(t, snap.Structure.Components, 2)

	require.NoError(t, snap.Close())
	require.NoError(t, snap.Close())
	assert.Equal(t, int32(1), p.released.Load())
}

func TestBuildSnapshot_InvalidDescriptor(t *testing.T) {
	tests := []struct {
		name string
		desc domain.RepositoryDescriptor
	}{
		{"no location", domain.RepositoryDescriptor{Name: "ghost"}},
		{"bad url", domain.RepositoryDescriptor{URL: "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{}
			snap, err := newBuilder(p).BuildSnapshot(context.Background(), tt.desc)
			require.NoError(t, err)
			assert.False(t, snap.IsAccessible)
			assert.Contains(t, snap.Error, "invalid repository descriptor")
			assert.Nil(t, snap.Structure)
		})
	}
}

func TestBuildSnapshot_MaterializeFailureDegrades(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("cloning: %w", domain.ErrRepositoryInaccessible)}
	snap, err := newBuilder(p).BuildSnapshot(context.Background(), domain.RepositoryDescriptor{
		URL:         "https://github.com/acme/private.git",
		AccessToken: "secret",
	})
	require.NoError(t, err)

	assert.False(t, snap.IsAccessible)
	assert.Equal(t, "https://github.com/acme/private.git", snap.Name)
	assert.Contains(t, snap.Error, domain.ErrRepositoryInaccessible.Error())
	assert.NotContains(t, snap.Error, "secret")
	assert.NoError(t, snap.Close())
}

func TestBuildSnapshot_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newBuilder(&fakeProvider{}).BuildSnapshot(ctx, domain.RepositoryDescriptor{LocalPath: "/work/app"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshotBuilder_Diff(t *testing.T) {
	base := &domain.ProjectStructure{Files: []domain.FileEntry{{Path: "a.json", Kind: domain.FileConfig, Hash: "1"}}}
	target := &domain.ProjectStructure{Files: []domain.FileEntry{{Path: "b.json", Kind: domain.FileConfig, Hash: "2"}}}

	cs := newBuilder(&fakeProvider{}).Diff(base, target)
	require.Len(t, cs.AddedFiles, 1)
	require.Len(t, cs.DeletedFiles, 1)
	assert.Equal(t, "b.json", cs.AddedFiles[0].Path)
	assert.Equal(t, "a.json", cs.DeletedFiles[0].Path)
}
