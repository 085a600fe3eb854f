package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoturbo/repocompat/internal/application"
	"github.com/modoturbo/repocompat/internal/domain"
)

func apiStructure(root string) *domain.ProjectStructure {
	return &domain.ProjectStructure{
		RootPath: root,
		Files: []domain.FileEntry{
			{Path: "package.json", Kind: domain.FileManifest},
			{Path: "pages/api/users/[id].ts", Kind: domain.FileSource},
			{Path: "pages/api/users/[id].test.ts", Kind: domain.FileTest},
		},
	}
}

func userEndpoint(params ...domain.EndpointParameter) domain.EndpointDescriptor {
	return domain.EndpointDescriptor{
		Method:     "GET",
		Path:       "/api/users/:id",
		Parameters: params,
		Response:   domain.ResponseSchema{StatusCode: 200, ContentType: "application/json"},
	}
}

func TestEndpointValidator_OnlySourceFilesReachTheParser(t *testing.T) {
	fe := &fakeEndpoints{}
	v := application.NewEndpointValidator(fe, quiet)

	_, err := v.Extract(context.Background(), apiStructure("/base"))
	require.NoError(t, err)
	require.Len(t, fe.files, 1)
	assert.Equal(t, []string{"pages/api/users/[id].ts"}, fe.files[0])
}

func TestEndpointValidator_NoEndpoints(t *testing.T) {
	v := application.NewEndpointValidator(&fakeEndpoints{}, quiet)

	report, err := v.Compare(context.Background(), apiStructure("/base"), apiStructure("/target"))
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestEndpointValidator_RemovedRequiredParameterIsBreaking(t *testing.T) {
	id := domain.EndpointParameter{Name: "id", In: "path", Type: "string", Required: true}
	expand := domain.EndpointParameter{Name: "expand", In: "query", Type: "string", Required: true}
	fe := &fakeEndpoints{byRoot: map[string][]domain.EndpointDescriptor{
		"/base":   {userEndpoint(id, expand), {Method: "DELETE", Path: "/api/users/:id"}},
		"/target": {userEndpoint(id)},
	}}
	v := application.NewEndpointValidator(fe, quiet)

	report, err := v.Compare(context.Background(), apiStructure("/base"), apiStructure("/target"))
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.False(t, report.BackwardCompatible)
	assert.Equal(t, []string{"next major"}, report.VersionCompatibility)
	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].IsCompatible)
	assert.Equal(t, "DELETE /api/users/:id", report.Results[1].Endpoint)
	assert.False(t, report.Results[1].IsCompatible)
	for _, f := range report.BreakingChanges {
		assert.NotEmpty(t, f.MigrationGuidance)
	}
}

func TestEndpointValidator_ParserError(t *testing.T) {
	boom := errors.New("unreadable")
	v := application.NewEndpointValidator(&fakeEndpoints{err: boom}, quiet)

	_, err := v.Compare(context.Background(), apiStructure("/base"), apiStructure("/target"))
	assert.ErrorIs(t, err, boom)
}
