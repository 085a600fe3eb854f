package application_test

import (
	"context"
	"testing"
	"time"

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
	baseFixture   = "../../testdata/repos/base"
	targetFixture = "../../testdata/repos/target"
)

var fixedClock = application.WithClock(func() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
})

func newIntegrationService(t *testing.T, pm domain.PackageManager) (*application.CompatibilityService, *store.FileStore) {
	t.Helper()
	cfg := domain.DefaultRunConfig()
	endpoints, err := routes.New(cfg.Endpoints.Strategy)
	require.NoError(t, err)

	st := store.New(t.TempDir())
	svc := application.NewCompatibilityService(
		application.NewSnapshotBuilder(workspace.New(), application.NewStructureExtractor(scanner.New(), parser.New(), quiet), quiet),
		application.NewDependencyAnalyzer(manifest.New(), pm, quiet),
		application.NewEndpointValidator(endpoints, quiet),
		st,
		cfg,
		quiet,
		fixedClock,
	)
	return svc, st
}

func request(targets ...domain.RepositoryDescriptor) domain.AnalysisRequest {
	return domain.AnalysisRequest{
		Base:    domain.RepositoryDescriptor{Name: "base", LocalPath: baseFixture},
		Targets: targets,
	}
}

func paths(changes []domain.FileChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Path)
	}
	return out
}

func names(recs []domain.DependencyRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func TestIntegration_AnalyzeFixtures(t *testing.T) {
	pm := &fakePM{vulns: map[string][]domain.VulnerabilityReport{
		"target": {{Package: "dayjs", Version: "1.11.10", Severity: domain.VulnCritical, Title: "Arbitrary code execution"}},
	}}
	svc, _ := newIntegrationService(t, pm)

	result, err := svc.Analyze(context.Background(), request(domain.RepositoryDescriptor{Name: "target", LocalPath: targetFixture}))
	require.NoError(t, err)

	assert.Regexp(t, `^20260314T092653Z-[0-9a-f]{8}$`, result.ID)
	assert.Equal(t, domain.CurrentConfigVersion, result.ConfigVersion)
	require.Len(t, result.Repositories, 2)
	for _, r := range result.Repositories {
		assert.True(t, r.IsAccessible, r.Name)
		require.NotNil(t, r.Dependencies, r.Name)
	}
	assert.Equal(t, "base", result.Repositories[0].Name)

	require.Len(t, result.Comparisons, 1)
	cmp := result.Comparisons[0]
	assert.True(t, cmp.Comparable)

	added := paths(cmp.Changes.AddedFiles)
	assert.Contains(t, added, "src/services/OrderService.ts")
	assert.Contains(t, added, "src/utils/date.ts")
	assert.Equal(t, []string{"src/legacy/storage.ts"}, paths(cmp.Changes.DeletedFiles))
	assert.Contains(t, paths(cmp.Changes.ModifiedFiles), "src/components/Button.tsx")
	assert.NotContains(t, paths(cmp.Changes.ModifiedFiles), "src/services/UserService.ts")

	require.NotNil(t, cmp.Dependencies)
	assert.Equal(t, []string{"dayjs"}, names(cmp.Dependencies.Changes.Added))
	assert.Equal(t, []string{"lodash"}, names(cmp.Dependencies.Changes.Removed))
	breaking := map[string]bool{}
	for _, u := range cmp.Dependencies.Changes.BreakingUpdates() {
		breaking[u.Name] = true
	}
	assert.True(t, breaking["react"])
	assert.True(t, breaking["typescript"])
	require.Len(t, cmp.Dependencies.NewVulnerabilities, 1)

	var rules []string
	for _, v := range cmp.RuleViolations {
		rules = append(rules, v.RuleID)
	}
	assert.Contains(t, rules, "framework-major-upgrade")
	assert.Contains(t, rules, "new-critical-vulnerability")

	assert.NotEmpty(t, cmp.NewFeatures)
	assert.NotEmpty(t, cmp.PotentialIssues)
	assert.Less(t, cmp.CompatibilityScore, 50)
	assert.Equal(t, domain.RiskHigh, cmp.RiskLevel)

	assert.Equal(t, 2, result.Summary.AccessibleRepositories)
	assert.Equal(t, domain.RiskHigh, result.Summary.OverallRisk)
	assert.Equal(t, 1, result.Summary.Vulnerabilities)
}

func TestIntegration_ResultIsPersisted(t *testing.T) {
	svc, st := newIntegrationService(t, &fakePM{})

	result, err := svc.Analyze(context.Background(), request(domain.RepositoryDescriptor{LocalPath: targetFixture}))
	require.NoError(t, err)

	loaded, err := svc.GetResult(result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, loaded.ID)
	assert.Equal(t, result.Summary.TotalComparisons, loaded.Summary.TotalComparisons)

	list, err := svc.ListResults(10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	stored, err := st.Get(result.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Comparisons, 1)
}

func TestIntegration_IdenticalRepositoriesScorePerfectly(t *testing.T) {
	svc, _ := newIntegrationService(t, &fakePM{})

	result, err := svc.Analyze(context.Background(), request(domain.RepositoryDescriptor{Name: "copy", LocalPath: baseFixture}))
	require.NoError(t, err)

	cmp := result.Comparisons[0]
	assert.Empty(t, cmp.Changes.AddedFiles)
	assert.Empty(t, cmp.Changes.ModifiedFiles)
	assert.Empty(t, cmp.Changes.DeletedFiles)
	assert.Equal(t, 100, cmp.CompatibilityScore)
	assert.Equal(t, domain.RiskLow, cmp.RiskLevel)
}

func TestAnalyze_InaccessibleTargetIsNotComparable(t *testing.T) {
	svc, _ := newIntegrationService(t, &fakePM{})

	result, err := svc.Analyze(context.Background(), request(
		domain.RepositoryDescriptor{Name: "gone", LocalPath: "../../testdata/repos/does-not-exist"},
		domain.RepositoryDescriptor{Name: "target", LocalPath: targetFixture},
	))
	require.NoError(t, err)

	require.Len(t, result.Comparisons, 2)
	gone := result.Comparisons[0]
	assert.Equal(t, "gone", gone.Target)
	assert.False(t, gone.Comparable)
	assert.Zero(t, gone.CompatibilityScore)
	require.Len(t, gone.PotentialIssues, 1)
	assert.Contains(t, gone.PotentialIssues[0], "not comparable")

	assert.True(t, result.Comparisons[1].Comparable)
	assert.Equal(t, 2, result.Summary.AccessibleRepositories)
	assert.Equal(t, 3, result.Summary.TotalRepositories)
}

func TestAnalyze_RequiresTargets(t *testing.T) {
	svc, _ := newIntegrationService(t, &fakePM{})

	_, err := svc.Analyze(context.Background(), request())
	assert.ErrorIs(t, err, application.ErrNoTargets)
}

func TestAnalyze_CancelledRunPersistsNothing(t *testing.T) {
	svc, _ := newIntegrationService(t, &fakePM{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Analyze(ctx, request(domain.RepositoryDescriptor{LocalPath: targetFixture}))
	assert.ErrorIs(t, err, context.Canceled)

	list, err := svc.ListResults(0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCompareRepositories_EndpointFindings(t *testing.T) {
	id := domain.EndpointParameter{Name: "id", In: "path", Type: "string", Required: true}
	fe := &fakeEndpoints{byRoot: map[string][]domain.EndpointDescriptor{
		"/base":   {userEndpoint(id)},
		"/target": {userEndpoint()},
	}}
	svc := application.NewCompatibilityService(
		newBuilder(&fakeProvider{}),
		application.NewDependencyAnalyzer(fakeManifests{}, &fakePM{}, quiet),
		application.NewEndpointValidator(fe, quiet),
		store.New(t.TempDir()),
		domain.DefaultRunConfig(),
		quiet,
	)
	snap := func(root string) *application.Snapshot {
		return &application.Snapshot{RepositoryResult: domain.RepositoryResult{
			Name:         root,
			IsAccessible: true,
			Structure:    apiStructure(root),
		}}
	}

	cmp, err := svc.CompareRepositories(context.Background(), snap("/base"), snap("/target"))
	require.NoError(t, err)

	require.NotNil(t, cmp.Endpoints)
	assert.False(t, cmp.Endpoints.BackwardCompatible)
	require.NotEmpty(t, cmp.Findings)
	assert.Equal(t, domain.CategoryBreakingChange, cmp.Findings[0].Category)
	require.NotEmpty(t, cmp.RuleViolations)
	assert.Equal(t, "breaking-endpoint", cmp.RuleViolations[0].RuleID)
	assert.Equal(t, 75, cmp.CompatibilityScore)
}
