package domain_test

import (
	"testing"

	"github.com/modoturbo/repocompat/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestManifest_Records_RuntimeWinsOverDev(t *testing.T) {
	m := &domain.Manifest{
		Dependencies:    map[string]string{"react": "^18.2.0", "axios": "1.6.0"},
		DevDependencies: map[string]string{"react": "^18.0.0", "jest": "29.0.0"},
	}
	records := m.Records()
	assert.Equal(t, []domain.DependencyRecord{
		{Name: "axios", VersionRange: "1.6.0", Scope: domain.ScopeRuntime},
		{Name: "jest", VersionRange: "29.0.0", Scope: domain.ScopeDev},
		{Name: "react", VersionRange: "^18.2.0", Scope: domain.ScopeRuntime},
	}, records)
}

func TestManifest_Records_Nil(t *testing.T) {
	var m *domain.Manifest
	assert.Nil(t, m.Records())
}

func TestProjectStructure_UnitsSortedByPath(t *testing.T) {
	p := &domain.ProjectStructure{
		Components: []domain.SourceUnit{{Path: "src/components/B.tsx"}},
		Services:   []domain.SourceUnit{{Path: "src/api/users.ts"}},
		Utilities:  []domain.SourceUnit{{Path: "src/lib/a.ts"}},
	}
	units := p.Units()
	assert.Equal(t, "src/api/users.ts", units[0].Path)
	assert.Equal(t, "src/components/B.tsx", units[1].Path)
	assert.Equal(t, "src/lib/a.ts", units[2].Path)
	assert.Len(t, p.UnitsByPath(), 3)
}

func TestRiskLevel_Rank(t *testing.T) {
	assert.Less(t, domain.RiskLow.Rank(), domain.RiskMedium.Rank())
	assert.Less(t, domain.RiskMedium.Rank(), domain.RiskHigh.Rank())
}

func TestComparisonResult_IssueCount(t *testing.T) {
	c := domain.ComparisonResult{
		PotentialIssues: []string{"a", "b"},
		RuleViolations:  []domain.RuleViolation{{RuleID: "x"}},
	}
	assert.Equal(t, 3, c.IssueCount())
}

func TestRepositoryDescriptor_DisplayName(t *testing.T) {
	assert.Equal(t, "platform", domain.RepositoryDescriptor{Name: "platform", URL: "https://x"}.DisplayName())
	assert.Equal(t, "https://x", domain.RepositoryDescriptor{URL: "https://x"}.DisplayName())
	assert.Equal(t, "/src", domain.RepositoryDescriptor{LocalPath: "/src"}.DisplayName())
}
