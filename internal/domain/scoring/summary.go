package scoring

import (
	"fmt"

	"github.com/modoturbo/repocompat/internal/domain"
)

// tally holds the aggregate counts recommendations are derived from.
type tally struct {
	newComponents int
	newServices   int
	newUtilities  int
	breaking      int
	removedDeps   int
	vulns         int
}

func (t *tally) add(o tally) {
	t.newComponents += o.newComponents
	t.newServices += o.newServices
	t.newUtilities += o.newUtilities
	t.breaking += o.breaking
	t.removedDeps += o.removedDeps
	t.vulns += o.vulns
}

func tallyOf(cmp *domain.ComparisonResult) tally {
	var t tally
	for _, fc := range cmp.Changes.AddedFiles {
		switch domain.UnitKind(fc.FileKind) {
		case domain.KindComponent:
			t.newComponents++
		case domain.KindService:
			t.newServices++
		case domain.KindUtility:
			t.newUtilities++
		}
	}
	c := CountsFor(cmp)
	t.breaking = c.BreakingFiles + c.BreakingConfigs + c.BreakingDependencies
	if cmp.Endpoints != nil {
		t.breaking += len(cmp.Endpoints.BreakingChanges)
	}
	t.removedDeps = c.RemovedDependencies
	if cmp.Dependencies != nil {
		t.vulns = len(cmp.Dependencies.NewVulnerabilities)
	}
	return t
}

func recommend(t tally, risk domain.RiskLevel) []string {
	var out []string
	if t.newServices > 0 {
		out = append(out, fmt.Sprintf("Evaluate %d new service(s) for integration", t.newServices))
	}
	if t.newComponents > 0 {
		out = append(out, fmt.Sprintf("Review %d new component(s) for reuse", t.newComponents))
	}
	if t.newUtilities > 0 {
		out = append(out, fmt.Sprintf("Consider adopting %d new utility module(s)", t.newUtilities))
	}
	if t.breaking > 0 {
		out = append(out, fmt.Sprintf("Plan a migration for %d breaking change(s)", t.breaking))
	}
	if t.removedDeps > 0 {
		out = append(out, fmt.Sprintf("Verify %d removed dependency(ies) are no longer needed", t.removedDeps))
	}
	if t.vulns > 0 {
		out = append(out, fmt.Sprintf("Resolve %d new vulnerability(ies) before integration", t.vulns))
	}
	if risk == domain.RiskHigh {
		out = append(out, "Require thorough testing before integration")
	}
	if len(out) == 0 {
		out = append(out, "Changes appear safe to integrate")
	}
	return out
}

// Summarize aggregates a run. Only comparable comparisons contribute counts;
// every comparison contributes to scores and overall risk.
func Summarize(repos []domain.RepositoryResult, comparisons []domain.ComparisonResult) domain.AnalysisSummary {
	s := domain.AnalysisSummary{
		TotalRepositories: len(repos),
		TotalComparisons:  len(comparisons),
		OverallRisk:       domain.RiskLow,
	}
	inaccessible := 0
	for _, r := range repos {
		if r.IsAccessible {
			s.AccessibleRepositories++
		} else {
			inaccessible++
		}
	}

	var total tally
	sum := 0
	for i, c := range comparisons {
		sum += c.CompatibilityScore
		if i == 0 || c.CompatibilityScore < s.LowestScore {
			s.LowestScore = c.CompatibilityScore
		}
		if c.RiskLevel.Rank() > s.OverallRisk.Rank() {
			s.OverallRisk = c.RiskLevel
		}
		if c.Comparable {
			total.add(tallyOf(&comparisons[i]))
		}
	}
	if len(comparisons) > 0 {
		s.AverageScore = float64(sum) / float64(len(comparisons))
	}
	s.NewComponents = total.newComponents
	s.NewServices = total.newServices
	s.NewUtilities = total.newUtilities
	s.BreakingChanges = total.breaking
	s.RemovedDependencies = total.removedDeps
	s.Vulnerabilities = total.vulns

	if inaccessible > 0 {
		s.RecommendedActions = append(s.RecommendedActions,
			fmt.Sprintf("Restore access to %d inaccessible repository(ies)", inaccessible))
	}
	s.RecommendedActions = append(s.RecommendedActions, recommend(total, s.OverallRisk)...)
	return s
}
