package scoring

import (
	"fmt"
	"strings"

	"github.com/modoturbo/repocompat/internal/domain"
)

// Assessor derives findings, score, risk and recommendations for a
// comparison whose change sets are already filled in.
type Assessor struct {
	Rules             []Rule
	Penalties         domain.Penalties
	FrameworkPackages []string
}

// NewAssessor builds an assessor from the effective run configuration.
func NewAssessor(cfg domain.RunConfig) *Assessor {
	return &Assessor{
		Rules:             RulesFor(cfg.Scoring),
		Penalties:         cfg.EffectivePenalties(),
		FrameworkPackages: cfg.Scoring.FrameworkPackages,
	}
}

// Assess completes cmp in place. target is the structure the added units are
// looked up in.
func (a *Assessor) Assess(cmp *domain.ComparisonResult, target *domain.ProjectStructure) {
	cmp.NewFeatures = newFeatures(cmp, target)
	cmp.Improvements = improvements(cmp, target)
	cmp.PotentialIssues = potentialIssues(cmp)
	cmp.RuleViolations = Evaluate(a.Rules, RuleContext{Comparison: cmp, FrameworkPackages: a.FrameworkPackages})
	cmp.CompatibilityScore = ComputeScore(CountsFor(cmp), a.Penalties)
	cmp.RiskLevel = ClassifyRisk(cmp.CompatibilityScore, cmp.IssueCount())
	cmp.Recommendations = recommend(tallyOf(cmp), cmp.RiskLevel)
}

// NotComparable is the zero-signal result for a pair with an inaccessible
// side.
func NotComparable(base, target *domain.RepositoryResult) domain.ComparisonResult {
	cmp := domain.ComparisonResult{
		Base:       base.Name,
		Target:     target.Name,
		Comparable: false,
		Changes: domain.ChangeSet{
			AddedFiles:    []domain.FileChange{},
			ModifiedFiles: []domain.FileChange{},
			DeletedFiles:  []domain.FileChange{},
		},
	}
	var unreachable []string
	for _, r := range []*domain.RepositoryResult{base, target} {
		if !r.IsAccessible {
			unreachable = append(unreachable, r.Name)
		}
	}
	msg := "not comparable: " + strings.Join(unreachable, ", ") + " inaccessible"
	if e := firstError(base, target); e != "" {
		msg += " (" + e + ")"
	}
	cmp.PotentialIssues = []string{msg}
	cmp.CompatibilityScore = 0
	cmp.RiskLevel = ClassifyRisk(0, cmp.IssueCount())
	for _, name := range unreachable {
		cmp.Recommendations = append(cmp.Recommendations, fmt.Sprintf("Restore access to %s and re-run the analysis", name))
	}
	return cmp
}

func firstError(repos ...*domain.RepositoryResult) string {
	for _, r := range repos {
		if r.Error != "" {
			return r.Error
		}
	}
	return ""
}

func newFeatures(cmp *domain.ComparisonResult, target *domain.ProjectStructure) []string {
	units := target.UnitsByPath()
	var out []string
	for _, fc := range cmp.Changes.AddedFiles {
		if u, ok := units[fc.Path]; ok {
			out = append(out, fmt.Sprintf("%s %s", u.Kind, u.Name))
		}
	}
	return out
}

func improvements(cmp *domain.ComparisonResult, target *domain.ProjectStructure) []string {
	units := target.UnitsByPath()
	var out []string
	for _, fc := range cmp.Changes.AddedFiles {
		u, ok := units[fc.Path]
		if !ok || u.Kind == domain.KindComponent {
			continue
		}
		out = append(out, fmt.Sprintf("new %s %s available for reuse", u.Kind, u.Name))
	}
	if cmp.Dependencies != nil {
		for _, r := range cmp.Dependencies.Changes.Added {
			out = append(out, fmt.Sprintf("adds dependency %s@%s", r.Name, r.VersionRange))
		}
		for _, u := range cmp.Dependencies.Changes.Updated {
			if !u.IsBreaking {
				out = append(out, fmt.Sprintf("updates %s from %s to %s", u.Name, u.OldVersion, u.NewVersion))
			}
		}
	}
	for _, cc := range cmp.Changes.ConfigChangeHints {
		if cc.Impact != domain.ImpactAdditive {
			continue
		}
		if cc.ChangeType == domain.ChangeAdded {
			out = append(out, fmt.Sprintf("adds config %s", cc.Path))
		} else {
			out = append(out, fmt.Sprintf("config %s gains %s", cc.Path, strings.Join(cc.AddedKeys, ", ")))
		}
	}
	return out
}

func potentialIssues(cmp *domain.ComparisonResult) []string {
	var out []string
	for _, fc := range cmp.Changes.ModifiedFiles {
		if fc.Impact != domain.ImpactBreaking {
			continue
		}
		if fc.FileKind == string(domain.FileConfig) || fc.FileKind == string(domain.FileManifest) {
			continue
		}
		msg := "breaking change in " + fc.Path
		if len(fc.Details) > 0 {
			msg += ": " + fc.Details[0]
		}
		out = append(out, msg)
	}
	for _, cc := range cmp.Changes.ConfigChangeHints {
		if cc.Impact == domain.ImpactBreaking && cc.ChangeType == domain.ChangeModified {
			out = append(out, fmt.Sprintf("config %s drops %s", cc.Path, strings.Join(cc.RemovedKeys, ", ")))
		}
	}
	for _, fc := range cmp.Changes.DeletedFiles {
		out = append(out, fmt.Sprintf("%s was deleted", fc.Path))
	}
	if cmp.Dependencies != nil {
		for _, r := range cmp.Dependencies.Changes.Removed {
			out = append(out, fmt.Sprintf("removes dependency %s", r.Name))
		}
		for _, u := range cmp.Dependencies.Changes.BreakingUpdates() {
			out = append(out, fmt.Sprintf("major update of %s from %s to %s", u.Name, u.OldVersion, u.NewVersion))
		}
	}
	return out
}
