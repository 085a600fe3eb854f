package scoring

import "github.com/modoturbo/repocompat/internal/domain"

const (
	maxScore = 100
	minScore = 0
)

// Counts are the penalized signals of one comparison.
type Counts struct {
	BreakingFiles        int
	DeletedFiles         int
	RemovedDependencies  int
	BreakingDependencies int
	BreakingConfigs      int
	ErrorRules           int
	WarningRules         int
}

// CountsFor extracts the penalized signals from a comparison. A deleted
// config file counts as a deleted file only.
func CountsFor(cmp *domain.ComparisonResult) Counts {
	var c Counts
	for _, fc := range cmp.Changes.ModifiedFiles {
		if fc.Impact != domain.ImpactBreaking {
			continue
		}
		if fc.FileKind == string(domain.FileConfig) || fc.FileKind == string(domain.FileManifest) {
			continue
		}
		c.BreakingFiles++
	}
	c.DeletedFiles = len(cmp.Changes.DeletedFiles)
	for _, cc := range cmp.Changes.ConfigChangeHints {
		if cc.Impact == domain.ImpactBreaking && cc.ChangeType == domain.ChangeModified {
			c.BreakingConfigs++
		}
	}
	if cmp.Dependencies != nil {
		c.RemovedDependencies = len(cmp.Dependencies.Changes.Removed)
		c.BreakingDependencies = len(cmp.Dependencies.Changes.BreakingUpdates())
	}
	for _, v := range cmp.RuleViolations {
		switch v.Severity {
		case domain.SeverityError:
			c.ErrorRules++
		case domain.SeverityWarning:
			c.WarningRules++
		}
	}
	return c
}

// ComputeScore starts at 100, subtracts every penalty and clamps the result
// to [0, 100].
func ComputeScore(c Counts, p domain.Penalties) int {
	score := maxScore -
		c.BreakingFiles*p.BreakingFile -
		c.DeletedFiles*p.DeletedFile -
		c.RemovedDependencies*p.RemovedDependency -
		c.BreakingDependencies*p.BreakingDependency -
		c.BreakingConfigs*p.BreakingConfig -
		c.ErrorRules*p.RuleError -
		c.WarningRules*p.RuleWarning
	return clamp(score)
}

func clamp(score int) int {
	return max(minScore, min(maxScore, score))
}
