package scoring

import "github.com/modoturbo/repocompat/internal/domain"

// ClassifyRisk buckets a comparison by score and issue count.
func ClassifyRisk(score, issues int) domain.RiskLevel {
	switch {
	case score < 50 || issues > 10:
		return domain.RiskHigh
	case score < 75 || issues > 5:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
