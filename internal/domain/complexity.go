package domain

// ComplexityLevel buckets the composite complexity score.
type ComplexityLevel string

const (
	ComplexityLow    ComplexityLevel = "low"
	ComplexityMedium ComplexityLevel = "medium"
	ComplexityHigh   ComplexityLevel = "high"
)

const (
	lowComplexityBelow    = 10.0
	mediumComplexityBelow = 25.0
)

type ComplexityMetrics struct {
	CyclomaticComplexity int             `json:"cyclomatic_complexity"`
	LinesOfCode          int             `json:"lines_of_code"`
	NestingDepth         int             `json:"nesting_depth"`
	Score                float64         `json:"score"`
	Level                ComplexityLevel `json:"level"`
}

// ComplexityLevelFor maps a composite score onto its level.
func ComplexityLevelFor(score float64) ComplexityLevel {
	switch {
	case score < lowComplexityBelow:
		return ComplexityLow
	case score < mediumComplexityBelow:
		return ComplexityMedium
	default:
		return ComplexityHigh
	}
}

// CompositeScore combines the raw metrics with a kind-specific structural
// factor and a nesting-or-average term:
//
//	cyclomatic + lines/10 + factor + term
func CompositeScore(cyclomatic, lines int, factor, term float64) float64 {
	return float64(cyclomatic) + float64(lines)/10 + factor + term
}

// NewComplexityMetrics computes the composite score and level in one step.
func NewComplexityMetrics(cyclomatic, lines, nesting int, factor, term float64) ComplexityMetrics {
	score := CompositeScore(cyclomatic, lines, factor, term)
	return ComplexityMetrics{
		CyclomaticComplexity: cyclomatic,
		LinesOfCode:          lines,
		NestingDepth:         nesting,
		Score:                score,
		Level:                ComplexityLevelFor(score),
	}
}
