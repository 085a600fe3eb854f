package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/modoturbo/repocompat/internal/domain"
)

// ── warm palette ──
var (
	accent    = lipgloss.Color("#D97706") // amber
	fg        = lipgloss.Color("#E8E6E3") // warm light gray
	dim       = lipgloss.Color("#6B7280") // muted gray
	faint     = lipgloss.Color("#3F3F46") // very dim
	success   = lipgloss.Color("#22C55E") // green
	danger    = lipgloss.Color("#EF4444") // red
	warning   = lipgloss.Color("#F59E0B") // amber-yellow
	info      = lipgloss.Color("#8B949E") // soft blue-gray
	lime      = lipgloss.Color("#A3E635")
	skipColor = lipgloss.Color("#4B5563") // dark gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	riskColors = map[domain.RiskLevel]lipgloss.Color{
		domain.RiskLow:    success,
		domain.RiskMedium: warning,
		domain.RiskHigh:   danger,
	}

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	skipStyle     = lipgloss.NewStyle().Foreground(skipColor)
	errorTagStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnTagStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	infoTagStyle  = lipgloss.NewStyle().Foreground(info)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	nameStyle     = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderAnalysis renders a whole run: the summary box, one line per
// comparison and the run-level recommendations.
func RenderAnalysis(result *domain.AnalysisResult) string {
	var b strings.Builder
	s := result.Summary

	// ── Header ──
	title := headerStyle.Render("repocompat")
	subtitle := dimStyle.Render(fmt.Sprintf("run %s", result.ID))
	scoreStyled := lipgloss.NewStyle().
		Bold(true).
		Foreground(scoreColor(s.LowestScore)).
		Render(fmt.Sprintf("%.0f / 100 avg  ·  %d lowest", s.AverageScore, s.LowestScore))
	stats := dimStyle.Render(fmt.Sprintf("%d/%d repositories accessible  ·  %d comparisons  ·  ",
		s.AccessibleRepositories, s.TotalRepositories, s.TotalComparisons)) + riskTag(s.OverallRisk)

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + scoreStyled + "\n" + stats))
	b.WriteString("\n\n")

	// ── Repositories ──
	for _, r := range result.Repositories {
		renderRepository(&b, r)
	}
	b.WriteString("\n")

	// ── Comparisons ──
	for _, c := range result.Comparisons {
		renderComparisonLine(&b, c)
	}

	b.WriteString("\n")
	b.WriteString("  " + separatorLine)
	b.WriteString("\n\n")

	counts := fmt.Sprintf("%d new components  ·  %d new services  ·  %d new utilities  ·  %d breaking  ·  %d removed deps  ·  %d vulnerabilities",
		s.NewComponents, s.NewServices, s.NewUtilities, s.BreakingChanges, s.RemovedDependencies, s.Vulnerabilities)
	b.WriteString("  " + dimStyle.Render(counts) + "\n\n")

	// ── Recommendations ──
	if len(s.RecommendedActions) > 0 {
		b.WriteString("  " + titleStyle.Render("Recommended actions") + "\n\n")
		for _, a := range s.RecommendedActions {
			b.WriteString("    " + warnStyle.Render("→") + " " + a + "\n")
		}
	} else {
		b.WriteString("  " + passStyle.Render("No actions recommended.") + "\n")
	}

	b.WriteString("\n")
	return b.String()
}

func renderRepository(b *strings.Builder, r domain.RepositoryResult) {
	name := nameStyle.Render(padRight(r.Name, 28))
	if !r.IsAccessible {
		fmt.Fprintf(b, "  %s %s %s\n", failStyle.Render("✘"), name, faintStyle.Render(r.Error))
		return
	}
	ref := r.CommitRef
	if len(ref) > 7 {
		ref = ref[:7]
	}
	if ref == "" {
		ref = "·······"
	}
	detail := ""
	if r.Structure != nil {
		detail = fmt.Sprintf("%d components  %d services  %d utilities",
			len(r.Structure.Components), len(r.Structure.Services), len(r.Structure.Utilities))
	}
	fmt.Fprintf(b, "  %s %s %s  %s\n", passStyle.Render("●"), name, faintStyle.Render(ref), dimStyle.Render(detail))
}

func renderComparisonLine(b *strings.Builder, c domain.ComparisonResult) {
	label := nameStyle.Render(padRight(c.Base+" → "+c.Target, 32))
	if !c.Comparable {
		fmt.Fprintf(b, "  %s %s  %s\n", label, skipStyle.Render(padRight("not comparable", 24)), riskTag(c.RiskLevel))
		return
	}
	scoreText := lipgloss.NewStyle().Bold(true).Foreground(scoreColor(c.CompatibilityScore)).
		Render(fmt.Sprintf("%3d", c.CompatibilityScore))
	fmt.Fprintf(b, "  %s %s %s  %s\n", label, coloredBar(c.CompatibilityScore, 20), scoreText, riskTag(c.RiskLevel))
}

// RenderResultList formats stored runs for terminal output, newest first.
func RenderResultList(results []domain.AnalysisResult) string {
	if len(results) == 0 {
		return "  " + dimStyle.Render("No stored analysis results found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Analysis Results") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 64)) + "\n\n")

	for _, r := range results {
		s := r.Summary
		scoreStyled := lipgloss.NewStyle().
			Foreground(scoreColor(s.LowestScore)).
			Render(fmt.Sprintf("%3d/100", s.LowestScore))
		line := fmt.Sprintf("  %s  %s  %s  %s  %s",
			dimStyle.Render(r.CreatedAt.UTC().Format("2006-01-02 15:04")),
			faintStyle.Render(padRight(r.ID, 26)),
			scoreStyled,
			riskTag(s.OverallRisk),
			dimStyle.Render(fmt.Sprintf("%d comparisons", s.TotalComparisons)),
		)
		b.WriteString(line + "\n")
	}
	return b.String()
}

func severityTag(severity string) string {
	switch severity {
	case domain.SeverityError:
		return errorTagStyle.Render("error")
	case domain.SeverityWarning:
		return warnTagStyle.Render("warn ")
	default:
		return infoTagStyle.Render("info ")
	}
}

func riskTag(r domain.RiskLevel) string {
	c, ok := riskColors[r]
	if !ok {
		c = fg
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(string(r) + " risk")
}

func coloredBar(score, width int) string {
	filled := max(0, min(score*width/100, width))
	empty := width - filled

	color := scoreColor(score)
	filledStr := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyStr := lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("░", empty))
	return filledStr + emptyStr
}

func scoreColor(score int) lipgloss.Color {
	switch {
	case score >= 75:
		return success
	case score >= 60:
		return lime
	case score >= 50:
		return warning
	default:
		return danger
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func truncateOrPad(s string, width int) string {
	if len(s) > width {
		return s[:width-1] + "…"
	}
	return padRight(s, width)
}
