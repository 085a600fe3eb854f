package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/modoturbo/repocompat/internal/domain"
)

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle          = lipgloss.NewStyle().Foreground(dim).Italic(true)
)

// RenderComparison renders one base/target comparison in detail.
func RenderComparison(c domain.ComparisonResult) string {
	var b strings.Builder

	header := titleStyle.Render(c.Base+" → "+c.Target) + "  " + riskTag(c.RiskLevel)
	scoreLine := dimStyle.Render("not comparable")
	if c.Comparable {
		scoreLine = lipgloss.NewStyle().
			Bold(true).
			Foreground(scoreColor(c.CompatibilityScore)).
			Render(fmt.Sprintf("%d/100", c.CompatibilityScore))
	}
	b.WriteString(boxStyle.Render(header + "\n" + scoreLine))
	b.WriteString("\n")

	renderFileChanges(&b, c.Changes)
	renderSection(&b, "New Features", c.NewFeatures, passStyle)
	renderSection(&b, "Improvements", c.Improvements, passStyle)
	renderSection(&b, "Potential Issues", c.PotentialIssues, failStyle)
	renderViolations(&b, c.RuleViolations)
	if c.Endpoints != nil {
		renderEndpointReport(&b, *c.Endpoints)
	}
	renderSection(&b, "Recommendations", c.Recommendations, warnStyle)

	b.WriteString("\n")
	if c.Comparable && len(c.Changes.ModifiedFiles)+len(c.Changes.AddedFiles)+len(c.Changes.DeletedFiles) == 0 {
		b.WriteString("  " + hintStyle.Render("No structural differences detected."))
		b.WriteString("\n")
	}
	return b.String()
}

func renderSection(b *strings.Builder, title string, items []string, bullet lipgloss.Style) {
	if len(items) == 0 {
		return
	}

	b.WriteString("\n")
	fmt.Fprintf(b, "  %s %s\n",
		sectionHeaderStyle.Render(title),
		dimStyle.Render(fmt.Sprintf("(%d)", len(items))),
	)
	for _, item := range items {
		fmt.Fprintf(b, "    %s %s\n", bullet.Render("●"), item)
	}
}

func renderFileChanges(b *strings.Builder, cs domain.ChangeSet) {
	total := len(cs.AddedFiles) + len(cs.ModifiedFiles) + len(cs.DeletedFiles)
	if total == 0 {
		return
	}

	b.WriteString("\n")
	fmt.Fprintf(b, "  %s %s\n",
		sectionHeaderStyle.Render("File Changes"),
		dimStyle.Render(fmt.Sprintf("%d added  ·  %d modified  ·  %d deleted",
			len(cs.AddedFiles), len(cs.ModifiedFiles), len(cs.DeletedFiles))),
	)

	var all []domain.FileChange
	all = append(all, cs.DeletedFiles...)
	all = append(all, cs.ModifiedFiles...)
	all = append(all, cs.AddedFiles...)
	for _, fc := range all {
		if fc.Impact == domain.ImpactNeutral {
			continue
		}
		line := fmt.Sprintf("    %s %s %s", impactIcon(fc.Impact), changeLabel(fc.ChangeType), fileStyle.Render(fc.Path))
		if len(fc.Details) > 0 {
			line += "  " + faintStyle.Render(strings.Join(fc.Details, "; "))
		}
		b.WriteString(line + "\n")
	}
}

func impactIcon(i domain.Impact) string {
	switch i {
	case domain.ImpactBreaking:
		return failStyle.Render("●")
	case domain.ImpactAdditive:
		return passStyle.Render("●")
	default:
		return skipStyle.Render("○")
	}
}

func changeLabel(t domain.ChangeType) string {
	switch t {
	case domain.ChangeAdded:
		return passStyle.Render("A")
	case domain.ChangeDeleted:
		return failStyle.Render("D")
	default:
		return warnStyle.Render("M")
	}
}

func renderViolations(b *strings.Builder, violations []domain.RuleViolation) {
	if len(violations) == 0 {
		return
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "  %s %s\n",
		sectionHeaderStyle.Render("Rule Violations"),
		dimStyle.Render(fmt.Sprintf("(%d)", len(violations))),
	)
	for _, v := range violations {
		fmt.Fprintf(b, "    %s %s %s\n", severityTag(v.Severity), fileStyle.Render(v.RuleID), dimStyle.Render(v.Message))
	}
}

func renderEndpointReport(b *strings.Builder, r domain.EndpointReport) {
	b.WriteString("\n")
	status := passStyle.Render("backward compatible")
	if !r.BackwardCompatible {
		status = failStyle.Render("breaking")
	}
	fmt.Fprintf(b, "  %s %s  %s\n",
		sectionHeaderStyle.Render("Endpoints"),
		status,
		dimStyle.Render("safe versions: "+strings.Join(r.VersionCompatibility, ", ")),
	)
	var findings []domain.CompatibilityFinding
	findings = append(findings, r.BreakingChanges...)
	findings = append(findings, r.Deprecations...)
	for _, f := range findings {
		fmt.Fprintf(b, "    %s %s\n", severityTag(f.Severity), fileStyle.Render(f.Endpoint))
		fmt.Fprintf(b, "          %s\n", dimStyle.Render(f.Description))
		fmt.Fprintf(b, "          %s\n", hintStyle.Render(f.MigrationGuidance))
	}
}

// RenderEndpointReport renders a standalone endpoint compatibility report.
func RenderEndpointReport(r domain.EndpointReport) string {
	var b strings.Builder
	renderEndpointReport(&b, r)
	if len(r.BreakingChanges)+len(r.Deprecations) == 0 {
		b.WriteString("    " + hintStyle.Render("No contract changes detected."))
		b.WriteString("\n")
	}
	return b.String()
}
