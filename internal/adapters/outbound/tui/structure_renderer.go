package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/modoturbo/repocompat/internal/domain"
)

const structureMaxRows = 25

// RenderStructure renders the units of one snapshot as a table, most complex first.
func RenderStructure(ps *domain.ProjectStructure) string {
	if ps == nil {
		return "\n  " + dimStyle.Render("No structure available.") + "\n\n"
	}

	var b strings.Builder
	title := headerStyle.Render("Structure")
	root := nameStyle.Render(ps.RootPath)
	stats := dimStyle.Render(fmt.Sprintf("%d components  ·  %d services  ·  %d utilities  ·  %d files  ·  %d skipped",
		len(ps.Components), len(ps.Services), len(ps.Utilities), len(ps.Files), len(ps.Skipped)))
	b.WriteString(boxStyle.Render(title + "\n\n" + root + "\n" + stats))
	b.WriteString("\n\n")

	units := ps.Units()
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Complexity.Score != units[j].Complexity.Score {
			return units[i].Complexity.Score > units[j].Complexity.Score
		}
		return units[i].Path < units[j].Path
	})

	hdr := fmt.Sprintf("  %-40s %-10s %4s %4s  %-7s  %s", "Path", "Kind", "CC", "LOC", "Level", "Patterns")
	b.WriteString(titleStyle.Render(hdr) + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 80)) + "\n")

	shown := min(structureMaxRows, len(units))
	for _, u := range units[:shown] {
		var names []string
		for _, p := range u.Patterns {
			names = append(names, p.Name)
		}
		patterns := dimStyle.Render("—")
		if len(names) > 0 {
			patterns = dimStyle.Render(strings.Join(names, ", "))
		}
		fmt.Fprintf(&b, "  %s %-10s %4d %4d  %s  %s\n",
			dimStyle.Render(truncateOrPad(u.Path, 40)),
			string(u.Kind),
			u.Complexity.CyclomaticComplexity,
			u.Complexity.LinesOfCode,
			levelLabel(u.Complexity.Level),
			patterns,
		)
	}
	if remaining := len(units) - shown; remaining > 0 {
		b.WriteString(faintStyle.Render(fmt.Sprintf("  (%d more units)\n", remaining)))
	}

	if len(ps.Skipped) > 0 {
		b.WriteString("\n  " + titleStyle.Render("Skipped") + "\n")
		for _, s := range ps.Skipped {
			fmt.Fprintf(&b, "    %s %s  %s\n", skipStyle.Render("○"), fileStyle.Render(s.Path), faintStyle.Render(s.Reason))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func levelLabel(level domain.ComplexityLevel) string {
	s := padRight(string(level), 7)
	switch level {
	case domain.ComplexityHigh:
		return failStyle.Render(s)
	case domain.ComplexityMedium:
		return warnStyle.Render(s)
	default:
		return passStyle.Render(s)
	}
}

// RenderDependencyDiff renders a manifest comparison.
func RenderDependencyDiff(cs domain.DependencyChangeSet) string {
	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", titleStyle.Render("Dependencies"),
		dimStyle.Render(fmt.Sprintf("%d added  ·  %d removed  ·  %d updated  ·  %d unchanged",
			len(cs.Added), len(cs.Removed), len(cs.Updated), len(cs.Unchanged))))
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 64)) + "\n")

	for _, r := range cs.Removed {
		fmt.Fprintf(&b, "    %s %s %s  %s\n", failStyle.Render("−"), padRight(r.Name, 30), r.VersionRange, faintStyle.Render(string(r.Scope)))
	}
	for _, r := range cs.Added {
		fmt.Fprintf(&b, "    %s %s %s  %s\n", passStyle.Render("+"), padRight(r.Name, 30), r.VersionRange, faintStyle.Render(string(r.Scope)))
	}
	for _, u := range cs.Updated {
		mark := warnStyle.Render("~")
		note := faintStyle.Render(u.Direction)
		if u.IsBreaking {
			mark = failStyle.Render("!")
			note = errorTagStyle.Render("breaking")
		}
		fmt.Fprintf(&b, "    %s %s %s → %s  %s\n", mark, padRight(u.Name, 30), u.OldVersion, u.NewVersion, note)
	}
	if len(cs.Added)+len(cs.Removed)+len(cs.Updated) == 0 {
		b.WriteString("    " + passStyle.Render("(no changes)") + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// RenderTree renders a resolved dependency tree as an indented outline.
func RenderTree(nodes []domain.DependencyTreeNode) string {
	if len(nodes) == 0 {
		return "  " + dimStyle.Render("No dependencies resolved.") + "\n"
	}
	var b strings.Builder
	var walk func(ns []domain.DependencyTreeNode, prefix string)
	walk = func(ns []domain.DependencyTreeNode, prefix string) {
		for i, n := range ns {
			branch, next := "├─ ", "│  "
			if i == len(ns)-1 {
				branch, next = "└─ ", "   "
			}
			fmt.Fprintf(&b, "  %s%s %s\n", faintStyle.Render(prefix+branch), n.Name, dimStyle.Render(n.Version))
			walk(n.Dependencies, prefix+next)
		}
	}
	walk(nodes, "")
	return b.String()
}

// RenderVulnerabilities lists audit findings, most severe first.
func RenderVulnerabilities(vulns []domain.VulnerabilityReport) string {
	if len(vulns) == 0 {
		return "  " + passStyle.Render("No known vulnerabilities.") + "\n"
	}
	order := map[string]int{domain.VulnCritical: 0, domain.VulnHigh: 1, domain.VulnModerate: 2, domain.VulnLow: 3}
	sorted := append([]domain.VulnerabilityReport(nil), vulns...)
	sort.SliceStable(sorted, func(i, j int) bool { return order[sorted[i].Severity] < order[sorted[j].Severity] })

	var b strings.Builder
	for _, v := range sorted {
		tag := infoTagStyle.Render(padRight(v.Severity, 8))
		switch v.Severity {
		case domain.VulnCritical, domain.VulnHigh:
			tag = errorTagStyle.Render(padRight(v.Severity, 8))
		case domain.VulnModerate:
			tag = warnTagStyle.Render(padRight(v.Severity, 8))
		}
		fmt.Fprintf(&b, "  %s %s %s  %s\n", tag, nameStyle.Render(v.Package), dimStyle.Render(v.Version), v.Title)
	}
	return b.String()
}

// RenderEndpoints lists endpoint descriptors.
func RenderEndpoints(eps []domain.EndpointDescriptor) string {
	if len(eps) == 0 {
		return "  " + dimStyle.Render("No endpoints found.") + "\n"
	}
	var b strings.Builder
	for _, e := range eps {
		auth := faintStyle.Render("public")
		if e.Auth.Required {
			auth = warnStyle.Render("auth:" + e.Auth.Scheme)
		}
		var params []string
		for _, p := range e.Parameters {
			name := p.In + "." + p.Name
			if !p.Required {
				name += "?"
			}
			params = append(params, name)
		}
		fmt.Fprintf(&b, "  %s %s %s %s  %s\n",
			nameStyle.Render(padRight(e.Method, 7)),
			padRight(e.Path, 36),
			dimStyle.Render(fmt.Sprintf("%d %s", e.Response.StatusCode, e.Response.ContentType)),
			auth,
			faintStyle.Render(strings.Join(params, " ")),
		)
	}
	return b.String()
}
