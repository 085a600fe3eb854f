// Package endpoint compares endpoint descriptors between two snapshots.
package endpoint

import (
	"fmt"
	"sort"

	"github.com/modoturbo/repocompat/internal/domain"
)

// Version compatibility labels reported by Aggregate.
var (
	CompatibleVersions = []string{"next patch", "next minor", "next major"}
	BreakingVersions   = []string{"next major"}
)

// CompareEndpoint checks a target endpoint against its base counterpart. A
// nil base means the endpoint is new, which is always compatible.
func CompareEndpoint(target domain.EndpointDescriptor, base *domain.EndpointDescriptor) domain.EndpointCompatibilityResult {
	res := domain.EndpointCompatibilityResult{
		Endpoint:     target.Key(),
		IsCompatible: true,
		RiskLevel:    domain.RiskLow,
	}
	if base == nil {
		return res
	}

	key := target.Key()
	var findings []domain.CompatibilityFinding
	add := func(category, severity, description, guidance string) {
		findings = append(findings, domain.CompatibilityFinding{
			Category:          category,
			Severity:          severity,
			Endpoint:          key,
			Description:       description,
			MigrationGuidance: guidance,
		})
	}

	targetParams := paramsByName(target.Parameters)
	baseParams := paramsByName(base.Parameters)

	for _, name := range sortedNames(baseParams) {
		old := baseParams[name]
		cur, ok := targetParams[name]
		switch {
		case !ok && old.Required:
			add(domain.CategoryBreakingChange, domain.SeverityError,
				fmt.Sprintf("required parameter %q was removed", name),
				fmt.Sprintf("Stop sending %q or keep accepting it until all clients are migrated.", name))
		case !ok:
			add(domain.CategoryDeprecation, domain.SeverityWarning,
				fmt.Sprintf("optional parameter %q was removed", name),
				fmt.Sprintf("Remove %q from client requests; it is now ignored.", name))
		case old.Type != cur.Type && old.Type != "" && cur.Type != "":
			add(domain.CategoryDataFormat, domain.SeverityError,
				fmt.Sprintf("parameter %q changed type from %s to %s", name, old.Type, cur.Type),
				fmt.Sprintf("Send %q as %s.", name, cur.Type))
		case !old.Required && cur.Required:
			add(domain.CategoryBreakingChange, domain.SeverityError,
				fmt.Sprintf("parameter %q is now required", name),
				fmt.Sprintf("Always send %q in %s.", name, cur.In))
		}
	}
	for _, name := range sortedNames(targetParams) {
		cur := targetParams[name]
		if _, ok := baseParams[name]; ok || !cur.Required {
			continue
		}
		add(domain.CategoryBreakingChange, domain.SeverityError,
			fmt.Sprintf("new required parameter %q", name),
			fmt.Sprintf("Update clients to send %q in %s.", name, cur.In))
	}

	if base.Response.StatusCode != 0 && target.Response.StatusCode != 0 && base.Response.StatusCode != target.Response.StatusCode {
		add(domain.CategoryBreakingChange, domain.SeverityError,
			fmt.Sprintf("success status changed from %d to %d", base.Response.StatusCode, target.Response.StatusCode),
			fmt.Sprintf("Accept status %d as success.", target.Response.StatusCode))
	}
	if base.Response.ContentType != "" && target.Response.ContentType != "" && base.Response.ContentType != target.Response.ContentType {
		add(domain.CategoryDataFormat, domain.SeverityError,
			fmt.Sprintf("response content type changed from %s to %s", base.Response.ContentType, target.Response.ContentType),
			fmt.Sprintf("Parse responses as %s.", target.Response.ContentType))
	}

	switch {
	case base.Auth.Required != target.Auth.Required && target.Auth.Required:
		add(domain.CategoryAuthFlow, domain.SeverityError,
			"endpoint now requires authentication",
			fmt.Sprintf("Send %s credentials with every request.", schemeOrDefault(target.Auth.Scheme)))
	case base.Auth.Required != target.Auth.Required:
		add(domain.CategoryAuthFlow, domain.SeverityWarning,
			"endpoint no longer requires authentication",
			"Review whether clients still need to send credentials.")
	case base.Auth.Required && base.Auth.Scheme != target.Auth.Scheme:
		add(domain.CategoryAuthFlow, domain.SeverityError,
			fmt.Sprintf("auth scheme changed from %s to %s", schemeOrDefault(base.Auth.Scheme), schemeOrDefault(target.Auth.Scheme)),
			fmt.Sprintf("Switch clients to %s credentials.", schemeOrDefault(target.Auth.Scheme)))
	}

	res.Findings = findings
	breaking := 0
	for _, f := range findings {
		if f.IsBreaking() {
			breaking++
		}
	}
	switch {
	case breaking > 1:
		res.IsCompatible = false
		res.RiskLevel = domain.RiskHigh
	case breaking == 1:
		res.IsCompatible = false
		res.RiskLevel = domain.RiskMedium
	}
	return res
}

// Removed builds the result for a base endpoint the target no longer exposes.
func Removed(base domain.EndpointDescriptor) domain.EndpointCompatibilityResult {
	key := base.Key()
	return domain.EndpointCompatibilityResult{
		Endpoint:     key,
		IsCompatible: false,
		RiskLevel:    domain.RiskHigh,
		Findings: []domain.CompatibilityFinding{{
			Category:          domain.CategoryBreakingChange,
			Severity:          domain.SeverityError,
			Endpoint:          key,
			Description:       "endpoint was removed",
			MigrationGuidance: fmt.Sprintf("Migrate clients off %s before integrating.", key),
		}},
	}
}

// Aggregate folds per-endpoint results into a report.
func Aggregate(results []domain.EndpointCompatibilityResult) domain.EndpointReport {
	report := domain.EndpointReport{BackwardCompatible: true, Results: results}
	for _, r := range results {
		if !r.IsCompatible {
			report.BackwardCompatible = false
		}
		for _, f := range r.Findings {
			if f.IsBreaking() {
				report.BreakingChanges = append(report.BreakingChanges, f)
			} else {
				report.Deprecations = append(report.Deprecations, f)
			}
		}
	}
	if len(report.BreakingChanges) > 0 {
		report.VersionCompatibility = append([]string(nil), BreakingVersions...)
	} else {
		report.VersionCompatibility = append([]string(nil), CompatibleVersions...)
	}
	return report
}

// Match pairs target endpoints with base endpoints by method and path and
// returns the aggregated report. Base endpoints missing from target are
// reported as removed.
func Match(base, target []domain.EndpointDescriptor) domain.EndpointReport {
	baseByKey := make(map[string]domain.EndpointDescriptor, len(base))
	for _, e := range base {
		baseByKey[e.Key()] = e
	}
	seen := make(map[string]bool, len(target))

	sortedTarget := append([]domain.EndpointDescriptor(nil), target...)
	sort.Slice(sortedTarget, func(i, j int) bool { return sortedTarget[i].Key() < sortedTarget[j].Key() })

	var results []domain.EndpointCompatibilityResult
	for _, t := range sortedTarget {
		seen[t.Key()] = true
		if b, ok := baseByKey[t.Key()]; ok {
			results = append(results, CompareEndpoint(t, &b))
		} else {
			results = append(results, CompareEndpoint(t, nil))
		}
	}

	keys := make([]string, 0, len(baseByKey))
	for k := range baseByKey {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		results = append(results, Removed(baseByKey[k]))
	}
	return Aggregate(results)
}

func paramsByName(params []domain.EndpointParameter) map[string]domain.EndpointParameter {
	m := make(map[string]domain.EndpointParameter, len(params))
	for _, p := range params {
		m[p.Name] = p
	}
	return m
}

func sortedNames(m map[string]domain.EndpointParameter) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func schemeOrDefault(s string) string {
	if s == "" {
		return "the required"
	}
	return s
}
