package scoring

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/modoturbo/repocompat/internal/domain"
)

// RuleContext is what a compatibility rule inspects.
type RuleContext struct {
	Comparison        *domain.ComparisonResult
	FrameworkPackages []string
}

// Rule is a named compatibility check. Match returns a message when the rule
// fires; each rule fires at most once per comparison.
type Rule struct {
	ID          string
	Description string
	Severity    string
	Match       func(RuleContext) (string, bool)
}

// Evaluate runs rules in order and returns the violations.
func Evaluate(rules []Rule, ctx RuleContext) []domain.RuleViolation {
	var out []domain.RuleViolation
	for _, r := range rules {
		if r.Match == nil {
			continue
		}
		if msg, ok := r.Match(ctx); ok {
			out = append(out, domain.RuleViolation{RuleID: r.ID, Severity: r.Severity, Message: msg})
		}
	}
	return out
}

// RulesFor assembles the rule table for a run configuration: the built-in
// rules unless disabled, followed by the configured ones.
func RulesFor(cfg domain.ScoringConfig) []Rule {
	var rules []Rule
	if !cfg.DisableBuiltinRules {
		rules = append(rules, BuiltinRules()...)
	}
	for _, rc := range cfg.Rules {
		rules = append(rules, FromConfig(rc))
	}
	return rules
}

// BuiltinRules returns the stock compatibility rules.
func BuiltinRules() []Rule {
	return []Rule{
		{
			ID:          "breaking-endpoint",
			Description: "an endpoint contract changed incompatibly",
			Severity:    domain.SeverityError,
			Match: func(ctx RuleContext) (string, bool) {
				ep := ctx.Comparison.Endpoints
				if ep == nil || len(ep.BreakingChanges) == 0 {
					return "", false
				}
				return fmt.Sprintf("%d breaking endpoint change(s)", len(ep.BreakingChanges)), true
			},
		},
		{
			ID:          "framework-major-upgrade",
			Description: "a framework package moved to a new major version",
			Severity:    domain.SeverityError,
			Match: func(ctx RuleContext) (string, bool) {
				if ctx.Comparison.Dependencies == nil {
					return "", false
				}
				var names []string
				for _, u := range ctx.Comparison.Dependencies.Changes.BreakingUpdates() {
					if matchesAny(ctx.FrameworkPackages, u.Name) {
						names = append(names, fmt.Sprintf("%s %s -> %s", u.Name, u.OldVersion, u.NewVersion))
					}
				}
				if len(names) == 0 {
					return "", false
				}
				return "framework major upgrade: " + strings.Join(names, ", "), true
			},
		},
		{
			ID:          "manifest-removed",
			Description: "a dependency manifest was deleted",
			Severity:    domain.SeverityError,
			Match: func(ctx RuleContext) (string, bool) {
				for _, fc := range ctx.Comparison.Changes.DeletedFiles {
					if fc.FileKind == string(domain.FileManifest) && path.Base(fc.Path) == "package.json" {
						return fmt.Sprintf("manifest %s was removed", fc.Path), true
					}
				}
				return "", false
			},
		},
		{
			ID:          "new-critical-vulnerability",
			Description: "the target introduces critical vulnerabilities",
			Severity:    domain.SeverityError,
			Match:       vulnerabilityRule(domain.VulnCritical),
		},
		{
			ID:          "new-high-vulnerability",
			Description: "the target introduces high severity vulnerabilities",
			Severity:    domain.SeverityWarning,
			Match:       vulnerabilityRule(domain.VulnHigh),
		},
		{
			ID:          "tests-removed",
			Description: "test files were deleted",
			Severity:    domain.SeverityWarning,
			Match: func(ctx RuleContext) (string, bool) {
				n := 0
				for _, fc := range ctx.Comparison.Changes.DeletedFiles {
					if fc.FileKind == string(domain.FileTest) {
						n++
					}
				}
				if n == 0 {
					return "", false
				}
				return fmt.Sprintf("%d test file(s) removed", n), true
			},
		},
	}
}

func vulnerabilityRule(severity string) func(RuleContext) (string, bool) {
	return func(ctx RuleContext) (string, bool) {
		if ctx.Comparison.Dependencies == nil {
			return "", false
		}
		var pkgs []string
		for _, v := range ctx.Comparison.Dependencies.NewVulnerabilities {
			if v.Severity == severity {
				pkgs = append(pkgs, v.Package)
			}
		}
		if len(pkgs) == 0 {
			return "", false
		}
		return fmt.Sprintf("new %s vulnerabilities in %s", severity, strings.Join(pkgs, ", ")), true
	}
}

// FromConfig turns a configured rule into a table row. Dependency rules
// match dependency names with a glob; path rules match changed file paths.
func FromConfig(rc domain.RuleConfig) Rule {
	r := Rule{ID: rc.ID, Description: rc.Description, Severity: rc.Severity}
	if rc.Dependency != "" {
		r.Match = func(ctx RuleContext) (string, bool) {
			return matchDependency(rc, ctx.Comparison.Dependencies)
		}
		return r
	}
	r.Match = func(ctx RuleContext) (string, bool) {
		return matchPath(rc, ctx.Comparison.Changes)
	}
	return r
}

func matchDependency(rc domain.RuleConfig, dc *domain.DependencyComparison) (string, bool) {
	if dc == nil {
		return "", false
	}
	check := func(change, name string) (string, bool) {
		if rc.DependencyChange != "" && rc.DependencyChange != change {
			return "", false
		}
		if ok, _ := doublestar.Match(rc.Dependency, name); !ok {
			return "", false
		}
		return fmt.Sprintf("%s: dependency %s %s", ruleLabel(rc), name, change), true
	}
	for _, r := range dc.Changes.Added {
		if msg, ok := check(domain.DependencyChangeAdded, r.Name); ok {
			return msg, true
		}
	}
	for _, r := range dc.Changes.Removed {
		if msg, ok := check(domain.DependencyChangeRemoved, r.Name); ok {
			return msg, true
		}
	}
	for _, u := range dc.Changes.Updated {
		change := domain.DependencyChangeUpdated
		if u.IsBreaking && rc.DependencyChange != domain.DependencyChangeUpdated {
			change = domain.DependencyChangeBreaking
		}
		if msg, ok := check(change, u.Name); ok {
			return msg, true
		}
	}
	return "", false
}

func matchPath(rc domain.RuleConfig, cs domain.ChangeSet) (string, bool) {
	for _, list := range [][]domain.FileChange{cs.AddedFiles, cs.ModifiedFiles, cs.DeletedFiles} {
		for _, fc := range list {
			if rc.ChangeType != "" && rc.ChangeType != string(fc.ChangeType) {
				continue
			}
			if ok, _ := doublestar.Match(rc.Path, fc.Path); ok {
				return fmt.Sprintf("%s: %s %s", ruleLabel(rc), fc.Path, fc.ChangeType), true
			}
		}
	}
	return "", false
}

func ruleLabel(rc domain.RuleConfig) string {
	if rc.Description != "" {
		return rc.Description
	}
	return rc.ID
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
