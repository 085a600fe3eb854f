// Package deps compares dependency manifests.
package deps

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/modoturbo/repocompat/internal/domain"
)

// Update directions.
const (
	DirectionUpgrade   = "upgrade"
	DirectionDowngrade = "downgrade"
	DirectionChanged   = "changed"
)

// Compare partitions the union of both manifests' dependency names into
// added, removed, updated and unchanged records. Every list is sorted by name.
func Compare(base, target *domain.Manifest) domain.DependencyChangeSet {
	baseRecs := index(base.Records())
	targetRecs := index(target.Records())

	cs := domain.DependencyChangeSet{
		Added:     []domain.DependencyRecord{},
		Removed:   []domain.DependencyRecord{},
		Updated:   []domain.DependencyUpdate{},
		Unchanged: []domain.DependencyRecord{},
	}

	for _, name := range sortedKeys(targetRecs) {
		if _, ok := baseRecs[name]; !ok {
			cs.Added = append(cs.Added, targetRecs[name])
		}
	}
	for _, name := range sortedKeys(baseRecs) {
		old := baseRecs[name]
		cur, ok := targetRecs[name]
		if !ok {
			cs.Removed = append(cs.Removed, old)
			continue
		}
		if old.VersionRange == cur.VersionRange {
			cs.Unchanged = append(cs.Unchanged, cur)
			continue
		}
		cs.Updated = append(cs.Updated, domain.DependencyUpdate{
			Name:       name,
			OldVersion: old.VersionRange,
			NewVersion: cur.VersionRange,
			Scope:      cur.Scope,
			IsBreaking: IsBreaking(old.VersionRange, cur.VersionRange),
			Direction:  Direction(old.VersionRange, cur.VersionRange),
		})
	}
	return cs
}

// IsBreaking reports whether the leading numeric component grew between two
// version strings. Range prefixes are stripped first. Pre-1.0 versions get no
// special treatment.
func IsBreaking(oldVersion, newVersion string) bool {
	oldMajor, ok := LeadingNumber(oldVersion)
	if !ok {
		return false
	}
	newMajor, ok := LeadingNumber(newVersion)
	if !ok {
		return false
	}
	return newMajor > oldMajor
}

// LeadingNumber extracts the first numeric component of a version range.
func LeadingNumber(version string) (int, bool) {
	v := Normalize(version)
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Normalize strips range operators, a leading "v" and surrounding spaces.
func Normalize(version string) string {
	v := strings.TrimSpace(version)
	for {
		trimmed := strings.TrimLeft(v, "^~>=<= v")
		if trimmed == v {
			return v
		}
		v = trimmed
	}
}

// Direction classifies an update using semantic version ordering when both
// sides are valid versions.
func Direction(oldVersion, newVersion string) string {
	a, b := "v"+Normalize(oldVersion), "v"+Normalize(newVersion)
	if !semver.IsValid(a) || !semver.IsValid(b) {
		return DirectionChanged
	}
	switch semver.Compare(a, b) {
	case -1:
		return DirectionUpgrade
	case 1:
		return DirectionDowngrade
	default:
		return DirectionChanged
	}
}

// MajorOf returns the semver major of a version range, or "" when it cannot
// be determined.
func MajorOf(version string) string {
	v := "v" + Normalize(version)
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Major(v)
}

// NewVulnerabilities returns the reports present in target but not in base,
// keyed by package, severity and title.
func NewVulnerabilities(base, target []domain.VulnerabilityReport) []domain.VulnerabilityReport {
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[vulnKey(v)] = true
	}
	var out []domain.VulnerabilityReport
	for _, v := range target {
		if !seen[vulnKey(v)] {
			out = append(out, v)
		}
	}
	return out
}

func vulnKey(v domain.VulnerabilityReport) string {
	return v.Package + "|" + v.Severity + "|" + v.Title
}

func index(recs []domain.DependencyRecord) map[string]domain.DependencyRecord {
	m := make(map[string]domain.DependencyRecord, len(recs))
	for _, r := range recs {
		m[r.Name] = r
	}
	return m
}

func sortedKeys(m map[string]domain.DependencyRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
