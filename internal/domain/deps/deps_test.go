package deps_test

import (
	"math/rand"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoturbo/repocompat/internal/domain"
	"github.com/modoturbo/repocompat/internal/domain/deps"
)

func names(recs []domain.DependencyRecord) []string {
	out := []string{}
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func TestCompare_EndToEnd(t *testing.T) {
	base := &domain.Manifest{Dependencies: map[string]string{"a": "1.0.0", "b": "2.0.0"}}
	target := &domain.Manifest{Dependencies: map[string]string{"a": "1.0.0", "c": "1.0.0"}}

	cs := deps.Compare(base, target)

	assert.Equal(t, []string{"c"}, names(cs.Added))
	assert.Equal(t, []string{"b"}, names(cs.Removed))
	assert.Equal(t, []string{"a"}, names(cs.Unchanged))
	assert.Empty(t, cs.Updated)
}

func TestCompare_NilManifests(t *testing.T) {
	cs := deps.Compare(nil, &domain.Manifest{DevDependencies: map[string]string{"jest": "^29.0.0"}})
	require.Len(t, cs.Added, 1)
	assert.Equal(t, domain.ScopeDev, cs.Added[0].Scope)
	assert.Empty(t, cs.Removed)
}

func TestCompare_RuntimeWinsOverDev(t *testing.T) {
	base := &domain.Manifest{
		Dependencies:    map[string]string{"react": "^17.0.0"},
		DevDependencies: map[string]string{"react": "^16.0.0"},
	}
	target := &domain.Manifest{Dependencies: map[string]string{"react": "^18.2.0"}}

	cs := deps.Compare(base, target)
	require.Len(t, cs.Updated, 1)
	u := cs.Updated[0]
	assert.Equal(t, "^17.0.0", u.OldVersion)
	assert.True(t, u.IsBreaking)
	assert.Equal(t, deps.DirectionUpgrade, u.Direction)
	assert.Equal(t, domain.ScopeRuntime, u.Scope)
}

func TestCompare_PartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		base := &domain.Manifest{Dependencies: map[string]string{}}
		target := &domain.Manifest{Dependencies: map[string]string{}}
		for i := 0; i < 20; i++ {
			name := "pkg" + strconv.Itoa(i)
			switch rng.Intn(4) {
			case 0:
				base.Dependencies[name] = "1.0.0"
			case 1:
				target.Dependencies[name] = "1.0.0"
			case 2:
				base.Dependencies[name] = "1.0.0"
				target.Dependencies[name] = "1.0.0"
			case 3:
				base.Dependencies[name] = "1.0.0"
				target.Dependencies[name] = "2." + strconv.Itoa(rng.Intn(3)) + ".0"
			}
		}

		cs := deps.Compare(base, target)

		var wantAdded, wantRemoved, wantCommon []string
		for n := range target.Dependencies {
			if _, ok := base.Dependencies[n]; !ok {
				wantAdded = append(wantAdded, n)
			}
		}
		for n := range base.Dependencies {
			if _, ok := target.Dependencies[n]; ok {
				wantCommon = append(wantCommon, n)
			} else {
				wantRemoved = append(wantRemoved, n)
			}
		}

		assert.ElementsMatch(t, wantAdded, names(cs.Added))
		assert.ElementsMatch(t, wantRemoved, names(cs.Removed))

		updated := map[string]bool{}
		var common []string
		for _, u := range cs.Updated {
			updated[u.Name] = true
			common = append(common, u.Name)
		}
		for _, r := range cs.Unchanged {
			assert.False(t, updated[r.Name], "%s is both updated and unchanged", r.Name)
			common = append(common, r.Name)
		}
		sort.Strings(common)
		assert.ElementsMatch(t, wantCommon, common)
	}
}

func TestIsBreaking(t *testing.T) {
	tests := []struct {
		old, new string
		want     bool
	}{
		{"1.2.3", "2.0.0", true},
		{"1.2.3", "1.3.0", false},
		{"^1.2.3", "^2.0.0", true},
		{"~4.17.0", "~4.18.0", false},
		{">=1.0.0", "v3.0.0", true},
		{"0.1.0", "0.2.0", false},
		{"2.0.0", "1.0.0", false},
		{"latest", "2.0.0", false},
		{"*", "1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.old+"->"+tt.new, func(t *testing.T) {
			assert.Equal(t, tt.want, deps.IsBreaking(tt.old, tt.new))
		})
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, deps.DirectionUpgrade, deps.Direction("^1.2.3", "^1.3.0"))
	assert.Equal(t, deps.DirectionDowngrade, deps.Direction("2.0.0", "1.9.9"))
	assert.Equal(t, deps.DirectionChanged, deps.Direction("latest", "next"))
	assert.Equal(t, deps.DirectionChanged, deps.Direction("1.0.0", "=1.0.0"))
}

func TestMajorOf(t *testing.T) {
	assert.Equal(t, "v18", deps.MajorOf("^18.2.0"))
	assert.Equal(t, "", deps.MajorOf("workspace:*"))
}

func TestNewVulnerabilities(t *testing.T) {
	base := []domain.VulnerabilityReport{{Package: "lodash", Severity: domain.VulnHigh, Title: "Prototype Pollution"}}
	target := []domain.VulnerabilityReport{
		{Package: "lodash", Severity: domain.VulnHigh, Title: "Prototype Pollution"},
		{Package: "minimist", Severity: domain.VulnCritical, Title: "Prototype Pollution"},
	}
	got := deps.NewVulnerabilities(base, target)
	require.Len(t, got, 1)
	assert.Equal(t, "minimist", got[0].Package)
}
