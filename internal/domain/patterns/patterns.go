// Package patterns detects idioms in parsed source units through ordered
// rule tables. New heuristics are added as rows, never as control flow.
package patterns

import (
	"regexp"
	"strings"

	"github.com/modoturbo/repocompat/internal/domain"
)

// Subject is the view of a source file that rules inspect.
type Subject struct {
	Kind         domain.UnitKind
	Path         string
	Name         string
	Content      string
	Functions    []string
	Methods      []string
	BuiltinHooks []string
	CustomHooks  []string
}

// Rule is one row of a detection table. A rule with an empty Kind applies to
// every unit kind.
type Rule struct {
	Label      string
	Confidence float64
	Kind       domain.UnitKind
	Match      func(Subject) bool
}

// Table is an ordered list of rules; detection order follows table order.
type Table []Rule

// Detect evaluates every applicable rule and returns the ones that fired.
func (t Table) Detect(s Subject) []domain.PatternMatch {
	var out []domain.PatternMatch
	for _, r := range t {
		if r.Kind != "" && r.Kind != s.Kind {
			continue
		}
		if r.Match != nil && r.Match(s) {
			out = append(out, domain.PatternMatch{Name: r.Label, Confidence: r.Confidence})
		}
	}
	return out
}

// With returns a copy of t extended with extra rules.
func (t Table) With(rules ...Rule) Table {
	out := make(Table, 0, len(t)+len(rules))
	out = append(out, t...)
	return append(out, rules...)
}

// Default returns the stock component and service rule tables.
func Default() Table {
	return ComponentRules.With(ServiceRules...)
}

var (
	hocDeclRe      = regexp.MustCompile(`\b(?:function\s+|const\s+|let\s+)with[A-Z]\w*`)
	hocParamRe     = regexp.MustCompile(`\(\s*(?:Wrapped)?Component\b[^)]*\)\s*(?:=>|\{)`)
	forwardRefRe   = regexp.MustCompile(`\bforwardRef\s*[<(]`)
	propSpreadRe   = regexp.MustCompile(`\{\s*\.\.\.(?:props|rest|otherProps|restProps)\s*\}`)
	createCtxRe    = regexp.MustCompile(`\bcreateContext\s*[<(]|\.Provider\b`)
	consumerRe     = regexp.MustCompile(`\.Consumer\b`)
	singletonRe    = regexp.MustCompile(`\bstatic\s+(?:get\s+)?_?instance\b|\bgetInstance\s*\(|\bexport\s+default\s+new\s+[A-Z]|\bexport\s+const\s+\w+\s*=\s*new\s+[A-Z]`)
	hookNameRe     = regexp.MustCompile(`^use[A-Z0-9]`)
	factoryNameRe  = regexp.MustCompile(`^(?:create|build|make)[A-Z]`)
	returnsNewRe   = regexp.MustCompile(`\breturn\s+new\s+[A-Z]`)
	dataVerbGroups = [][]string{
		{"create", "insert", "add"},
		{"get", "find", "fetch", "list", "read", "load"},
		{"update", "save", "patch", "upsert"},
		{"delete", "remove", "destroy"},
	}
)

// ComponentRules detect UI component idioms.
var ComponentRules = Table{
	{
		Label: "higher-order-component", Confidence: 0.8, Kind: domain.KindComponent,
		Match: func(s Subject) bool {
			return hocDeclRe.MatchString(s.Content) || hocParamRe.MatchString(s.Content)
		},
	},
	{
		Label: "forward-ref", Confidence: 0.9, Kind: domain.KindComponent,
		Match: func(s Subject) bool { return forwardRefRe.MatchString(s.Content) },
	},
	{
		Label: "prop-spreading", Confidence: 0.7, Kind: domain.KindComponent,
		Match: func(s Subject) bool { return propSpreadRe.MatchString(s.Content) },
	},
	{
		Label: "custom-hook", Confidence: 0.9, Kind: domain.KindComponent,
		Match: func(s Subject) bool { return anyMatch(s.Functions, hookNameRe) },
	},
	{
		Label: "context-provider", Confidence: 0.85, Kind: domain.KindComponent,
		Match: func(s Subject) bool { return createCtxRe.MatchString(s.Content) },
	},
	{
		Label: "context-consumer", Confidence: 0.6, Kind: domain.KindComponent,
		Match: func(s Subject) bool {
			return containsString(s.BuiltinHooks, "useContext") || consumerRe.MatchString(s.Content)
		},
	},
}

// ServiceRules detect service-layer idioms.
var ServiceRules = Table{
	{
		Label: "singleton", Confidence: 0.9, Kind: domain.KindService,
		Match: func(s Subject) bool { return singletonRe.MatchString(s.Content) },
	},
	{
		Label: "repository", Confidence: 0.8, Kind: domain.KindService,
		Match: func(s Subject) bool {
			return strings.HasSuffix(s.Name, "Repository") || dataVerbCoverage(s.Methods) >= 3
		},
	},
	{
		Label: "factory", Confidence: 0.75, Kind: domain.KindService,
		Match: func(s Subject) bool {
			if strings.HasSuffix(s.Name, "Factory") {
				return true
			}
			return anyMatch(s.Methods, factoryNameRe) && returnsNewRe.MatchString(s.Content)
		},
	},
}

// dataVerbCoverage counts how many CRUD verb groups the method names cover.
func dataVerbCoverage(methods []string) int {
	covered := 0
	for _, group := range dataVerbGroups {
		if hasVerbPrefix(methods, group) {
			covered++
		}
	}
	return covered
}

func hasVerbPrefix(methods, verbs []string) bool {
	for _, m := range methods {
		lower := strings.ToLower(m)
		for _, v := range verbs {
			if strings.HasPrefix(lower, v) {
				return true
			}
		}
	}
	return false
}

func anyMatch(names []string, re *regexp.Regexp) bool {
	for _, n := range names {
		if re.MatchString(n) {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
