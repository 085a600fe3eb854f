package parser

import (
	"math"
	"path"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fatih/camelcase"

	"github.com/modoturbo/repocompat/internal/domain"
	"github.com/modoturbo/repocompat/internal/domain/patterns"
)

var builtinHooks = map[string]bool{
	"useState":             true,
	"useEffect":            true,
	"useContext":           true,
	"useReducer":           true,
	"useCallback":          true,
	"useMemo":              true,
	"useRef":               true,
	"useImperativeHandle":  true,
	"useLayoutEffect":      true,
	"useInsertionEffect":   true,
	"useDebugValue":        true,
	"useDeferredValue":     true,
	"useTransition":        true,
	"useId":                true,
	"useSyncExternalStore": true,
	"useOptimistic":        true,
	"useActionState":       true,
}

var componentDirs = map[string]bool{"components": true}

var serviceDirs = map[string]bool{
	"api": true, "services": true, "service": true, "clients": true, "repositories": true,
}

var serviceSuffixes = map[string]bool{
	"Service": true, "Client": true, "Api": true, "API": true,
	"Repository": true, "Gateway": true, "Provider": true, "Manager": true,
}

func (p *TSParser) build(rel string, content []byte, f *facts) *domain.SourceUnit {
	u := &domain.SourceUnit{
		Path:    rel,
		Name:    unitName(rel),
		Exports: sortedCopy(f.exports),
		Imports: f.imports,
	}
	u.Kind = classify(rel, content, f)

	loc := linesOfCode(content)
	cc := 1 + f.decisions

	switch u.Kind {
	case domain.KindComponent:
		info := componentInfo(u.Name, f, content)
		u.Component = info
		factor := float64(len(info.Props) + info.HookCount())
		u.Complexity = domain.NewComplexityMetrics(cc, loc, f.nesting, factor, float64(f.nesting))
	case domain.KindService:
		info := serviceInfo(f)
		u.Service = info
		if info.ClassName != "" {
			u.Name = info.ClassName
		}
		factor := float64(len(info.Methods) + len(info.Dependencies))
		u.Complexity = domain.NewComplexityMetrics(cc, loc, f.nesting, factor, float64(f.nesting))
	default:
		info := utilityInfo(f, content)
		u.Utility = info
		mean := 0.0
		for _, fn := range info.Functions {
			mean += float64(fn.Complexity)
		}
		if len(info.Functions) > 0 {
			mean /= float64(len(info.Functions))
		}
		u.Complexity = domain.NewComplexityMetrics(cc, loc, f.nesting, float64(len(info.Functions)), mean)
	}

	u.Patterns = p.rules.Detect(subject(u, f, content))
	return u
}

func subject(u *domain.SourceUnit, f *facts, content []byte) patterns.Subject {
	s := patterns.Subject{
		Kind:    u.Kind,
		Path:    u.Path,
		Name:    u.Name,
		Content: string(content),
	}
	for _, fn := range f.functions {
		s.Functions = append(s.Functions, fn.name)
	}
	for _, c := range f.classes {
		for _, m := range c.methods {
			s.Methods = append(s.Methods, m.Name)
		}
	}
	if u.Service != nil && len(s.Methods) == 0 {
		for _, m := range u.Service.Methods {
			s.Methods = append(s.Methods, m.Name)
		}
	}
	if u.Component != nil {
		s.BuiltinHooks = u.Component.BuiltinHooks
		s.CustomHooks = u.Component.CustomHooks
	}
	return s
}

// classify applies the component, service, utility precedence.
func classify(rel string, content []byte, f *facts) domain.UnitKind {
	dirs := strings.Split(path.Dir(rel), "/")
	for _, d := range dirs {
		if componentDirs[strings.ToLower(d)] {
			return domain.KindComponent
		}
	}
	if f.hasJSX || strings.Contains(string(content), "React.FC") || strings.Contains(string(content), "React.Component") {
		return domain.KindComponent
	}
	for _, d := range dirs {
		if serviceDirs[strings.ToLower(d)] {
			return domain.KindService
		}
	}
	for _, c := range f.classes {
		if isServiceName(c.name) {
			return domain.KindService
		}
	}
	return domain.KindUtility
}

func isServiceName(name string) bool {
	words := camelcase.Split(name)
	if len(words) == 0 {
		return false
	}
	return serviceSuffixes[words[len(words)-1]]
}

func componentInfo(name string, f *facts, content []byte) *domain.ComponentInfo {
	info := &domain.ComponentInfo{Props: propsFor(name, f, content)}
	for _, h := range f.hooks {
		if builtinHooks[h] {
			info.BuiltinHooks = append(info.BuiltinHooks, h)
		} else {
			info.CustomHooks = append(info.CustomHooks, h)
		}
	}
	sort.Strings(info.BuiltinHooks)
	sort.Strings(info.CustomHooks)
	return info
}

// propsFor looks for <Name>Props, then a sole *Props type, then the
// destructured first parameter of the first capitalized function.
func propsFor(name string, f *facts, content []byte) []domain.Member {
	candidates := map[string]bool{name + "Props": true}
	for _, fn := range f.functions {
		candidates[fn.name+"Props"] = true
	}
	for _, c := range f.classes {
		candidates[c.name+"Props"] = true
	}
	var propsTypes []typeDecl
	for _, t := range f.types {
		if candidates[t.name] {
			return t.members
		}
		if strings.HasSuffix(t.name, "Props") {
			propsTypes = append(propsTypes, t)
		}
	}
	if len(propsTypes) == 1 {
		return propsTypes[0].members
	}
	for _, fn := range f.functions {
		if !startsUpper(fn.name) || fn.paramsNode == nil || fn.paramsNode.NamedChildCount() == 0 {
			continue
		}
		first := fn.paramsNode.NamedChild(0)
		if pattern := first.ChildByFieldName("pattern"); pattern != nil {
			first = pattern
		}
		if first.Type() == "object_pattern" {
			return destructuredProps(first, content)
		}
		return nil
	}
	return nil
}

func serviceInfo(f *facts) *domain.ServiceInfo {
	info := &domain.ServiceInfo{}
	var chosen *class
	for i := range f.classes {
		if chosen == nil || (isServiceName(f.classes[i].name) && !isServiceName(chosen.name)) {
			chosen = &f.classes[i]
		}
	}
	if chosen != nil {
		info.ClassName = chosen.name
		info.Methods = chosen.methods
	} else {
		for _, fn := range f.functions {
			if !f.exported[fn.name] {
				continue
			}
			info.Methods = append(info.Methods, domain.MethodSignature{
				Name:       fn.name,
				Parameters: fn.params,
				ReturnType: fn.returnType,
				Async:      fn.async,
				Visibility: "public",
			})
		}
	}
	seen := map[string]bool{}
	for _, imp := range f.imports {
		if strings.HasPrefix(imp, ".") || strings.HasPrefix(imp, "/") || seen[imp] {
			continue
		}
		seen[imp] = true
		info.Dependencies = append(info.Dependencies, imp)
	}
	sort.Strings(info.Dependencies)
	return info
}

func utilityInfo(f *facts, content []byte) *domain.UtilityInfo {
	info := &domain.UtilityInfo{}
	total := 0
	for _, fn := range f.functions {
		fi := domain.FunctionInfo{
			Name:       fn.name,
			Parameters: fn.params,
			ReturnType: fn.returnType,
			Exported:   f.exported[fn.name],
			Purity:     purity(fn.node, content),
			Complexity: cyclomatic(fn.node, content),
		}
		total += reusability(fi)
		info.Functions = append(info.Functions, fi)
	}
	info.Constants = sortedCopy(f.constants)
	for _, t := range f.types {
		if f.exported[t.name] {
			info.Types = append(info.Types, t.name)
		}
	}
	sort.Strings(info.Types)
	if n := len(info.Functions); n > 0 {
		score := int(math.Round(float64(total) / float64(n)))
		info.ReusabilityScore = max(0, min(100, score))
	}
	return info
}

// unitName is the file stem, or the directory name for index files.
func unitName(rel string) string {
	base := path.Base(rel)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "index" {
		if dir := path.Base(path.Dir(rel)); dir != "." && dir != "/" {
			return dir
		}
	}
	return stem
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
