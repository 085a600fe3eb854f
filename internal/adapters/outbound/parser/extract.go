package parser

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/modoturbo/repocompat/internal/domain"
)

var hookNameRe = regexp.MustCompile(`^use[A-Z0-9]`)

type function struct {
	name       string
	params     []domain.Member
	returnType string
	async      bool
	node       *sitter.Node
	paramsNode *sitter.Node
}

type class struct {
	name    string
	methods []domain.MethodSignature
}

type typeDecl struct {
	name    string
	members []domain.Member
}

// facts is everything collected from one syntax tree.
type facts struct {
	imports   []string
	exports   []string
	exported  map[string]bool
	functions []function
	classes   []class
	types     []typeDecl
	constants []string
	hooks     []string
	hasJSX    bool
	decisions int
	nesting   int
}

func collect(root *sitter.Node, src []byte) *facts {
	f := &facts{exported: make(map[string]bool)}
	seenImport := make(map[string]bool)
	addImport := func(spec string) {
		if spec != "" && !seenImport[spec] {
			seenImport[spec] = true
			f.imports = append(f.imports, spec)
		}
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		f.topLevel(root.NamedChild(i), src, false, addImport)
	}

	seenHook := make(map[string]bool)
	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "call_expression":
			fn := n.ChildByFieldName("function")
			if fn == nil {
				return
			}
			name := calleeName(fn, src)
			if name == "require" {
				if spec := firstStringArg(n, src); spec != "" {
					addImport(spec)
				}
				return
			}
			if hookNameRe.MatchString(name) && !seenHook[name] {
				seenHook[name] = true
				f.hooks = append(f.hooks, name)
			}
		case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
			f.hasJSX = true
		}
	})
	f.decisions = countDecisions(root, src)
	f.nesting = blockDepth(root, 0)
	return f
}

func (f *facts) topLevel(n *sitter.Node, src []byte, exported bool, addImport func(string)) {
	switch n.Type() {
	case "import_statement":
		if s := n.ChildByFieldName("source"); s != nil {
			addImport(unquote(s.Content(src)))
		}
	case "export_statement":
		f.exportStatement(n, src, addImport)
	case "function_declaration", "generator_function_declaration":
		if name := fieldText(n, "name", src); name != "" {
			f.functions = append(f.functions, newFunction(name, n, src))
			f.markExported(name, exported)
		}
	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			d := n.NamedChild(i)
			if d.Type() != "variable_declarator" {
				continue
			}
			name := fieldText(d, "name", src)
			if name == "" {
				continue
			}
			if fn := functionValue(d.ChildByFieldName("value")); fn != nil {
				f.functions = append(f.functions, newFunction(name, fn, src))
			} else if exported {
				f.constants = append(f.constants, name)
			}
			f.markExported(name, exported)
		}
	case "class_declaration", "abstract_class_declaration", "class":
		if c := newClass(n, src); c.name != "" {
			f.classes = append(f.classes, c)
			f.markExported(c.name, exported)
		}
	case "interface_declaration", "type_alias_declaration":
		if name := fieldText(n, "name", src); name != "" {
			f.types = append(f.types, typeDecl{name: name, members: typeMembers(n, src)})
			f.markExported(name, exported)
		}
	case "enum_declaration":
		if name := fieldText(n, "name", src); name != "" {
			f.types = append(f.types, typeDecl{name: name})
			f.markExported(name, exported)
		}
	case "expression_statement":
		f.commonJSExport(n, src)
	}
}

func (f *facts) exportStatement(n *sitter.Node, src []byte, addImport func(string)) {
	isDefault := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "default" {
			isDefault = true
		}
	}
	if s := n.ChildByFieldName("source"); s != nil {
		addImport(unquote(s.Content(src)))
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		f.topLevel(decl, src, !isDefault, addImport)
		if isDefault {
			f.addExport("default")
			if name := fieldText(decl, "name", src); name != "" {
				f.exported[name] = true
			}
		}
		return
	}
	if v := n.ChildByFieldName("value"); v != nil {
		f.addExport("default")
		switch {
		case v.Type() == "identifier":
			f.exported[v.Content(src)] = true
		case functionValue(v) != nil:
			f.functions = append(f.functions, newFunction("default", functionValue(v), src))
			f.exported["default"] = true
		case v.Type() == "class":
			c := newClass(v, src)
			if c.name == "" {
				c.name = "default"
			}
			f.classes = append(f.classes, c)
			f.exported[c.name] = true
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			spec := clause.NamedChild(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			name := fieldText(spec, "name", src)
			alias := fieldText(spec, "alias", src)
			if alias == "" {
				alias = name
			}
			f.addExport(alias)
			f.exported[name] = true
		}
	}
}

// commonJSExport records module.exports = ... and exports.name = ... forms.
func (f *facts) commonJSExport(n *sitter.Node, src []byte) {
	expr := n.NamedChild(0)
	if expr == nil || expr.Type() != "assignment_expression" {
		return
	}
	left := expr.ChildByFieldName("left")
	right := expr.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	target := left.Content(src)
	switch {
	case target == "module.exports":
		switch right.Type() {
		case "identifier":
			f.addExport("default")
			f.exported[right.Content(src)] = true
		case "object":
			for i := 0; i < int(right.NamedChildCount()); i++ {
				p := right.NamedChild(i)
				switch p.Type() {
				case "shorthand_property_identifier":
					f.addExport(p.Content(src))
					f.exported[p.Content(src)] = true
				case "pair":
					key := fieldText(p, "key", src)
					f.addExport(key)
					if v := p.ChildByFieldName("value"); v != nil && v.Type() == "identifier" {
						f.exported[v.Content(src)] = true
					}
				}
			}
		default:
			f.addExport("default")
		}
	case strings.HasPrefix(target, "exports.") || strings.HasPrefix(target, "module.exports."):
		name := target[strings.LastIndex(target, ".")+1:]
		f.addExport(name)
		if fn := functionValue(right); fn != nil {
			f.functions = append(f.functions, newFunction(name, fn, src))
		}
		f.exported[name] = true
	}
}

func (f *facts) markExported(name string, exported bool) {
	if exported {
		f.addExport(name)
		f.exported[name] = true
	}
}

func (f *facts) addExport(name string) {
	for _, e := range f.exports {
		if e == name {
			return
		}
	}
	f.exports = append(f.exports, name)
}

// functionValue unwraps the function node of a declarator value. Wrapped
// functions such as forwardRef(() => ...) or memo(function () {...})
// resolve to the first function argument.
func functionValue(v *sitter.Node) *sitter.Node {
	if v == nil {
		return nil
	}
	switch v.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return v
	case "call_expression":
		args := v.ChildByFieldName("arguments")
		if args == nil {
			return nil
		}
		for i := 0; i < int(args.NamedChildCount()); i++ {
			if fn := functionValue(args.NamedChild(i)); fn != nil {
				return fn
			}
		}
	case "parenthesized_expression", "as_expression", "satisfies_expression":
		return functionValue(v.NamedChild(0))
	}
	return nil
}

func newFunction(name string, n *sitter.Node, src []byte) function {
	fn := function{name: name, node: n, async: hasToken(n, "async")}
	if params := n.ChildByFieldName("parameters"); params != nil {
		fn.paramsNode = params
		fn.params = parameters(params, src)
	} else if single := n.ChildByFieldName("parameter"); single != nil {
		fn.params = []domain.Member{{Name: single.Content(src), Required: true}}
	}
	fn.returnType = typeText(n.ChildByFieldName("return_type"), src)
	return fn
}

func newClass(n *sitter.Node, src []byte) class {
	c := class{name: fieldText(n, "name", src)}
	body := n.ChildByFieldName("body")
	if body == nil {
		return c
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		var fn *sitter.Node
		switch m.Type() {
		case "method_definition":
			fn = m
		case "public_field_definition", "field_definition":
			// Arrow-function fields are methods as far as callers can tell.
			if fn = functionValue(m.ChildByFieldName("value")); fn == nil {
				continue
			}
		default:
			continue
		}
		name := fieldText(m, "name", src)
		if name == "" {
			name = fieldText(m, "property", src)
		}
		if name == "" || name == "constructor" {
			continue
		}
		sig := domain.MethodSignature{
			Name:       name,
			ReturnType: typeText(fn.ChildByFieldName("return_type"), src),
			Async:      hasToken(fn, "async"),
			Static:     hasToken(m, "static"),
			Visibility: "public",
		}
		if strings.HasPrefix(name, "#") {
			sig.Visibility = "private"
		}
		for j := 0; j < int(m.ChildCount()); j++ {
			if ch := m.Child(j); ch.Type() == "accessibility_modifier" {
				sig.Visibility = ch.Content(src)
			}
		}
		if params := fn.ChildByFieldName("parameters"); params != nil {
			sig.Parameters = parameters(params, src)
		} else if single := fn.ChildByFieldName("parameter"); single != nil {
			sig.Parameters = []domain.Member{{Name: single.Content(src), Required: true}}
		}
		c.methods = append(c.methods, sig)
	}
	return c
}

func parameters(params *sitter.Node, src []byte) []domain.Member {
	var out []domain.Member
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "required_parameter", "optional_parameter":
			pattern := p.ChildByFieldName("pattern")
			if pattern == nil {
				continue
			}
			out = append(out, domain.Member{
				Name:     compact(pattern.Content(src)),
				Type:     typeText(p.ChildByFieldName("type"), src),
				Required: p.Type() == "required_parameter" && p.ChildByFieldName("value") == nil && pattern.Type() != "rest_pattern",
			})
		case "identifier", "object_pattern", "array_pattern":
			out = append(out, domain.Member{Name: compact(p.Content(src)), Required: true})
		case "assignment_pattern":
			left := p.ChildByFieldName("left")
			if left != nil {
				out = append(out, domain.Member{Name: compact(left.Content(src))})
			}
		case "rest_pattern":
			out = append(out, domain.Member{Name: compact(p.Content(src))})
		}
	}
	return out
}

// typeMembers returns the property signatures of an interface or of an
// object type alias.
func typeMembers(n *sitter.Node, src []byte) []domain.Member {
	body := n.ChildByFieldName("body")
	if body == nil {
		body = n.ChildByFieldName("value")
	}
	if body == nil {
		return nil
	}
	switch body.Type() {
	case "interface_body", "object_type":
	default:
		return nil
	}
	var out []domain.Member
	for i := 0; i < int(body.NamedChildCount()); i++ {
		p := body.NamedChild(i)
		if p.Type() != "property_signature" && p.Type() != "method_signature" {
			continue
		}
		m := domain.Member{
			Name:     fieldText(p, "name", src),
			Type:     typeText(p.ChildByFieldName("type"), src),
			Required: !hasToken(p, "?"),
		}
		if p.Type() == "method_signature" {
			m.Type = "method"
		}
		out = append(out, m)
	}
	return out
}

// destructuredProps reads the members of an object pattern parameter.
func destructuredProps(pattern *sitter.Node, src []byte) []domain.Member {
	var out []domain.Member
	for i := 0; i < int(pattern.NamedChildCount()); i++ {
		p := pattern.NamedChild(i)
		switch p.Type() {
		case "shorthand_property_identifier_pattern":
			out = append(out, domain.Member{Name: p.Content(src), Required: true})
		case "object_assignment_pattern":
			if left := p.ChildByFieldName("left"); left != nil {
				out = append(out, domain.Member{Name: left.Content(src)})
			}
		case "pair_pattern":
			out = append(out, domain.Member{Name: fieldText(p, "key", src), Required: true})
		}
	}
	return out
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

func calleeName(fn *sitter.Node, src []byte) string {
	switch fn.Type() {
	case "identifier":
		return fn.Content(src)
	case "member_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return prop.Content(src)
		}
	}
	return ""
}

func firstStringArg(call *sitter.Node, src []byte) string {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return ""
	}
	if a := args.NamedChild(0); a.Type() == "string" {
		return unquote(a.Content(src))
	}
	return ""
}

func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == token {
			return true
		}
	}
	return false
}

func fieldText(n *sitter.Node, field string, src []byte) string {
	if c := n.ChildByFieldName(field); c != nil {
		return c.Content(src)
	}
	return ""
}

func typeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return compact(strings.TrimPrefix(strings.TrimSpace(n.Content(src)), ":"))
}

func unquote(s string) string {
	return strings.Trim(s, "'\"`")
}

// compact collapses runs of whitespace so multi-line types compare equal.
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
