package parser

import (
	"bytes"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/modoturbo/repocompat/internal/domain"
)

var decisionTypes = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"switch_case":        true,
	"catch_clause":       true,
	"ternary_expression": true,
	"binary_expression":  true,
}

var impureRe = regexp.MustCompile(`\b(?:process\.env|localStorage|sessionStorage|document\.|window\.|fetch\s*\(|XMLHttpRequest|axios|navigator\.)`)

// countDecisions counts branching constructs in the subtree. Binary
// expressions only count for && and ||.
func countDecisions(n *sitter.Node, src []byte) int {
	count := 0
	walk(n, func(c *sitter.Node) {
		t := c.Type()
		if !decisionTypes[t] {
			return
		}
		if t == "binary_expression" && !isShortCircuit(c, src) {
			return
		}
		count++
	})
	return count
}

func isShortCircuit(n *sitter.Node, src []byte) bool {
	if op := n.ChildByFieldName("operator"); op != nil {
		s := op.Content(src)
		return s == "&&" || s == "||"
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if t := n.Child(i).Type(); t == "&&" || t == "||" {
			return true
		}
	}
	return false
}

// cyclomatic is 1 plus the decisions in the subtree.
func cyclomatic(n *sitter.Node, src []byte) int {
	return 1 + countDecisions(n, src)
}

// blockDepth returns the maximum number of simultaneously open
// statement blocks below n.
func blockDepth(n *sitter.Node, depth int) int {
	if n.Type() == "statement_block" {
		depth++
	}
	deepest := depth
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if d := blockDepth(n.NamedChild(i), depth); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// linesOfCode counts non-blank lines.
func linesOfCode(content []byte) int {
	n := 0
	for _, line := range bytes.Split(content, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}

// purity is impure when the function touches environment, storage, DOM or
// network primitives; pure when it performs no assignment outside a return
// statement; unknown otherwise.
func purity(fn *sitter.Node, src []byte) domain.Purity {
	if impureRe.MatchString(fn.Content(src)) {
		return domain.PurityImpure
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		return domain.PurityUnknown
	}
	if body.Type() != "statement_block" {
		return domain.PurityPure
	}
	if mutates(body, false) {
		return domain.PurityUnknown
	}
	return domain.PurityPure
}

func mutates(n *sitter.Node, inReturn bool) bool {
	switch n.Type() {
	case "return_statement":
		inReturn = true
	case "assignment_expression", "augmented_assignment_expression", "update_expression":
		if !inReturn {
			return true
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if mutates(n.NamedChild(i), inReturn) {
			return true
		}
	}
	return false
}

// reusability scores one function: purity (pure 40, unknown 20), export
// visibility 30, low complexity (<=5 30, <=10 15).
func reusability(fi domain.FunctionInfo) int {
	score := 0
	switch fi.Purity {
	case domain.PurityPure:
		score += 40
	case domain.PurityUnknown:
		score += 20
	}
	if fi.Exported {
		score += 30
	}
	switch {
	case fi.Complexity <= 5:
		score += 30
	case fi.Complexity <= 10:
		score += 15
	}
	return score
}
