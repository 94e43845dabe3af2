package complexity

import (
	"github.com/panbanda/remark/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Kind is the closed set of syntax constructs the condition counter
// distinguishes. Every node maps to exactly one Kind.
type Kind int

const (
	KindOther Kind = iota
	KindIf
	KindElif
	KindFor
	KindWhile
	KindMatch
)

func (k Kind) String() string {
	switch k {
	case KindIf:
		return "if"
	case KindElif:
		return "elif"
	case KindFor:
		return "for"
	case KindWhile:
		return "while"
	case KindMatch:
		return "match"
	case KindOther:
		return "other"
	}
	return "unknown"
}

// Classify maps a syntax node to its Kind.
// async for loops are not for statements under this policy.
func Classify(node *sitter.Node) Kind {
	switch node.Type() {
	case "if_statement":
		return KindIf
	case "elif_clause":
		return KindElif
	case "for_statement":
		if parser.IsAsync(node) {
			return KindOther
		}
		return KindFor
	case "while_statement":
		return KindWhile
	case "match_statement":
		return KindMatch
	default:
		return KindOther
	}
}

// CountConditions walks the tree rooted at root once, tallying branch
// points and the deepest nesting of if/for/while/match constructs.
func CountConditions(root *sitter.Node) Conditions {
	c := &conditionCounter{}
	c.visit(root)
	c.result.MaxDepth = c.maxDepth
	return c.result
}

type conditionCounter struct {
	result   Conditions
	depth    int
	maxDepth int
}

func (c *conditionCounter) visit(node *sitter.Node) {
	if node == nil {
		return
	}

	switch kind := Classify(node); kind {
	case KindIf:
		c.result.If += ScoreTest(node.ChildByFieldName("condition"))
		if hasTerminalElse(node) {
			c.result.If++
		}
		c.nested(node)
	case KindElif:
		// An elif is scored like its own if but shares the if's level.
		c.result.If += ScoreTest(node.ChildByFieldName("condition"))
		c.children(node)
	case KindFor:
		c.result.For++
		c.nested(node)
	case KindWhile:
		c.result.While += ScoreTest(node.ChildByFieldName("condition"))
		c.nested(node)
	case KindMatch:
		c.result.Match += len(caseClauses(node))
		c.nested(node)
	case KindOther:
		c.children(node)
	}
}

func (c *conditionCounter) nested(node *sitter.Node) {
	c.depth++
	if c.depth > c.maxDepth {
		c.maxDepth = c.depth
	}
	c.children(node)
	c.depth--
}

func (c *conditionCounter) children(node *sitter.Node) {
	for i := range int(node.NamedChildCount()) {
		c.visit(node.NamedChild(i))
	}
}

// ScoreTest scores a condition expression: and/or chains score the sum of
// their operands, negation scores its operand, and any other expression
// scores 1. Parentheses are transparent.
func ScoreTest(expr *sitter.Node) int {
	if expr == nil {
		return 1
	}

	switch expr.Type() {
	case "boolean_operator":
		return ScoreTest(expr.ChildByFieldName("left")) + ScoreTest(expr.ChildByFieldName("right"))
	case "not_operator", "unary_operator":
		return ScoreTest(expr.ChildByFieldName("argument"))
	case "parenthesized_expression":
		if inner := parser.Statements(expr); len(inner) == 1 {
			return ScoreTest(inner[0])
		}
		return 1
	default:
		return 1
	}
}

// hasTerminalElse reports whether an if statement ends in an else branch
// whose first statement is not itself an if.
func hasTerminalElse(ifNode *sitter.Node) bool {
	for _, child := range parser.NamedChildren(ifNode) {
		if child.Type() != "else_clause" {
			continue
		}
		stmts := parser.Statements(child.ChildByFieldName("body"))
		if len(stmts) == 0 {
			return true
		}
		return stmts[0].Type() != "if_statement"
	}
	return false
}

// caseClauses returns the case arms of a match statement. Depending on the
// grammar version the arms hang off the statement or off its body block.
func caseClauses(match *sitter.Node) []*sitter.Node {
	var arms []*sitter.Node
	for _, child := range parser.NamedChildren(match) {
		switch child.Type() {
		case "case_clause":
			arms = append(arms, child)
		case "block":
			for _, inner := range parser.NamedChildren(child) {
				if inner.Type() == "case_clause" {
					arms = append(arms, inner)
				}
			}
		}
	}
	return arms
}
