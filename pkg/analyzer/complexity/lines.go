package complexity

import (
	"github.com/panbanda/remark/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// simpleStatements each occupy one logical line, however many physical
// lines they span.
var simpleStatements = map[string]bool{
	"expression_statement":    true,
	"return_statement":        true,
	"pass_statement":          true,
	"break_statement":         true,
	"continue_statement":      true,
	"raise_statement":         true,
	"assert_statement":        true,
	"import_statement":        true,
	"import_from_statement":   true,
	"future_import_statement": true,
	"global_statement":        true,
	"nonlocal_statement":      true,
	"delete_statement":        true,
	"type_alias_statement":    true,
}

// headers are compound statements and clauses whose header is one logical
// line on top of their bodies.
var headers = map[string]bool{
	"function_definition": true,
	"class_definition":    true,
	"if_statement":        true,
	"elif_clause":         true,
	"for_statement":       true,
	"while_statement":     true,
	"try_statement":       true,
	"except_clause":       true,
	"except_group_clause": true,
	"finally_clause":      true,
	"with_statement":      true,
	"match_statement":     true,
	"case_clause":         true,
}

// CountLogicalLines returns the number of logical lines under root in the
// canonical one-statement-per-line layout: one for each decorator, each
// simple statement and each compound statement or clause header. Source
// formatting does not matter, so a call wrapped over five lines is one line
// and `x = 1; y = 2` is two. Expression statements that hold only a string
// literal, such as docstrings, are not logical.
func CountLogicalLines(root *sitter.Node) int {
	if root == nil {
		return 0
	}

	switch t := root.Type(); {
	case t == "comment":
		return 0
	case t == "decorator":
		return 1
	case simpleStatements[t]:
		if stringOnly(root) {
			return 0
		}
		return 1
	}

	n := 0
	if countsHeader(root) {
		n++
	}
	for _, child := range parser.NamedChildren(root) {
		n += CountLogicalLines(child)
	}
	return n
}

// countsHeader reports whether node contributes a header line. The else of
// an if whose body is a lone if statement folds into that if as an elif.
func countsHeader(node *sitter.Node) bool {
	if node.Type() == "else_clause" {
		if p := node.Parent(); p == nil || p.Type() != "if_statement" {
			return true
		}
		stmts := parser.Statements(node.ChildByFieldName("body"))
		return len(stmts) != 1 || stmts[0].Type() != "if_statement"
	}
	return headers[node.Type()]
}

// stringOnly reports whether an expression statement is a bare string
// literal, possibly parenthesized or implicitly concatenated.
func stringOnly(stmt *sitter.Node) bool {
	if stmt.Type() != "expression_statement" {
		return false
	}
	exprs := parser.Statements(stmt)
	if len(exprs) != 1 {
		return false
	}
	expr := exprs[0]
	for expr.Type() == "parenthesized_expression" {
		inner := parser.Statements(expr)
		if len(inner) != 1 {
			return false
		}
		expr = inner[0]
	}
	return expr.Type() == "string" || expr.Type() == "concatenated_string"
}
