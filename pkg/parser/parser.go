package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrUnsupportedLanguage is returned when a file is not Python source.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language represents a supported programming language.
type Language string

const (
	LangPython  Language = "python"
	LangUnknown Language = "unknown"
)

// ParseError reports that a source text is not syntactically valid.
// Line and Column are 1-based and point at the first offending node.
// Reason names a construct the grammar accepts but Python 3 rejects.
type ParseError struct {
	Path   string
	Line   uint32
	Column uint32
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("%d:%d", e.Line, e.Column)
	if e.Path != "" {
		loc = e.Path + ":" + loc
	}
	if e.Err != nil {
		return fmt.Sprintf("parse error at %s: %v", loc, e.Err)
	}
	if e.Reason != "" {
		return fmt.Sprintf("syntax error at %s: %s", loc, e.Reason)
	}
	return "syntax error at " + loc
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser wraps tree-sitter for Python parsing.
// A Parser is not safe for concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// Root returns the root node of the parsed tree.
func (r *ParseResult) Root() *sitter.Node {
	return r.Tree.RootNode()
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile reads and parses a Python source file.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	if DetectLanguage(path) == LangUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.Parse(source, path)
}

// Parse parses Python source. Syntax errors are reported as *ParseError;
// no partial tree is returned in that case.
func (p *Parser) Parse(source []byte, path string) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	root := tree.RootNode()
	if root.HasError() {
		perr := &ParseError{Path: path, Line: 1, Column: 1}
		if bad := FirstError(root); bad != nil {
			perr.Line, perr.Column = position(bad)
		}
		tree.Close()
		return nil, perr
	}
	if bad, reason := FirstInvalid(root); bad != nil {
		line, col := position(bad)
		tree.Close()
		return nil, &ParseError{Path: path, Line: line, Column: col, Reason: reason}
	}

	return &ParseResult{
		Tree:     tree,
		Language: LangPython,
		Source:   source,
		Path:     path,
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// Close releases the tree held by the result.
func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
	}
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyw", ".pyi":
		return LangPython
	default:
		return LangUnknown
	}
}

// FirstError returns the first ERROR or MISSING node in pre-order, or nil.
func FirstError(node *sitter.Node) *sitter.Node {
	var found *sitter.Node
	Walk(node, nil, func(n *sitter.Node, _ []byte) bool {
		if found != nil {
			return false
		}
		if n.IsMissing() || n.Type() == "ERROR" {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// legacyStatements are Python 2 statements the grammar still parses.
var legacyStatements = map[string]string{
	"print_statement": "print statement",
	"exec_statement":  "exec statement",
}

// FirstInvalid returns the first node of an error-free tree that Python 3
// would still reject, with a short description, or nil. It finds Python 2
// print and exec statements and unparenthesized assignment expressions used
// as statements.
func FirstInvalid(node *sitter.Node) (*sitter.Node, string) {
	var found *sitter.Node
	var reason string
	WalkTyped(node, nil, func(n *sitter.Node, nodeType string, _ []byte) bool {
		if found != nil {
			return false
		}
		if r, ok := legacyStatements[nodeType]; ok {
			found, reason = n, r
			return false
		}
		if nodeType == "named_expression" {
			if p := n.Parent(); p != nil && p.Type() == "expression_statement" {
				found, reason = n, "unparenthesized assignment expression"
				return false
			}
		}
		return true
	})
	return found, reason
}

func position(n *sitter.Node) (line, column uint32) {
	pt := n.StartPoint()
	return pt.Row + 1, pt.Column + 1
}

// NodeVisitor is a function that visits AST nodes.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST calling visitor for each node.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST with cached node types to reduce CGO overhead.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// NamedChildren returns the named children of node.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	n := int(node.NamedChildCount())
	children := make([]*sitter.Node, 0, n)
	for i := range n {
		children = append(children, node.NamedChild(i))
	}
	return children
}

// Statements returns the statements of a block, skipping comments.
func Statements(block *sitter.Node) []*sitter.Node {
	var stmts []*sitter.Node
	for _, child := range NamedChildren(block) {
		if child.Type() == "comment" {
			continue
		}
		stmts = append(stmts, child)
	}
	return stmts
}

// FunctionDefinition unwraps a decorated definition to its function, or
// returns node itself when it is a function definition. Returns nil otherwise.
func FunctionDefinition(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "function_definition":
		return node
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil && def.Type() == "function_definition" {
			return def
		}
	}
	return nil
}

// IsAsync reports whether a function or for statement carries the async keyword.
func IsAsync(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if child.IsNamed() {
			continue
		}
		switch child.Type() {
		case "async":
			return true
		case "def", "for", "with":
			return false
		}
	}
	return false
}
