// Package extract splits Python source into self-contained function units.
//
// Every function definition is reported, whether it sits at module level,
// inside a class body, or inside another function. Each unit carries two
// reconstructions of its source: the verbatim text, and an analysis text in
// which the function's own nested definitions have been cut out so they do
// not inflate its metrics.
package extract

import (
	"bytes"
	"strings"

	"github.com/panbanda/remark/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// ScopeKind identifies what kind of definition opened a scope.
type ScopeKind string

const (
	ScopeClass    ScopeKind = "class"
	ScopeFunction ScopeKind = "function"
)

// Scope is an enclosing class or function definition.
type Scope struct {
	Kind      ScopeKind
	Name      string
	StartLine uint32
	Parent    *Scope
}

// Path returns the dotted names from the outermost scope down to s.
func (s *Scope) Path() string {
	if s == nil {
		return ""
	}
	if s.Parent == nil {
		return s.Name
	}
	return s.Parent.Path() + "." + s.Name
}

// Unit is one function or method definition.
type Unit struct {
	Name          string
	QualifiedName string
	Parent        *Scope
	StartLine     uint32
	EndLine       uint32
	Async         bool

	// DecoratorLine is the first line of the definition: its first
	// decorator, or StartLine when it has none.
	DecoratorLine uint32

	// AnalysisText has the direct nested definitions removed.
	AnalysisText string
	// OriginalText is the full definition including nested definitions.
	OriginalText string
}

// Source parses src and extracts its function units.
func Source(src []byte) ([]Unit, error) {
	psr := parser.New()
	defer psr.Close()

	res, err := psr.Parse(src, "")
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return Extract(res), nil
}

// Extract returns every function definition in res in source order.
func Extract(res *parser.ParseResult) []Unit {
	c := &collector{source: res.Source}
	c.visit(res.Root(), nil)
	return c.units
}

type collector struct {
	source []byte
	units  []Unit
}

func (c *collector) visit(node *sitter.Node, scope *Scope) {
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			c.visitFunction(child, scope)
		case "class_definition":
			name := parser.GetNodeText(child.ChildByFieldName("name"), c.source)
			inner := &Scope{
				Kind:      ScopeClass,
				Name:      name,
				StartLine: child.StartPoint().Row + 1,
				Parent:    scope,
			}
			c.visit(child, inner)
		default:
			c.visit(child, scope)
		}
	}
}

func (c *collector) visitFunction(fn *sitter.Node, scope *Scope) {
	name := parser.GetNodeText(fn.ChildByFieldName("name"), c.source)

	unit := Unit{
		Name:      name,
		Parent:    scope,
		StartLine: fn.StartPoint().Row + 1,
		EndLine:   fn.EndPoint().Row + 1,
		Async:     parser.IsAsync(fn),
	}
	unit.QualifiedName = name
	if scope != nil {
		unit.QualifiedName = scope.Path() + "." + name
	}

	outer := fn
	if p := fn.Parent(); p != nil && p.Type() == "decorated_definition" {
		outer = p
	}

	unit.DecoratorLine = outer.StartPoint().Row + 1
	unit.OriginalText = reconstruct(c.source, outer, nil)
	unit.AnalysisText = reconstruct(c.source, outer, nestedDefinitions(fn))
	c.units = append(c.units, unit)

	inner := &Scope{
		Kind:      ScopeFunction,
		Name:      name,
		StartLine: unit.StartLine,
		Parent:    scope,
	}
	c.visit(fn, inner)
}

// nestedDefinitions returns the function definitions that are direct
// statements of fn's body, with their decorators.
func nestedDefinitions(fn *sitter.Node) []*sitter.Node {
	var defs []*sitter.Node
	for _, stmt := range parser.Statements(fn.ChildByFieldName("body")) {
		if parser.FunctionDefinition(stmt) != nil {
			defs = append(defs, stmt)
		}
	}
	return defs
}

// reconstruct returns the text of node with the physical lines of each
// removed node dropped, dedented by the indentation of node's first line.
func reconstruct(source []byte, node *sitter.Node, removed []*sitter.Node) string {
	start := int(node.StartByte())
	end := int(node.EndByte())
	indent := leadingIndent(source, start)

	var b strings.Builder
	pos := start
	for _, r := range removed {
		cutStart := lineStart(source, int(r.StartByte()))
		cutEnd := lineEnd(source, int(r.EndByte()))
		if cutStart < pos {
			cutStart = pos
		}
		if cutStart > pos {
			b.Write(source[pos:cutStart])
		}
		pos = cutEnd
	}
	if pos < end {
		b.Write(source[pos:end])
	}

	return dedent(b.String(), indent)
}

// leadingIndent returns the whitespace between the start of the line
// containing offset and offset itself.
func leadingIndent(source []byte, offset int) []byte {
	ls := lineStart(source, offset)
	prefix := source[ls:offset]
	if len(bytes.TrimLeft(prefix, " \t\f")) != 0 {
		return nil
	}
	return prefix
}

func lineStart(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	if i := bytes.LastIndexByte(source[:offset], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// lineEnd returns the offset just past the newline that ends the line
// containing offset-1.
func lineEnd(source []byte, offset int) int {
	if offset > len(source) {
		return len(source)
	}
	if offset > 0 && source[offset-1] == '\n' {
		return offset
	}
	if i := bytes.IndexByte(source[offset:], '\n'); i >= 0 {
		return offset + i + 1
	}
	return len(source)
}

// dedent strips indent from every line after the first. Lines that do not
// carry the exact prefix are left alone unless they are blank.
func dedent(text string, indent []byte) string {
	lines := strings.Split(text, "\n")
	prefix := string(indent)
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		switch {
		case prefix != "" && strings.HasPrefix(line, prefix):
			lines[i] = line[len(prefix):]
		case strings.TrimSpace(line) == "":
			lines[i] = ""
		}
	}
	out := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	return out + "\n"
}
