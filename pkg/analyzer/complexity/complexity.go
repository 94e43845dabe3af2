// Package complexity measures the structural complexity of a single Python
// function: branch count, maximum control-flow nesting, and logical lines.
package complexity

import (
	"errors"

	"github.com/panbanda/remark/pkg/parser"
)

// ErrNotFunction is returned when a reconstructed text does not hold a
// single function definition.
var ErrNotFunction = errors.New("text is not a function definition")

// ErrEmptyBody is returned when a function has no statements left, which
// happens when its body consisted only of nested definitions.
var ErrEmptyBody = errors.New("function body is empty")

// Measure computes the metrics of a parsed function text.
func Measure(res *parser.ParseResult) Metrics {
	root := res.Root()
	cond := CountConditions(root)
	return Metrics{
		BranchCount:  cond.Total(),
		MaxDepth:     cond.MaxDepth,
		LogicalLines: CountLogicalLines(root),
	}
}

// ParseFunction re-parses a reconstructed function text and checks that it
// is a complete function definition with a non-empty body.
// The caller owns the returned result and must Close it.
func ParseFunction(psr *parser.Parser, text string) (*parser.ParseResult, error) {
	res, err := psr.Parse([]byte(text), "")
	if err != nil {
		return nil, err
	}

	stmts := parser.Statements(res.Root())
	if len(stmts) != 1 || parser.FunctionDefinition(stmts[0]) == nil {
		res.Close()
		return nil, ErrNotFunction
	}
	fn := parser.FunctionDefinition(stmts[0])
	if len(parser.Statements(fn.ChildByFieldName("body"))) == 0 {
		res.Close()
		return nil, ErrEmptyBody
	}

	return res, nil
}

// MeasureText parses a reconstructed function text and measures it.
func MeasureText(psr *parser.Parser, text string) (Metrics, error) {
	res, err := ParseFunction(psr, text)
	if err != nil {
		return Metrics{}, err
	}
	defer res.Close()
	return Measure(res), nil
}
