// Package commenter asks a text-generation service to explain the functions
// that review flags.
package commenter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/panbanda/remark/pkg/analyzer/review"
)

var (
	// ErrNoAPIKey is returned when no credential is configured.
	ErrNoAPIKey = errors.New("commenter API key not set")
	// ErrEmptyResponse is returned when the service answers without text.
	ErrEmptyResponse = errors.New("commenter returned no text")
)

// Request describes one function to comment on.
type Request struct {
	Path          string
	Function      string
	QualifiedName string
	Line          int
	Source        string
}

// Commenter produces an explanatory comment for a function.
type Commenter interface {
	Comment(ctx context.Context, req Request) (string, error)
}

// Annotation is a generated comment anchored to the line where a flagged
// function starts.
type Annotation struct {
	Line     int    `json:"line" yaml:"line" toon:"line"`
	Function string `json:"function" yaml:"function" toon:"function"`
	Comment  string `json:"comment" yaml:"comment" toon:"comment"`
}

const promptTemplate = `Read the Python function below and write one concise comment explaining what it does.
Do not alter the function and do not repeat its code.
Return only the comment text, without markdown formatting such as ` + "```" + `python.

Function %s (line %d):
%s
`

// Prompt builds the instruction sent for req.
func Prompt(req Request) string {
	name := req.QualifiedName
	if name == "" {
		name = req.Function
	}
	return fmt.Sprintf(promptTemplate, name, req.Line, req.Source)
}

// CharsPerToken is the approximate character-to-token ratio for code.
const CharsPerToken = 4.0

// EstimateTokens returns an approximate token count for text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	chars := utf8.RuneCountInString(text)
	return int(float64(chars)/CharsPerToken + 0.5)
}

// Requests builds one request per flagged function of result, in line order.
func Requests(result *review.Result) []Request {
	reqs := make([]Request, 0, len(result.Flagged))
	for _, fn := range result.Flagged {
		reqs = append(reqs, Request{
			Path:          result.Path,
			Function:      fn.Name,
			QualifiedName: fn.QualifiedName,
			Line:          int(fn.StartLine),
			Source:        fn.OriginalText,
		})
	}
	return reqs
}

// Annotate requests a comment for every flagged function of result, one at
// a time. On failure it returns the annotations gathered so far together
// with the error.
func Annotate(ctx context.Context, c Commenter, result *review.Result) ([]Annotation, error) {
	reqs := Requests(result)
	annotations := make([]Annotation, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return annotations, err
		}
		text, err := c.Comment(ctx, req)
		if err != nil {
			return annotations, fmt.Errorf("comment %s (line %d): %w", req.QualifiedName, req.Line, err)
		}
		annotations = append(annotations, Annotation{
			Line:     req.Line,
			Function: req.QualifiedName,
			Comment:  text,
		})
	}
	return annotations, nil
}

// Clean trims whitespace and strips a surrounding markdown fence from a
// generated reply.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// AsPythonComment renders text as '#' comment lines indented by indent.
func AsPythonComment(text, indent string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		b.WriteString(indent)
		if line == "" {
			b.WriteString("#\n")
			continue
		}
		if !strings.HasPrefix(line, "#") {
			b.WriteString("# ")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
