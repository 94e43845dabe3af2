package review

import (
	"fmt"

	"github.com/panbanda/remark/pkg/analyzer/complexity"
)

// Key identifies one function unambiguously within a source text.
type Key struct {
	QualifiedName string `json:"qualified_name"`
	StartLine     uint32 `json:"start_line"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.QualifiedName, k.StartLine)
}

// Function is a measured function unit.
type Function struct {
	Name          string             `json:"name" yaml:"name" toon:"name"`
	QualifiedName string             `json:"qualified_name" yaml:"qualified_name" toon:"qualified_name"`
	StartLine     uint32             `json:"start_line" yaml:"start_line" toon:"start_line"`
	EndLine       uint32             `json:"end_line" yaml:"end_line" toon:"end_line"`
	DecoratorLine uint32             `json:"decorator_line" yaml:"decorator_line" toon:"decorator_line"`
	Async         bool               `json:"async,omitempty" yaml:"async,omitempty" toon:"async,omitempty"`
	Metrics       complexity.Metrics `json:"metrics" yaml:"metrics" toon:"metrics"`
	Violations    []string           `json:"violations,omitempty" yaml:"violations,omitempty" toon:"violations,omitempty"`
	AnalysisText  string             `json:"analysis_text" yaml:"analysis_text" toon:"analysis_text"`
	OriginalText  string             `json:"original_text" yaml:"original_text" toon:"original_text"`
}

// Key returns the function's result key.
func (f Function) Key() Key {
	return Key{QualifiedName: f.QualifiedName, StartLine: f.StartLine}
}

// Entry is the name-keyed view of a flagged function.
type Entry struct {
	StartLine    uint32 `json:"start_line"`
	AnalysisText string `json:"analysis_text"`
	OriginalText string `json:"original_text"`
}

// Result is the outcome of analyzing one source text.
// Flagged and Passed are in source order and never share a function.
type Result struct {
	Path       string                `json:"path,omitempty" yaml:"path,omitempty" toon:"path,omitempty"`
	Thresholds complexity.Thresholds `json:"thresholds" yaml:"thresholds" toon:"thresholds"`
	Flagged    []Function            `json:"flagged" yaml:"flagged" toon:"flagged"`
	Passed     []Function            `json:"passed,omitempty" yaml:"passed,omitempty" toon:"passed,omitempty"`
	Errors     []*AnalysisError      `json:"errors,omitempty" yaml:"errors,omitempty" toon:"errors,omitempty"`
}

// ByName returns flagged functions keyed by bare name. When two flagged
// functions share a name the one later in the source wins, so entries can
// be lost; use Flagged or Lookup when every function matters.
func (r *Result) ByName() map[string]Entry {
	m := make(map[string]Entry, len(r.Flagged))
	for _, f := range r.Flagged {
		m[f.Name] = Entry{
			StartLine:    f.StartLine,
			AnalysisText: f.AnalysisText,
			OriginalText: f.OriginalText,
		}
	}
	return m
}

// Lookup finds a flagged or passing function by key.
func (r *Result) Lookup(k Key) (Function, bool) {
	for _, set := range [][]Function{r.Flagged, r.Passed} {
		for _, f := range set {
			if f.Key() == k {
				return f, true
			}
		}
	}
	return Function{}, false
}

// Measured returns the number of functions that were measured.
func (r *Result) Measured() int {
	return len(r.Flagged) + len(r.Passed)
}

// AnalysisError reports a function that could not be measured. The function
// is left out of both Flagged and Passed; the rest of the run is unaffected.
type AnalysisError struct {
	Function      string `json:"function" yaml:"function" toon:"function"`
	QualifiedName string `json:"qualified_name" yaml:"qualified_name" toon:"qualified_name"`
	StartLine     uint32 `json:"start_line" yaml:"start_line" toon:"start_line"`
	Reason        string `json:"reason" yaml:"reason" toon:"reason"`

	err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s (line %d): %s", e.QualifiedName, e.StartLine, e.Reason)
}

// Unwrap returns the underlying cause. It is nil for errors restored from
// the result cache.
func (e *AnalysisError) Unwrap() error {
	return e.err
}
