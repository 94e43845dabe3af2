package commenter

import (
	"strings"

	"github.com/panbanda/remark/pkg/analyzer/review"
)

// Insert returns src with each annotation written as '#' comment lines
// above its function, and above the function's decorators when it has any.
// Annotations whose line matches no flagged function are ignored.
func Insert(src []byte, result *review.Result, annotations []Annotation) []byte {
	lines := strings.SplitAfter(string(src), "\n")

	above := make(map[int]string, len(annotations))
	for _, a := range annotations {
		fn, ok := flaggedAt(result, a.Line)
		if !ok || a.Line < 1 || a.Line > len(lines) {
			continue
		}
		def := lines[a.Line-1]
		indent := def[:len(def)-len(strings.TrimLeft(def, " \t"))]
		first := a.Line
		if fn.DecoratorLine >= 1 && int(fn.DecoratorLine) < first {
			first = int(fn.DecoratorLine)
		}
		above[first] += AsPythonComment(a.Comment, indent)
	}

	var b strings.Builder
	b.Grow(len(src))
	for i, line := range lines {
		if c, ok := above[i+1]; ok {
			b.WriteString(c)
		}
		b.WriteString(line)
	}
	return []byte(b.String())
}

func flaggedAt(result *review.Result, line int) (review.Function, bool) {
	for _, fn := range result.Flagged {
		if int(fn.StartLine) == line {
			return fn, true
		}
	}
	return review.Function{}, false
}
