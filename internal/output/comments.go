package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/remark/pkg/commenter"
)

// CommentReport lists the comments generated for one file's flagged
// functions.
type CommentReport struct {
	Path        string                 `json:"path" yaml:"path" toon:"path"`
	Annotations []commenter.Annotation `json:"annotations" yaml:"annotations" toon:"annotations"`
}

func (r *CommentReport) RenderData() any {
	return r
}

func (r *CommentReport) RenderText(w io.Writer, colored bool) error {
	for _, a := range r.Annotations {
		title := fmt.Sprintf("%s:%d %s", r.Path, a.Line, a.Function)
		if colored {
			color.New(color.FgCyan, color.Bold).Fprintln(w, title)
		} else {
			fmt.Fprintln(w, title)
		}
		fmt.Fprintln(w, a.Comment)
		fmt.Fprintln(w, strings.Repeat("-", 30))
	}
	return nil
}

func (r *CommentReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# Comments for %s\n\n", r.Path)
	for _, a := range r.Annotations {
		fmt.Fprintf(w, "## `%s` (line %d)\n\n%s\n\n", a.Function, a.Line, a.Comment)
	}
	return nil
}
