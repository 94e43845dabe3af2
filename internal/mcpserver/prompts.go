package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptArgument is a {{name}} placeholder a prompt body accepts.
type promptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default"`
}

type promptTemplate struct {
	Name        string           `yaml:"-"`
	Description string           `yaml:"description"`
	Arguments   []promptArgument `yaml:"arguments"`
	Body        string           `yaml:"-"`
}

// registerPrompts registers every embedded markdown prompt under its file name.
func (s *Server) registerPrompts() {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			continue
		}

		tmpl := parsePrompt(content)
		tmpl.Name = strings.TrimSuffix(entry.Name(), ".md")

		prompt := &mcp.Prompt{Name: tmpl.Name, Description: tmpl.Description}
		for _, a := range tmpl.Arguments {
			prompt.Arguments = append(prompt.Arguments, &mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		s.server.AddPrompt(prompt, tmpl.handle)
	}
}

// parsePrompt splits YAML frontmatter from a prompt body. Content without
// well-formed frontmatter is all body.
func parsePrompt(content []byte) promptTemplate {
	whole := promptTemplate{Body: string(content)}
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return whole
	}

	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return whole
	}

	var tmpl promptTemplate
	if err := yaml.Unmarshal(rest[:end], &tmpl); err != nil {
		return whole
	}
	tmpl.Body = strings.TrimPrefix(string(rest[end+5:]), "\n")
	return tmpl
}

// Render substitutes args into the body. Missing optional arguments take
// their default; a missing required argument is an error.
func (p promptTemplate) Render(args map[string]string) (string, error) {
	pairs := make([]string, 0, 2*len(p.Arguments))
	for _, a := range p.Arguments {
		v, ok := args[a.Name]
		if !ok || v == "" {
			if a.Required {
				return "", fmt.Errorf("prompt %s: missing required argument %q", p.Name, a.Name)
			}
			v = a.Default
		}
		pairs = append(pairs, "{{"+a.Name+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(p.Body), nil
}

func (p promptTemplate) handle(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var args map[string]string
	if req.Params != nil {
		args = req.Params.Arguments
	}
	text, err := p.Render(args)
	if err != nil {
		return nil, err
	}
	return &mcp.GetPromptResult{
		Description: p.Description,
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}, nil
}
