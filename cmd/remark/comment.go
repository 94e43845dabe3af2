package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/panbanda/remark/internal/output"
	"github.com/panbanda/remark/pkg/analyzer/review"
	"github.com/panbanda/remark/pkg/commenter"
	"github.com/urfave/cli/v2"
)

func commentCmd() *cli.Command {
	return &cli.Command{
		Name:      "comment",
		Usage:     "Generate an explanatory comment for each flagged function in a file",
		ArgsUsage: "<file>",
		Description: `Analyzes one Python file and asks the configured model to explain every
flagged function. The API key is read from the variable named by
commenter.api_key_env (GEMINI_API_KEY by default).`,
		Flags: append(thresholdFlags(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the prompts and token estimates without calling the model",
			},
			&cli.BoolFlag{
				Name:  "write",
				Usage: "Insert the comments into the file above each function",
			},
		),
		Action: runCommentCmd,
	}
}

func runCommentCmd(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("comment takes exactly one file")
	}
	path := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	result, err := analyzer.AnalyzeFile(path)
	if err != nil {
		return err
	}

	if len(result.Flagged) == 0 {
		color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "No functions in %s need a comment\n", path)
		return nil
	}

	if c.Bool("dry-run") {
		return printPrompts(c, result)
	}

	gemini, err := commenter.NewGemini(c.Context, cfg.Commenter)
	if err != nil {
		return err
	}

	annotations, err := commenter.Annotate(c.Context, gemini, result)
	if err != nil && len(annotations) == 0 {
		return err
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(c.App.ErrWriter, "stopped early: %v\n", err)
	}

	if c.Bool("write") {
		if err := writeComments(path, result, annotations); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "Wrote %d comments to %s\n", len(annotations), path)
		return nil
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(&output.CommentReport{Path: path, Annotations: annotations})
}

func printPrompts(c *cli.Context, result *review.Result) error {
	w := c.App.Writer
	total := 0
	for _, req := range commenter.Requests(result) {
		prompt := commenter.Prompt(req)
		tokens := commenter.EstimateTokens(prompt)
		total += tokens
		fmt.Fprintf(w, "=== %s:%d %s (~%d tokens)\n%s\n", req.Path, req.Line, req.QualifiedName, tokens, prompt)
	}
	_, err := fmt.Fprintf(w, "%d prompts, ~%d tokens\n", len(result.Flagged), total)
	return err
}

func writeComments(path string, result *review.Result, annotations []commenter.Annotation) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, commenter.Insert(src, result, annotations), info.Mode().Perm())
}
