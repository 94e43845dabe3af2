package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeAnalyzeFunctions() string {
	return `Finds Python functions that are complex enough to deserve an explanatory comment.

USE WHEN:
- Deciding which functions in a project need documentation
- Reviewing a change for functions that grew too branchy or too deep
- Preparing a list of functions to explain to a reader

INTERPRETING RESULTS:
- A function is flagged when any metric is strictly above its threshold
- branch_count: if/elif/while tests score one per boolean operand, for loops 1, match statements 1 per case
- max_depth: deepest nesting of if/for/while/match; elif does not add depth
- logical_lines: lines holding real code, ignoring comments, docstrings and blank lines
- Nested functions are measured separately and do not count toward their parent
- errors lists functions that could not be measured; they are skipped, not flagged

METRICS RETURNED:
- Per file: flagged functions with qualified name, start line and violations
- Optional passing functions and original source text
- Summary: files, functions measured, flagged and skipped counts, thresholds used`
}

func describeAnalyzeSource() string {
	return `Measures the functions of a single Python source text passed inline.

USE WHEN:
- The code is not on disk, for example an unsaved buffer or a snippet
- Checking one function before and after a refactor

INTERPRETING RESULTS:
- Same metrics and thresholds as analyze_functions
- A syntax error in the source fails the whole call with its line and column

METRICS RETURNED:
- Flagged functions with metrics, violations and start lines
- Optional passing functions and original source text`
}
