package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ParseResult {
	t.Helper()
	p := New()
	t.Cleanup(p.Close)
	res, err := p.Parse([]byte(src), "test.py")
	require.NoError(t, err)
	t.Cleanup(res.Close)
	return res
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"script.py", LangPython},
		{"gui.pyw", LangPython},
		{"stubs/types.pyi", LangPython},
		{"UPPER.PY", LangPython},
		{"main.go", LangUnknown},
		{"README", LangUnknown},
		{"archive.py.bak", LangUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DetectLanguage(tt.path); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	res := parse(t, "def f(x):\n    return x\n")

	assert.Equal(t, LangPython, res.Language)
	assert.Equal(t, "test.py", res.Path)
	assert.Equal(t, "module", res.Root().Type())
	assert.Nil(t, FirstError(res.Root()))
}

func TestParse_SyntaxError(t *testing.T) {
	p := New()
	defer p.Close()

	res, err := p.Parse([]byte("def f(:\n    pass\n"), "bad.py")
	assert.Nil(t, res)

	var perr *ParseError
	require.True(t, errors.As(err, &perr), "want *ParseError, got %T", err)
	assert.Equal(t, "bad.py", perr.Path)
	assert.GreaterOrEqual(t, perr.Line, uint32(1))
	assert.GreaterOrEqual(t, perr.Column, uint32(1))
	assert.Contains(t, err.Error(), "syntax error at bad.py:")
}

func TestParse_RejectsConstructsPython3Forbids(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		line   uint32
		column uint32
		reason string
	}{
		{"print statement", "def f():\n    print \"x\"\n", 2, 5, "print statement"},
		{"exec statement", "def f():\n    exec \"x = 1\"\n", 2, 5, "exec statement"},
		{"bare assignment expression", "def f():\n    x := 1\n", 2, 5, "unparenthesized assignment expression"},
	}

	p := New()
	defer p.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Parse([]byte(tt.src), "old.py")
			assert.Nil(t, res)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want *ParseError, got %v", err)
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, tt.column, perr.Column)
			assert.Equal(t, tt.reason, perr.Reason)
		})
	}
}

func TestParse_AllowsParenthesizedAssignmentExpression(t *testing.T) {
	p := New()
	defer p.Close()

	res, err := p.Parse([]byte("def f(xs):\n    (n := len(xs))\n    print(n)\n    return n\n"), "")
	require.NoError(t, err)
	defer res.Close()

	bad, reason := FirstInvalid(res.Root())
	assert.Nil(t, bad)
	assert.Empty(t, reason)
}

func TestParseError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ParseError
		want string
	}{
		{"with path", &ParseError{Path: "a.py", Line: 3, Column: 7}, "syntax error at a.py:3:7"},
		{"without path", &ParseError{Line: 1, Column: 1}, "syntax error at 1:1"},
		{"wrapped", &ParseError{Line: 2, Column: 4, Err: errors.New("boom")}, "parse error at 2:4: boom"},
		{"with reason", &ParseError{Path: "a.py", Line: 2, Column: 5, Reason: "print statement"}, "syntax error at a.py:2:5: print statement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))

	p := New()
	defer p.Close()

	res, err := p.ParseFile(path)
	require.NoError(t, err)
	defer res.Close()
	assert.Equal(t, path, res.Path)
	assert.Equal(t, []byte("x = 1\n"), res.Source)

	_, err = p.ParseFile(filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	_, err = p.ParseFile(filepath.Join(dir, "missing.py"))
	assert.Error(t, err)
}

func TestGetNodeText(t *testing.T) {
	res := parse(t, "answer = 42\n")
	stmt := Statements(res.Root())[0]

	assert.Equal(t, "answer = 42", GetNodeText(stmt, res.Source))
	assert.Equal(t, "", GetNodeText(nil, res.Source))
	assert.Equal(t, "", GetNodeText(stmt, []byte("short")))
}

func TestStatements_SkipsComments(t *testing.T) {
	res := parse(t, "# leading\nx = 1\n# middle\ny = 2\n")

	stmts := Statements(res.Root())
	require.Len(t, stmts, 2)
	assert.Equal(t, "x = 1", GetNodeText(stmts[0], res.Source))
	assert.Equal(t, "y = 2", GetNodeText(stmts[1], res.Source))
	assert.Nil(t, Statements(nil))
}

func TestFunctionDefinition(t *testing.T) {
	res := parse(t, "def plain():\n    pass\n\n@cached\ndef wrapped():\n    pass\n\n@dataclass\nclass Point:\n    x: int\n\nvalue = 1\n")
	stmts := Statements(res.Root())
	require.Len(t, stmts, 4)

	tests := []struct {
		name string
		node *sitter.Node
		want string
	}{
		{"plain", stmts[0], "plain"},
		{"decorated", stmts[1], "wrapped"},
		{"decorated class", stmts[2], ""},
		{"assignment", stmts[3], ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := FunctionDefinition(tt.node)
			if tt.want == "" {
				assert.Nil(t, fn)
				return
			}
			require.NotNil(t, fn)
			assert.Equal(t, tt.want, GetNodeText(fn.ChildByFieldName("name"), res.Source))
		})
	}
}

func TestIsAsync(t *testing.T) {
	res := parse(t, "async def fetch():\n    async for x in y:\n        pass\n    for z in w:\n        pass\n\ndef sync():\n    pass\n")
	stmts := Statements(res.Root())
	require.Len(t, stmts, 2)

	fetch := stmts[0]
	body := Statements(fetch.ChildByFieldName("body"))
	require.Len(t, body, 2)

	assert.True(t, IsAsync(fetch))
	assert.True(t, IsAsync(body[0]))
	assert.False(t, IsAsync(body[1]))
	assert.False(t, IsAsync(stmts[1]))
	assert.False(t, IsAsync(nil))
}

func TestWalkTyped_StopsDescent(t *testing.T) {
	res := parse(t, "def outer():\n    def inner():\n        pass\n")

	var names []string
	WalkTyped(res.Root(), res.Source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if nodeType != "function_definition" {
			return true
		}
		names = append(names, GetNodeText(n.ChildByFieldName("name"), src))
		return false
	})
	assert.Equal(t, []string{"outer"}, names)
}

func TestWalk_VisitsAllNodes(t *testing.T) {
	res := parse(t, "x = 1\n")

	count := 0
	Walk(res.Root(), res.Source, func(*sitter.Node, []byte) bool {
		count++
		return true
	})
	assert.Greater(t, count, 3)
}
