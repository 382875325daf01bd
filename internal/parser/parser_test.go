package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountLines(t *testing.T) {
	tests := []struct {
		content  string
		expected int
	}{
		{"", 1},
		{"one line", 1},
		{"two\nlines", 2},
		{"trailing\nnewline\n", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, countLines(tt.content))
	}
}

func TestLineAt(t *testing.T) {
	content := "first\nsecond\nthird"

	assert.Equal(t, 1, lineAt(content, 0))
	assert.Equal(t, 1, lineAt(content, 4))
	assert.Equal(t, 2, lineAt(content, 6))
	assert.Equal(t, 3, lineAt(content, len(content)))
	assert.Equal(t, 3, lineAt(content, 1000))
}

func TestStripComments(t *testing.T) {
	t.Run("line comments", func(t *testing.T) {
		in := "code // comment\nmore"
		out := stripComments(in, "//", "/*", "*/")
		assert.Equal(t, len(in), len(out))
		assert.NotContains(t, out, "comment")
		assert.Contains(t, out, "code")
		assert.Contains(t, out, "more")
	})

	t.Run("block comments keep newlines", func(t *testing.T) {
		in := "a /* one\ntwo */ b"
		out := stripComments(in, "//", "/*", "*/")
		assert.Equal(t, 2, countLines(out))
		assert.NotContains(t, out, "two")
		assert.Contains(t, out, "b")
	})

	t.Run("markers inside strings survive", func(t *testing.T) {
		in := `url := "http://example.com" // real comment`
		out := stripComments(in, "//", "/*", "*/")
		assert.Contains(t, out, "http://example.com")
		assert.NotContains(t, out, "real comment")
	})

	t.Run("unterminated block", func(t *testing.T) {
		in := "a /* never closed"
		out := stripComments(in, "//", "/*", "*/")
		assert.Equal(t, len(in), len(out))
		assert.NotContains(t, out, "closed")
	})
}

func TestMatchingDelimiter(t *testing.T) {
	content := "fn() { if x { y } z }"

	close := matchingDelimiter(content, 5, '{', '}')
	assert.Equal(t, len(content)-1, close)

	assert.Equal(t, -1, matchingDelimiter("{ never closed", 0, '{', '}'))
}

func TestMaskStrings(t *testing.T) {
	t.Run("blanks literal bodies", func(t *testing.T) {
		in := `x = "}" + '('`
		out := maskStrings(in)
		assert.Equal(t, len(in), len(out))
		assert.NotContains(t, out, "}")
		assert.NotContains(t, out, "(")
	})

	t.Run("triple quoted", func(t *testing.T) {
		in := "doc = \"\"\"has ( and {\nacross lines\"\"\"\ny = 1"
		out := maskStrings(in)
		assert.Equal(t, countLines(in), countLines(out))
		assert.NotContains(t, out, "(")
		assert.Contains(t, out, "y = 1")
	})

	t.Run("escaped quote stays inside", func(t *testing.T) {
		out := maskStrings(`s = "a \" }" + f()`)
		assert.NotContains(t, out, "}")
		assert.Contains(t, out, "f()")
	})
}

func TestCheckBalance(t *testing.T) {
	assert.Empty(t, checkBalance("balanced { [ ( ) ] }", "//", "/*", "*/"))

	errs := checkBalance("open { only", "//", "/*", "*/")
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "braces")

	t.Run("delimiters in strings do not count", func(t *testing.T) {
		assert.Empty(t, checkBalance(`const s = "}";`, "//", "/*", "*/"))
	})

	t.Run("delimiters in comments do not count", func(t *testing.T) {
		assert.Empty(t, checkBalance("x := 1 // close ) later\n", "//", "/*", "*/"))
	})
}

func TestSplitParams(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"empty", "", []string{}},
		{"plain names", "a, b, c", []string{"a", "b", "c"}},
		{"typed", "name: string, count: number", []string{"name", "count"}},
		{"defaults", "retries = 3, debug = false", []string{"retries", "debug"}},
		{"nested generics", "pair: Map<string, int>, other", []string{"pair", "other"}},
		{"destructured", "{ a, b }, rest", []string{"destructured", "rest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitParams(tt.raw))
		})
	}
}

func TestDocstringAfter(t *testing.T) {
	lines := []string{
		"def f():",
		`    """Summary line."""`,
		"    return 1",
	}
	got := docstringAfter(lines, 1, []string{`"""`, `'''`})
	assert.Contains(t, got, "Summary line.")

	noDoc := []string{"def f():", "    return 1"}
	assert.Equal(t, "", docstringAfter(noDoc, 1, []string{`"""`}))
}
