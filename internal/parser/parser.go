// Package parser extracts structural facts (imports, classes, functions)
// from source files across multiple languages. Each language parser prefers
// its tree-sitter grammar and falls back to regex scanning when the grammar
// is disabled or rejects the input, so extraction degrades instead of
// failing outright.
package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageParser is the uniform contract every language implements.
// Parse is deterministic and never panics into the caller: hard failures
// come back as *ParsingError, recoverable issues land in ParsedFile.Errors.
type LanguageParser interface {
	Language() Language

	// Parse builds the full structural model for one file.
	Parse(filePath, content string) (*ParsedFile, error)

	// ExtractImports returns all import statements.
	ExtractImports(content string) []ParsedImport

	// ExtractClasses returns class definitions with their methods.
	ExtractClasses(content string) []ParsedClass

	// ExtractFunctions returns top-level functions only; class-based
	// languages return an empty slice here.
	ExtractFunctions(content string) []ParsedFunction

	// ValidateSyntax returns non-fatal syntax warnings.
	ValidateSyntax(content string) []string
}

// docstringWindow bounds how many lines after a declaration are scanned for
// a documentation comment.
const docstringWindow = 5

// countLines counts lines the way the rest of the system expects: a final
// newline still yields one trailing (empty) line.
func countLines(content string) int {
	return strings.Count(content, "\n") + 1
}

// lineAt converts a byte offset into a 1-based line number against the
// original content.
func lineAt(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}

// stripComments blanks out single-line and block comments while preserving
// every newline, so offsets computed on the stripped copy map 1:1 onto the
// original content. Empty lineMarker or blockOpen disables that form.
func stripComments(content, lineMarker, blockOpen, blockClose string) string {
	out := []byte(content)
	i := 0
	for i < len(content) {
		switch {
		case lineMarker != "" && strings.HasPrefix(content[i:], lineMarker):
			for i < len(content) && content[i] != '\n' {
				out[i] = ' '
				i++
			}
		case blockOpen != "" && strings.HasPrefix(content[i:], blockOpen):
			end := strings.Index(content[i+len(blockOpen):], blockClose)
			if end < 0 {
				end = len(content) - i
			} else {
				end += len(blockOpen) + len(blockClose)
			}
			for j := i; j < i+end && j < len(content); j++ {
				if out[j] != '\n' {
					out[j] = ' '
				}
			}
			i += end
		case content[i] == '"' || content[i] == '\'' || content[i] == '`':
			// Skip string literals so markers inside them survive.
			quote := content[i]
			i++
			for i < len(content) {
				if content[i] == '\\' && i+1 < len(content) {
					i += 2
					continue
				}
				if content[i] == quote {
					i++
					break
				}
				if content[i] == '\n' && quote != '`' {
					break
				}
				i++
			}
		default:
			i++
		}
	}
	return string(out)
}

// matchingDelimiter scans forward from an opening delimiter keeping a depth
// counter, and returns the index of the matching close, or -1 if the body
// never closes. open must point at openCh.
func matchingDelimiter(content string, open int, openCh, closeCh byte) int {
	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// docstringAfter scans a bounded window of lines following a declaration
// (startLine is 1-based) for a documentation comment. Scanning stops at the
// first non-blank line that is not a comment.
func docstringAfter(lines []string, startLine int, markers []string) string {
	for i := startLine; i < startLine+docstringWindow && i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		for _, m := range markers {
			if strings.HasPrefix(trimmed, m) || strings.Contains(trimmed, m) {
				return trimmed
			}
		}
		return ""
	}
	return ""
}

// maskStrings blanks the bodies of string literals while preserving the
// quotes and every newline, so delimiter counts ignore braces that only
// appear inside strings. Triple-quoted strings are recognized so python
// docstrings mask as one literal.
func maskStrings(content string) string {
	out := []byte(content)
	i := 0
	for i < len(content) {
		c := content[i]
		if c != '"' && c != '\'' && c != '`' {
			i++
			continue
		}
		quote := string(c)
		if strings.HasPrefix(content[i:], quote+quote+quote) {
			quote = quote + quote + quote
		}
		i += len(quote)
		for i < len(content) {
			if content[i] == '\\' && i+1 < len(content) {
				out[i] = ' '
				if content[i+1] != '\n' {
					out[i+1] = ' '
				}
				i += 2
				continue
			}
			if strings.HasPrefix(content[i:], quote) {
				i += len(quote)
				break
			}
			if content[i] == '\n' && len(quote) == 1 && quote != "`" {
				break
			}
			if out[i] != '\n' {
				out[i] = ' '
			}
			i++
		}
	}
	return string(out)
}

// checkBalance reports mismatched brace/bracket/paren counts. Counting runs
// over a copy with comments and string bodies blanked out, so delimiters in
// literals and comments don't trip it. These are warnings, not fatal errors:
// a file with unbalanced delimiters still counts as analyzed.
func checkBalance(content, lineMarker, blockOpen, blockClose string) []string {
	clean := maskStrings(stripComments(content, lineMarker, blockOpen, blockClose))
	var errs []string
	if strings.Count(clean, "{") != strings.Count(clean, "}") {
		errs = append(errs, "mismatched braces { }")
	}
	if strings.Count(clean, "[") != strings.Count(clean, "]") {
		errs = append(errs, "mismatched brackets [ ]")
	}
	if strings.Count(clean, "(") != strings.Count(clean, ")") {
		errs = append(errs, "mismatched parentheses ( )")
	}
	return errs
}

// walkTree visits every node of a tree-sitter parse tree in document order.
func walkTree(cursor *sitter.TreeCursor, fn func(*sitter.Node)) {
	for {
		fn(cursor.CurrentNode())

		if cursor.GoToFirstChild() {
			continue
		}

		for {
			if cursor.GoToNextSibling() {
				break
			}
			if !cursor.GoToParent() {
				return
			}
		}
	}
}

// parseTree runs a tree-sitter parse and reports whether the grammar
// accepted the input without error nodes.
func parseTree(p *sitter.Parser, content string) (*sitter.Tree, bool) {
	tree, err := p.ParseCtx(context.Background(), nil, []byte(content))
	if err != nil || tree == nil {
		return nil, false
	}
	return tree, true
}

// treeHasErrors walks the parse tree looking for ERROR nodes.
func treeHasErrors(tree *sitter.Tree) bool {
	found := false
	cursor := sitter.NewTreeCursor(tree.RootNode())
	defer cursor.Close()
	walkTree(cursor, func(n *sitter.Node) {
		if n.Type() == "ERROR" || n.IsMissing() {
			found = true
		}
	})
	return found
}

// splitParams splits a raw parameter list into bare parameter names.
// Type annotations and default values are trimmed off; destructured
// patterns collapse to a placeholder name.
func splitParams(raw string) []string {
	params := make([]string, 0)
	if strings.TrimSpace(raw) == "" {
		return params
	}
	depth := 0
	start := 0
	var parts []string
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, raw[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, raw[start:])

	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if idx := strings.Index(name, ":"); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		if idx := strings.Index(name, "="); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		if strings.HasPrefix(name, "{") || strings.HasPrefix(name, "[") {
			name = "destructured"
		}
		if name != "" {
			params = append(params, name)
		}
	}
	return params
}
