package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// JavaScriptParser extracts structure from JavaScript and TypeScript
// sources. TypeScript rides on the JavaScript grammar; type annotations are
// trimmed out of parameter names rather than modeled.
type JavaScriptParser struct {
	grammar bool
	sitter  *sitter.Parser
}

var (
	jsImportRe    = regexp.MustCompile(`import\s+(?:\{([^}]+)\}|(\w+))\s+from\s+['"]([^'"]+)['"]`)
	jsImportAllRe = regexp.MustCompile(`import\s+\*\s+as\s+(\w+)\s+from\s+['"]([^'"]+)['"]`)
	jsRequireRe   = regexp.MustCompile(`(?:const|var|let)\s+(\w+)\s*=\s*require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	jsClassRe     = regexp.MustCompile(`(?:export\s+)?class\s+(\w+)(?:\s+extends\s+([\w\.]+))?`)
	jsFuncRe      = regexp.MustCompile(`(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(([^)]*)\)`)
	jsArrowRe     = regexp.MustCompile(`(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?\(([^)]*)\)\s*=>`)
	jsMethodRe    = regexp.MustCompile(`(?:async\s+)?(\w+)\s*\(([^)]*)\)\s*\{`)
)

// jsNonMethods are keywords that look like method calls to the fallback
// method regex and must be skipped.
var jsNonMethods = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true, "function": true,
}

// NewJavaScriptParser creates a JavaScript/TypeScript parser.
func NewJavaScriptParser(grammarEnabled bool) *JavaScriptParser {
	p := &JavaScriptParser{grammar: grammarEnabled}
	if grammarEnabled {
		p.sitter = sitter.NewParser()
		p.sitter.SetLanguage(javascript.GetLanguage())
	}
	return p
}

func (p *JavaScriptParser) Language() Language { return LanguageJavaScript }

func (p *JavaScriptParser) Parse(filePath, content string) (result *ParsedFile, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ParsingError{Path: filePath, Err: fmt.Errorf("javascript parser panic: %v", r)}
		}
	}()

	parsed := &ParsedFile{
		FilePath:   filePath,
		Language:   LanguageJavaScript,
		Content:    content,
		Imports:    p.ExtractImports(content),
		Classes:    p.ExtractClasses(content),
		Functions:  p.ExtractFunctions(content),
		TotalLines: countLines(content),
		Errors:     p.ValidateSyntax(content),
	}

	log.Debug().
		Str("file", filePath).
		Int("classes", len(parsed.Classes)).
		Int("functions", len(parsed.Functions)).
		Int("imports", len(parsed.Imports)).
		Msg("parsed javascript file")
	return parsed, nil
}

// ExtractImports handles ES6 named/default imports, namespace imports, and
// CommonJS require calls.
func (p *JavaScriptParser) ExtractImports(content string) []ParsedImport {
	imports := make([]ParsedImport, 0)
	clean := stripComments(content, "//", "/*", "*/")

	for _, m := range jsImportRe.FindAllStringSubmatch(clean, -1) {
		named, def, module := m[1], m[2], m[3]
		items := make([]string, 0)
		if named != "" {
			for _, item := range strings.Split(named, ",") {
				name := strings.TrimSpace(strings.SplitN(item, " as ", 2)[0])
				if name != "" {
					items = append(items, name)
				}
			}
		} else if def != "" {
			items = append(items, def)
		}
		imports = append(imports, ParsedImport{
			Module:     module,
			Items:      items,
			IsRelative: strings.HasPrefix(module, "."),
		})
	}

	for _, m := range jsImportAllRe.FindAllStringSubmatch(clean, -1) {
		imports = append(imports, ParsedImport{
			Module:     m[2],
			Items:      []string{"*"},
			Alias:      m[1],
			IsRelative: strings.HasPrefix(m[2], "."),
		})
	}

	for _, m := range jsRequireRe.FindAllStringSubmatch(clean, -1) {
		imports = append(imports, ParsedImport{
			Module:     m[2],
			Items:      []string{m[1]},
			IsRelative: strings.HasPrefix(m[2], "."),
		})
	}

	return imports
}

func (p *JavaScriptParser) ExtractClasses(content string) []ParsedClass {
	if p.grammar {
		if classes, ok := p.classesFromTree(content); ok {
			return classes
		}
	}
	return p.classesRegex(content)
}

func (p *JavaScriptParser) ExtractFunctions(content string) []ParsedFunction {
	if p.grammar {
		if funcs, ok := p.functionsFromTree(content); ok {
			return funcs
		}
	}
	return p.functionsRegex(content)
}

func (p *JavaScriptParser) ValidateSyntax(content string) []string {
	errs := append(make([]string, 0), checkBalance(content, "//", "/*", "*/")...)
	if p.grammar {
		if tree, ok := parseTree(p.sitter, content); ok {
			defer tree.Close()
			if treeHasErrors(tree) {
				errs = append(errs, "grammar reported syntax errors")
			}
		}
	}
	return errs
}

// tree-sitter path

func (p *JavaScriptParser) classesFromTree(content string) ([]ParsedClass, bool) {
	tree, ok := parseTree(p.sitter, content)
	if !ok {
		return nil, false
	}
	defer tree.Close()
	src := []byte(content)

	classes := make([]ParsedClass, 0)
	cursor := sitter.NewTreeCursor(tree.RootNode())
	defer cursor.Close()
	walkTree(cursor, func(n *sitter.Node) {
		if n.Type() != "class_declaration" {
			return
		}
		cls := ParsedClass{
			LineStart: int(n.StartPoint().Row) + 1,
			LineEnd:   int(n.EndPoint().Row) + 1,
			Methods:   make([]ParsedFunction, 0),
			IsPublic:  exportedNode(n),
		}
		if name := n.ChildByFieldName("name"); name != nil {
			cls.Name = name.Content(src)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child.Type() == "class_heritage" {
				parent := strings.TrimSpace(strings.TrimPrefix(child.Content(src), "extends"))
				cls.ParentClass = strings.TrimSpace(strings.Split(parent, ",")[0])
			}
		}
		if body := n.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				child := body.NamedChild(i)
				if child.Type() != "method_definition" {
					continue
				}
				fn := ParsedFunction{
					LineStart: int(child.StartPoint().Row) + 1,
					LineEnd:   int(child.EndPoint().Row) + 1,
					Params:    make([]string, 0),
				}
				if name := child.ChildByFieldName("name"); name != nil {
					fn.Name = name.Content(src)
					fn.IsPublic = !strings.HasPrefix(fn.Name, "_") && !strings.HasPrefix(fn.Name, "#")
				}
				raw := ""
				if params := child.ChildByFieldName("parameters"); params != nil {
					raw = strings.Trim(params.Content(src), "()")
					fn.Params = splitParams(raw)
				}
				fn.Signature = fmt.Sprintf("%s(%s)", fn.Name, raw)
				cls.Methods = append(cls.Methods, fn)
			}
		}
		classes = append(classes, cls)
	})
	return classes, true
}

func (p *JavaScriptParser) functionsFromTree(content string) ([]ParsedFunction, bool) {
	tree, ok := parseTree(p.sitter, content)
	if !ok {
		return nil, false
	}
	defer tree.Close()
	src := []byte(content)

	funcs := make([]ParsedFunction, 0)
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		exported := false
		if stmt.Type() == "export_statement" {
			exported = true
			if decl := stmt.ChildByFieldName("declaration"); decl != nil {
				stmt = decl
			}
		}
		switch stmt.Type() {
		case "function_declaration":
			funcs = append(funcs, p.functionFromNode(stmt, src, exported))
		case "lexical_declaration", "variable_declaration":
			for j := 0; j < int(stmt.NamedChildCount()); j++ {
				decl := stmt.NamedChild(j)
				if decl.Type() != "variable_declarator" {
					continue
				}
				value := decl.ChildByFieldName("value")
				if value == nil || (value.Type() != "arrow_function" && value.Type() != "function_expression" && value.Type() != "function") {
					continue
				}
				fn := p.functionFromNode(value, src, exported)
				if name := decl.ChildByFieldName("name"); name != nil {
					fn.Name = name.Content(src)
				}
				fn.Signature = fmt.Sprintf("const %s = (%s) =>", fn.Name, strings.Join(fn.Params, ", "))
				funcs = append(funcs, fn)
			}
		}
	}
	return funcs, true
}

func (p *JavaScriptParser) functionFromNode(n *sitter.Node, src []byte, exported bool) ParsedFunction {
	fn := ParsedFunction{
		LineStart: int(n.StartPoint().Row) + 1,
		LineEnd:   int(n.EndPoint().Row) + 1,
		Params:    make([]string, 0),
		IsPublic:  exported,
	}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = name.Content(src)
	}
	raw := ""
	if params := n.ChildByFieldName("parameters"); params != nil {
		raw = strings.Trim(params.Content(src), "()")
		fn.Params = splitParams(raw)
	}
	fn.Signature = fmt.Sprintf("function %s(%s)", fn.Name, raw)
	return fn
}

// exportedNode reports whether a declaration sits under an export statement.
func exportedNode(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "export_statement"
}

// regex fallback path

func (p *JavaScriptParser) classesRegex(content string) []ParsedClass {
	classes := make([]ParsedClass, 0)
	clean := stripComments(content, "//", "/*", "*/")

	for _, loc := range jsClassRe.FindAllStringSubmatchIndex(clean, -1) {
		m := jsClassRe.FindStringSubmatch(clean[loc[0]:loc[1]])
		lineStart := lineAt(content, loc[0])
		lineEnd := lineStart
		methods := make([]ParsedFunction, 0)

		if bracePos := strings.Index(clean[loc[1]:], "{"); bracePos >= 0 {
			open := loc[1] + bracePos
			if close := matchingDelimiter(clean, open, '{', '}'); close > 0 {
				lineEnd = lineAt(content, close)
				methods = p.methodsRegex(clean[open+1:close], lineAt(content, open))
			}
		}

		classes = append(classes, ParsedClass{
			Name:        m[1],
			LineStart:   lineStart,
			LineEnd:     lineEnd,
			Methods:     methods,
			ParentClass: m[2],
			IsPublic:    strings.Contains(clean[maxInt(0, loc[0]-10):loc[0]]+m[0], "export"),
		})
	}
	return classes
}

func (p *JavaScriptParser) methodsRegex(body string, startLine int) []ParsedFunction {
	methods := make([]ParsedFunction, 0)
	for _, loc := range jsMethodRe.FindAllStringSubmatchIndex(body, -1) {
		m := jsMethodRe.FindStringSubmatch(body[loc[0]:loc[1]])
		if jsNonMethods[m[1]] {
			continue
		}
		line := startLine + strings.Count(body[:loc[0]], "\n")
		lineEnd := line
		if close := matchingDelimiter(body, loc[1]-1, '{', '}'); close > 0 {
			lineEnd = startLine + strings.Count(body[:close], "\n")
		}
		methods = append(methods, ParsedFunction{
			Name:      m[1],
			Signature: fmt.Sprintf("%s(%s)", m[1], m[2]),
			LineStart: line,
			LineEnd:   lineEnd,
			Params:    splitParams(m[2]),
			IsPublic:  !strings.HasPrefix(m[1], "_") && !strings.HasPrefix(m[1], "#"),
		})
	}
	return methods
}

func (p *JavaScriptParser) functionsRegex(content string) []ParsedFunction {
	funcs := make([]ParsedFunction, 0)
	clean := stripComments(content, "//", "/*", "*/")

	for _, loc := range jsFuncRe.FindAllStringSubmatchIndex(clean, -1) {
		m := jsFuncRe.FindStringSubmatch(clean[loc[0]:loc[1]])
		line := lineAt(content, loc[0])
		funcs = append(funcs, ParsedFunction{
			Name:      m[1],
			Signature: fmt.Sprintf("function %s(%s)", m[1], m[2]),
			LineStart: line,
			LineEnd:   braceEndLine(clean, content, loc[1], line),
			Params:    splitParams(m[2]),
			IsPublic:  strings.Contains(clean[maxInt(0, loc[0]-20):loc[0]]+m[0], "export"),
		})
	}

	for _, loc := range jsArrowRe.FindAllStringSubmatchIndex(clean, -1) {
		m := jsArrowRe.FindStringSubmatch(clean[loc[0]:loc[1]])
		line := lineAt(content, loc[0])
		funcs = append(funcs, ParsedFunction{
			Name:      m[1],
			Signature: fmt.Sprintf("const %s = (%s) =>", m[1], m[2]),
			LineStart: line,
			LineEnd:   braceEndLine(clean, content, loc[1], line),
			Params:    splitParams(m[2]),
			IsPublic:  strings.Contains(clean[maxInt(0, loc[0]-20):loc[0]]+m[0], "export"),
		})
	}
	return funcs
}

// braceEndLine locates the body opening brace after a declaration and
// returns the 1-based line of its matching close, or start when there is no
// brace-delimited body (single-expression arrow functions).
func braceEndLine(clean, content string, after, start int) int {
	bracePos := strings.Index(clean[after:], "{")
	if bracePos < 0 || bracePos > 40 {
		return start
	}
	open := after + bracePos
	close := matchingDelimiter(clean, open, '{', '}')
	if close < 0 {
		return start
	}
	return lineAt(content, close)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
