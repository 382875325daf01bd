package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParser extracts structure from Python sources. The rich path walks
// the tree-sitter grammar; the fallback path is indentation-aware regex
// scanning that satisfies the same contract on its own.
type PythonParser struct {
	grammar bool
	sitter  *sitter.Parser
}

var (
	pyImportRe   = regexp.MustCompile(`^\s*import\s+([\w\.]+)(?:\s+as\s+(\w+))?\s*$`)
	pyFromRe     = regexp.MustCompile(`^\s*from\s+(\.*[\w\.]*)\s+import\s+(.+)$`)
	pyClassRe    = regexp.MustCompile(`^class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	pyFuncRe     = regexp.MustCompile(`^(async\s+)?def\s+(\w+)\s*\(([^)]*)\)\s*(?:->\s*([^:]+))?:`)
	pyMethodRe   = regexp.MustCompile(`^(\s+)(?:async\s+)?def\s+(\w+)\s*\(([^)]*)\)\s*(?:->\s*([^:]+))?:`)
	pyDocstringRe = regexp.MustCompile(`^\s*(?:[rRbBuU]{0,2})("""|''')`)
)

// NewPythonParser creates a Python parser. grammarEnabled selects the
// tree-sitter path; when false every extraction runs on the regex fallback.
func NewPythonParser(grammarEnabled bool) *PythonParser {
	p := &PythonParser{grammar: grammarEnabled}
	if grammarEnabled {
		p.sitter = sitter.NewParser()
		p.sitter.SetLanguage(python.GetLanguage())
	}
	return p
}

func (p *PythonParser) Language() Language { return LanguagePython }

// Parse builds the structural model for one Python file.
func (p *PythonParser) Parse(filePath, content string) (result *ParsedFile, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ParsingError{Path: filePath, Err: fmt.Errorf("python parser panic: %v", r)}
		}
	}()

	parsed := &ParsedFile{
		FilePath:   filePath,
		Language:   LanguagePython,
		Content:    content,
		Imports:    p.ExtractImports(content),
		Classes:    p.ExtractClasses(content),
		Functions:  p.ExtractFunctions(content),
		TotalLines: countLines(content),
		Docstring:  p.moduleDocstring(content),
		Errors:     p.ValidateSyntax(content),
	}

	log.Debug().
		Str("file", filePath).
		Int("classes", len(parsed.Classes)).
		Int("functions", len(parsed.Functions)).
		Int("imports", len(parsed.Imports)).
		Msg("parsed python file")
	return parsed, nil
}

// ExtractImports returns all import and from-import statements.
func (p *PythonParser) ExtractImports(content string) []ParsedImport {
	if p.grammar {
		if imports, ok := p.importsFromTree(content); ok {
			return imports
		}
	}
	return p.importsRegex(content)
}

// ExtractClasses returns class definitions with their methods.
func (p *PythonParser) ExtractClasses(content string) []ParsedClass {
	if p.grammar {
		if classes, ok := p.classesFromTree(content); ok {
			return classes
		}
	}
	return p.classesRegex(content)
}

// ExtractFunctions returns module-level functions only.
func (p *PythonParser) ExtractFunctions(content string) []ParsedFunction {
	if p.grammar {
		if funcs, ok := p.functionsFromTree(content); ok {
			return funcs
		}
	}
	return p.functionsRegex(content)
}

// ValidateSyntax reports delimiter mismatches, plus grammar rejection when
// the tree-sitter path is enabled.
func (p *PythonParser) ValidateSyntax(content string) []string {
	errs := make([]string, 0)
	clean := maskStrings(stripComments(content, "#", "", ""))
	if strings.Count(clean, "(") != strings.Count(clean, ")") {
		errs = append(errs, "mismatched parentheses ( )")
	}
	if strings.Count(clean, "[") != strings.Count(clean, "]") {
		errs = append(errs, "mismatched brackets [ ]")
	}
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

func (p *PythonParser) importsFromTree(content string) ([]ParsedImport, bool) {
	tree, ok := parseTree(p.sitter, content)
	if !ok {
		return nil, false
	}
	defer tree.Close()
	src := []byte(content)

	imports := make([]ParsedImport, 0)
	cursor := sitter.NewTreeCursor(tree.RootNode())
	defer cursor.Close()
	walkTree(cursor, func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				switch child.Type() {
				case "dotted_name":
					mod := child.Content(src)
					imports = append(imports, ParsedImport{Module: mod, Items: []string{mod}})
				case "aliased_import":
					name := child.ChildByFieldName("name")
					alias := child.ChildByFieldName("alias")
					imp := ParsedImport{}
					if name != nil {
						imp.Module = name.Content(src)
						imp.Items = []string{imp.Module}
					}
					if alias != nil {
						imp.Alias = alias.Content(src)
					}
					imports = append(imports, imp)
				}
			}
		case "import_from_statement":
			module := ""
			relative := false
			modStart := uint32(0)
			if mod := n.ChildByFieldName("module_name"); mod != nil {
				module = mod.Content(src)
				relative = strings.HasPrefix(module, ".")
				module = strings.TrimLeft(module, ".")
				modStart = mod.StartByte()
			}
			items := make([]string, 0)
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if child.StartByte() == modStart {
					continue
				}
				switch child.Type() {
				case "dotted_name":
					items = append(items, child.Content(src))
				case "aliased_import":
					if name := child.ChildByFieldName("name"); name != nil {
						items = append(items, name.Content(src))
					}
				case "wildcard_import":
					items = append(items, "*")
				}
			}
			imports = append(imports, ParsedImport{
				Module:     module,
				Items:      items,
				IsRelative: relative,
			})
		}
	})
	return imports, true
}

func (p *PythonParser) classesFromTree(content string) ([]ParsedClass, bool) {
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
		if n.Type() != "class_definition" {
			return
		}
		cls := ParsedClass{
			LineStart: int(n.StartPoint().Row) + 1,
			LineEnd:   int(n.EndPoint().Row) + 1,
			Methods:   make([]ParsedFunction, 0),
		}
		if name := n.ChildByFieldName("name"); name != nil {
			cls.Name = name.Content(src)
			cls.IsPublic = !strings.HasPrefix(cls.Name, "_")
		}
		if supers := n.ChildByFieldName("superclasses"); supers != nil && supers.NamedChildCount() > 0 {
			cls.ParentClass = supers.NamedChild(0).Content(src)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			cls.Docstring = blockDocstring(body, src)
			for i := 0; i < int(body.NamedChildCount()); i++ {
				child := body.NamedChild(i)
				if fn, ok := p.functionNode(child); ok {
					cls.Methods = append(cls.Methods, p.functionFromNode(fn, src, true))
				}
			}
		}
		classes = append(classes, cls)
	})
	return classes, true
}

func (p *PythonParser) functionsFromTree(content string) ([]ParsedFunction, bool) {
	tree, ok := parseTree(p.sitter, content)
	if !ok {
		return nil, false
	}
	defer tree.Close()
	src := []byte(content)

	funcs := make([]ParsedFunction, 0)
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if fn, ok := p.functionNode(child); ok {
			funcs = append(funcs, p.functionFromNode(fn, src, false))
		}
	}
	return funcs, true
}

// functionNode unwraps decorated definitions down to the function itself.
func (p *PythonParser) functionNode(n *sitter.Node) (*sitter.Node, bool) {
	if n.Type() == "function_definition" {
		return n, true
	}
	if n.Type() == "decorated_definition" {
		if def := n.ChildByFieldName("definition"); def != nil && def.Type() == "function_definition" {
			return def, true
		}
	}
	return nil, false
}

func (p *PythonParser) functionFromNode(n *sitter.Node, src []byte, method bool) ParsedFunction {
	fn := ParsedFunction{
		LineStart: int(n.StartPoint().Row) + 1,
		LineEnd:   int(n.EndPoint().Row) + 1,
		Params:    make([]string, 0),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = name.Content(src)
		fn.IsPublic = !strings.HasPrefix(fn.Name, "_")
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			child := params.NamedChild(i)
			var name string
			switch child.Type() {
			case "identifier":
				name = child.Content(src)
			case "typed_parameter", "default_parameter", "typed_default_parameter":
				for j := 0; j < int(child.NamedChildCount()); j++ {
					if child.NamedChild(j).Type() == "identifier" {
						name = child.NamedChild(j).Content(src)
						break
					}
				}
			case "list_splat_pattern", "dictionary_splat_pattern":
				name = child.Content(src)
			}
			if name == "" || (method && (name == "self" || name == "cls")) {
				continue
			}
			fn.Params = append(fn.Params, name)
		}
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		fn.ReturnType = ret.Content(src)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fn.Docstring = blockDocstring(body, src)
	}
	fn.Signature = fmt.Sprintf("def %s(%s)", fn.Name, strings.Join(fn.Params, ", "))
	if fn.ReturnType != "" {
		fn.Signature += " -> " + fn.ReturnType
	}
	fn.Signature += ":"
	return fn
}

// blockDocstring returns the leading string literal of a block, unquoted.
func blockDocstring(body *sitter.Node, src []byte) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return trimPyQuotes(str.Content(src))
}

func trimPyQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)])
		}
	}
	return s
}

func (p *PythonParser) moduleDocstring(content string) string {
	if p.grammar {
		if tree, ok := parseTree(p.sitter, content); ok {
			defer tree.Close()
			return blockDocstring(tree.RootNode(), []byte(content))
		}
	}
	for _, line := range strings.SplitN(content, "\n", docstringWindow+1) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if pyDocstringRe.MatchString(trimmed) {
			return trimPyQuotes(trimmed)
		}
		break
	}
	return ""
}

// regex fallback path

func (p *PythonParser) importsRegex(content string) []ParsedImport {
	imports := make([]ParsedImport, 0)
	for _, line := range strings.Split(content, "\n") {
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			imports = append(imports, ParsedImport{
				Module: m[1],
				Items:  []string{m[1]},
				Alias:  m[2],
			})
			continue
		}
		if m := pyFromRe.FindStringSubmatch(line); m != nil {
			module := m[1]
			relative := strings.HasPrefix(module, ".")
			module = strings.TrimLeft(module, ".")
			items := make([]string, 0)
			for _, item := range strings.Split(m[2], ",") {
				item = strings.TrimSpace(item)
				if idx := strings.Index(item, " as "); idx >= 0 {
					item = strings.TrimSpace(item[:idx])
				}
				item = strings.Trim(item, "()")
				if item != "" {
					items = append(items, item)
				}
			}
			imports = append(imports, ParsedImport{
				Module:     module,
				Items:      items,
				IsRelative: relative,
			})
		}
	}
	return imports
}

func (p *PythonParser) classesRegex(content string) []ParsedClass {
	classes := make([]ParsedClass, 0)
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		m := pyClassRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		cls := ParsedClass{
			Name:      m[1],
			LineStart: i + 1,
			LineEnd:   pyBlockEnd(lines, i),
			Methods:   make([]ParsedFunction, 0),
			IsPublic:  !strings.HasPrefix(m[1], "_"),
			Docstring: docstringAfter(lines, i+1, []string{`"""`, `'''`}),
		}
		if bases := strings.TrimSpace(m[2]); bases != "" {
			cls.ParentClass = strings.TrimSpace(strings.Split(bases, ",")[0])
		}

		for j := i + 1; j < cls.LineEnd && j < len(lines); j++ {
			dm := pyMethodRe.FindStringSubmatch(lines[j])
			if dm == nil {
				continue
			}
			params := splitParams(dm[3])
			filtered := params[:0]
			for _, name := range params {
				if name != "self" && name != "cls" {
					filtered = append(filtered, name)
				}
			}
			ret := strings.TrimSpace(dm[4])
			sig := fmt.Sprintf("def %s(%s)", dm[2], dm[3])
			if ret != "" {
				sig += " -> " + ret
			}
			cls.Methods = append(cls.Methods, ParsedFunction{
				Name:       dm[2],
				Signature:  sig + ":",
				LineStart:  j + 1,
				LineEnd:    pyBlockEnd(lines, j),
				Params:     filtered,
				ReturnType: ret,
				Docstring:  docstringAfter(lines, j+1, []string{`"""`, `'''`}),
				IsPublic:   !strings.HasPrefix(dm[2], "_"),
			})
		}
		classes = append(classes, cls)
	}
	return classes
}

func (p *PythonParser) functionsRegex(content string) []ParsedFunction {
	funcs := make([]ParsedFunction, 0)
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		m := pyFuncRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ret := strings.TrimSpace(m[4])
		sig := fmt.Sprintf("def %s(%s)", m[2], m[3])
		if ret != "" {
			sig += " -> " + ret
		}
		funcs = append(funcs, ParsedFunction{
			Name:       m[2],
			Signature:  sig + ":",
			LineStart:  i + 1,
			LineEnd:    pyBlockEnd(lines, i),
			Params:     splitParams(m[3]),
			ReturnType: ret,
			Docstring:  docstringAfter(lines, i+1, []string{`"""`, `'''`}),
			IsPublic:   !strings.HasPrefix(m[2], "_"),
		})
	}
	return funcs
}

// pyBlockEnd finds the last line of an indentation-delimited block starting
// at start (0-based index of the def/class line). Returns a 1-based line.
func pyBlockEnd(lines []string, start int) int {
	indent := indentOf(lines[start])
	end := start + 1
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if indentOf(lines[i]) <= indent {
			break
		}
		end = i + 1
	}
	if end <= start {
		end = start + 1
	}
	return end
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}
