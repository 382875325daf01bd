package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoParser extracts structure from Go sources. Struct types with methods
// map onto ParsedClass so the aggregator can treat Go uniformly with
// class-based languages; plain functions stay top-level.
type GoParser struct {
	grammar bool
	sitter  *sitter.Parser
}

var (
	goImportSingleRe = regexp.MustCompile(`(?m)^import\s+(?:(\w+|\.)\s+)?"([^"]+)"`)
	goImportBlockRe  = regexp.MustCompile(`(?ms)^import\s*\((.*?)\)`)
	goImportSpecRe   = regexp.MustCompile(`^(?:(\w+|\.)\s+)?"([^"]+)"$`)
	goFuncRe         = regexp.MustCompile(`(?m)^func\s+(?:\((\w+)\s+\*?([\w\.]+)\)\s+)?(\w+)\s*\(([^)]*)\)\s*([^{\n]*)\{`)
	goStructRe       = regexp.MustCompile(`(?m)^type\s+(\w+)\s+struct\s*\{`)
)

// NewGoParser creates a Go parser.
func NewGoParser(grammarEnabled bool) *GoParser {
	p := &GoParser{grammar: grammarEnabled}
	if grammarEnabled {
		p.sitter = sitter.NewParser()
		p.sitter.SetLanguage(golang.GetLanguage())
	}
	return p
}

func (p *GoParser) Language() Language { return LanguageGo }

func (p *GoParser) Parse(filePath, content string) (result *ParsedFile, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ParsingError{Path: filePath, Err: fmt.Errorf("go parser panic: %v", r)}
		}
	}()

	classes, functions := p.extractDeclarations(content)
	parsed := &ParsedFile{
		FilePath:   filePath,
		Language:   LanguageGo,
		Content:    content,
		Imports:    p.ExtractImports(content),
		Classes:    classes,
		Functions:  functions,
		TotalLines: countLines(content),
		Errors:     p.ValidateSyntax(content),
	}

	log.Debug().
		Str("file", filePath).
		Int("types", len(parsed.Classes)).
		Int("functions", len(parsed.Functions)).
		Int("imports", len(parsed.Imports)).
		Msg("parsed go file")
	return parsed, nil
}

// ExtractImports handles both single import lines and grouped import blocks.
func (p *GoParser) ExtractImports(content string) []ParsedImport {
	imports := make([]ParsedImport, 0)
	clean := stripComments(content, "//", "/*", "*/")

	appendSpec := func(alias, path string) {
		parts := strings.Split(path, "/")
		imports = append(imports, ParsedImport{
			Module: path,
			Items:  []string{parts[len(parts)-1]},
			Alias:  alias,
		})
	}

	for _, m := range goImportSingleRe.FindAllStringSubmatch(clean, -1) {
		appendSpec(m[1], m[2])
	}
	for _, block := range goImportBlockRe.FindAllStringSubmatch(clean, -1) {
		for _, line := range strings.Split(block[1], "\n") {
			if m := goImportSpecRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				appendSpec(m[1], m[2])
			}
		}
	}
	return imports
}

func (p *GoParser) ExtractClasses(content string) []ParsedClass {
	classes, _ := p.extractDeclarations(content)
	return classes
}

func (p *GoParser) ExtractFunctions(content string) []ParsedFunction {
	_, functions := p.extractDeclarations(content)
	return functions
}

func (p *GoParser) ValidateSyntax(content string) []string {
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

// extractDeclarations walks the file once: struct types become classes,
// methods attach to their receiver's class, plain functions stay top-level.
// Methods whose receiver type has no struct declaration in this file get a
// synthesized class entry so they are never dropped.
func (p *GoParser) extractDeclarations(content string) ([]ParsedClass, []ParsedFunction) {
	if p.grammar {
		if classes, funcs, ok := p.declarationsFromTree(content); ok {
			return classes, funcs
		}
	}
	return p.declarationsRegex(content)
}

type goMethod struct {
	receiver string
	fn       ParsedFunction
}

// assembleClasses merges struct declarations and receiver methods in
// declaration order.
func assembleClasses(structs []ParsedClass, methods []goMethod) []ParsedClass {
	classes := make([]ParsedClass, len(structs))
	copy(classes, structs)
	index := make(map[string]int, len(classes))
	for i, cls := range classes {
		index[cls.Name] = i
	}
	for _, m := range methods {
		i, ok := index[m.receiver]
		if !ok {
			classes = append(classes, ParsedClass{
				Name:      m.receiver,
				LineStart: m.fn.LineStart,
				LineEnd:   m.fn.LineEnd,
				Methods:   make([]ParsedFunction, 0),
				IsPublic:  isExportedName(m.receiver),
			})
			i = len(classes) - 1
			index[m.receiver] = i
		}
		classes[i].Methods = append(classes[i].Methods, m.fn)
		if m.fn.LineEnd > classes[i].LineEnd {
			classes[i].LineEnd = m.fn.LineEnd
		}
	}
	return classes
}

func isExportedName(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}

// tree-sitter path

func (p *GoParser) declarationsFromTree(content string) ([]ParsedClass, []ParsedFunction, bool) {
	tree, ok := parseTree(p.sitter, content)
	if !ok {
		return nil, nil, false
	}
	defer tree.Close()
	src := []byte(content)

	structs := make([]ParsedClass, 0)
	methods := make([]goMethod, 0)
	funcs := make([]ParsedFunction, 0)

	cursor := sitter.NewTreeCursor(tree.RootNode())
	defer cursor.Close()
	walkTree(cursor, func(n *sitter.Node) {
		switch n.Type() {
		case "type_declaration":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				spec := n.NamedChild(i)
				if spec.Type() != "type_spec" {
					continue
				}
				typ := spec.ChildByFieldName("type")
				if typ == nil || typ.Type() != "struct_type" {
					continue
				}
				name := ""
				if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
					name = nameNode.Content(src)
				}
				structs = append(structs, ParsedClass{
					Name:      name,
					LineStart: int(n.StartPoint().Row) + 1,
					LineEnd:   int(n.EndPoint().Row) + 1,
					Methods:   make([]ParsedFunction, 0),
					IsPublic:  isExportedName(name),
				})
			}
		case "function_declaration":
			funcs = append(funcs, p.functionFromNode(n, src))
		case "method_declaration":
			fn := p.functionFromNode(n, src)
			receiver := ""
			if recv := n.ChildByFieldName("receiver"); recv != nil && recv.NamedChildCount() > 0 {
				if typ := recv.NamedChild(0).ChildByFieldName("type"); typ != nil {
					receiver = strings.TrimPrefix(typ.Content(src), "*")
				}
			}
			if receiver != "" {
				methods = append(methods, goMethod{receiver: receiver, fn: fn})
			} else {
				funcs = append(funcs, fn)
			}
		}
	})
	return assembleClasses(structs, methods), funcs, true
}

func (p *GoParser) functionFromNode(n *sitter.Node, src []byte) ParsedFunction {
	fn := ParsedFunction{
		LineStart: int(n.StartPoint().Row) + 1,
		LineEnd:   int(n.EndPoint().Row) + 1,
		Params:    make([]string, 0),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = name.Content(src)
		fn.IsPublic = isExportedName(fn.Name)
	}
	raw := ""
	if params := n.ChildByFieldName("parameters"); params != nil {
		raw = strings.Trim(params.Content(src), "()")
		for i := 0; i < int(params.NamedChildCount()); i++ {
			decl := params.NamedChild(i)
			if decl.Type() != "parameter_declaration" && decl.Type() != "variadic_parameter_declaration" {
				continue
			}
			if name := decl.ChildByFieldName("name"); name != nil {
				fn.Params = append(fn.Params, name.Content(src))
			}
		}
	}
	if result := n.ChildByFieldName("result"); result != nil {
		fn.ReturnType = result.Content(src)
	}
	fn.Signature = fmt.Sprintf("func %s(%s)", fn.Name, raw)
	if fn.ReturnType != "" {
		fn.Signature += " " + fn.ReturnType
	}
	return fn
}

// regex fallback path

func (p *GoParser) declarationsRegex(content string) ([]ParsedClass, []ParsedFunction) {
	clean := stripComments(content, "//", "/*", "*/")

	structs := make([]ParsedClass, 0)
	for _, loc := range goStructRe.FindAllStringSubmatchIndex(clean, -1) {
		m := goStructRe.FindStringSubmatch(clean[loc[0]:loc[1]])
		lineStart := lineAt(content, loc[0])
		lineEnd := lineStart
		if close := matchingDelimiter(clean, loc[1]-1, '{', '}'); close > 0 {
			lineEnd = lineAt(content, close)
		}
		structs = append(structs, ParsedClass{
			Name:      m[1],
			LineStart: lineStart,
			LineEnd:   lineEnd,
			Methods:   make([]ParsedFunction, 0),
			IsPublic:  isExportedName(m[1]),
		})
	}

	methods := make([]goMethod, 0)
	funcs := make([]ParsedFunction, 0)
	for _, loc := range goFuncRe.FindAllStringSubmatchIndex(clean, -1) {
		m := goFuncRe.FindStringSubmatch(clean[loc[0]:loc[1]])
		receiver, name, paramsRaw, retRaw := m[2], m[3], m[4], strings.TrimSpace(m[5])
		lineStart := lineAt(content, loc[0])
		lineEnd := lineStart
		if close := matchingDelimiter(clean, loc[1]-1, '{', '}'); close > 0 {
			lineEnd = lineAt(content, close)
		}

		params := make([]string, 0)
		for _, part := range splitParams(paramsRaw) {
			// "name type" pairs keep the name; bare types are skipped.
			fields := strings.Fields(part)
			if len(fields) >= 2 {
				params = append(params, fields[0])
			}
		}

		sig := fmt.Sprintf("func %s(%s)", name, paramsRaw)
		if retRaw != "" {
			sig += " " + retRaw
		}
		fn := ParsedFunction{
			Name:       name,
			Signature:  sig,
			LineStart:  lineStart,
			LineEnd:    lineEnd,
			Params:     params,
			ReturnType: retRaw,
			IsPublic:   isExportedName(name),
		}
		if receiver != "" {
			methods = append(methods, goMethod{receiver: receiver, fn: fn})
		} else {
			funcs = append(funcs, fn)
		}
	}

	return assembleClasses(structs, methods), funcs
}
