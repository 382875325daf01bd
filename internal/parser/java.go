package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// JavaParser extracts structure from Java sources. Java is strictly
// class-based, so ExtractFunctions always returns an empty slice; every
// callable lives inside a ParsedClass.
type JavaParser struct {
	grammar bool
	sitter  *sitter.Parser
}

var (
	javaImportRe = regexp.MustCompile(`^import\s+(?:static\s+)?([\w\.]+(?:\.\*)?)\s*;?\s*$`)
	javaClassRe  = regexp.MustCompile(`(?:public\s+|protected\s+|private\s+)?(?:abstract\s+|final\s+)?(?:class|interface)\s+(\w+)(?:\s+extends\s+([\w\.<>]+))?`)
	javaMethodRe = regexp.MustCompile(`(?:public|private|protected)?\s*(?:static\s+)?(?:final\s+)?(\w[\w\[\]<>\.]*)\s+(\w+)\s*\(([^)]*)\)\s*(?:throws\s+[\w\.,\s]+)?\{`)
)

// javaNonMethods filters control keywords that the fallback method regex
// would otherwise match as return types or names.
var javaNonMethods = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true, "new": true, "else": true,
}

// NewJavaParser creates a Java parser.
func NewJavaParser(grammarEnabled bool) *JavaParser {
	p := &JavaParser{grammar: grammarEnabled}
	if grammarEnabled {
		p.sitter = sitter.NewParser()
		p.sitter.SetLanguage(java.GetLanguage())
	}
	return p
}

func (p *JavaParser) Language() Language { return LanguageJava }

func (p *JavaParser) Parse(filePath, content string) (result *ParsedFile, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ParsingError{Path: filePath, Err: fmt.Errorf("java parser panic: %v", r)}
		}
	}()

	parsed := &ParsedFile{
		FilePath:   filePath,
		Language:   LanguageJava,
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
		Int("imports", len(parsed.Imports)).
		Msg("parsed java file")
	return parsed, nil
}

// ExtractImports scans import declarations line by line. The same scan
// serves both tiers; Java imports are line-delimited enough that the
// grammar adds nothing here.
func (p *JavaParser) ExtractImports(content string) []ParsedImport {
	imports := make([]ParsedImport, 0)
	for _, line := range strings.Split(content, "\n") {
		m := javaImportRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		path := m[1]
		if strings.HasSuffix(path, ".*") {
			imports = append(imports, ParsedImport{
				Module: strings.TrimSuffix(path, ".*"),
				Items:  []string{"*"},
			})
			continue
		}
		parts := strings.Split(path, ".")
		module := path
		items := []string{path}
		if len(parts) > 1 {
			module = strings.Join(parts[:len(parts)-1], ".")
			items = []string{parts[len(parts)-1]}
		}
		imports = append(imports, ParsedImport{Module: module, Items: items})
	}
	return imports
}

func (p *JavaParser) ExtractClasses(content string) []ParsedClass {
	if p.grammar {
		if classes, ok := p.classesFromTree(content); ok {
			return classes
		}
	}
	return p.classesRegex(content)
}

// ExtractFunctions returns an empty slice: Java has no top-level functions.
func (p *JavaParser) ExtractFunctions(content string) []ParsedFunction {
	return make([]ParsedFunction, 0)
}

func (p *JavaParser) ValidateSyntax(content string) []string {
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

func (p *JavaParser) classesFromTree(content string) ([]ParsedClass, bool) {
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
		if n.Type() != "class_declaration" && n.Type() != "interface_declaration" {
			return
		}
		cls := ParsedClass{
			LineStart: int(n.StartPoint().Row) + 1,
			LineEnd:   int(n.EndPoint().Row) + 1,
			Methods:   make([]ParsedFunction, 0),
			IsPublic:  nodeHasModifier(n, src, "public"),
		}
		if name := n.ChildByFieldName("name"); name != nil {
			cls.Name = name.Content(src)
		}
		if super := n.ChildByFieldName("superclass"); super != nil {
			cls.ParentClass = strings.TrimSpace(strings.TrimPrefix(super.Content(src), "extends"))
		}
		if body := n.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				child := body.NamedChild(i)
				if child.Type() != "method_declaration" {
					continue
				}
				cls.Methods = append(cls.Methods, p.methodFromNode(child, src))
			}
		}
		classes = append(classes, cls)
	})
	return classes, true
}

func (p *JavaParser) methodFromNode(n *sitter.Node, src []byte) ParsedFunction {
	fn := ParsedFunction{
		LineStart: int(n.StartPoint().Row) + 1,
		LineEnd:   int(n.EndPoint().Row) + 1,
		Params:    make([]string, 0),
		IsPublic:  nodeHasModifier(n, src, "public"),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = name.Content(src)
	}
	if typ := n.ChildByFieldName("type"); typ != nil {
		fn.ReturnType = typ.Content(src)
	}
	rawParams := make([]string, 0)
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param := params.NamedChild(i)
			if param.Type() != "formal_parameter" && param.Type() != "spread_parameter" {
				continue
			}
			rawParams = append(rawParams, param.Content(src))
			if name := param.ChildByFieldName("name"); name != nil {
				fn.Params = append(fn.Params, name.Content(src))
			}
		}
	}
	fn.Signature = fmt.Sprintf("%s %s(%s)", fn.ReturnType, fn.Name, strings.Join(rawParams, ", "))
	return fn
}

// nodeHasModifier checks a declaration's modifiers child for an explicit
// visibility token.
func nodeHasModifier(n *sitter.Node, src []byte, modifier string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "modifiers" {
			return strings.Contains(child.Content(src), modifier)
		}
	}
	return false
}

// regex fallback path

func (p *JavaParser) classesRegex(content string) []ParsedClass {
	classes := make([]ParsedClass, 0)
	clean := stripComments(content, "//", "/*", "*/")

	for _, loc := range javaClassRe.FindAllStringSubmatchIndex(clean, -1) {
		m := javaClassRe.FindStringSubmatch(clean[loc[0]:loc[1]])
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

		// Visibility comes from a modifier token near the declaration.
		prefix := clean[maxInt(0, loc[0]-50):loc[1]]
		classes = append(classes, ParsedClass{
			Name:        m[1],
			LineStart:   lineStart,
			LineEnd:     lineEnd,
			Methods:     methods,
			ParentClass: m[2],
			IsPublic:    strings.Contains(prefix, "public"),
		})
	}
	return classes
}

func (p *JavaParser) methodsRegex(body string, startLine int) []ParsedFunction {
	methods := make([]ParsedFunction, 0)
	for _, loc := range javaMethodRe.FindAllStringSubmatchIndex(body, -1) {
		m := javaMethodRe.FindStringSubmatch(body[loc[0]:loc[1]])
		returnType, name, paramsRaw := m[1], m[2], m[3]
		if javaNonMethods[returnType] || javaNonMethods[name] {
			continue
		}

		params := make([]string, 0)
		if strings.TrimSpace(paramsRaw) != "" {
			for _, param := range strings.Split(paramsRaw, ",") {
				// Parameter name is the last token of "Type name".
				fields := strings.Fields(strings.TrimSpace(param))
				if len(fields) > 0 {
					params = append(params, fields[len(fields)-1])
				}
			}
		}

		line := startLine + strings.Count(body[:loc[0]], "\n")
		lineEnd := line
		if close := matchingDelimiter(body, loc[1]-1, '{', '}'); close > 0 {
			lineEnd = startLine + strings.Count(body[:close], "\n")
		}
		methods = append(methods, ParsedFunction{
			Name:       name,
			Signature:  fmt.Sprintf("%s %s(%s)", returnType, name, paramsRaw),
			LineStart:  line,
			LineEnd:    lineEnd,
			Params:     params,
			ReturnType: returnType,
			IsPublic:   strings.Contains(body[maxInt(0, loc[0]-50):loc[0]]+m[0], "public"),
		})
	}
	return methods
}
