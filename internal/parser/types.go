package parser

import "fmt"

// Language identifies a programming language.
type Language string

const (
	LanguageGo         Language = "go"
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
	LanguageUnknown    Language = "unknown"
)

// ParsedImport represents a single import statement.
type ParsedImport struct {
	// Module is the dotted or path-style module name.
	Module string `json:"module"`
	// Items holds the imported names; ["*"] marks a wildcard import.
	Items []string `json:"items"`
	// Alias is the local rename, if any.
	Alias string `json:"alias,omitempty"`
	// IsRelative is true for same-package/relative imports.
	IsRelative bool `json:"is_relative"`
}

// ParsedFunction represents a function or method definition.
type ParsedFunction struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	// LineStart and LineEnd are 1-based; LineEnd >= LineStart.
	LineStart int `json:"line_start"`
	LineEnd   int `json:"line_end"`
	// Params holds parameter names in declaration order; destructured
	// patterns collapse to a placeholder name.
	Params     []string `json:"params"`
	ReturnType string   `json:"return_type,omitempty"`
	Docstring  string   `json:"docstring,omitempty"`
	IsPublic   bool     `json:"is_public"`
}

// ParsedClass represents a class definition with its methods.
type ParsedClass struct {
	Name      string           `json:"name"`
	LineStart int              `json:"line_start"`
	LineEnd   int              `json:"line_end"`
	Methods   []ParsedFunction `json:"methods"`
	// ParentClass is the first superclass; remaining bases and interfaces
	// are collapsed away.
	ParentClass string `json:"parent_class,omitempty"`
	Docstring   string `json:"docstring,omitempty"`
	IsPublic    bool   `json:"is_public"`
}

// ParsedFile is the structural model every language parser produces.
// It is a pure value: built by exactly one Parse call, never mutated after.
type ParsedFile struct {
	FilePath string   `json:"file_path"`
	Language Language `json:"language"`
	// Content is the verbatim source, kept for line counting and fallback
	// regex scans downstream.
	Content    string           `json:"content"`
	Imports    []ParsedImport   `json:"imports"`
	Classes    []ParsedClass    `json:"classes"`
	Functions  []ParsedFunction `json:"functions"`
	TotalLines int              `json:"total_lines"`
	// Docstring is the module/file level documentation comment.
	Docstring string `json:"docstring,omitempty"`
	// Errors holds non-fatal syntax warnings; empty means a clean parse.
	Errors []string `json:"errors"`
}

// ParsingError signals that a parser could not extract anything useful from
// a file. The aggregator catches it, records a warning, and skips the file.
type ParsingError struct {
	Path string
	Err  error
}

func (e *ParsingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parsing error: %v", e.Err)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

// UnsupportedLanguageError is raised at the factory boundary when no parser
// exists for a language, so callers can tell it apart from a parse failure.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("no parser implemented for language: %s", e.Language)
}
