package parser

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// languageExtensions maps file extensions to languages. Extensions for
// languages without a parser still map here so detection can name them.
var languageExtensions = map[string]Language{
	".py":   LanguagePython,
	".pyx":  LanguagePython,
	".pyi":  LanguagePython,
	".js":   LanguageJavaScript,
	".jsx":  LanguageJavaScript,
	".ts":   LanguageJavaScript,
	".tsx":  LanguageJavaScript,
	".mjs":  LanguageJavaScript,
	".cjs":  LanguageJavaScript,
	".java": LanguageJava,
	".go":   LanguageGo,
}

// supportedLanguages is the closed set of languages with a parser variant.
var supportedLanguages = map[Language]bool{
	LanguagePython:     true,
	LanguageJavaScript: true,
	LanguageJava:       true,
	LanguageGo:         true,
}

// contentPattern pairs a language with the literal substrings that suggest
// it. Patterns are tried in order and the first language with a hit wins;
// the sets are deliberately not mutually exclusive.
type contentPattern struct {
	language Language
	patterns []string
}

var contentPatterns = []contentPattern{
	{LanguageJava, []string{"public class", "public interface", "import java.", "package "}},
	{LanguageGo, []string{"package main", "func main(", "func (", ":= "}},
	{LanguagePython, []string{"def ", "import ", "from ", "class ", "if __name__", "#!/usr/bin/env python"}},
	{LanguageJavaScript, []string{"function ", "const ", "let ", "var ", "class ", "import ", "export ", "require("}},
}

// Factory creates and caches language parsers. Parsers are stateless and
// shared; the factory holds exactly one instance per language. A Factory is
// an explicit value owned by whoever drives an analysis run; there is no
// process-wide singleton.
type Factory struct {
	mu      sync.Mutex
	cache   map[Language]LanguageParser
	grammar bool
}

// NewFactory creates a factory whose parsers use their tree-sitter
// grammars.
func NewFactory() *Factory {
	return NewFactoryWithGrammar(true)
}

// NewFactoryWithGrammar controls the grammar capability flag handed to every
// parser the factory constructs. Disabling it forces the regex fallback
// tier, which is how tests exercise graceful degradation.
func NewFactoryWithGrammar(grammarEnabled bool) *Factory {
	return &Factory{
		cache:   make(map[Language]LanguageParser),
		grammar: grammarEnabled,
	}
}

// DetectLanguageFromPath detects a language from the file extension alone.
// Returns LanguageUnknown when the extension is not recognized.
func (f *Factory) DetectLanguageFromPath(filePath string) Language {
	ext := strings.ToLower(filepath.Ext(filePath))
	if lang, ok := languageExtensions[ext]; ok {
		return lang
	}
	return LanguageUnknown
}

// DetectLanguageFromContent detects a language from content patterns, with
// path-based detection tried first because an extension is authoritative
// when present. Content sniffing is best-effort: the first language whose
// pattern set matches wins.
func (f *Factory) DetectLanguageFromContent(content, filePath string) Language {
	if filePath != "" {
		if lang := f.DetectLanguageFromPath(filePath); lang != LanguageUnknown {
			return lang
		}
	}

	lowered := strings.ToLower(content)
	for _, cp := range contentPatterns {
		for _, pattern := range cp.patterns {
			if strings.Contains(lowered, pattern) {
				log.Debug().Str("language", string(cp.language)).Msg("detected language from content")
				return cp.language
			}
		}
	}
	return LanguageUnknown
}

// GetParser returns the cached parser for a language, constructing it on
// first use. The language string is normalized (lowercased, trimmed) before
// lookup. Returns *UnsupportedLanguageError for anything outside the
// supported set; the cache is never populated for such languages.
func (f *Factory) GetParser(language string) (LanguageParser, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(language)))
	if lang == LanguageJavaScript || lang == "typescript" {
		lang = LanguageJavaScript
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.cache[lang]; ok {
		return p, nil
	}
	if !supportedLanguages[lang] {
		return nil, &UnsupportedLanguageError{Language: string(lang)}
	}

	var p LanguageParser
	switch lang {
	case LanguagePython:
		p = NewPythonParser(f.grammar)
	case LanguageJavaScript:
		p = NewJavaScriptParser(f.grammar)
	case LanguageJava:
		p = NewJavaParser(f.grammar)
	case LanguageGo:
		p = NewGoParser(f.grammar)
	default:
		return nil, &UnsupportedLanguageError{Language: string(lang)}
	}

	f.cache[lang] = p
	log.Debug().Str("language", string(lang)).Msg("created parser")
	return p, nil
}

// IsSupported reports whether a language has a parser.
func (f *Factory) IsSupported(language string) bool {
	return supportedLanguages[Language(strings.ToLower(strings.TrimSpace(language)))]
}

// ParseFile detects the language and parses in one call. Returns
// *UnsupportedLanguageError when detection fails or no parser exists.
func (f *Factory) ParseFile(filePath, content string) (*ParsedFile, error) {
	lang := f.DetectLanguageFromContent(content, filePath)
	if lang == LanguageUnknown {
		return nil, &UnsupportedLanguageError{Language: string(LanguageUnknown)}
	}
	p, err := f.GetParser(string(lang))
	if err != nil {
		return nil, err
	}
	return p.Parse(filePath, content)
}

// ListSupportedLanguages returns the supported language names, sorted.
func (f *Factory) ListSupportedLanguages() []string {
	langs := make([]string, 0, len(supportedLanguages))
	for lang := range supportedLanguages {
		langs = append(langs, string(lang))
	}
	sort.Strings(langs)
	return langs
}

// SupportedExtensions returns the extension to language mapping restricted
// to languages that have a parser.
func (f *Factory) SupportedExtensions() map[string]string {
	out := make(map[string]string)
	for ext, lang := range languageExtensions {
		if supportedLanguages[lang] {
			out[ext] = string(lang)
		}
	}
	return out
}
