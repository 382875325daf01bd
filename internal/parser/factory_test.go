package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguageFromPath(t *testing.T) {
	f := NewFactory()

	tests := []struct {
		path     string
		expected Language
	}{
		{"main.go", LanguageGo},
		{"app.py", LanguagePython},
		{"types.pyi", LanguagePython},
		{"index.js", LanguageJavaScript},
		{"index.jsx", LanguageJavaScript},
		{"app.ts", LanguageJavaScript},
		{"app.tsx", LanguageJavaScript},
		{"mod.mjs", LanguageJavaScript},
		{"Main.java", LanguageJava},
		{"README.md", LanguageUnknown},
		{"Makefile", LanguageUnknown},
		{"/path/to/file.go", LanguageGo},
		{"/path/to/FILE.PY", LanguagePython}, // case insensitive
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.DetectLanguageFromPath(tt.path))
		})
	}
}

// Every supported extension must round-trip through GetParser.
func TestExtensionRoundTrip(t *testing.T) {
	f := NewFactory()

	for ext, lang := range f.SupportedExtensions() {
		detected := f.DetectLanguageFromPath("example" + ext)
		assert.Equal(t, lang, string(detected), "extension %s", ext)

		p, err := f.GetParser(string(detected))
		require.NoError(t, err, "extension %s", ext)
		assert.Equal(t, detected, p.Language())
	}
}

func TestDetectLanguageFromContent(t *testing.T) {
	f := NewFactory()

	tests := []struct {
		name     string
		content  string
		path     string
		expected Language
	}{
		{"path wins over content", "def f():\n    pass\n", "script.js", LanguageJavaScript},
		{"python shebang", "#!/usr/bin/env python\nprint('hi')\n", "", LanguagePython},
		{"python def", "def handler(event):\n    return event\n", "", LanguagePython},
		{"java class", "public class Widget {\n}\n", "", LanguageJava},
		{"go main", "package main\n\nfunc main() {\n}\n", "", LanguageGo},
		{"javascript function", "function render() {}\n", "", LanguageJavaScript},
		{"binary-ish", "\x00\x01\x02", "", LanguageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.DetectLanguageFromContent(tt.content, tt.path))
		})
	}
}

func TestGetParserNormalizesNames(t *testing.T) {
	f := NewFactory()

	p, err := f.GetParser(" Python ")
	require.NoError(t, err)
	assert.Equal(t, LanguagePython, p.Language())

	p, err = f.GetParser("typescript")
	require.NoError(t, err)
	assert.Equal(t, LanguageJavaScript, p.Language())
}

func TestGetParserCachesInstances(t *testing.T) {
	f := NewFactory()

	first, err := f.GetParser("python")
	require.NoError(t, err)
	second, err := f.GetParser("python")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestGetParserUnsupported(t *testing.T) {
	f := NewFactory()

	_, err := f.GetParser("cobol")
	require.Error(t, err)

	var unsupported *UnsupportedLanguageError
	assert.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "cobol", unsupported.Language)

	// The failed lookup must not populate the cache.
	f.mu.Lock()
	_, cached := f.cache["cobol"]
	f.mu.Unlock()
	assert.False(t, cached)
}

func TestIsSupported(t *testing.T) {
	f := NewFactory()

	assert.True(t, f.IsSupported("python"))
	assert.True(t, f.IsSupported("GO"))
	assert.False(t, f.IsSupported("rust"))
	assert.False(t, f.IsSupported(""))
}

func TestParseFile(t *testing.T) {
	f := NewFactory()

	parsed, err := f.ParseFile("app.py", "import os\n\ndef main():\n    pass\n")
	require.NoError(t, err)
	assert.Equal(t, LanguagePython, parsed.Language)
	assert.Len(t, parsed.Functions, 1)

	_, err = f.ParseFile("notes.txt", "just some text\n")
	var unsupported *UnsupportedLanguageError
	assert.True(t, errors.As(err, &unsupported))
}

func TestListSupportedLanguages(t *testing.T) {
	f := NewFactory()

	langs := f.ListSupportedLanguages()
	assert.Equal(t, []string{"go", "java", "javascript", "python"}, langs)
}
