package analysis

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens-hq/repolens/internal/cache"
	"github.com/repolens-hq/repolens/internal/parser"
)

type fakeSource struct {
	order   []string
	files   map[string]string
	listErr error
}

func (f *fakeSource) ListFiles(root, pattern string, maxDepth int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.order, nil
}

func (f *fakeSource) ReadFile(root, relPath string) (string, error) {
	content, ok := f.files[relPath]
	if !ok {
		return "", fmt.Errorf("no such file: %s", relPath)
	}
	return content, nil
}

func newTestAnalyzer(src *fakeSource) *Analyzer {
	return NewAnalyzer(parser.NewFactory(), src, nil, nil)
}

func TestAnalyzeFileSkipsUnknownLanguage(t *testing.T) {
	src := &fakeSource{files: map[string]string{
		"README.md": "# hello\n",
	}}
	a := newTestAnalyzer(src)

	fa, err := a.AnalyzeFile("repo", "/tmp/repo", "README.md", false)
	require.NoError(t, err)
	assert.Nil(t, fa)
}

func TestAnalyzeFileReadFailure(t *testing.T) {
	src := &fakeSource{files: map[string]string{}}
	a := newTestAnalyzer(src)

	_, err := a.AnalyzeFile("repo", "/tmp/repo", "missing.py", false)
	assert.Error(t, err)
}

func TestAnalyzeFilePython(t *testing.T) {
	src := &fakeSource{files: map[string]string{
		"app.py": "import os\n\nclass Worker:\n    def start(self):\n        pass\n\ndef main():\n    pass\n",
	}}
	a := newTestAnalyzer(src)

	fa, err := a.AnalyzeFile("repo", "/tmp/repo", "app.py", false)
	require.NoError(t, err)
	require.NotNil(t, fa)

	assert.Equal(t, "python", fa.Language)
	assert.Equal(t, 1, fa.ImportsCount)
	assert.Equal(t, 1, fa.ClassesCount)
	assert.Equal(t, 1, fa.FunctionsCount)
}

func TestAnalyzeRepositoryConcreteScenario(t *testing.T) {
	src := &fakeSource{
		order: []string{"main.py", "utils.py", "requirements.txt"},
		files: map[string]string{
			"main.py":          "import os\n\ndef main():\n    pass\n",
			"utils.py":         "class Helper:\n    def assist(self):\n        pass\n",
			"requirements.txt": "flask\n",
		},
	}
	a := newTestAnalyzer(src)

	result, err := a.AnalyzeRepository("github.com/acme/widgets", "/tmp/repo", Options{MaxFiles: 10})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalFiles)
	assert.Equal(t, 2, result.AnalyzedFiles)
	assert.Equal(t, "python", result.PrimaryLanguage)
	assert.Contains(t, result.EntryPoints, "main.py")
	assert.Contains(t, result.ConfigFiles, "requirements.txt")
	assert.Equal(t, 1, result.Metrics.TotalClasses)
	assert.NotEmpty(t, result.ID)
	assert.WithinDuration(t, time.Now().UTC(), result.AnalyzedAt, time.Minute)
}

func TestAnalyzeRepositoryBoundedWork(t *testing.T) {
	src := &fakeSource{files: map[string]string{}}
	for i := 0; i < 30; i++ {
		name := fmt.Sprintf("mod%02d.py", i)
		src.order = append(src.order, name)
		src.files[name] = "def run():\n    pass\n"
	}
	a := newTestAnalyzer(src)

	result, err := a.AnalyzeRepository("repo", "/tmp/repo", Options{MaxFiles: 3})
	require.NoError(t, err)

	assert.Equal(t, 30, result.TotalFiles)
	assert.LessOrEqual(t, result.AnalyzedFiles, 3)
}

func TestAnalyzeRepositoryPrimaryLanguageTieBreak(t *testing.T) {
	src := &fakeSource{
		order: []string{"a.py", "b.py", "c.py", "x.js", "y.js", "z.js"},
		files: map[string]string{
			"a.py": "def a():\n    pass\n",
			"b.py": "def b():\n    pass\n",
			"c.py": "def c():\n    pass\n",
			"x.js": "function x() {}\n",
			"y.js": "function y() {}\n",
			"z.js": "function z() {}\n",
		},
	}
	a := newTestAnalyzer(src)

	result, err := a.AnalyzeRepository("repo", "/tmp/repo", Options{MaxFiles: 10})
	require.NoError(t, err)

	assert.Equal(t, 3, result.LanguageDistribution["python"])
	assert.Equal(t, 3, result.LanguageDistribution["javascript"])
	assert.Equal(t, "python", result.PrimaryLanguage)
}

func TestAnalyzeRepositoryDependencyCap(t *testing.T) {
	src := &fakeSource{files: map[string]string{}}
	for i := 0; i < 30; i++ {
		name := fmt.Sprintf("file%02d.py", i)
		src.order = append(src.order, name)
		src.files[name] = fmt.Sprintf("import pkg%02d\n", i)
	}
	// Repeat one module so the sort has something to rank.
	src.files["file29.py"] = "import pkg00\nimport pkg29\n"

	a := newTestAnalyzer(src)
	result, err := a.AnalyzeRepository("repo", "/tmp/repo", Options{MaxFiles: 50})
	require.NoError(t, err)

	require.Len(t, result.Dependencies, 20)
	assert.Equal(t, "pkg00", result.Dependencies[0].Module)
	assert.Equal(t, 2, result.Dependencies[0].Count)
	for i := 1; i < len(result.Dependencies); i++ {
		assert.GreaterOrEqual(t, result.Dependencies[i-1].Count, result.Dependencies[i].Count)
	}
}

func TestAnalyzeRepositoryListingFailureIsFatal(t *testing.T) {
	src := &fakeSource{listErr: errors.New("permission denied")}
	a := newTestAnalyzer(src)

	_, err := a.AnalyzeRepository("repo", "/tmp/repo", Options{})
	require.Error(t, err)

	var caErr *CodeAnalysisError
	assert.ErrorAs(t, err, &caErr)
}

func TestAnalyzeRepositoryReadFailureRecorded(t *testing.T) {
	src := &fakeSource{
		order: []string{"good.py", "bad.py"},
		files: map[string]string{
			"good.py": "def ok():\n    pass\n",
		},
	}
	a := newTestAnalyzer(src)

	result, err := a.AnalyzeRepository("repo", "/tmp/repo", Options{MaxFiles: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, result.AnalyzedFiles)
	require.Len(t, result.ErrorSummary, 1)
	assert.Contains(t, result.ErrorSummary[0], "bad.py")
}

func TestAnalyzeRepositoryUsesCache(t *testing.T) {
	src := &fakeSource{
		order: []string{"main.py"},
		files: map[string]string{"main.py": "def main():\n    pass\n"},
	}
	c := cache.NewMemoryCache(10, time.Hour)
	a := NewAnalyzer(parser.NewFactory(), src, c, nil)

	first, err := a.AnalyzeRepository("repo", "/tmp/repo", Options{MaxFiles: 10, UseCache: true})
	require.NoError(t, err)

	// Break the source; a cached result must still come back.
	src.listErr = errors.New("gone")
	second, err := a.AnalyzeRepository("repo", "/tmp/repo", Options{MaxFiles: 10, UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestDetectPatterns(t *testing.T) {
	a := newTestAnalyzer(&fakeSource{})

	mvcFiles := []FileAnalysis{
		{FilePath: "app/models/user.py"},
		{FilePath: "app/views/user.py"},
		{FilePath: "app/controllers/user.py"},
		{FilePath: "app/models/order.py"},
	}
	assert.Contains(t, a.detectPatterns(mvcFiles), "MVC")

	serviceFiles := []FileAnalysis{
		{FilePath: "user_service.py"},
		{FilePath: "order_service.py"},
		{FilePath: "util.py"},
	}
	assert.Contains(t, a.detectPatterns(serviceFiles), "Microservices")

	assert.Empty(t, a.detectPatterns([]FileAnalysis{{FilePath: "misc.py"}}))
}

func TestCalculateMetrics(t *testing.T) {
	tests := []struct {
		name            string
		files           int
		lines           int
		classes         int
		functions       int
		complexity      int
		maintainability int
	}{
		{"empty repository", 0, 0, 0, 0, 1, 10},
		{"small files", 10, 500, 5, 20, 1, 10},
		{"large files", 4, 12000, 2, 10, 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := calculateMetrics(tt.files, tt.lines, tt.classes, tt.functions)
			assert.Equal(t, tt.complexity, m.ComplexityScore)
			assert.Equal(t, tt.maintainability, m.MaintainabilityIndex)
			assert.Equal(t, 10-tt.maintainability, m.TechnicalDebtScore)
		})
	}
}

func TestPrimaryLanguageEmpty(t *testing.T) {
	assert.Equal(t, "unknown", primaryLanguage(nil, nil))
}
