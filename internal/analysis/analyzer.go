// Package analysis aggregates per-file structural parses into a
// repository-level picture: language distribution, dependencies, entry
// points, architecture pattern tags and heuristic quality metrics.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/repolens-hq/repolens/internal/cache"
	"github.com/repolens-hq/repolens/internal/config"
	"github.com/repolens-hq/repolens/internal/parser"
)

// FileSource lists and reads files under a repository root. Listing is
// expected to exclude noise directories (VCS metadata, dependency caches,
// build output) and reading to replace invalid UTF-8.
type FileSource interface {
	ListFiles(root, pattern string, maxDepth int) ([]string, error)
	ReadFile(root, relPath string) (string, error)
}

// Options controls one AnalyzeRepository run.
type Options struct {
	// MaxFiles is a hard cap on files analyzed; excess files still count
	// toward TotalFiles. Defaults to 50.
	MaxFiles int
	// Pattern optionally narrows the candidate list with a glob.
	Pattern string
	// MaxDepth bounds directory traversal. Defaults to 10.
	MaxDepth int
	// UseCache enables the result cache for this run.
	UseCache bool
	// RefreshClone reuses an existing clone via pull instead of re-cloning.
	// Only meaningful for runs that start from a repository URL.
	RefreshClone bool
}

// Analyzer folds structural parses into repository aggregates. Each
// AnalyzeRepository call owns its accumulator; a single Analyzer is safe
// for concurrent runs against different repositories.
type Analyzer struct {
	factory *parser.Factory
	files   FileSource
	cache   cache.Cache
	cfg     *config.AnalysisConfig
}

// NewAnalyzer creates an analyzer. A nil cache disables caching and a nil
// cfg uses the default analysis configuration.
func NewAnalyzer(factory *parser.Factory, files FileSource, c cache.Cache, cfg *config.AnalysisConfig) *Analyzer {
	if c == nil {
		c = &cache.NullCache{}
	}
	if cfg == nil {
		cfg = config.DefaultAnalysisConfig()
	}
	return &Analyzer{
		factory: factory,
		files:   files,
		cache:   c,
		cfg:     cfg,
	}
}

// AnalyzeFile reads and parses one file. It returns (nil, nil) when the
// language cannot be detected or has no parser; that is an expected
// per-file skip, not a failure. A non-nil error means a genuine read or
// parse failure the caller should record.
func (a *Analyzer) AnalyzeFile(repoURL, repoPath, filePath string, useCache bool) (*FileAnalysis, error) {
	key := cache.Key(repoURL, filePath, "file")
	if useCache {
		if raw, ok := a.cache.Get(key); ok {
			var cached FileAnalysis
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	content, err := a.files.ReadFile(repoPath, filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	language := a.factory.DetectLanguageFromContent(content, filePath)
	if language == parser.LanguageUnknown {
		log.Debug().Str("file", filePath).Msg("language not detected, skipping")
		return nil, nil
	}

	p, err := a.factory.GetParser(string(language))
	if err != nil {
		var unsupported *parser.UnsupportedLanguageError
		if errors.As(err, &unsupported) {
			log.Debug().Str("file", filePath).Str("language", string(language)).Msg("no parser available, skipping")
			return nil, nil
		}
		return nil, err
	}

	parsed, err := p.Parse(filePath, content)
	if err != nil {
		return nil, err
	}

	result := &FileAnalysis{
		FilePath:       filePath,
		Language:       string(parsed.Language),
		TotalLines:     parsed.TotalLines,
		ImportsCount:   len(parsed.Imports),
		ClassesCount:   len(parsed.Classes),
		FunctionsCount: len(parsed.Functions),
		Imports:        parsed.Imports,
		Classes:        parsed.Classes,
		Functions:      parsed.Functions,
		Errors:         parsed.Errors,
	}

	if useCache {
		if raw, err := json.Marshal(result); err == nil {
			_ = a.cache.Set(key, raw, 0)
		}
	}

	log.Debug().
		Str("file", filePath).
		Int("classes", result.ClassesCount).
		Int("functions", result.FunctionsCount).
		Msg("analyzed file")
	return result, nil
}

// AnalyzeRepository analyzes up to opts.MaxFiles files under repoPath and
// folds them into a RepositoryAnalysis. Only a root listing failure is
// fatal; individual file failures land in ErrorSummary.
func (a *Analyzer) AnalyzeRepository(repoURL, repoPath string, opts Options) (*RepositoryAnalysis, error) {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 50
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 10
	}

	log.Info().Str("url", repoURL).Msg("analyzing repository")

	repoKey := cache.Key(repoURL, "repository")
	if opts.UseCache {
		if raw, ok := a.cache.Get(repoKey); ok {
			var cached RepositoryAnalysis
			if err := json.Unmarshal(raw, &cached); err == nil {
				log.Info().Str("url", repoURL).Msg("repository analysis served from cache")
				return &cached, nil
			}
		}
	}

	files, err := a.files.ListFiles(repoPath, opts.Pattern, opts.MaxDepth)
	if err != nil {
		return nil, &CodeAnalysisError{Op: "list files", Err: err}
	}

	candidates := files
	if len(candidates) > opts.MaxFiles {
		candidates = candidates[:opts.MaxFiles]
	}
	log.Info().Int("analyzing", len(candidates)).Int("total", len(files)).Msg("file list collected")

	var (
		analyzed      []FileAnalysis
		languageOrder []string
		errorSummary  []string
	)
	languageCounts := make(map[string]int)
	totalLines, classCount, functionCount, importCount := 0, 0, 0, 0

	for _, filePath := range candidates {
		fa, err := a.AnalyzeFile(repoURL, repoPath, filePath, opts.UseCache)
		if err != nil {
			log.Warn().Str("file", filePath).Err(err).Msg("file analysis failed")
			errorSummary = append(errorSummary, fmt.Sprintf("%s: %v", filePath, err))
			continue
		}
		if fa == nil {
			continue
		}

		analyzed = append(analyzed, *fa)

		if _, seen := languageCounts[fa.Language]; !seen {
			languageOrder = append(languageOrder, fa.Language)
		}
		languageCounts[fa.Language]++

		totalLines += fa.TotalLines
		classCount += fa.ClassesCount
		functionCount += fa.FunctionsCount
		importCount += fa.ImportsCount
		errorSummary = append(errorSummary, fa.Errors...)
	}

	result := &RepositoryAnalysis{
		ID:                   uuid.NewString(),
		RepositoryURL:        repoURL,
		TotalFiles:           len(files),
		AnalyzedFiles:        len(analyzed),
		PrimaryLanguage:      primaryLanguage(languageCounts, languageOrder),
		LanguageDistribution: languageCounts,
		Files:                analyzed,
		EntryPoints:          a.identifyEntryPoints(analyzed),
		ConfigFiles:          a.identifyConfigFiles(files),
		Dependencies:         extractDependencies(analyzed),
		ArchitecturePatterns: a.detectPatterns(analyzed),
		Metrics:              calculateMetrics(len(analyzed), totalLines, classCount, functionCount),
		ErrorSummary:         errorSummary,
		AnalyzedAt:           time.Now().UTC(),
	}

	if opts.UseCache {
		if raw, err := json.Marshal(result); err == nil {
			_ = a.cache.Set(repoKey, raw, 0)
		}
	}

	log.Info().
		Str("url", repoURL).
		Int("classes", classCount).
		Int("functions", functionCount).
		Int("imports", importCount).
		Msg("repository analysis complete")
	return result, nil
}

// primaryLanguage picks the language with the highest file count. Ties keep
// the language encountered first, so results are deterministic for the
// sequential fold.
func primaryLanguage(counts map[string]int, order []string) string {
	if len(counts) == 0 {
		return "unknown"
	}

	best := ""
	bestCount := 0
	for _, lang := range order {
		if counts[lang] > bestCount {
			best = lang
			bestCount = counts[lang]
		}
	}
	return best
}

func (a *Analyzer) identifyEntryPoints(analyzed []FileAnalysis) []string {
	entryFiles := make(map[string]bool, len(a.cfg.EntryPointFiles))
	for _, name := range a.cfg.EntryPointFiles {
		entryFiles[strings.ToLower(name)] = true
	}
	entryFuncs := make(map[string]bool, len(a.cfg.EntryPointFunctions))
	for _, name := range a.cfg.EntryPointFunctions {
		entryFuncs[strings.ToLower(name)] = true
	}

	var entryPoints []string
	for _, fa := range analyzed {
		if len(entryPoints) >= 5 {
			break
		}

		base := strings.ToLower(path.Base(fa.FilePath))
		stem := strings.TrimSuffix(base, path.Ext(base))
		matched := entryFiles[stem]

		if !matched {
			for _, fn := range fa.Functions {
				if entryFuncs[strings.ToLower(fn.Name)] {
					matched = true
					break
				}
			}
		}

		if matched {
			entryPoints = append(entryPoints, fa.FilePath)
		}
	}
	return entryPoints
}

// identifyConfigFiles scans the full listing, not just analyzed files, so
// manifests in unparsed languages still surface.
func (a *Analyzer) identifyConfigFiles(files []string) []string {
	names := make(map[string]bool, len(a.cfg.ConfigFileNames))
	for _, name := range a.cfg.ConfigFileNames {
		names[name] = true
	}

	var configFiles []string
	for _, filePath := range files {
		if names[path.Base(filePath)] {
			configFiles = append(configFiles, filePath)
		}
	}
	return configFiles
}

// extractDependencies counts non-relative imported modules across analyzed
// files, sorted by descending count with first-seen order breaking ties,
// capped to the top 20.
func extractDependencies(analyzed []FileAnalysis) []Dependency {
	byModule := make(map[string]*Dependency)
	var order []string

	for _, fa := range analyzed {
		for _, imp := range fa.Imports {
			if imp.IsRelative || imp.Module == "" || strings.HasPrefix(imp.Module, ".") {
				continue
			}
			dep, ok := byModule[imp.Module]
			if !ok {
				byModule[imp.Module] = &Dependency{
					Module: imp.Module,
					Items:  imp.Items,
					Count:  1,
				}
				order = append(order, imp.Module)
				continue
			}
			dep.Count++
		}
	}

	deps := make([]Dependency, 0, len(order))
	for _, module := range order {
		deps = append(deps, *byModule[module])
	}
	sort.SliceStable(deps, func(i, j int) bool {
		return deps[i].Count > deps[j].Count
	})

	if len(deps) > 20 {
		deps = deps[:20]
	}
	return deps
}

// detectPatterns tags architecture styles from path-substring frequency.
// The thresholds are best-effort heuristics exposed through AnalysisConfig,
// not load-bearing constants.
func (a *Analyzer) detectPatterns(analyzed []FileAnalysis) []string {
	var patterns []string

	mvcHits := 0
	serviceFiles := 0
	layerFiles := 0
	for _, fa := range analyzed {
		lower := strings.ToLower(fa.FilePath)

		for _, indicator := range []string{"model", "view", "controller"} {
			if strings.Contains(lower, indicator) {
				mvcHits++
			}
		}

		if strings.Contains(lower, "service") {
			serviceFiles++
		}

		for _, layer := range a.cfg.LayerNames {
			if strings.Contains(lower, layer) {
				layerFiles++
				break
			}
		}
	}

	if mvcHits > a.cfg.Patterns.MVCMinHits {
		patterns = append(patterns, "MVC")
	}
	if float64(serviceFiles) > float64(len(analyzed))*a.cfg.Patterns.MicroservicesFraction {
		patterns = append(patterns, "Microservices")
	}
	if float64(layerFiles) > float64(len(analyzed))*a.cfg.Patterns.LayeredFraction {
		patterns = append(patterns, "Layered Architecture")
	}
	return patterns
}

func calculateMetrics(analyzedFiles, totalLines, classCount, functionCount int) QualityMetrics {
	avgFileSize := 0
	if analyzedFiles > 0 {
		avgFileSize = totalLines / analyzedFiles
	}
	avgClassSize := 0
	if classCount > 0 {
		avgClassSize = totalLines / classCount
	}
	avgFunctionLength := 0
	if functionCount > 0 {
		avgFunctionLength = avgFileSize / functionCount
	}

	complexity := clamp(avgFileSize/100, 1, 10)

	maintainability := 10
	if avgClassSize > 500 {
		maintainability -= 3
	}
	if avgFileSize > 2000 {
		maintainability -= 2
	}
	if analyzedFiles > 100 {
		maintainability -= 1
	}
	maintainability = clamp(maintainability, 1, 10)

	return QualityMetrics{
		TotalLinesOfCode:      totalLines,
		AverageFileSize:       avgFileSize,
		AverageFunctionLength: avgFunctionLength,
		TotalClasses:          classCount,
		TotalFunctions:        functionCount,
		ComplexityScore:       complexity,
		MaintainabilityIndex:  maintainability,
		TechnicalDebtScore:    10 - maintainability,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
