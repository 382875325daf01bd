package analysis

import (
	"fmt"
	"time"

	"github.com/repolens-hq/repolens/internal/parser"
)

// FileAnalysis is the serializable per-file record produced by AnalyzeFile.
// It carries both the summary counts and the full nested structure so a
// cached record can be aggregated without re-parsing.
type FileAnalysis struct {
	FilePath       string                  `json:"file_path"`
	Language       string                  `json:"language"`
	TotalLines     int                     `json:"total_lines"`
	ImportsCount   int                     `json:"imports_count"`
	ClassesCount   int                     `json:"classes_count"`
	FunctionsCount int                     `json:"functions_count"`
	Imports        []parser.ParsedImport   `json:"imports"`
	Classes        []parser.ParsedClass    `json:"classes"`
	Functions      []parser.ParsedFunction `json:"functions"`
	Errors         []string                `json:"errors,omitempty"`
}

// Dependency is an imported module aggregated across analyzed files.
type Dependency struct {
	Module string   `json:"module"`
	Items  []string `json:"items,omitempty"`
	Count  int      `json:"count"`
}

// QualityMetrics holds heuristic code quality scores on a 1-10 scale.
type QualityMetrics struct {
	TotalLinesOfCode      int `json:"total_lines_of_code"`
	AverageFileSize       int `json:"average_file_size"`
	AverageFunctionLength int `json:"average_function_length"`
	TotalClasses          int `json:"total_classes"`
	TotalFunctions        int `json:"total_functions"`
	ComplexityScore       int `json:"code_complexity_score"`
	MaintainabilityIndex  int `json:"maintainability_index"`
	TechnicalDebtScore    int `json:"technical_debt_score"`
}

// RepositoryAnalysis is the aggregate result for one repository run.
type RepositoryAnalysis struct {
	ID                   string         `json:"id"`
	RepositoryURL        string         `json:"repository_url"`
	TotalFiles           int            `json:"total_files"`
	AnalyzedFiles        int            `json:"analyzed_files"`
	PrimaryLanguage      string         `json:"primary_language"`
	LanguageDistribution map[string]int `json:"language_distribution"`
	Files                []FileAnalysis `json:"files"`
	EntryPoints          []string       `json:"entry_points"`
	ConfigFiles          []string       `json:"config_files"`
	Dependencies         []Dependency   `json:"dependencies"`
	ArchitecturePatterns []string       `json:"architecture_patterns"`
	Metrics              QualityMetrics `json:"code_quality"`
	ErrorSummary         []string       `json:"error_summary,omitempty"`
	AnalyzedAt           time.Time      `json:"analyzed_at"`
}

// CodeAnalysisError wraps a failure that prevents producing any aggregate,
// such as being unable to list the repository root. Per-file failures are
// recorded in ErrorSummary instead and never surface as this type.
type CodeAnalysisError struct {
	Op  string
	Err error
}

func (e *CodeAnalysisError) Error() string {
	return fmt.Sprintf("code analysis failed (%s): %v", e.Op, e.Err)
}

func (e *CodeAnalysisError) Unwrap() error {
	return e.Err
}
