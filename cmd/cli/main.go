package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/repolens-hq/repolens/internal/analysis"
	"github.com/repolens-hq/repolens/internal/cache"
	"github.com/repolens-hq/repolens/internal/config"
	"github.com/repolens-hq/repolens/internal/parser"
	"github.com/repolens-hq/repolens/internal/repo"
)

var version = "dev"

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:     "repolens",
		Short:   "RepoLens - repository structure analysis",
		Long:    `RepoLens parses source files across languages and aggregates them into a repository-level structural analysis.`,
		Version: version,
	}

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(languagesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func analyzeCmd() *cobra.Command {
	var (
		repoURL  string
		repoPath string
		branch   string
		maxFiles int
		pattern  string
		update   bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a repository's structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			if repoURL == "" && repoPath == "" {
				return fmt.Errorf("either --repo or --path is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if maxFiles <= 0 {
				maxFiles = cfg.MaxFiles
			}

			analysisCfg := loadAnalysisConfig(repoPath)
			analysisCache := cache.New(cfg.CacheType, cfg.CacheMaxSize, cfg.CacheTTL)
			defer analysisCache.Close()
			analyzer := analysis.NewAnalyzer(
				parser.NewFactory(),
				repo.FS{ExcludeDirs: analysisCfg.Exclude},
				analysisCache,
				analysisCfg,
			)
			opts := analysis.Options{
				MaxFiles:     maxFiles,
				Pattern:      pattern,
				MaxDepth:     cfg.MaxDepth,
				RefreshClone: update,
			}

			var result *analysis.RepositoryAnalysis
			if repoURL != "" {
				repos := repo.NewService(cfg.CloneDir, cfg.GitHubToken)
				pipeline := analysis.NewPipeline(repos, analyzer)
				result, err = pipeline.Run(context.Background(), repoURL, branch, opts)
			} else {
				result, err = analyzer.AnalyzeRepository(repoPath, repoPath, opts)
			}
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printAnalysis(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&repoURL, "repo", "r", "", "GitHub repository URL to clone and analyze")
	cmd.Flags().StringVarP(&repoPath, "path", "p", "", "Path to a local repository")
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to analyze (defaults to the repository default)")
	cmd.Flags().IntVarP(&maxFiles, "max-files", "n", 0, "Maximum files to analyze (default from MAX_FILES)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob pattern to filter files")
	cmd.Flags().BoolVarP(&update, "update", "u", false, "Pull an existing clone forward instead of re-cloning")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw analysis as JSON")

	return cmd
}

func parseCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a source file and show its structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			factory := parser.NewFactory()
			parsed, err := factory.ParseFile(filePath, string(data))
			if err != nil {
				return fmt.Errorf("failed to parse file: %w", err)
			}

			fmt.Printf("File: %s\n", parsed.FilePath)
			fmt.Printf("Language: %s\n", parsed.Language)
			fmt.Printf("Lines: %d\n", parsed.TotalLines)
			fmt.Printf("Imports: %d, Classes: %d, Functions: %d\n\n",
				len(parsed.Imports), len(parsed.Classes), len(parsed.Functions))

			for i, cls := range parsed.Classes {
				fmt.Printf("%d. class %s [lines %d-%d, %d methods]\n",
					i+1, cls.Name, cls.LineStart, cls.LineEnd, len(cls.Methods))
			}
			for i, fn := range parsed.Functions {
				visibility := "private"
				if fn.IsPublic {
					visibility = "public"
				}
				fmt.Printf("%d. %s (%s) [lines %d-%d]\n",
					i+1, fn.Name, visibility, fn.LineStart, fn.LineEnd)
			}

			if len(parsed.Errors) > 0 {
				fmt.Println("\nWarnings:")
				for _, e := range parsed.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Source file to parse")
	cmd.MarkFlagRequired("file")

	return cmd
}

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and extensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			factory := parser.NewFactory()
			for _, lang := range factory.ListSupportedLanguages() {
				fmt.Println(lang)
			}
			fmt.Println()
			for ext, lang := range factory.SupportedExtensions() {
				fmt.Printf("%-6s %s\n", ext, lang)
			}
			return nil
		},
	}
}

// loadAnalysisConfig reads a project-level analysis config when analyzing a
// local path; falls back to defaults otherwise.
func loadAnalysisConfig(repoPath string) *config.AnalysisConfig {
	if repoPath == "" {
		return config.DefaultAnalysisConfig()
	}
	cfg, err := config.LoadAnalysisConfig(repoPath)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load analysis config, using defaults")
		return config.DefaultAnalysisConfig()
	}
	return cfg
}

func printAnalysis(result *analysis.RepositoryAnalysis) {
	fmt.Printf("Repository: %s\n", result.RepositoryURL)
	fmt.Printf("Files: %d total, %d analyzed\n", result.TotalFiles, result.AnalyzedFiles)
	fmt.Printf("Primary language: %s\n", result.PrimaryLanguage)

	if len(result.LanguageDistribution) > 0 {
		fmt.Println("\nLanguages:")
		for lang, count := range result.LanguageDistribution {
			fmt.Printf("  %-12s %d\n", lang, count)
		}
	}

	if len(result.Dependencies) > 0 {
		fmt.Println("\nTop dependencies:")
		for _, dep := range result.Dependencies {
			fmt.Printf("  %-30s %d\n", dep.Module, dep.Count)
		}
	}

	if len(result.EntryPoints) > 0 {
		fmt.Println("\nEntry points:")
		for _, ep := range result.EntryPoints {
			fmt.Printf("  %s\n", ep)
		}
	}

	if len(result.ConfigFiles) > 0 {
		fmt.Println("\nConfig files:")
		for _, cf := range result.ConfigFiles {
			fmt.Printf("  %s\n", cf)
		}
	}

	if len(result.ArchitecturePatterns) > 0 {
		fmt.Printf("\nArchitecture: %v\n", result.ArchitecturePatterns)
	}

	m := result.Metrics
	fmt.Printf("\nQuality: complexity %d/10, maintainability %d/10 (%d lines, %d classes, %d functions)\n",
		m.ComplexityScore, m.MaintainabilityIndex, m.TotalLinesOfCode, m.TotalClasses, m.TotalFunctions)

	if len(result.ErrorSummary) > 0 {
		fmt.Println("\nWarnings:")
		for _, e := range result.ErrorSummary {
			fmt.Printf("  - %s\n", e)
		}
	}
}
