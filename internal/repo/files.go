package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultExcludeDirs are the noise directories a listing never descends
// into: version control metadata, dependency caches, build output.
var defaultExcludeDirs = []string{
	".git",
	"node_modules",
	"__pycache__",
	".venv",
	"venv",
	"dist",
	"build",
	".egg-info",
	".pytest_cache",
	".vscode",
	".idea",
	"target",
	"bin",
}

// ListOptions controls a file listing.
type ListOptions struct {
	// Pattern optionally filters files by a doublestar glob, matched
	// against the repo-relative path.
	Pattern string
	// MaxDepth bounds directory depth; 0 means the default of 10.
	MaxDepth int
	// ExcludeDirs replaces the default exclude set when non-nil.
	ExcludeDirs []string
}

// ListFiles returns repo-relative paths of regular files under root, in
// deterministic walk order, with excluded directories skipped.
func ListFiles(root string, opts ListOptions) ([]string, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}
	excludes := opts.ExcludeDirs
	if excludes == nil {
		excludes = defaultExcludeDirs
	}
	excluded := make(map[string]bool, len(excludes))
	for _, dir := range excludes {
		excluded[dir] = true
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a readable directory: %s", root)
	}

	files := make([]string, 0)
	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if excluded[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.Count(rel, "/")+1 > maxDepth {
			return nil
		}
		if opts.Pattern != "" {
			matched, err := doublestar.Match(opts.Pattern, rel)
			if err != nil {
				return fmt.Errorf("invalid pattern %q: %w", opts.Pattern, err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// ReadFile reads one file by repo-relative path. The resolved path must
// stay under root; invalid UTF-8 bytes are replaced so binary junk never
// propagates into parsers.
func ReadFile(root, relPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}

	fullPath := filepath.Join(absRoot, filepath.FromSlash(relPath))
	resolved, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if resolved != absRoot && !strings.HasPrefix(resolved, absRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes repository root: %s", relPath)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", relPath, err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
}

// FS adapts the package functions to the file source interface the
// analyzer consumes. A nil ExcludeDirs keeps the default exclude set.
type FS struct {
	ExcludeDirs []string
}

func (f FS) ListFiles(root, pattern string, maxDepth int) ([]string, error) {
	return ListFiles(root, ListOptions{
		Pattern:     pattern,
		MaxDepth:    maxDepth,
		ExcludeDirs: f.ExcludeDirs,
	})
}

func (FS) ReadFile(root, relPath string) (string, error) {
	return ReadFile(root, relPath)
}
