package analysis

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/repolens-hq/repolens/internal/repo"
)

// Pipeline ties cloning to analysis: given a repository URL it produces a
// RepositoryAnalysis from a fresh shallow clone.
type Pipeline struct {
	repos    *repo.Service
	analyzer *Analyzer
}

// NewPipeline creates a pipeline around an existing analyzer.
func NewPipeline(repos *repo.Service, analyzer *Analyzer) *Pipeline {
	return &Pipeline{
		repos:    repos,
		analyzer: analyzer,
	}
}

// Run clones the repository at rawURL and analyzes it. A branch overrides
// the remote default. With RefreshClone set, an existing working copy is
// pulled forward instead of being cloned from scratch.
func (p *Pipeline) Run(ctx context.Context, rawURL, branch string, opts Options) (*RepositoryAnalysis, error) {
	info, err := repo.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if branch != "" {
		info.Branch = branch
	}

	var cloned *repo.CloneResult
	if opts.RefreshClone {
		cloned, err = p.repos.Refresh(ctx, info)
	} else {
		cloned, err = p.repos.Clone(ctx, info)
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", cloned.Path).Str("commit", cloned.CommitSHA).Msg("repository cloned")

	return p.analyzer.AnalyzeRepository(rawURL, cloned.Path, opts)
}
