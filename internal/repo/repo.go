// Package repo provides the repository collaborators the analysis engine
// consumes: cloning, file listing, and defensive file reading. The engine
// itself never touches the network or the filesystem directly.
package repo

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/rs/zerolog/log"
)

// Service handles repository clone and update operations
type Service struct {
	baseDir string
	token   string
}

// NewService creates a new repository service
func NewService(baseDir, token string) *Service {
	return &Service{
		baseDir: baseDir,
		token:   token,
	}
}

// Info contains parsed repository information
type Info struct {
	Owner    string
	Name     string
	URL      string
	CloneURL string
	Branch   string
}

// CloneResult contains the result of a clone operation
type CloneResult struct {
	Path      string
	CommitSHA string
	Branch    string
}

// ParseURL parses a GitHub URL, in https or scp-like ssh form, into repo
// info. Branch is left empty so clones follow the remote default unless the
// caller overrides it.
func ParseURL(rawURL string) (*Info, error) {
	if strings.HasPrefix(rawURL, "git@") {
		parts := strings.Split(rawURL, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid SSH URL format: %s", rawURL)
		}
		pathParts := strings.Split(strings.TrimSuffix(parts[1], ".git"), "/")
		if len(pathParts) != 2 {
			return nil, fmt.Errorf("invalid repo path: %s", parts[1])
		}
		return newInfo(pathParts[0], pathParts[1], rawURL), nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	if parsed.Host != "github.com" {
		return nil, fmt.Errorf("only github.com URLs are supported, got: %s", parsed.Host)
	}

	pathParts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(pathParts) < 2 {
		return nil, fmt.Errorf("invalid repo path: %s", parsed.Path)
	}

	return newInfo(pathParts[0], strings.TrimSuffix(pathParts[1], ".git"), rawURL), nil
}

func newInfo(owner, name, rawURL string) *Info {
	return &Info{
		Owner:    owner,
		Name:     name,
		URL:      rawURL,
		CloneURL: fmt.Sprintf("https://github.com/%s/%s.git", owner, name),
	}
}

// repoDir is where a repository's working copy lives under the base dir.
func (s *Service) repoDir(info *Info) string {
	return filepath.Join(s.baseDir, info.Owner, info.Name)
}

// Clone makes a fresh shallow clone, replacing any existing working copy.
func (s *Service) Clone(ctx context.Context, info *Info) (*CloneResult, error) {
	repoDir := s.repoDir(info)

	if _, err := os.Stat(repoDir); err == nil {
		log.Debug().Str("path", repoDir).Msg("removing existing repo directory")
		if err := os.RemoveAll(repoDir); err != nil {
			return nil, fmt.Errorf("failed to remove existing directory: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(repoDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	log.Info().
		Str("url", info.CloneURL).
		Str("path", repoDir).
		Msg("cloning repository")

	cloneOpts := &git.CloneOptions{
		URL:   info.CloneURL,
		Depth: 1,
	}
	if auth := s.auth(); auth != nil {
		cloneOpts.Auth = auth
	}

	if info.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(info.Branch)
		cloneOpts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, repoDir, false, cloneOpts)
	if err != nil {
		// If branch doesn't exist, try without specifying branch
		if strings.Contains(err.Error(), "reference not found") && info.Branch != "" {
			log.Debug().Str("branch", info.Branch).Msg("branch not found, trying default")
			cloneOpts.ReferenceName = ""
			cloneOpts.SingleBranch = false
			repo, err = git.PlainCloneContext(ctx, repoDir, false, cloneOpts)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to clone: %w", err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	result := &CloneResult{
		Path:      repoDir,
		CommitSHA: head.Hash().String(),
		Branch:    head.Name().Short(),
	}

	log.Info().
		Str("commit", result.CommitSHA[:8]).
		Str("branch", result.Branch).
		Msg("clone complete")

	return result, nil
}

// Refresh reuses an existing working copy when one is present, pulling the
// latest commits instead of deleting and re-cloning. Falls back to Clone
// when no usable copy exists or when a specific branch is requested, since
// switching branches on a shallow copy is not worth the trouble.
func (s *Service) Refresh(ctx context.Context, info *Info) (*CloneResult, error) {
	repoDir := s.repoDir(info)
	if info.Branch != "" {
		return s.Clone(ctx, info)
	}
	if _, err := git.PlainOpen(repoDir); err != nil {
		return s.Clone(ctx, info)
	}

	result, err := s.Pull(ctx, repoDir)
	if err != nil {
		log.Warn().Err(err).Str("path", repoDir).Msg("pull failed, re-cloning")
		return s.Clone(ctx, info)
	}
	return result, nil
}

// Pull fast-forwards an existing working copy and reports its new HEAD.
func (s *Service) Pull(ctx context.Context, repoPath string) (*CloneResult, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	pullOpts := &git.PullOptions{}
	if auth := s.auth(); auth != nil {
		pullOpts.Auth = auth
	}

	err = worktree.PullContext(ctx, pullOpts)
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	return &CloneResult{
		Path:      repoPath,
		CommitSHA: head.Hash().String(),
		Branch:    head.Name().Short(),
	}, nil
}

// auth returns token credentials for the GitHub transport, or nil when no
// token is configured. The username is ignored by GitHub for token auth.
func (s *Service) auth() *http.BasicAuth {
	if s.token == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: "git",
		Password: s.token,
	}
}
