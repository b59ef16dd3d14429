// Package git reads ingest documents from a Git repository. It clones the
// repository, walks a path glob to discover YAML files, parses each file with
// a caller-supplied Parse callback and tracks the commit SHA. It supports
// shallow clones and periodic sync.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gogithttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Config configures a Git provider.
type Config[R any] struct {
	// RepoURL is the repository to clone. Required.
	RepoURL string

	// Branch defaults to "main".
	Branch string

	// Path is the file glob relative to the repository root.
	// Defaults to "**/*.yaml".
	Path string

	// AuthToken is sent as HTTP basic auth password when set.
	AuthToken string

	// SyncInterval defaults to 1 hour.
	SyncInterval time.Duration

	// ShallowClone controls whether to use depth=1 clones.
	// Defaults to true.
	ShallowClone *bool

	// Parse parses the raw bytes of one file.
	Parse func(data []byte) ([]R, error)

	// Filter optionally drops records.
	Filter func(record R) bool

	Logger *slog.Logger
}

// Snapshot is the parsed content of the repository at one commit.
type Snapshot[R any] struct {
	Commit  string
	Records []R
}

// Provider is a Git repository-based record provider.
type Provider[R any] struct {
	config       Config[R]
	repoURL      string
	branch       string
	pathPattern  string
	syncInterval time.Duration
	shallowClone bool
	logger       *slog.Logger
	cloneDir     string
	lastCommit   string
}

// NewProvider creates a new Git provider.
func NewProvider[R any](config Config[R]) (*Provider[R], error) {
	if config.RepoURL == "" {
		return nil, errors.New("missing repository url")
	}
	if config.Parse == nil {
		return nil, errors.New("missing parse function")
	}

	branch := config.Branch
	if branch == "" {
		branch = "main"
	}
	pathPattern := config.Path
	if pathPattern == "" {
		pathPattern = "**/*.yaml"
	}
	syncInterval := config.SyncInterval
	if syncInterval <= 0 {
		syncInterval = 1 * time.Hour
	}
	shallowClone := true
	if config.ShallowClone != nil {
		shallowClone = *config.ShallowClone
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider[R]{
		config:       config,
		repoURL:      config.RepoURL,
		branch:       branch,
		pathPattern:  pathPattern,
		syncInterval: syncInterval,
		shallowClone: shallowClone,
		logger:       logger.With("repo", config.RepoURL, "branch", branch),
	}, nil
}

// Read clones the repository once, parses the matching files and removes the
// clone.
func (p *Provider[R]) Read(ctx context.Context) (*Snapshot[R], error) {
	defer p.cleanup()
	records, err := p.cloneAndRead(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot[R]{Commit: p.lastCommit, Records: records}, nil
}

// Snapshots clones the repository and returns a channel that receives the
// initial snapshot and one more each time the branch moves. The channel is
// closed when the context is cancelled.
func (p *Provider[R]) Snapshots(ctx context.Context) (<-chan Snapshot[R], error) {
	records, err := p.cloneAndRead(ctx)
	if err != nil {
		p.cleanup()
		return nil, fmt.Errorf("initial clone failed: %w", err)
	}

	ch := make(chan Snapshot[R])
	go func() {
		defer close(ch)
		defer p.cleanup()

		if !p.emit(ctx, records, ch) {
			return
		}
		p.watchAndReload(ctx, ch)
	}()

	return ch, nil
}

// LastCommit returns the SHA of the last fetched commit.
func (p *Provider[R]) LastCommit() string {
	return p.lastCommit
}

func (p *Provider[R]) auth() *gogithttp.BasicAuth {
	if p.config.AuthToken == "" {
		return nil
	}
	return &gogithttp.BasicAuth{
		Username: "git", // Username is ignored for token auth.
		Password: p.config.AuthToken,
	}
}

func (p *Provider[R]) cloneAndRead(ctx context.Context) ([]R, error) {
	dir, err := os.MkdirTemp("", "data-catalog-git-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	p.cloneDir = dir

	cloneOpts := &gogit.CloneOptions{
		URL:           p.repoURL,
		ReferenceName: plumbing.NewBranchReferenceName(p.branch),
		SingleBranch:  true,
	}
	if p.shallowClone {
		cloneOpts.Depth = 1
	}
	if auth := p.auth(); auth != nil {
		cloneOpts.Auth = auth
	}

	p.logger.Info("cloning repository", "dir", dir)
	repo, err := gogit.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		return nil, fmt.Errorf("git clone failed for %s: %w", p.repoURL, err)
	}

	if err := p.updateLastCommit(repo); err != nil {
		p.logger.Error("failed to get HEAD commit", "error", err)
	}

	return p.readFiles()
}

func (p *Provider[R]) fetchAndRead(ctx context.Context) ([]R, bool, error) {
	repo, err := gogit.PlainOpen(p.cloneDir)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open repo: %w", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get worktree: %w", err)
	}

	pullOpts := &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(p.branch),
		SingleBranch:  true,
	}
	if auth := p.auth(); auth != nil {
		pullOpts.Auth = auth
	}

	err = w.PullContext(ctx, pullOpts)
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("git pull failed: %w", err)
	}

	oldCommit := p.lastCommit
	if err := p.updateLastCommit(repo); err != nil {
		p.logger.Error("failed to get HEAD commit", "error", err)
	}
	if p.lastCommit == oldCommit {
		return nil, false, nil
	}

	records, err := p.readFiles()
	if err != nil {
		return nil, false, err
	}
	return records, true, nil
}

// readFiles parses every matching file. A file that fails to parse fails the
// whole read so that a snapshot is never partial.
func (p *Provider[R]) readFiles() ([]R, error) {
	files, err := p.globFiles()
	if err != nil {
		return nil, err
	}

	var all []R
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		records, err := p.config.Parse(data)
		if err != nil {
			rel, _ := filepath.Rel(p.cloneDir, file)
			return nil, fmt.Errorf("parse %s: %w", rel, err)
		}
		for _, r := range records {
			if p.config.Filter != nil && !p.config.Filter(r) {
				continue
			}
			all = append(all, r)
		}
	}

	p.logger.Info("read repository", "records", len(all), "files", len(files), "commit", p.lastCommit)
	return all, nil
}

func (p *Provider[R]) globFiles() ([]string, error) {
	var matches []string

	err := filepath.Walk(p.cloneDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(p.cloneDir, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if matchGlob(p.pathPattern, relPath) {
			matches = append(matches, path)
		}
		return nil
	})

	return matches, err
}

func (p *Provider[R]) updateLastCommit(repo *gogit.Repository) error {
	ref, err := repo.Head()
	if err != nil {
		return err
	}
	p.lastCommit = ref.Hash().String()
	return nil
}

func (p *Provider[R]) emit(ctx context.Context, records []R, out chan<- Snapshot[R]) bool {
	select {
	case out <- Snapshot[R]{Commit: p.lastCommit, Records: records}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Provider[R]) watchAndReload(ctx context.Context, ch chan<- Snapshot[R]) {
	ticker := time.NewTicker(p.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.logger.Debug("checking for updates")
			records, changed, err := p.fetchAndRead(ctx)
			if err != nil {
				p.logger.Error("failed to fetch updates", "error", err)
				continue
			}
			if !changed {
				continue
			}
			p.logger.Info("new commits detected, reloading", "commit", p.lastCommit)
			if !p.emit(ctx, records, ch) {
				return
			}
		}
	}
}

func (p *Provider[R]) cleanup() {
	if p.cloneDir != "" {
		os.RemoveAll(p.cloneDir)
		p.cloneDir = ""
	}
}

// matchGlob matches a path against a glob pattern.
// Supports *, **, and ? wildcards.
func matchGlob(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		parts := strings.SplitN(pattern, "**", 2)
		prefix := parts[0]
		suffix := strings.TrimLeft(parts[1], "/")

		if prefix != "" && !strings.HasPrefix(path, prefix) {
			return false
		}
		if suffix == "" {
			return true
		}

		trimmed := path
		if prefix != "" {
			trimmed = strings.TrimPrefix(path, prefix)
		}
		pathParts := strings.Split(trimmed, "/")
		for i := range pathParts {
			subpath := strings.Join(pathParts[i:], "/")
			if matched, _ := filepath.Match(suffix, subpath); matched {
				return true
			}
		}
		return false
	}

	matched, _ := filepath.Match(pattern, path)
	return matched
}
