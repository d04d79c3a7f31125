// Package repos clones git repositories to their configured destinations.
package repos

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/ports"
	"github.com/felixgeelhaar/rigup/internal/validation"
)

// Provider implements capability.Provider for repository clones. A
// repository counts as Present when its destination contains a .git
// directory.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
	logger ports.Logger
}

// New creates a repos Provider.
func New(runner ports.CommandRunner, fs ports.FileSystem, logger ports.Logger) *Provider {
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &Provider{runner: runner, fs: fs, logger: logger}
}

// Kind returns the provider kind.
func (p *Provider) Kind() capability.Kind {
	return capability.KindRepos
}

// IsInstalled reports whether the destination is already a git clone.
func (p *Provider) IsInstalled(_ context.Context, item capability.Item) (capability.Status, error) {
	dest, err := p.dest(item)
	if err != nil {
		return capability.StatusUnknown, err
	}
	if p.fs.IsDir(filepath.Join(dest, ".git")) {
		return capability.StatusPresent, nil
	}
	return capability.StatusAbsent, nil
}

// Install clones the repository. A destination that exists but is not
// a git repository is refused, never overwritten.
func (p *Provider) Install(ctx context.Context, item capability.Item) error {
	url := item.Attr(capability.AttrURL)
	if err := validation.ValidateGitRemoteURL(url); err != nil {
		return fmt.Errorf("invalid repository url: %w", err)
	}
	branch := item.Attr(capability.AttrBranch)
	if err := validation.ValidateGitBranch(branch); err != nil {
		return fmt.Errorf("invalid branch: %w", err)
	}
	dest, err := p.dest(item)
	if err != nil {
		return err
	}

	if p.fs.IsDir(filepath.Join(dest, ".git")) {
		return nil
	}
	if p.fs.Exists(dest) {
		return fmt.Errorf("destination %s exists and is not a git repository", dest)
	}

	if parent := filepath.Dir(dest); parent != "." && parent != "/" {
		if err := p.fs.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", parent, err)
		}
	}

	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dest)

	p.logger.Debug("cloning repository", ports.F("url", url), ports.F("dest", dest))
	result, err := p.runner.Run(ctx, "git", args...)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("git clone %s failed: %s", url, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Remove is a no-op: rollback never deletes repositories, since a
// clone may contain local work from the moment it lands on disk.
func (p *Provider) Remove(_ context.Context, item capability.Item) error {
	p.logger.Debug("keeping cloned repository", ports.F("dest", item.Attr(capability.AttrDest)))
	return nil
}

func (p *Provider) dest(item capability.Item) (string, error) {
	raw := item.Attr(capability.AttrDest)
	if raw == "" {
		return "", fmt.Errorf("repository %s has no destination", item.Name)
	}
	if err := validation.ValidatePath(raw); err != nil {
		return "", fmt.Errorf("invalid destination: %w", err)
	}
	return ports.ExpandPath(raw), nil
}

// Ensure Provider implements the capability interface.
var _ capability.Provider = (*Provider)(nil)
