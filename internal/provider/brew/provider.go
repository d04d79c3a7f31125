// Package brew installs formulae and casks through Homebrew.
package brew

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/ports"
	"github.com/felixgeelhaar/rigup/internal/validation"
)

// Provider implements capability.Provider on top of the brew CLI.
// Items with the cask attribute install as casks, everything else as
// formulae. Detection checks both lists so a profile does not have to
// know how an item was originally installed.
type Provider struct {
	runner ports.CommandRunner
	logger ports.Logger
}

// New creates a brew Provider.
func New(runner ports.CommandRunner, logger ports.Logger) *Provider {
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &Provider{runner: runner, logger: logger}
}

// Kind returns the manager kind.
func (p *Provider) Kind() capability.Kind {
	return capability.KindBrew
}

// IsInstalled checks the formula and cask lists for the item.
func (p *Provider) IsInstalled(ctx context.Context, item capability.Item) (capability.Status, error) {
	if err := validation.ValidatePackageName(item.Name); err != nil {
		return capability.StatusUnknown, fmt.Errorf("invalid package name: %w", err)
	}

	installed, err := p.listed(ctx, "--formula", item.Name)
	if err != nil {
		return capability.StatusUnknown, err
	}
	if installed {
		return capability.StatusPresent, nil
	}

	installed, err = p.listed(ctx, "--cask", item.Name)
	if err != nil {
		return capability.StatusUnknown, err
	}
	if installed {
		return capability.StatusPresent, nil
	}
	return capability.StatusAbsent, nil
}

// Install installs the item, as a cask when the cask attribute is set.
func (p *Provider) Install(ctx context.Context, item capability.Item) error {
	if err := validation.ValidatePackageName(item.Name); err != nil {
		return fmt.Errorf("invalid package name: %w", err)
	}

	args := []string{"install"}
	if item.Attr(capability.AttrCask) != "" {
		args = append(args, "--cask")
	}
	args = append(args, item.Name)

	p.logger.Debug("installing brew package", ports.F("package", item.Name))
	result, err := p.runner.Run(ctx, "brew", args...)
	if err != nil {
		return err
	}
	if !result.Success() {
		// brew exits non-zero when the item is already installed via
		// another path; treat that as success.
		if strings.Contains(result.Stderr, "already installed") {
			return nil
		}
		return fmt.Errorf("brew install %s failed: %s", item.Name, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Remove uninstalls the item. Removing something brew does not know
// about is not an error.
func (p *Provider) Remove(ctx context.Context, item capability.Item) error {
	if err := validation.ValidatePackageName(item.Name); err != nil {
		return fmt.Errorf("invalid package name: %w", err)
	}

	args := []string{"uninstall"}
	if item.Attr(capability.AttrCask) != "" {
		args = append(args, "--cask")
	}
	args = append(args, item.Name)

	p.logger.Debug("removing brew package", ports.F("package", item.Name))
	result, err := p.runner.Run(ctx, "brew", args...)
	if err != nil {
		return err
	}
	if !result.Success() {
		if strings.Contains(result.Stderr, "is not installed") ||
			strings.Contains(result.Stderr, "No such keg") ||
			strings.Contains(result.Stderr, "No available formula") {
			return nil
		}
		return fmt.Errorf("brew uninstall %s failed: %s", item.Name, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// InstalledVersion reports the newest installed version of the item.
func (p *Provider) InstalledVersion(ctx context.Context, item capability.Item) (string, error) {
	if err := validation.ValidatePackageName(item.Name); err != nil {
		return "", fmt.Errorf("invalid package name: %w", err)
	}

	result, err := p.runner.Run(ctx, "brew", "list", "--versions", item.Name)
	if err != nil {
		return "", err
	}
	if !result.Success() {
		return "", fmt.Errorf("%s is not installed", item.Name)
	}

	// Output shape: "ripgrep 14.1.0" (possibly several versions).
	fields := strings.Fields(result.Stdout)
	if len(fields) < 2 {
		return "", fmt.Errorf("unparseable version output %q for %s", strings.TrimSpace(result.Stdout), item.Name)
	}
	return fields[len(fields)-1], nil
}

func (p *Provider) listed(ctx context.Context, flag, name string) (bool, error) {
	result, err := p.runner.Run(ctx, "brew", "list", flag)
	if err != nil {
		return false, err
	}
	if !result.Success() {
		return false, fmt.Errorf("brew list %s failed: %s", flag, strings.TrimSpace(result.Stderr))
	}

	for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// Ensure Provider implements the capability interfaces.
var (
	_ capability.Provider  = (*Provider)(nil)
	_ capability.Versioner = (*Provider)(nil)
)
