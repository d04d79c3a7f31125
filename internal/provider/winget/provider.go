// Package winget installs packages through the Windows Package Manager.
package winget

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/platform"
	"github.com/felixgeelhaar/rigup/internal/ports"
	"github.com/felixgeelhaar/rigup/internal/validation"
)

// Provider implements capability.Provider on top of the winget CLI.
// Item names are winget package IDs in Publisher.PackageName form.
type Provider struct {
	runner   ports.CommandRunner
	logger   ports.Logger
	platform *platform.Platform
}

// New creates a winget Provider.
func New(runner ports.CommandRunner, plat *platform.Platform, logger ports.Logger) *Provider {
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &Provider{runner: runner, logger: logger, platform: plat}
}

// Kind returns the manager kind.
func (p *Provider) Kind() capability.Kind {
	return capability.KindWinget
}

// command returns the winget binary name. Inside WSL the Windows
// binary is reachable as winget.exe.
func (p *Provider) command() string {
	if p.platform != nil && p.platform.IsWSL() {
		return "winget.exe"
	}
	return "winget"
}

// IsInstalled checks the winget list output for the package ID.
func (p *Provider) IsInstalled(ctx context.Context, item capability.Item) (capability.Status, error) {
	if err := validation.ValidateWingetID(item.Name); err != nil {
		return capability.StatusUnknown, fmt.Errorf("invalid package ID: %w", err)
	}

	result, err := p.runner.Run(ctx, p.command(),
		"list", "--id", item.Name, "--exact", "--accept-source-agreements")
	if err != nil {
		return capability.StatusUnknown, err
	}

	// winget list exits zero only when the package is found.
	if result.Success() && strings.Contains(result.Stdout, item.Name) {
		return capability.StatusPresent, nil
	}
	return capability.StatusAbsent, nil
}

// Install installs the package silently.
func (p *Provider) Install(ctx context.Context, item capability.Item) error {
	if err := validation.ValidateWingetID(item.Name); err != nil {
		return fmt.Errorf("invalid package ID: %w", err)
	}

	p.logger.Debug("installing winget package", ports.F("package", item.Name))
	result, err := p.runner.Run(ctx, p.command(),
		"install", "--id", item.Name, "--exact",
		"--accept-source-agreements", "--accept-package-agreements", "--silent")
	if err != nil {
		return err
	}
	if !result.Success() {
		if strings.Contains(result.Stdout, "already installed") ||
			strings.Contains(result.Stderr, "already installed") {
			return nil
		}
		return fmt.Errorf("winget install %s failed: %s", item.Name, wingetError(result))
	}
	return nil
}

// Remove uninstalls the package. Removing a package winget does not
// know about is not an error.
func (p *Provider) Remove(ctx context.Context, item capability.Item) error {
	if err := validation.ValidateWingetID(item.Name); err != nil {
		return fmt.Errorf("invalid package ID: %w", err)
	}

	p.logger.Debug("removing winget package", ports.F("package", item.Name))
	result, err := p.runner.Run(ctx, p.command(),
		"uninstall", "--id", item.Name, "--exact", "--silent")
	if err != nil {
		return err
	}
	if !result.Success() {
		if strings.Contains(result.Stdout, "No installed package") ||
			strings.Contains(result.Stderr, "No installed package") {
			return nil
		}
		return fmt.Errorf("winget uninstall %s failed: %s", item.Name, wingetError(result))
	}
	return nil
}

// wingetError prefers stderr but falls back to stdout, where winget
// reports most of its failures.
func wingetError(result ports.CommandResult) string {
	if msg := strings.TrimSpace(result.Stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(result.Stdout); msg != "" {
		return msg
	}
	return fmt.Sprintf("exit code %d", result.ExitCode)
}

// Ensure Provider implements capability.Provider.
var _ capability.Provider = (*Provider)(nil)
