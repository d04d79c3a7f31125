// Package apt installs packages through the Debian package manager.
package apt

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/ports"
	"github.com/felixgeelhaar/rigup/internal/validation"
)

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// Provider implements capability.Provider on top of dpkg and apt-get.
type Provider struct {
	runner ports.CommandRunner
	logger ports.Logger
}

// New creates an apt Provider.
func New(runner ports.CommandRunner, logger ports.Logger) *Provider {
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &Provider{runner: runner, logger: logger}
}

// Kind returns the manager kind.
func (p *Provider) Kind() capability.Kind {
	return capability.KindApt
}

// IsInstalled checks the dpkg database for the package.
func (p *Provider) IsInstalled(ctx context.Context, item capability.Item) (capability.Status, error) {
	if err := validation.ValidatePackageName(item.Name); err != nil {
		return capability.StatusUnknown, fmt.Errorf("invalid package name: %w", err)
	}

	result, err := p.runner.Run(ctx, "dpkg-query", "-W", "-f=${Package}\t${Version}\t${db:Status-Status}\n", item.Name)
	if err != nil {
		return capability.StatusUnknown, err
	}

	// dpkg-query exits non-zero when the package is not in the database.
	if !result.Success() {
		return capability.StatusAbsent, nil
	}
	if strings.Contains(result.Stdout, "installed") {
		return capability.StatusPresent, nil
	}
	return capability.StatusAbsent, nil
}

// Install installs the package via apt-get.
func (p *Provider) Install(ctx context.Context, item capability.Item) error {
	if err := validation.ValidatePackageName(item.Name); err != nil {
		return fmt.Errorf("invalid package name: %w", err)
	}

	p.logger.Debug("installing apt package", ports.F("package", item.Name))
	result, err := p.runner.Run(ctx, "sudo", "apt-get", "install", "-y", item.Name)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("apt-get install %s failed: %s", item.Name, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Remove uninstalls the package via apt-get. Removing a package that
// is not installed is not an error.
func (p *Provider) Remove(ctx context.Context, item capability.Item) error {
	if err := validation.ValidatePackageName(item.Name); err != nil {
		return fmt.Errorf("invalid package name: %w", err)
	}

	p.logger.Debug("removing apt package", ports.F("package", item.Name))
	result, err := p.runner.Run(ctx, "sudo", "apt-get", "remove", "-y", item.Name)
	if err != nil {
		return err
	}
	if !result.Success() {
		if strings.Contains(result.Stderr, "is not installed") ||
			strings.Contains(result.Stderr, "Unable to locate package") {
			return nil
		}
		return fmt.Errorf("apt-get remove %s failed: %s", item.Name, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// InstalledVersion reports the installed package version with the
// Debian epoch and revision stripped.
func (p *Provider) InstalledVersion(ctx context.Context, item capability.Item) (string, error) {
	if err := validation.ValidatePackageName(item.Name); err != nil {
		return "", fmt.Errorf("invalid package name: %w", err)
	}

	result, err := p.runner.Run(ctx, "dpkg-query", "-W", "-f=${Version}", item.Name)
	if err != nil {
		return "", err
	}
	if !result.Success() {
		return "", fmt.Errorf("%s is not installed", item.Name)
	}

	version := versionPattern.FindString(result.Stdout)
	if version == "" {
		return "", fmt.Errorf("unparseable version %q for %s", strings.TrimSpace(result.Stdout), item.Name)
	}
	return version, nil
}

// Ensure Provider implements the capability interfaces.
var (
	_ capability.Provider  = (*Provider)(nil)
	_ capability.Versioner = (*Provider)(nil)
)
