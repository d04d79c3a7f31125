package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
)

// Provider is a thread-safe test double for capability.Provider. It
// tracks which items are installed and records every mutation.
type Provider struct {
	mu          sync.Mutex
	kind        capability.Kind
	installed   map[string]bool
	versions    map[string]string
	detectErrs  map[string]error
	installErrs map[string]error
	removeErrs  map[string]error
	installs    []string
	removes     []string
}

// NewProvider creates a Provider mock for the given manager kind.
func NewProvider(kind capability.Kind) *Provider {
	return &Provider{
		kind:        kind,
		installed:   make(map[string]bool),
		versions:    make(map[string]string),
		detectErrs:  make(map[string]error),
		installErrs: make(map[string]error),
		removeErrs:  make(map[string]error),
	}
}

// SetInstalled marks an item as already present.
func (p *Provider) SetInstalled(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installed[name] = true
}

// SetVersion sets the version InstalledVersion reports for an item.
func (p *Provider) SetVersion(name, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions[name] = version
}

// FailDetection makes IsInstalled fail for an item.
func (p *Provider) FailDetection(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detectErrs[name] = err
}

// FailInstall makes Install fail for an item.
func (p *Provider) FailInstall(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installErrs[name] = err
}

// FailRemove makes Remove fail for an item.
func (p *Provider) FailRemove(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeErrs[name] = err
}

// Kind returns the manager kind this mock stands in for.
func (p *Provider) Kind() capability.Kind {
	return p.kind
}

// IsInstalled reports the recorded installation state.
func (p *Provider) IsInstalled(_ context.Context, item capability.Item) (capability.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.detectErrs[item.Name]; ok {
		return capability.StatusUnknown, err
	}
	if p.installed[item.Name] {
		return capability.StatusPresent, nil
	}
	return capability.StatusAbsent, nil
}

// Install records the install and marks the item present.
func (p *Provider) Install(_ context.Context, item capability.Item) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.installErrs[item.Name]; ok {
		return err
	}
	p.installed[item.Name] = true
	p.installs = append(p.installs, item.Name)
	return nil
}

// Remove records the removal and marks the item absent.
func (p *Provider) Remove(_ context.Context, item capability.Item) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.removeErrs[item.Name]; ok {
		return err
	}
	delete(p.installed, item.Name)
	p.removes = append(p.removes, item.Name)
	return nil
}

// InstalledVersion reports the recorded version for an item.
func (p *Provider) InstalledVersion(_ context.Context, item capability.Item) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if version, ok := p.versions[item.Name]; ok {
		return version, nil
	}
	return "", fmt.Errorf("no version recorded for %s", item.Name)
}

// Installs returns the names passed to Install, in call order.
func (p *Provider) Installs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.installs))
	copy(out, p.installs)
	return out
}

// Removes returns the names passed to Remove, in call order.
func (p *Provider) Removes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.removes))
	copy(out, p.removes)
	return out
}

// Ensure Provider implements the capability interfaces.
var (
	_ capability.Provider  = (*Provider)(nil)
	_ capability.Versioner = (*Provider)(nil)
)
