// Package profile loads and validates the per-platform YAML documents
// that declare what a machine should look like: package managers,
// packages, apps, fonts, git identity, SSH keys, editor settings, and
// repositories. A Profile is immutable once loaded.
package profile

import (
	"github.com/felixgeelhaar/rigup/internal/domain/capability"
)

// Manager is a package manager the profile expects on this platform,
// with the probe command that proves it is available.
type Manager struct {
	Kind  capability.Kind
	Check []string
}

// PathTable holds the platform-specific destinations the providers
// write to. Values may contain ~ and are expanded at use time.
type PathTable struct {
	FontsDir       string
	EditorSettings string
}

// Item is one declared package or application. Overrides map a
// manager kind to the name that manager knows the item by.
type Item struct {
	Name       string
	Overrides  map[string]string
	MinVersion string
}

// NameFor returns the item name as the given manager knows it.
func (i Item) NameFor(kind capability.Kind) string {
	if name, ok := i.Overrides[string(kind)]; ok {
		return name
	}
	return i.Name
}

// Font is a downloadable font archive.
type Font struct {
	Name string
	URL  string
}

// GitIdentity configures ~/.gitconfig.
type GitIdentity struct {
	UserName  string
	UserEmail string
	Defaults  map[string]string
}

// IsZero reports whether the profile declares no git configuration.
func (g GitIdentity) IsZero() bool {
	return g.UserName == "" && g.UserEmail == "" && len(g.Defaults) == 0
}

// SSHKey configures key generation.
type SSHKey struct {
	KeyType string
	KeyPath string
	Comment string
}

// IsZero reports whether the profile declares no SSH key.
func (s SSHKey) IsZero() bool {
	return s.KeyType == "" && s.KeyPath == "" && s.Comment == ""
}

// Editor holds the settings keys merged into the editor's
// settings.json.
type Editor struct {
	Settings map[string]any
}

// Repo is a repository to clone.
type Repo struct {
	URL    string
	Dest   string
	Branch string
}

// VerifySpec pins minimum versions the verifier checks.
type VerifySpec struct {
	MinVersions map[string]string
}

// Profile is the validated, read-only declaration for one platform.
type Profile struct {
	platform string
	managers []Manager
	paths    PathTable
	packages []Item
	apps     []Item
	fonts    []Font
	git      GitIdentity
	ssh      SSHKey
	editor   Editor
	repos    []Repo
	verify   VerifySpec
	source   string
}

// Platform returns the platform identifier the profile targets.
func (p *Profile) Platform() string { return p.platform }

// Source returns the file the profile was loaded from.
func (p *Profile) Source() string { return p.source }

// Managers returns the declared package managers in declaration order.
func (p *Profile) Managers() []Manager {
	out := make([]Manager, len(p.managers))
	copy(out, p.managers)
	return out
}

// HasManager reports whether the profile declares the manager kind.
func (p *Profile) HasManager(kind capability.Kind) bool {
	for _, m := range p.managers {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

// Paths returns the platform path table.
func (p *Profile) Paths() PathTable { return p.paths }

// Packages returns the devenv package items.
func (p *Profile) Packages() []Item { return copyItems(p.packages) }

// Apps returns the application items.
func (p *Profile) Apps() []Item { return copyItems(p.apps) }

// Fonts returns the declared fonts.
func (p *Profile) Fonts() []Font {
	out := make([]Font, len(p.fonts))
	copy(out, p.fonts)
	return out
}

// Git returns the git identity section.
func (p *Profile) Git() GitIdentity {
	g := p.git
	g.Defaults = copyStringMap(g.Defaults)
	return g
}

// SSH returns the SSH key section.
func (p *Profile) SSH() SSHKey { return p.ssh }

// Editor returns the editor settings section.
func (p *Profile) Editor() Editor {
	settings := make(map[string]any, len(p.editor.Settings))
	for k, v := range p.editor.Settings {
		settings[k] = v
	}
	return Editor{Settings: settings}
}

// Repos returns the repositories to clone.
func (p *Profile) Repos() []Repo {
	out := make([]Repo, len(p.repos))
	copy(out, p.repos)
	return out
}

// Verify returns the verification section.
func (p *Profile) Verify() VerifySpec {
	return VerifySpec{MinVersions: copyStringMap(p.verify.MinVersions)}
}

func copyItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		item.Overrides = copyStringMap(item.Overrides)
		out[i] = item
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
