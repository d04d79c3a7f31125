package testutil

import (
	"gopkg.in/yaml.v3"
)

// ProfileBuilder builds profile YAML documents for tests. The zero
// builder produces a minimal valid linux profile with an apt manager.
type ProfileBuilder struct {
	platform    string
	managers    []map[string]any
	managersSet bool
	paths       map[string]string
	packages    []map[string]any
	apps        []map[string]any
	fonts       []map[string]string
	git         map[string]any
	ssh         map[string]string
	editor      map[string]any
	repos       []map[string]string
	minVersions map[string]string
}

// NewProfileBuilder creates a new profile builder.
func NewProfileBuilder() *ProfileBuilder {
	return &ProfileBuilder{
		platform: "linux",
	}
}

// WithPlatform sets the platform identifier.
func (b *ProfileBuilder) WithPlatform(platform string) *ProfileBuilder {
	b.platform = platform
	return b
}

// WithManager adds a package manager. The first call replaces the
// default apt manager.
func (b *ProfileBuilder) WithManager(name string, check ...string) *ProfileBuilder {
	b.managersSet = true
	b.managers = append(b.managers, map[string]any{
		"name":  name,
		"check": check,
	})
	return b
}

// WithFontsDir sets paths.fonts_dir.
func (b *ProfileBuilder) WithFontsDir(dir string) *ProfileBuilder {
	b.path("fonts_dir", dir)
	return b
}

// WithEditorSettingsPath sets paths.editor_settings.
func (b *ProfileBuilder) WithEditorSettingsPath(path string) *ProfileBuilder {
	b.path("editor_settings", path)
	return b
}

// WithPackage adds a package by name.
func (b *ProfileBuilder) WithPackage(name string) *ProfileBuilder {
	b.packages = append(b.packages, map[string]any{"name": name})
	return b
}

// WithPackageVersion adds a package with a minimum version.
func (b *ProfileBuilder) WithPackageVersion(name, minVersion string) *ProfileBuilder {
	b.packages = append(b.packages, map[string]any{
		"name":        name,
		"min_version": minVersion,
	})
	return b
}

// WithPackageOverrides adds a package with per-manager name overrides.
func (b *ProfileBuilder) WithPackageOverrides(name string, overrides map[string]string) *ProfileBuilder {
	b.packages = append(b.packages, map[string]any{
		"name":      name,
		"overrides": overrides,
	})
	return b
}

// WithApp adds an application by name.
func (b *ProfileBuilder) WithApp(name string) *ProfileBuilder {
	b.apps = append(b.apps, map[string]any{"name": name})
	return b
}

// WithAppOverrides adds an application with per-manager name overrides.
func (b *ProfileBuilder) WithAppOverrides(name string, overrides map[string]string) *ProfileBuilder {
	b.apps = append(b.apps, map[string]any{
		"name":      name,
		"overrides": overrides,
	})
	return b
}

// WithFont adds a downloadable font.
func (b *ProfileBuilder) WithFont(name, url string) *ProfileBuilder {
	b.fonts = append(b.fonts, map[string]string{
		"name": name,
		"url":  url,
	})
	return b
}

// WithGit sets the git identity.
func (b *ProfileBuilder) WithGit(userName, userEmail string) *ProfileBuilder {
	if b.git == nil {
		b.git = map[string]any{}
	}
	b.git["user_name"] = userName
	b.git["user_email"] = userEmail
	return b
}

// WithGitDefault adds a git.defaults entry.
func (b *ProfileBuilder) WithGitDefault(key, value string) *ProfileBuilder {
	if b.git == nil {
		b.git = map[string]any{}
	}
	defaults, _ := b.git["defaults"].(map[string]string)
	if defaults == nil {
		defaults = map[string]string{}
	}
	defaults[key] = value
	b.git["defaults"] = defaults
	return b
}

// WithSSH sets the SSH key declaration.
func (b *ProfileBuilder) WithSSH(keyType, keyPath, comment string) *ProfileBuilder {
	b.ssh = map[string]string{
		"key_type": keyType,
		"key_path": keyPath,
		"comment":  comment,
	}
	return b
}

// WithEditorSetting adds an editor settings key.
func (b *ProfileBuilder) WithEditorSetting(key string, value any) *ProfileBuilder {
	if b.editor == nil {
		b.editor = map[string]any{}
	}
	b.editor[key] = value
	return b
}

// WithRepo adds a repository to clone.
func (b *ProfileBuilder) WithRepo(url, dest, branch string) *ProfileBuilder {
	repo := map[string]string{
		"url":  url,
		"dest": dest,
	}
	if branch != "" {
		repo["branch"] = branch
	}
	b.repos = append(b.repos, repo)
	return b
}

// WithMinVersion pins a tool version in the verify block.
func (b *ProfileBuilder) WithMinVersion(tool, version string) *ProfileBuilder {
	if b.minVersions == nil {
		b.minVersions = map[string]string{}
	}
	b.minVersions[tool] = version
	return b
}

// String renders the profile as YAML.
func (b *ProfileBuilder) String() string {
	doc := map[string]any{
		"platform": b.platform,
	}

	managers := b.managers
	if !b.managersSet {
		managers = []map[string]any{
			{"name": "apt", "check": []string{"dpkg", "--version"}},
		}
	}
	doc["managers"] = managers

	if len(b.paths) > 0 {
		doc["paths"] = b.paths
	}
	if len(b.packages) > 0 {
		doc["packages"] = b.packages
	}
	if len(b.apps) > 0 {
		doc["apps"] = b.apps
	}
	if len(b.fonts) > 0 {
		doc["fonts"] = b.fonts
	}
	if len(b.git) > 0 {
		doc["git"] = b.git
	}
	if len(b.ssh) > 0 {
		doc["ssh"] = b.ssh
	}
	if len(b.editor) > 0 {
		doc["editor"] = map[string]any{"settings": b.editor}
	}
	if len(b.repos) > 0 {
		doc["repos"] = b.repos
	}
	if len(b.minVersions) > 0 {
		doc["verify"] = map[string]any{"min_versions": b.minVersions}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return string(out)
}

func (b *ProfileBuilder) path(key, value string) {
	if b.paths == nil {
		b.paths = map[string]string{}
	}
	b.paths[key] = value
}
