package profile

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/ports"
)

// Raw document shapes. Validation runs on these before the immutable
// Profile is built, so error messages can use the YAML field names.
type rawProfile struct {
	Platform string       `yaml:"platform"`
	Managers []rawManager `yaml:"managers"`
	Paths    rawPaths     `yaml:"paths"`
	Packages []rawItem    `yaml:"packages"`
	Apps     []rawItem    `yaml:"apps"`
	Fonts    []rawFont    `yaml:"fonts"`
	Git      rawGit       `yaml:"git"`
	SSH      rawSSH       `yaml:"ssh"`
	Editor   rawEditor    `yaml:"editor"`
	Repos    []rawRepo    `yaml:"repos"`
	Verify   rawVerify    `yaml:"verify"`
}

type rawManager struct {
	Name  string   `yaml:"name"`
	Check []string `yaml:"check"`
}

type rawPaths struct {
	FontsDir       string `yaml:"fonts_dir"`
	EditorSettings string `yaml:"editor_settings"`
}

type rawItem struct {
	Name       string            `yaml:"name"`
	Overrides  map[string]string `yaml:"overrides"`
	MinVersion string            `yaml:"min_version"`
}

type rawFont struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type rawGit struct {
	UserName  string            `yaml:"user_name"`
	UserEmail string            `yaml:"user_email"`
	Defaults  map[string]string `yaml:"defaults"`
}

type rawSSH struct {
	KeyType string `yaml:"key_type"`
	KeyPath string `yaml:"key_path"`
	Comment string `yaml:"comment"`
}

type rawEditor struct {
	Settings map[string]any `yaml:"settings"`
}

type rawRepo struct {
	URL    string `yaml:"url"`
	Dest   string `yaml:"dest"`
	Branch string `yaml:"branch"`
}

type rawVerify struct {
	MinVersions map[string]string `yaml:"min_versions"`
}

// Loader reads and validates profiles.
type Loader struct {
	fs ports.FileSystem
}

// NewLoader creates a profile loader backed by fs.
func NewLoader(fs ports.FileSystem) *Loader {
	return &Loader{fs: fs}
}

// Load reads, parses, and validates the profile at path. Validation
// is all-or-nothing: any invalid field fails the load, and every
// problem found is reported.
func (l *Loader) Load(path string) (*Profile, error) {
	if !l.fs.Exists(path) {
		return nil, NewProfileNotFoundError(path)
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, NewProfileNotFoundError(path).WithUnderlying(err)
	}

	raw, err := parse(data, path)
	if err != nil {
		return nil, err
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	return build(raw, path), nil
}

func parse(data []byte, path string) (*rawProfile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	// Unknown keys are almost always typos; reject them.
	dec.KnownFields(true)

	var raw rawProfile
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			// Empty document: validation will report what is missing.
			return &rawProfile{}, nil
		}
		return nil, NewYAMLParseError(path, err)
	}
	return &raw, nil
}

func build(raw *rawProfile, path string) *Profile {
	p := &Profile{
		platform: raw.Platform,
		source:   path,
		paths: PathTable{
			FontsDir:       raw.Paths.FontsDir,
			EditorSettings: raw.Paths.EditorSettings,
		},
		git: GitIdentity{
			UserName:  raw.Git.UserName,
			UserEmail: raw.Git.UserEmail,
			Defaults:  raw.Git.Defaults,
		},
		ssh: SSHKey{
			KeyType: raw.SSH.KeyType,
			KeyPath: raw.SSH.KeyPath,
			Comment: raw.SSH.Comment,
		},
		editor: Editor{Settings: raw.Editor.Settings},
		verify: VerifySpec{MinVersions: raw.Verify.MinVersions},
	}

	for _, m := range raw.Managers {
		kind, _ := capability.ParseManagerKind(m.Name)
		p.managers = append(p.managers, Manager{Kind: kind, Check: m.Check})
	}
	for _, it := range raw.Packages {
		p.packages = append(p.packages, Item(it))
	}
	for _, it := range raw.Apps {
		p.apps = append(p.apps, Item(it))
	}
	for _, f := range raw.Fonts {
		p.fonts = append(p.fonts, Font(f))
	}
	for _, r := range raw.Repos {
		p.repos = append(p.repos, Repo(r))
	}
	return p
}
