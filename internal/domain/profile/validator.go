package profile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
)

// validate checks the raw document against every rule at once, so the
// user sees the complete list of problems instead of fixing them one
// load at a time.
func validate(raw *rawProfile) error {
	errs := NewErrorList()

	if strings.TrimSpace(raw.Platform) == "" {
		errs.AddValidation("platform", "must not be empty",
			"Set the platform identifier this profile targets, e.g. 'macos' or 'ubuntu-24.04'.")
	}

	declared := validateManagers(raw.Managers, errs)
	validateItems("packages", raw.Packages, declared, errs)
	validateItems("apps", raw.Apps, declared, errs)
	validateFonts(raw, errs)
	validateRepos(raw.Repos, errs)
	validateSSH(raw.SSH, errs)
	validateEditor(raw, errs)

	return errs.AsError()
}

func validateManagers(managers []rawManager, errs *ErrorList) map[string]bool {
	declared := make(map[string]bool, len(managers))

	if len(managers) == 0 {
		errs.AddValidation("managers", "at least one package manager is required",
			"Declare the manager(s) available on this platform, e.g. '- name: brew'.")
		return declared
	}

	for i, m := range managers {
		field := fmt.Sprintf("managers[%d]", i)
		if _, err := capability.ParseManagerKind(m.Name); err != nil {
			errs.AddValidation(field+".name", err.Error(),
				"Supported managers are apt, brew, and winget.")
			continue
		}
		if declared[m.Name] {
			errs.AddValidation(field+".name", fmt.Sprintf("manager %q declared twice", m.Name),
				"Remove the duplicate entry.")
			continue
		}
		if len(m.Check) == 0 {
			errs.AddValidation(field+".check", "availability probe command is required",
				fmt.Sprintf("Add a probe, e.g. 'check: [%s, --version]'.", m.Name))
		}
		declared[m.Name] = true
	}
	return declared
}

func validateItems(section string, items []rawItem, declared map[string]bool, errs *ErrorList) {
	for i, item := range items {
		field := fmt.Sprintf("%s[%d]", section, i)
		if strings.TrimSpace(item.Name) == "" {
			errs.AddValidation(field+".name", "must not be empty",
				"Every item needs a name.")
		}
		for key := range item.Overrides {
			if !declared[key] {
				errs.AddValidation(fmt.Sprintf("%s.overrides.%s", field, key),
					fmt.Sprintf("override names undeclared manager %q", key),
					"Override keys must match a manager declared under 'managers'.")
			}
		}
	}
}

func validateFonts(raw *rawProfile, errs *ErrorList) {
	for i, f := range raw.Fonts {
		field := fmt.Sprintf("fonts[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			errs.AddValidation(field+".name", "must not be empty",
				"Every font needs a name.")
		}
		u, err := url.Parse(f.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.AddValidation(field+".url", fmt.Sprintf("invalid download URL %q", f.URL),
				"Font URLs must be absolute http(s) URLs pointing at an archive.")
		}
	}
	if len(raw.Fonts) > 0 && strings.TrimSpace(raw.Paths.FontsDir) == "" {
		errs.AddValidation("paths.fonts_dir", "required when fonts are declared",
			"Set the directory fonts install into, e.g. '~/.local/share/fonts'.")
	}
}

func validateRepos(repos []rawRepo, errs *ErrorList) {
	for i, r := range repos {
		field := fmt.Sprintf("repos[%d]", i)
		if strings.TrimSpace(r.URL) == "" {
			errs.AddValidation(field+".url", "must not be empty",
				"Set the clone URL, e.g. 'git@github.com:acme/service.git'.")
		}
		if strings.TrimSpace(r.Dest) == "" {
			errs.AddValidation(field+".dest", "must not be empty",
				"Set the directory the repository is cloned into.")
		}
	}
}

func validateSSH(ssh rawSSH, errs *ErrorList) {
	if ssh.KeyType != "" && ssh.KeyType != "ed25519" {
		errs.AddValidation("ssh.key_type", fmt.Sprintf("unsupported key type %q", ssh.KeyType),
			"Only ed25519 keys are supported.")
	}
}

func validateEditor(raw *rawProfile, errs *ErrorList) {
	if len(raw.Editor.Settings) > 0 && strings.TrimSpace(raw.Paths.EditorSettings) == "" {
		errs.AddValidation("paths.editor_settings", "required when editor settings are declared",
			"Set the path of the editor's settings.json.")
	}
}
