package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/ini.v1"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/domain/profile"
	"github.com/felixgeelhaar/rigup/internal/ports"
)

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// Verifier checks the machine against a profile without mutating it.
// Providers are only used through their read paths.
type Verifier struct {
	reg    *capability.Registry
	runner ports.CommandRunner
	fs     ports.FileSystem
	logger ports.Logger
}

// New creates a Verifier.
func New(reg *capability.Registry, runner ports.CommandRunner, fs ports.FileSystem, logger ports.Logger) *Verifier {
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &Verifier{
		reg:    reg,
		runner: runner,
		fs:     fs,
		logger: logger,
	}
}

// Verify runs every check the profile declares and returns the report.
func (v *Verifier) Verify(ctx context.Context, prof *profile.Profile) (*Report, error) {
	if prof == nil {
		return nil, errors.New("verify: profile is nil")
	}

	rep := &Report{}
	v.checkManagers(ctx, prof, rep)
	v.checkItems(ctx, prof, AreaPackages, prof.Packages(), rep)
	v.checkItems(ctx, prof, AreaApps, prof.Apps(), rep)
	v.checkMinVersions(ctx, prof, rep)
	v.checkFonts(prof, rep)
	v.checkGit(prof, rep)
	v.checkSSH(prof, rep)
	v.checkEditor(prof, rep)
	v.checkRepos(prof, rep)

	pass, fail, unknown := rep.Counts()
	v.logger.Info("verification finished",
		ports.F("pass", pass), ports.F("fail", fail), ports.F("unknown", unknown))
	return rep, nil
}

func (v *Verifier) checkManagers(ctx context.Context, prof *profile.Profile, rep *Report) {
	for _, mgr := range prof.Managers() {
		subject := string(mgr.Kind)
		if len(mgr.Check) == 0 {
			rep.add(AreaManagers, subject, Unknown, "no check command declared")
			continue
		}
		command := mgr.Check[0]
		if !v.runner.LookPath(command) {
			rep.add(AreaManagers, subject, Fail, fmt.Sprintf("%s not found in PATH", command))
			continue
		}
		res, err := v.runner.Run(ctx, command, mgr.Check[1:]...)
		if err != nil {
			rep.add(AreaManagers, subject, Fail, err.Error())
			continue
		}
		if !res.Success() {
			detail := strings.TrimSpace(res.Stderr)
			if detail == "" {
				detail = fmt.Sprintf("%s exited with code %d", strings.Join(mgr.Check, " "), res.ExitCode)
			}
			rep.add(AreaManagers, subject, Fail, detail)
			continue
		}
		rep.add(AreaManagers, subject, Pass, "")
	}
}

func (v *Verifier) checkItems(ctx context.Context, prof *profile.Profile, area Area, items []profile.Item, rep *Report) {
	if len(items) == 0 {
		return
	}
	kind, prov := v.pickProvider(prof)
	for _, it := range items {
		if prov == nil {
			rep.add(area, it.Name, Unknown, "no package manager provider available")
			continue
		}
		name := it.NameFor(kind)
		status, err := prov.IsInstalled(ctx, capability.NewItem(name))
		switch {
		case err != nil:
			rep.add(area, it.Name, Unknown, err.Error())
		case status == capability.StatusPresent:
			rep.add(area, it.Name, Pass, "")
			if it.MinVersion != "" {
				v.checkVersion(ctx, prov, kind, name, it.MinVersion, rep)
			}
		case status == capability.StatusAbsent:
			rep.add(area, it.Name, Fail, "not installed")
		default:
			rep.add(area, it.Name, Unknown, "installation state could not be determined")
		}
	}
}

// checkMinVersions covers tools pinned in the verify block that are
// not necessarily declared as packages, such as the shell itself.
func (v *Verifier) checkMinVersions(ctx context.Context, prof *profile.Profile, rep *Report) {
	mins := prof.Verify().MinVersions
	if len(mins) == 0 {
		return
	}
	names := make([]string, 0, len(mins))
	for name := range mins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		got := v.probeVersion(ctx, name)
		v.compareVersion(name, got, mins[name], rep)
	}
}

func (v *Verifier) checkVersion(ctx context.Context, prov capability.Provider, kind capability.Kind, name, want string, rep *Report) {
	got := ""
	if vv, ok := prov.(capability.Versioner); ok {
		version, err := vv.InstalledVersion(ctx, capability.NewItem(name))
		if err != nil {
			v.logger.Debug("provider version lookup failed",
				ports.F("manager", string(kind)), ports.F("item", name), ports.F("error", err.Error()))
		} else {
			got = version
		}
	}
	if got == "" {
		got = v.probeVersion(ctx, name)
	}
	v.compareVersion(name, got, want, rep)
}

func (v *Verifier) compareVersion(name, got, want string, rep *Report) {
	if got == "" {
		rep.add(AreaVersions, name, Unknown, "installed version could not be determined")
		return
	}
	gotC, wantC := canonicalVersion(got), canonicalVersion(want)
	if !semver.IsValid(gotC) || !semver.IsValid(wantC) {
		rep.add(AreaVersions, name, Unknown,
			fmt.Sprintf("cannot compare %q against %q", got, want))
		return
	}
	if semver.Compare(gotC, wantC) < 0 {
		rep.add(AreaVersions, name, Fail, fmt.Sprintf("installed %s, want at least %s", got, want))
		return
	}
	rep.add(AreaVersions, name, Pass, fmt.Sprintf("installed %s", got))
}

// probeVersion runs `<command> --version` and extracts the first
// dotted version number from its output.
func (v *Verifier) probeVersion(ctx context.Context, command string) string {
	if !v.runner.LookPath(command) {
		return ""
	}
	res, err := v.runner.Run(ctx, command, "--version")
	if err != nil || !res.Success() {
		return ""
	}
	return versionPattern.FindString(res.Stdout + " " + res.Stderr)
}

func (v *Verifier) checkFonts(prof *profile.Profile, rep *Report) {
	fonts := prof.Fonts()
	if len(fonts) == 0 {
		return
	}
	dir := ports.ExpandPath(prof.Paths().FontsDir)
	if !v.fs.IsDir(dir) {
		for _, f := range fonts {
			rep.add(AreaFonts, f.Name, Fail, fmt.Sprintf("fonts directory %s does not exist", dir))
		}
		return
	}
	entries, err := v.fs.ReadDir(dir)
	if err != nil {
		for _, f := range fonts {
			rep.add(AreaFonts, f.Name, Unknown, err.Error())
		}
		return
	}
	for _, f := range fonts {
		if matchFont(entries, f.Name) {
			rep.add(AreaFonts, f.Name, Pass, "")
		} else {
			rep.add(AreaFonts, f.Name, Fail, fmt.Sprintf("no font files matching %q in %s", f.Name, dir))
		}
	}
}

// matchFont reports whether any directory entry looks like it belongs
// to the named font. Archive contents rarely match the display name
// exactly, so the comparison ignores case and spaces.
func matchFont(entries []string, name string) bool {
	want := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	for _, entry := range entries {
		have := strings.ToLower(strings.ReplaceAll(entry, " ", ""))
		if strings.Contains(have, want) {
			return true
		}
	}
	return false
}

func (v *Verifier) checkGit(prof *profile.Profile, rep *Report) {
	identity := prof.Git()
	if identity.IsZero() {
		return
	}
	path := ports.ExpandPath("~/.gitconfig")
	if !v.fs.Exists(path) {
		rep.add(AreaGit, path, Fail, "file does not exist")
		return
	}
	data, err := v.fs.ReadFile(path)
	if err != nil {
		rep.add(AreaGit, path, Unknown, err.Error())
		return
	}
	cfg, err := ini.Load(data)
	if err != nil {
		rep.add(AreaGit, path, Fail, fmt.Sprintf("not parseable: %v", err))
		return
	}

	expected := map[string]string{}
	if identity.UserName != "" {
		expected["user.name"] = identity.UserName
	}
	if identity.UserEmail != "" {
		expected["user.email"] = identity.UserEmail
	}
	for key, value := range identity.Defaults {
		expected[key] = value
	}

	keys := make([]string, 0, len(expected))
	for key := range expected {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		section, option := splitGitKey(key)
		if !cfg.Section(section).HasKey(option) {
			rep.add(AreaGit, key, Fail, "not set")
			continue
		}
		got := cfg.Section(section).Key(option).String()
		if got != expected[key] {
			rep.add(AreaGit, key, Fail, fmt.Sprintf("set to %q, want %q", got, expected[key]))
			continue
		}
		rep.add(AreaGit, key, Pass, "")
	}
}

// splitGitKey splits a dotted git config key such as
// "init.defaultBranch" into its section and option parts.
func splitGitKey(key string) (section, option string) {
	if idx := strings.Index(key, "."); idx >= 0 {
		return key[:idx], key[idx+1:]
	}
	return "", key
}

func (v *Verifier) checkSSH(prof *profile.Profile, rep *Report) {
	key := prof.SSH()
	if key.IsZero() {
		return
	}
	path := ports.ExpandPath(key.KeyPath)
	if !v.fs.Exists(path) {
		rep.add(AreaSSH, path, Fail, "private key does not exist")
		return
	}
	if !v.fs.Exists(path + ".pub") {
		rep.add(AreaSSH, path, Fail, "public key does not exist")
		return
	}
	mode, err := v.fs.Mode(path)
	if err != nil {
		rep.add(AreaSSH, path, Unknown, err.Error())
		return
	}
	if mode != 0o600 {
		rep.add(AreaSSH, path, Fail, fmt.Sprintf("private key has permissions %04o, want 0600", mode))
		return
	}
	rep.add(AreaSSH, path, Pass, "")
}

func (v *Verifier) checkEditor(prof *profile.Profile, rep *Report) {
	settings := prof.Editor().Settings
	if len(settings) == 0 {
		return
	}
	path := ports.ExpandPath(prof.Paths().EditorSettings)
	if !v.fs.Exists(path) {
		rep.add(AreaEditor, path, Fail, "settings file does not exist")
		return
	}
	data, err := v.fs.ReadFile(path)
	if err != nil {
		rep.add(AreaEditor, path, Unknown, err.Error())
		return
	}
	var current map[string]any
	if err := json.Unmarshal(data, &current); err != nil {
		rep.add(AreaEditor, path, Fail, fmt.Sprintf("not parseable: %v", err))
		return
	}

	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		got, ok := current[key]
		if !ok {
			rep.add(AreaEditor, key, Fail, "not set")
			continue
		}
		if !jsonEqual(got, settings[key]) {
			rep.add(AreaEditor, key, Fail,
				fmt.Sprintf("set to %s, want %s", jsonString(got), jsonString(settings[key])))
			continue
		}
		rep.add(AreaEditor, key, Pass, "")
	}
}

func (v *Verifier) checkRepos(prof *profile.Profile, rep *Report) {
	for _, repo := range prof.Repos() {
		dest := ports.ExpandPath(repo.Dest)
		switch {
		case !v.fs.IsDir(dest):
			rep.add(AreaRepos, repo.Dest, Fail, "not cloned")
		case !v.fs.IsDir(filepath.Join(dest, ".git")):
			rep.add(AreaRepos, repo.Dest, Fail, "exists but is not a git repository")
		default:
			rep.add(AreaRepos, repo.Dest, Pass, "")
		}
	}
}

// pickProvider returns the first declared manager that has a
// registered provider.
func (v *Verifier) pickProvider(prof *profile.Profile) (capability.Kind, capability.Provider) {
	for _, mgr := range prof.Managers() {
		if v.reg == nil || !v.reg.Has(mgr.Kind) {
			continue
		}
		prov, err := v.reg.Get(mgr.Kind)
		if err != nil {
			continue
		}
		return mgr.Kind, prov
	}
	return "", nil
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	return "v" + v
}

// jsonEqual compares two values by their JSON encoding, which smooths
// over the int/float64 mismatch between YAML and JSON decoding.
func jsonEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}

func jsonString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
