// Package capability defines the provider contract: small units of
// machine state (a package, a font, a cloned repository, a config file)
// that can be checked, installed, and removed.
package capability

import "fmt"

// Kind identifies a provider family.
type Kind string

const (
	KindApt    Kind = "apt"
	KindBrew   Kind = "brew"
	KindWinget Kind = "winget"
	KindFonts  Kind = "fonts"
	KindRepos  Kind = "repos"
	KindGit    Kind = "git"
	KindSSH    Kind = "ssh"
	KindCursor Kind = "cursor"
)

// PackageManagerKinds are the kinds a profile may declare under
// `managers`. Other kinds are wired by the step builder, not by
// profile configuration.
func PackageManagerKinds() []Kind {
	return []Kind{KindApt, KindBrew, KindWinget}
}

// ParseManagerKind validates a profile manager name.
func ParseManagerKind(s string) (Kind, error) {
	for _, k := range PackageManagerKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown package manager %q (expected one of apt, brew, winget)", s)
}

func (k Kind) String() string {
	return string(k)
}
