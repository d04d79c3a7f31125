// Package platform provides platform detection and rigup's state paths.
package platform

import (
	"os"
	"runtime"
	"strings"
	"sync"
)

// OS represents the operating system type.
type OS string

const (
	// OSDarwin is macOS.
	OSDarwin OS = "darwin"
	// OSLinux is Linux (native or WSL).
	OSLinux OS = "linux"
	// OSWindows is Windows.
	OSWindows OS = "windows"
	// OSUnknown is an unsupported OS.
	OSUnknown OS = "unknown"
)

// Platform contains detected platform information. It decides which profile
// rigup loads by default and which capability providers are plausible.
type Platform struct {
	os    OS
	arch  string
	wsl   bool
	distro string
}

var (
	detected   *Platform
	detectOnce sync.Once
)

// Detect returns the current platform information.
// Results are cached after the first call.
func Detect() *Platform {
	detectOnce.Do(func() {
		detected = detect()
	})
	return detected
}

func detect() *Platform {
	p := &Platform{arch: runtime.GOARCH}

	switch runtime.GOOS {
	case "darwin":
		p.os = OSDarwin
	case "linux":
		p.os = OSLinux
		p.wsl = isWSL()
		p.distro = linuxDistro()
	case "windows":
		p.os = OSWindows
	default:
		p.os = OSUnknown
	}

	return p
}

// isWSL checks /proc/version for Microsoft or WSL indicators.
func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// linuxDistro reads the distribution id from /etc/os-release.
func linuxDistro() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "ID=") {
			return strings.Trim(strings.TrimPrefix(line, "ID="), "\"")
		}
	}
	return ""
}

// OS returns the operating system.
func (p *Platform) OS() OS {
	return p.os
}

// Arch returns the architecture.
func (p *Platform) Arch() string {
	return p.arch
}

// IsWSL returns true if running in Windows Subsystem for Linux.
func (p *Platform) IsWSL() bool {
	return p.wsl
}

// DefaultProfileName returns the profile name to load when none is given:
// the distro id on Linux ("ubuntu", "fedora"), otherwise the OS name.
func (p *Platform) DefaultProfileName() string {
	if p.os == OSLinux && p.distro != "" {
		return p.distro
	}
	return string(p.os)
}

// String returns a human-readable description.
func (p *Platform) String() string {
	parts := []string{string(p.os), p.arch}
	if p.wsl {
		parts = append(parts, "wsl")
	}
	if p.distro != "" {
		parts = append(parts, p.distro)
	}
	return strings.Join(parts, "/")
}

// New creates a Platform with specified values (for testing).
func New(os OS, arch string) *Platform {
	return &Platform{os: os, arch: arch}
}
