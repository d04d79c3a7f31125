// Package validation provides input validation utilities to prevent
// security vulnerabilities such as command injection and path
// traversal. Every value that reaches a shell command or a file path
// is validated here first.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Common validation errors.
var (
	ErrEmptyInput         = errors.New("input cannot be empty")
	ErrInvalidPackageName = errors.New("invalid package name")
	ErrInvalidWingetID    = errors.New("invalid winget package ID")
	ErrInvalidURL         = errors.New("invalid URL")
	ErrInvalidPath        = errors.New("invalid path")
	ErrPathTraversal      = errors.New("path traversal detected")
	ErrCommandInjection   = errors.New("potential command injection detected")
	ErrNewlineInjection   = errors.New("newline injection detected")
	ErrInvalidGitConfig   = errors.New("invalid git config value")
)

// Compiled regex patterns for validation (compiled once for performance).
var (
	// packageNameRegex matches valid package names: alphanumeric,
	// hyphens, underscores, dots, plus.
	// Examples: "git", "node-lts", "python3.11", "g++"
	packageNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+-]*$`)

	// wingetIDRegex matches winget IDs in Publisher.PackageName form.
	// Examples: "Git.Git", "Microsoft.VisualStudioCode"
	wingetIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+-]*(\.[a-zA-Z0-9][a-zA-Z0-9._+-]*)+$`)

	// urlRegex matches HTTP/HTTPS URLs.
	urlRegex = regexp.MustCompile(`^https?://[a-zA-Z0-9][a-zA-Z0-9.-]*(:[0-9]+)?(/[^\s]*)?$`)

	// gitBranchPattern matches safe branch names.
	gitBranchPattern = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

	// gitConfigSafeRegex rejects control characters in config values.
	gitConfigSafeRegex = regexp.MustCompile(`^[^\x00-\x08\x0b\x0c\x0e-\x1f]*$`)

	// gitRemoteURLPatterns are the accepted clone URL shapes.
	gitRemoteURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^https://[a-zA-Z0-9.-]+(/[a-zA-Z0-9._~/-]*)?$`),
		regexp.MustCompile(`^git@[a-zA-Z0-9.-]+:[a-zA-Z0-9._~/-]+$`),
		regexp.MustCompile(`^ssh://([a-zA-Z0-9._-]+@)?[a-zA-Z0-9.-]+(:[0-9]+)?(/[a-zA-Z0-9._~/-]*)?$`),
	}

	// shellMetaChars contains shell metacharacters that could enable injection.
	shellMetaChars = []string{";", "|", "&", "$", "`", "(", ")", "{", "}", "<", ">", "\n", "\r", "\\"}
)

// ValidatePackageName validates a package name for apt or brew.
// Returns an error if the name is empty or contains invalid characters.
func ValidatePackageName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}
	if len(name) > 256 {
		return fmt.Errorf("%w: name too long (max 256 characters)", ErrInvalidPackageName)
	}
	if !packageNameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidPackageName, name)
	}
	if containsShellMeta(name) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, name)
	}
	return nil
}

// ValidateWingetID validates a winget package ID (Publisher.PackageName format).
func ValidateWingetID(id string) error {
	if id == "" {
		return ErrEmptyInput
	}
	if len(id) > 256 {
		return fmt.Errorf("%w: package ID too long", ErrInvalidWingetID)
	}
	if !wingetIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %q must be in 'Publisher.PackageName' format", ErrInvalidWingetID, id)
	}
	if containsShellMeta(id) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, id)
	}
	return nil
}

// ValidateURL validates a download URL.
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return ErrEmptyInput
	}
	if len(urlStr) > 2048 {
		return fmt.Errorf("%w: URL too long", ErrInvalidURL)
	}
	if !urlRegex.MatchString(urlStr) {
		return fmt.Errorf("%w: %q must be a valid HTTP/HTTPS URL", ErrInvalidURL, urlStr)
	}
	if containsShellMeta(urlStr) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, urlStr)
	}
	return nil
}

// ValidatePath validates a file path and prevents path traversal attacks.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyInput
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: path contains null byte", ErrInvalidPath)
	}
	if containsPathTraversal(path) {
		return fmt.Errorf("%w: %q contains traversal sequence", ErrPathTraversal, path)
	}
	return nil
}

// ValidateGitBranch validates a git branch name. An empty branch is
// allowed and means the remote default.
func ValidateGitBranch(branch string) error {
	if branch == "" {
		return nil
	}
	if len(branch) > 255 {
		return errors.New("branch name too long (max 255 characters)")
	}
	if strings.ContainsRune(branch, '\x00') {
		return errors.New("branch name contains null byte")
	}
	if containsShellMeta(branch) {
		return fmt.Errorf("%w: branch %q contains shell metacharacters", ErrCommandInjection, branch)
	}
	if !gitBranchPattern.MatchString(branch) {
		return errors.New("invalid branch name format: must contain only alphanumeric characters, hyphens, underscores, slashes, and dots")
	}
	if strings.Contains(branch, "..") {
		return errors.New("branch name cannot contain '..'")
	}
	return nil
}

// ValidateGitRemoteURL validates a git clone URL.
func ValidateGitRemoteURL(url string) error {
	if url == "" {
		return ErrEmptyInput
	}
	if len(url) > 2048 {
		return errors.New("remote URL too long (max 2048 characters)")
	}
	if strings.ContainsRune(url, '\x00') {
		return errors.New("remote URL contains null byte")
	}
	for _, char := range shellMetaChars {
		if strings.Contains(url, char) {
			return fmt.Errorf("remote URL contains invalid character: %q", char)
		}
	}
	for _, pattern := range gitRemoteURLPatterns {
		if pattern.MatchString(url) {
			return nil
		}
	}
	return errors.New("invalid git remote URL format: must be HTTPS or SSH")
}

// ValidateGitConfigValue validates a git config value for injection attacks.
func ValidateGitConfigValue(value string) error {
	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("%w: git config value contains newlines", ErrNewlineInjection)
	}
	if !gitConfigSafeRegex.MatchString(value) {
		return fmt.Errorf("%w: contains control characters", ErrInvalidGitConfig)
	}
	return nil
}

// containsShellMeta checks for shell metacharacters.
func containsShellMeta(s string) bool {
	for _, char := range shellMetaChars {
		if strings.Contains(s, char) {
			return true
		}
	}
	return false
}

// containsPathTraversal checks for directory traversal sequences.
func containsPathTraversal(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
