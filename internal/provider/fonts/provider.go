// Package fonts downloads font archives and installs the font files
// they contain into the profile's fonts directory.
package fonts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
	"github.com/felixgeelhaar/rigup/internal/ports"
	"github.com/felixgeelhaar/rigup/internal/validation"
)

// Provider implements capability.Provider for downloadable fonts. An
// item's name is the font's display name; its url attribute points at
// a zip/tar/7z archive containing ttf or otf files.
type Provider struct {
	client *http.Client
	fs     ports.FileSystem
	runner ports.CommandRunner
	logger ports.Logger
	dir    string
}

// New creates a fonts Provider installing into dir.
func New(client *http.Client, fs ports.FileSystem, runner ports.CommandRunner, dir string, logger ports.Logger) *Provider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &Provider{
		client: client,
		fs:     fs,
		runner: runner,
		logger: logger,
		dir:    ports.ExpandPath(dir),
	}
}

// Kind returns the manager kind.
func (p *Provider) Kind() capability.Kind {
	return capability.KindFonts
}

// IsInstalled reports whether any installed font file matches the
// font name.
func (p *Provider) IsInstalled(_ context.Context, item capability.Item) (capability.Status, error) {
	if !p.fs.IsDir(p.dir) {
		return capability.StatusAbsent, nil
	}
	entries, err := p.fs.ReadDir(p.dir)
	if err != nil {
		return capability.StatusUnknown, err
	}
	for _, entry := range entries {
		if matchesFont(entry, item.Name) {
			return capability.StatusPresent, nil
		}
	}
	return capability.StatusAbsent, nil
}

// Install downloads the archive, extracts it, and copies every font
// file into the fonts directory.
func (p *Provider) Install(ctx context.Context, item capability.Item) error {
	rawURL := item.Attr(capability.AttrURL)
	if err := validation.ValidateURL(rawURL); err != nil {
		return fmt.Errorf("font %s: %w", item.Name, err)
	}

	archive, err := p.download(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("font %s: %w", item.Name, err)
	}
	defer os.Remove(archive)

	extractDir, err := os.MkdirTemp("", "rigup-font-extract-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(extractDir)

	if err := extractArchive(archive, extractDir); err != nil {
		return fmt.Errorf("font %s: %w", item.Name, err)
	}

	files, err := collectFontFiles(extractDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("font %s: no font files found in archive", item.Name)
	}

	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		dest := filepath.Join(p.dir, filepath.Base(file))
		if err := p.fs.WriteFile(dest, data, 0o644); err != nil {
			return err
		}
		p.logger.Debug("installed font file", ports.F("file", dest))
	}

	p.refreshCache(ctx)
	return nil
}

// Remove deletes installed font files matching the font name. Missing
// files are not an error.
func (p *Provider) Remove(ctx context.Context, item capability.Item) error {
	if !p.fs.IsDir(p.dir) {
		return nil
	}
	entries, err := p.fs.ReadDir(p.dir)
	if err != nil {
		return err
	}

	removed := false
	for _, entry := range entries {
		if !matchesFont(entry, item.Name) {
			continue
		}
		if err := p.fs.Remove(filepath.Join(p.dir, entry)); err != nil {
			return err
		}
		removed = true
	}
	if removed {
		p.refreshCache(ctx)
	}
	return nil
}

// download fetches the archive into a temp file whose name keeps the
// archive extension so extraction can route on it.
func (p *Provider) download(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	ext := archiveExt(path.Base(parsed.Path))
	if ext == "" {
		return "", fmt.Errorf("unsupported archive format: %s", path.Base(parsed.Path))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s returned %s", rawURL, resp.Status)
	}

	tmp, err := os.CreateTemp("", "rigup-font-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// refreshCache rebuilds the fontconfig cache when fc-cache is
// available. Failures are logged, not fatal: the files are already in
// place and the cache catches up on its own.
func (p *Provider) refreshCache(ctx context.Context) {
	if p.runner == nil || !p.runner.LookPath("fc-cache") {
		return
	}
	result, err := p.runner.Run(ctx, "fc-cache", "-f", p.dir)
	if err != nil || !result.Success() {
		p.logger.Warn("fc-cache refresh failed", ports.F("dir", p.dir))
	}
}

// collectFontFiles walks root and returns every ttf/otf file.
func collectFontFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isFontFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func isFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf":
		return true
	}
	return false
}

// matchesFont reports whether a file name looks like it belongs to the
// named font, ignoring case and spaces.
func matchesFont(entry, fontName string) bool {
	if !isFontFile(entry) {
		return false
	}
	want := strings.ToLower(strings.ReplaceAll(fontName, " ", ""))
	have := strings.ToLower(strings.ReplaceAll(entry, " ", ""))
	return strings.Contains(have, want)
}

// Ensure Provider implements capability.Provider.
var _ capability.Provider = (*Provider)(nil)
