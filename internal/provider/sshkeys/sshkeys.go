// Package sshkeys generates the user's SSH key pair. Existing keys are
// never overwritten.
package sshkeys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/felixgeelhaar/rigup/internal/domain/profile"
	"github.com/felixgeelhaar/rigup/internal/ports"
	"github.com/felixgeelhaar/rigup/internal/validation"
)

// Defaults applied when the profile leaves the ssh section sparse.
const (
	DefaultKeyType = "ed25519"
	DefaultKeyPath = "~/.ssh/id_ed25519"
)

// Result describes what Ensure did.
type Result struct {
	PrivatePath string
	PublicPath  string
	Created     bool
}

// KeyPaths resolves where Ensure would write the key pair, with the
// same defaulting and tilde expansion. Callers snapshot these paths
// before generation so rollback can undo a fresh key.
func KeyPaths(key profile.SSHKey) (privPath, pubPath string) {
	rawPath := key.KeyPath
	if rawPath == "" {
		rawPath = DefaultKeyPath
	}
	privPath = ports.ExpandPath(rawPath)
	return privPath, privPath + ".pub"
}

// Generator creates ed25519 key pairs on disk.
type Generator struct {
	fs     ports.FileSystem
	logger ports.Logger
}

// New creates a Generator.
func New(fs ports.FileSystem, logger ports.Logger) *Generator {
	if logger == nil {
		logger = ports.NopLogger()
	}
	return &Generator{fs: fs, logger: logger}
}

// Ensure generates the key pair described by key unless the private key
// already exists. The private key is written 0600, the public key 0644,
// and the containing directory is created 0700.
func (g *Generator) Ensure(key profile.SSHKey) (Result, error) {
	if key.IsZero() {
		return Result{}, nil
	}

	keyType := key.KeyType
	if keyType == "" {
		keyType = DefaultKeyType
	}
	if keyType != "ed25519" {
		return Result{}, fmt.Errorf("unsupported key type %q: only ed25519 is supported", keyType)
	}
	if strings.ContainsAny(key.Comment, "\n\r") {
		return Result{}, fmt.Errorf("ssh key comment contains newlines")
	}

	rawPath := key.KeyPath
	if rawPath == "" {
		rawPath = DefaultKeyPath
	}
	if err := validation.ValidatePath(rawPath); err != nil {
		return Result{}, fmt.Errorf("invalid key path: %w", err)
	}
	privPath := ports.ExpandPath(rawPath)
	pubPath := privPath + ".pub"
	res := Result{PrivatePath: privPath, PublicPath: pubPath}

	if g.fs.Exists(privPath) {
		g.logger.Debug("ssh key already exists", ports.F("path", privPath))
		return res, nil
	}
	if g.fs.Exists(pubPath) {
		g.logger.Warn("replacing orphaned public key", ports.F("path", pubPath))
	}

	if err := g.fs.MkdirAll(filepath.Dir(privPath), 0o700); err != nil {
		return res, fmt.Errorf("create %s: %w", filepath.Dir(privPath), err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return res, fmt.Errorf("generate ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, key.Comment)
	if err != nil {
		return res, fmt.Errorf("encode private key: %w", err)
	}
	if err := g.fs.WriteFile(privPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return res, fmt.Errorf("write %s: %w", privPath, err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return res, fmt.Errorf("encode public key: %w", err)
	}
	if err := g.fs.WriteFile(pubPath, authorizedLine(sshPub, key.Comment), 0o644); err != nil {
		return res, fmt.Errorf("write %s: %w", pubPath, err)
	}

	g.logger.Info("generated ssh key", ports.F("path", privPath), ports.F("type", keyType))
	res.Created = true
	return res, nil
}

// authorizedLine renders the public key in authorized_keys format with
// the comment appended the way ssh-keygen -C does.
func authorizedLine(pub ssh.PublicKey, comment string) []byte {
	line := bytes.TrimSuffix(ssh.MarshalAuthorizedKey(pub), []byte("\n"))
	if comment != "" {
		line = append(line, ' ')
		line = append(line, comment...)
	}
	return append(line, '\n')
}
