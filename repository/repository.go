// Package repository owns a repository's root directory: the public
// key, the chunk store, and the set of names. It implements init/open,
// name validation, and the error kinds from §7.
package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/blockvault/sealvault/chunker"
	"github.com/blockvault/sealvault/keymaterial"
	"github.com/blockvault/sealvault/store"
)

const (
	pubKeyFile    = "pub_key"
	configFile    = "sealvault.yaml"
	chunksDirName = "chunks"
	namesDirName  = "names"
)

// namePattern matches the filename-safe subset §6 restricts names to:
// non-empty, letters, digits, '-', '_', '.'.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Repository is a handle on a backup store rooted at a directory. A
// handle exclusively owns its root for the duration of a save; readers
// (restores) may share it freely. The core does not itself enforce
// single-writer exclusion — that is delegated to the caller (§5, §9).
type Repository struct {
	root   string
	Config Config
	Public keymaterial.PublicKey
	Store  *store.Store
	log    *logrus.Entry
}

// ValidateName reports whether name meets the §6 filename-safe
// restriction.
func ValidateName(name string) error {
	if name == "" || !namePattern.MatchString(name) {
		return fmt.Errorf("repository: invalid name %q: must be non-empty and use only letters, digits, '-', '_', '.'", name)
	}
	return nil
}

// Init creates a fresh repository at root: generates a keypair,
// persists the public key and config, and returns the secret key for
// the caller's out-of-band custody. The secret key is never written to
// the repository.
func Init(root string, hashAlgo string, params chunker.Params, log *logrus.Entry) (*Repository, keymaterial.SecretKey, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, keymaterial.SecretKey{}, fmt.Errorf("repository: create root %s: %w", root, err)
	}

	pubKeyPath := filepath.Join(root, pubKeyFile)
	if _, err := os.Stat(pubKeyPath); err == nil {
		return nil, keymaterial.SecretKey{}, fmt.Errorf("repository: %s already initialized", root)
	}

	kp, err := keymaterial.Generate()
	if err != nil {
		return nil, keymaterial.SecretKey{}, fmt.Errorf("repository: generate keypair: %w", err)
	}

	if err := os.WriteFile(pubKeyPath, kp.Public.Bytes(), 0o644); err != nil {
		return nil, keymaterial.SecretKey{}, fmt.Errorf("repository: write public key: %w", err)
	}

	cfg := Config{
		FormatVersion: FormatVersion,
		HashAlgorithm: hashAlgo,
		Chunker:       fromParams(params),
	}
	if err := saveConfig(filepath.Join(root, configFile), cfg); err != nil {
		return nil, keymaterial.SecretKey{}, err
	}

	st, err := store.Open(filepath.Join(root, chunksDirName), log.WithField("component", "store"))
	if err != nil {
		return nil, keymaterial.SecretKey{}, err
	}

	log.WithFields(logrus.Fields{"root": root, "hash_algorithm": hashAlgo}).Info("repository initialized")

	return &Repository{root: root, Config: cfg, Public: kp.Public, Store: st, log: log}, kp.Secret, nil
}

// Open loads an existing repository at root.
func Open(root string, log *logrus.Entry) (*Repository, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	pubKeyPath := filepath.Join(root, pubKeyFile)
	raw, err := os.ReadFile(pubKeyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("repository: %s: %w", root, ErrRepoNotFound)
		}
		return nil, fmt.Errorf("repository: read public key: %w", err)
	}

	pub, err := keymaterial.PublicKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("repository: %s: %w", root, ErrRepoMalformed)
	}

	cfg, err := loadConfig(filepath.Join(root, configFile))
	if err != nil {
		return nil, fmt.Errorf("repository: %s: %w", root, ErrRepoMalformed)
	}

	st, err := store.Open(filepath.Join(root, chunksDirName), log.WithField("component", "store"))
	if err != nil {
		return nil, err
	}

	return &Repository{root: root, Config: cfg, Public: pub, Store: st, log: log}, nil
}

// ChunkerParams returns the chunking parameters this repository was
// created with.
func (r *Repository) ChunkerParams() chunker.Params {
	return r.Config.Chunker.toParams()
}

// HashAlgorithm returns the digest algorithm this repository was
// created with.
func (r *Repository) HashAlgorithm() string {
	return r.Config.HashAlgorithm
}

// Log returns the repository's logger.
func (r *Repository) Log() *logrus.Entry {
	return r.log
}

// NamePath returns the on-disk path for a name's index file.
func (r *Repository) NamePath(name string) string {
	return filepath.Join(r.root, namesDirName, name)
}

// NameExists reports whether name already has a persisted index.
func (r *Repository) NameExists(name string) bool {
	_, err := os.Stat(r.NamePath(name))
	return err == nil
}
