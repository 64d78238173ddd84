// Package store implements the content-addressed chunk store: a
// directory of encrypted chunk objects keyed by digest, with a
// two-level hex fan-out, atomic writes, deduplication, and durability on
// commit. Generalizes the teacher's storage.FSStorage.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/blockvault/sealvault/digest"
)

// ErrChunkMissing is returned by Get when no chunk is filed under the
// requested digest.
var ErrChunkMissing = errors.New("store: chunk missing")

// Store is a digest-addressed directory of encrypted chunk objects
// rooted at a repository's chunks/ directory.
type Store struct {
	root  string
	cache *existenceCache
	log   *logrus.Entry
}

// Open returns a Store rooted at dir, creating it if necessary.
func Open(dir string, log *logrus.Entry) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root %s: %w", dir, err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{root: dir, cache: newExistenceCache(), log: log}, nil
}

// path returns the two-level fan-out path for a digest: <root>/<xx>/<hex>.
func (s *Store) path(d digest.Digest) string {
	hexStr := d.Hex()
	return filepath.Join(s.root, hexStr[:2], hexStr)
}

// Has is a filesystem-existence check used only as a performance hint
// ahead of an expensive Seal — it is not a correctness gate, since Put
// is idempotent regardless.
func (s *Store) Has(d digest.Digest) bool {
	if s.cache.has(d) {
		return true
	}
	_, err := os.Stat(s.path(d))
	exists := err == nil
	if exists {
		s.cache.add(d)
	}
	return exists
}

// Put writes ciphertext under d if it is not already present. Storing an
// already-present digest is a no-op that returns success (idempotent
// put, invariant §8.9). The write is atomic: a temp file in the same
// directory is written, fsynced, and renamed into place; the directory
// is then fsynced so the rename itself is durable. Put skips the write
// when the target already exists at the time of its Has check; the check
// and the rename are not atomic together, so two concurrent Puts of the
// same digest can both write, and the later rename replaces the earlier
// file with its own ciphertext of the same plaintext.
func (s *Store) Put(d digest.Digest, ciphertext []byte) error {
	target := s.path(d)

	if s.Has(d) {
		return nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create fan-out dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+d.Hex()+"-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: write chunk %s: %w", d.Hex(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: sync chunk %s: %w", d.Hex(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: rename into place: %w", err)
	}

	df, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("store: open dir %s for sync: %w", dir, err)
	}
	syncErr := df.Sync()
	closeErr := df.Close()
	if syncErr != nil {
		return fmt.Errorf("store: sync dir %s: %w", dir, syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("store: close dir %s: %w", dir, closeErr)
	}

	s.cache.add(d)
	s.log.WithField("digest", d.Hex()).Debug("chunk stored")
	return nil
}

// Get reads the ciphertext filed under d, returning ErrChunkMissing if
// no such chunk exists.
func (s *Store) Get(d digest.Digest) ([]byte, error) {
	data, err := os.ReadFile(s.path(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChunkMissing
		}
		return nil, fmt.Errorf("store: read chunk %s: %w", d.Hex(), err)
	}
	return data, nil
}
