// Package testutil holds small helpers shared by this module's tests:
// seeded random payloads and a ready-to-use repository fixture.
package testutil

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/blockvault/sealvault/chunker"
	"github.com/blockvault/sealvault/keymaterial"
	"github.com/blockvault/sealvault/repository"
)

// RandomBytes returns n deterministic pseudo-random bytes for the given
// seed. Same seed, same bytes, every run.
func RandomBytes(seed int64, n int) []byte {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	r.Read(buf)
	return buf
}

// NewRepo initializes a fresh repository under a t.TempDir() subdirectory
// and returns it along with its secret key.
func NewRepo(t *testing.T, hashAlgo string, params chunker.Params) (*repository.Repository, keymaterial.SecretKey) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	repo, secret, err := repository.Init(root, hashAlgo, params, nil)
	if err != nil {
		t.Fatalf("testutil: init repo: %v", err)
	}
	return repo, secret
}
