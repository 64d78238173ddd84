package repository

import (
	"fmt"

	"github.com/blockvault/sealvault/digest"
	"github.com/blockvault/sealvault/nameindex"
)

// SaveName persists digests as name's index, atomically. Callers are
// expected to have already checked NameExists — SaveName itself does
// not re-check, since the pipeline needs the existence check and the
// write to happen around an entire chunking pass, not adjacent to each
// other.
func SaveName(r *Repository, name string, digests []digest.Digest) error {
	if err := nameindex.Save(r.NamePath(name), digests); err != nil {
		return fmt.Errorf("repository: save name %q: %w", name, err)
	}
	return nil
}

// LoadName reads the ordered digest list for name.
func LoadName(r *Repository, name string) ([]digest.Digest, error) {
	if !r.NameExists(name) {
		return nil, fmt.Errorf("repository: %q: %w", name, ErrNameNotFound)
	}
	digests, err := nameindex.Load(r.NamePath(name))
	if err != nil {
		return nil, fmt.Errorf("repository: %q: %w", name, ErrNameMalformed)
	}
	return digests, nil
}
