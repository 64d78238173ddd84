package pipeline

import (
	"fmt"
	"io"

	"github.com/blockvault/sealvault/digest"
	"github.com/blockvault/sealvault/keymaterial"
	"github.com/blockvault/sealvault/repository"
	"github.com/blockvault/sealvault/seal"
	"github.com/blockvault/sealvault/store"
)

// RestoreResult reports the outcome of a completed restore.
type RestoreResult struct {
	Chunks int
	Bytes  int64
}

// Restore reads name's index and writes the reconstructed stream to w.
// Every digest is fetched, opened with sec, and its plaintext verified
// against the expected digest before being written — in order. The
// first fatal error aborts the restore; w may already contain a partial
// prefix of the stream when that happens, which callers must treat as
// invalid (§7).
func Restore(repo *repository.Repository, name string, sec keymaterial.SecretKey, w io.Writer) (RestoreResult, error) {
	log := repo.Log().WithField("name", name)
	log.Info("restore started")

	digests, err := repository.LoadName(repo, name)
	if err != nil {
		return RestoreResult{}, err
	}

	var bytesWritten int64
	for i, d := range digests {
		ciphertext, err := repo.Store.Get(d)
		if err != nil {
			if err == store.ErrChunkMissing {
				return RestoreResult{}, fmt.Errorf("restore %q: chunk %s: %w", name, d.Hex(), repository.ErrChunkMissing)
			}
			return RestoreResult{}, fmt.Errorf("restore %q: fetch chunk %s: %w", name, d.Hex(), err)
		}

		plaintext, err := seal.Open(ciphertext, d, sec)
		if err != nil {
			if i == 0 {
				// §9's documented heuristic: an authentication failure
				// on the very first chunk of a restore is classified as
				// a key mismatch rather than tampering — restic-style
				// tools have no better signal available either way.
				return RestoreResult{}, fmt.Errorf("restore %q: chunk %s: %w", name, d.Hex(), repository.ErrCryptoFailure)
			}
			return RestoreResult{}, fmt.Errorf("restore %q: chunk %s: %w", name, d.Hex(), repository.ErrCorruption)
		}

		if err := verifyDigest(repo.HashAlgorithm(), plaintext, d); err != nil {
			return RestoreResult{}, fmt.Errorf("restore %q: chunk %s: %w", name, d.Hex(), repository.ErrCorruption)
		}

		n, err := w.Write(plaintext)
		if err != nil {
			return RestoreResult{}, fmt.Errorf("restore %q: write output: %w", name, err)
		}
		bytesWritten += int64(n)
	}

	log.WithFields(map[string]interface{}{"chunks": len(digests), "bytes": bytesWritten}).Info("restore finished")
	return RestoreResult{Chunks: len(digests), Bytes: bytesWritten}, nil
}

func verifyDigest(algo string, plaintext []byte, want digest.Digest) error {
	got, err := digest.Sum(algo, plaintext)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("digest mismatch: got %s, want %s", got.Hex(), want.Hex())
	}
	return nil
}
