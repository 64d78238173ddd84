// Package pipeline implements the save and restore data flows: stream
// -> chunker -> sealer -> chunk store -> name index, and its inverse.
package pipeline

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/blockvault/sealvault/chunker"
	"github.com/blockvault/sealvault/digest"
	"github.com/blockvault/sealvault/repository"
	"github.com/blockvault/sealvault/seal"
)

// SaveResult reports the outcome of a completed save.
type SaveResult struct {
	Chunks int
	Bytes  int64
}

// SaveOptions tunes the save pipeline's concurrency. Workers <= 1 runs
// the pipeline fully sequentially; concurrency here is a throughput
// knob only, never a correctness requirement (§5).
type SaveOptions struct {
	Workers int
}

type chunkJob struct {
	seq     int
	payload []byte
	digest  digest.Digest
}

type chunkResult struct {
	seq    int
	digest digest.Digest
	size   int64
	err    error
}

// Save streams r through the chunker, seals and stores every unique
// chunk, and persists name's index atomically once the stream is
// exhausted. It fails with repository.ErrNameExists if name is already
// taken — a name is written once and never silently overwritten.
func Save(repo *repository.Repository, name string, r io.Reader, opts SaveOptions) (SaveResult, error) {
	if err := repository.ValidateName(name); err != nil {
		return SaveResult{}, err
	}
	if repo.NameExists(name) {
		return SaveResult{}, fmt.Errorf("save %q: %w", name, repository.ErrNameExists)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	log := repo.Log().WithField("name", name)
	log.Info("save started")

	c, err := chunker.New(r, repo.HashAlgorithm(), repo.ChunkerParams())
	if err != nil {
		return SaveResult{}, err
	}

	jobs := make(chan chunkJob, workers*2)
	results := make(chan chunkResult, workers*2)

	// stop lets a mid-stream error unblock the producer and every worker
	// immediately, instead of leaving them stuck writing to channels no
	// one is draining anymore once Save has decided to return.
	stop := make(chan struct{})
	var stopOnce sync.Once
	signalStop := func() { stopOnce.Do(func() { close(stop) }) }

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go sealWorker(&wg, repo, name, jobs, results, stop)
	}

	var produceErr error
	go func() {
		defer close(jobs)
		seq := 0
		for {
			ch, payload, err := c.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				produceErr = fmt.Errorf("save %q: %w", name, err)
				signalStop()
				return
			}
			select {
			case jobs <- chunkJob{seq: seq, payload: payload, digest: ch.Digest}:
			case <-stop:
				return
			}
			seq++
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Reassemble by sequence number so the recorded digest order is
	// always input order, regardless of worker completion order (§5, §9).
	// Keep draining results to completion even after the first error, so
	// the producer and every worker are guaranteed to exit rather than
	// block forever on a channel this call has stopped reading.
	var firstErr error
	var collected []chunkResult
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			signalStop()
			continue
		}
		collected = append(collected, res)
	}
	if firstErr != nil {
		return SaveResult{}, firstErr
	}
	if produceErr != nil {
		return SaveResult{}, produceErr
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].seq < collected[j].seq })

	digests := make([]digest.Digest, len(collected))
	var totalBytes int64
	for i, res := range collected {
		digests[i] = res.digest
		totalBytes += res.size
	}

	if err := repository.SaveName(repo, name, digests); err != nil {
		return SaveResult{}, err
	}

	log.WithFields(map[string]interface{}{"chunks": len(digests), "bytes": totalBytes}).Info("save finished")
	return SaveResult{Chunks: len(digests), Bytes: totalBytes}, nil
}

func sealWorker(wg *sync.WaitGroup, repo *repository.Repository, name string, jobs <-chan chunkJob, results chan<- chunkResult, stop <-chan struct{}) {
	defer wg.Done()
	for j := range jobs {
		size := int64(len(j.payload))

		var res chunkResult
		switch {
		case repo.Store.Has(j.digest):
			res = chunkResult{seq: j.seq, digest: j.digest, size: size}
		default:
			ciphertext, err := seal.Seal(j.payload, j.digest, repo.Public)
			if err != nil {
				res = chunkResult{seq: j.seq, err: fmt.Errorf("save %q: seal chunk %s: %w", name, j.digest.Hex(), err)}
				break
			}
			if err := repo.Store.Put(j.digest, ciphertext); err != nil {
				res = chunkResult{seq: j.seq, err: fmt.Errorf("save %q: store chunk %s: %w", name, j.digest.Hex(), err)}
				break
			}
			res = chunkResult{seq: j.seq, digest: j.digest, size: size}
		}

		select {
		case results <- res:
		case <-stop:
			return
		}
	}
}
