package pipeline_test

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/blockvault/sealvault/chunker"
	"github.com/blockvault/sealvault/pipeline"
	"github.com/blockvault/sealvault/repository"
)

func countChunkFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(filepath.Join(root, "chunks"), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	return n
}

// S1
func TestScenario_EmptyRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	repo, secret, err := repository.Init(root, "sha256", chunker.DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	res, err := pipeline.Save(repo, "empty", bytes.NewReader(nil), pipeline.SaveOptions{})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if res.Chunks != 0 {
		t.Errorf("expected zero chunks for empty input, got %d", res.Chunks)
	}

	var out bytes.Buffer
	if _, err := pipeline.Restore(repo, "empty", secret, &out); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected empty output, got %d bytes", out.Len())
	}
}

// S2
func TestScenario_HelloWorldSingleChunk(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	repo, secret, err := repository.Init(root, "sha256", chunker.DefaultParams(), nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	data := []byte("hello world")
	res, err := pipeline.Save(repo, "hello", bytes.NewReader(data), pipeline.SaveOptions{})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if res.Chunks != 1 {
		t.Errorf("expected exactly one chunk, got %d", res.Chunks)
	}

	var out bytes.Buffer
	if _, err := pipeline.Restore(repo, "hello", secret, &out); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Errorf("restored data mismatch: got %q, want %q", out.Bytes(), data)
	}
}

// S3
func TestScenario_DedupAcrossSaves(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	params := chunker.Params{Min: 4 * 1024, Max: 32 * 1024, BoundaryBits: 13}
	repo, secret, err := repository.Init(root, "sha256", params, nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	r := rand.New(rand.NewSource(42))
	data := make([]byte, 10*1024*1024)
	r.Read(data)

	if _, err := pipeline.Save(repo, "a", bytes.NewReader(data), pipeline.SaveOptions{}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	countAfterFirst := countChunkFiles(t, root)

	if _, err := pipeline.Save(repo, "b", bytes.NewReader(data), pipeline.SaveOptions{}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	countAfterSecond := countChunkFiles(t, root)

	if countAfterFirst != countAfterSecond {
		t.Errorf("chunk count grew on second save: %d -> %d", countAfterFirst, countAfterSecond)
	}

	var outA, outB bytes.Buffer
	if _, err := pipeline.Restore(repo, "a", secret, &outA); err != nil {
		t.Fatalf("Restore a failed: %v", err)
	}
	if _, err := pipeline.Restore(repo, "b", secret, &outB); err != nil {
		t.Fatalf("Restore b failed: %v", err)
	}
	if !bytes.Equal(outA.Bytes(), data) {
		t.Errorf("restored 'a' mismatch")
	}
	if !bytes.Equal(outB.Bytes(), data) {
		t.Errorf("restored 'b' mismatch")
	}
}

// S4
func TestScenario_LocalEditSharesChunks(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	params := chunker.Params{Min: 4 * 1024, Max: 32 * 1024, BoundaryBits: 13}
	repo, secret, err := repository.Init(root, "sha256", params, nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	r := rand.New(rand.NewSource(7))
	x := make([]byte, 4*1024*1024)
	r.Read(x)

	insertion := make([]byte, 1024)
	offset := 1024 * 1024
	y := append(append(append([]byte{}, x[:offset]...), insertion...), x[offset:]...)

	if _, err := pipeline.Save(repo, "x", bytes.NewReader(x), pipeline.SaveOptions{}); err != nil {
		t.Fatalf("save x failed: %v", err)
	}
	if _, err := pipeline.Save(repo, "y", bytes.NewReader(y), pipeline.SaveOptions{}); err != nil {
		t.Fatalf("save y failed: %v", err)
	}

	digestsX, err := repository.LoadName(repo, "x")
	if err != nil {
		t.Fatalf("LoadName x failed: %v", err)
	}
	digestsY, err := repository.LoadName(repo, "y")
	if err != nil {
		t.Fatalf("LoadName y failed: %v", err)
	}

	setX := map[string]bool{}
	for _, d := range digestsX {
		setX[d.Hex()] = true
	}
	shared := 0
	for _, d := range digestsY {
		if setX[d.Hex()] {
			shared++
		}
	}

	if shared < len(digestsX)-2 {
		t.Errorf("expected at least (chunks(x)-2) shared chunks, got %d of %d", shared, len(digestsX))
	}

	var outY bytes.Buffer
	if _, err := pipeline.Restore(repo, "y", secret, &outY); err != nil {
		t.Fatalf("Restore y failed: %v", err)
	}
	if !bytes.Equal(outY.Bytes(), y) {
		t.Errorf("restored y mismatch")
	}
}

// S5
func TestScenario_TamperedChunkFailsRestore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	params := chunker.Params{Min: 4 * 1024, Max: 32 * 1024, BoundaryBits: 13}
	repo, secret, err := repository.Init(root, "sha256", params, nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	r := rand.New(rand.NewSource(42))
	data := make([]byte, 2*1024*1024)
	r.Read(data)

	if _, err := pipeline.Save(repo, "a", bytes.NewReader(data), pipeline.SaveOptions{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	digests, err := repository.LoadName(repo, "a")
	if err != nil {
		t.Fatalf("LoadName failed: %v", err)
	}
	target := digests[len(digests)/2]
	path := filepath.Join(root, "chunks", target.Hex()[:2], target.Hex())
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read chunk file: %v", err)
	}
	raw[len(raw)-1] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to rewrite chunk file: %v", err)
	}

	var out bytes.Buffer
	_, err = pipeline.Restore(repo, "a", secret, &out)
	if err == nil {
		t.Fatalf("expected restore to fail after tampering")
	}
	if !errors.Is(err, repository.ErrCorruption) {
		t.Errorf("expected ErrCorruption, got %v", err)
	}
}

// S6
func TestScenario_SaveExistingNameFails(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	params := chunker.Params{Min: 4 * 1024, Max: 32 * 1024, BoundaryBits: 13}
	repo, _, err := repository.Init(root, "sha256", params, nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	r := rand.New(rand.NewSource(42))
	data := make([]byte, 1024*1024)
	r.Read(data)

	if _, err := pipeline.Save(repo, "a", bytes.NewReader(data), pipeline.SaveOptions{}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	_, err = pipeline.Save(repo, "a", bytes.NewReader(data), pipeline.SaveOptions{})
	if err == nil {
		t.Fatalf("expected second save under the same name to fail")
	}
	if !errors.Is(err, repository.ErrNameExists) {
		t.Errorf("expected ErrNameExists, got %v", err)
	}
}

func TestKeyBinding_WrongSecretFailsFirstChunk(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	params := chunker.Params{Min: 1024, Max: 8 * 1024, BoundaryBits: 12}
	repo, _, err := repository.Init(root, "sha256", params, nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	_, wrongSecret, err := repository.Init(filepath.Join(t.TempDir(), "other"), "sha256", params, nil)
	if err != nil {
		t.Fatalf("Init (other) failed: %v", err)
	}

	data := []byte("this will be opened with the wrong key")
	if _, err := pipeline.Save(repo, "n", bytes.NewReader(data), pipeline.SaveOptions{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var out bytes.Buffer
	_, err = pipeline.Restore(repo, "n", wrongSecret, &out)
	if err == nil {
		t.Fatalf("expected restore with the wrong secret key to fail")
	}
	if !errors.Is(err, repository.ErrCryptoFailure) {
		t.Errorf("expected ErrCryptoFailure, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no plaintext to be emitted, got %d bytes", out.Len())
	}
}

func TestSave_ConcurrentWorkersPreserveOrder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	params := chunker.Params{Min: 512, Max: 4 * 1024, BoundaryBits: 10}
	repo, secret, err := repository.Init(root, "sha256", params, nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	r := rand.New(rand.NewSource(123))
	data := make([]byte, 512*1024)
	r.Read(data)

	if _, err := pipeline.Save(repo, "ordered", bytes.NewReader(data), pipeline.SaveOptions{Workers: 8}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var out bytes.Buffer
	if _, err := pipeline.Restore(repo, "ordered", secret, &out); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Errorf("restored data mismatch with concurrent workers")
	}
}
