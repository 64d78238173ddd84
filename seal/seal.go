// Package seal implements the sealed-box envelope: any holder of the
// repository public key can seal a chunk so that it is only ever
// readable by the holder of the matching secret key.
package seal

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"github.com/blockvault/sealvault/digest"
	"github.com/blockvault/sealvault/keymaterial"
)

// ErrAuthFailed is returned by Open when the authenticated decryption
// fails to verify — either because the ciphertext was produced under a
// different secret key, or because it was tampered with. The two cases
// are indistinguishable at this layer; callers that can tell them apart
// from context (e.g. "this was the very first chunk opened in a
// restore") are expected to re-classify as CryptoFailure vs Corruption.
var ErrAuthFailed = errors.New("seal: authenticated decryption failed")

const nonceSize = 24

// Seal wraps plaintext in a sealed box addressed to pub. A fresh
// ephemeral Curve25519 keypair is generated for every call; the nonce is
// derived from the chunk's plaintext digest (its first 24 bytes — the
// box nonce is 24 bytes wide, the digest is 32). Reusing the digest as
// the nonce is safe only because the ephemeral sender key is unique per
// call: the (ephemeral public key, nonce) pair is therefore unique with
// overwhelming probability, even though two seals of identical
// plaintext always share a nonce (by construction — they are
// content-addressed) they never share an ephemeral key.
//
// Output format: ephemeral_public_key (32 bytes) || authenticated_ciphertext.
func Seal(plaintext []byte, d digest.Digest, pub keymaterial.PublicKey) ([]byte, error) {
	epub, esec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("seal: generate ephemeral keypair: %w", err)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], d[:nonceSize])

	pubArr := [32]byte(pub)
	out := make([]byte, 0, len(epub)+len(plaintext)+box.Overhead)
	out = append(out, epub[:]...)
	out = box.Seal(out, plaintext, &nonce, &pubArr, esec)
	return out, nil
}

// Open recovers the plaintext from a sealed box produced by Seal, given
// the digest under which the chunk is filed (reconstructed as the
// nonce) and the repository secret key. It does not itself re-verify
// that digest(plaintext) == d; callers must do that (see the restore
// pipeline's Corruption check), since Open only has the filename-derived
// digest, not an independently recomputed one.
func Open(ciphertext []byte, d digest.Digest, sec keymaterial.SecretKey) ([]byte, error) {
	if len(ciphertext) < keymaterial.KeySize {
		return nil, fmt.Errorf("seal: ciphertext too short to contain an ephemeral public key")
	}

	var epub [32]byte
	copy(epub[:], ciphertext[:keymaterial.KeySize])
	sealedBox := ciphertext[keymaterial.KeySize:]

	var nonce [nonceSize]byte
	copy(nonce[:], d[:nonceSize])

	secArr := [32]byte(sec)
	plaintext, ok := boxOpen(sealedBox, &nonce, &epub, &secArr)
	if !ok {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// boxOpen is a thin wrapper over nacl/box.Open.
func boxOpen(ciphertext []byte, nonce *[nonceSize]byte, peersPublicKey, privateKey *[32]byte) ([]byte, bool) {
	return box.Open(nil, ciphertext, nonce, peersPublicKey, privateKey)
}
