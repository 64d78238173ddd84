// Package keymaterial generates and serializes the asymmetric keypair a
// repository is sealed under.
package keymaterial

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// KeySize is the width, in bytes, of both the public and secret key
// halves of a Curve25519 keypair (as used by nacl/box).
const KeySize = 32

// PublicKey is the repository's sealing key: any holder can produce new
// chunks that dedupe against the existing store, but cannot read any of
// it back.
type PublicKey [KeySize]byte

// SecretKey is held by the user out of band; the repository never
// stores it.
type SecretKey [KeySize]byte

// Keypair is a freshly generated sealing keypair.
type Keypair struct {
	Public PublicKey
	Secret SecretKey
}

// Generate creates a fresh Curve25519 keypair suitable for sealed-box
// operation, via golang.org/x/crypto/nacl/box (crypto/rand-backed).
func Generate() (Keypair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("keymaterial: generate: %w", err)
	}
	return Keypair{Public: PublicKey(*pub), Secret: SecretKey(*sec)}, nil
}

// Hex encodes a SecretKey as a printable string (§6 "secret key
// (printable form)"), suitable for out-of-band custody by the caller.
func (s SecretKey) Hex() string {
	return hex.EncodeToString(s[:])
}

// SecretKeyFromHex parses a printable secret key back into bytes.
func SecretKeyFromHex(s string) (SecretKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return SecretKey{}, fmt.Errorf("keymaterial: invalid secret key encoding: %w", err)
	}
	if len(b) != KeySize {
		return SecretKey{}, fmt.Errorf("keymaterial: secret key must be %d bytes, got %d", KeySize, len(b))
	}
	var sk SecretKey
	copy(sk[:], b)
	return sk, nil
}

// PublicKeyFromBytes validates and wraps a raw public key, as loaded from
// a repository's pub_key file.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != KeySize {
		return PublicKey{}, fmt.Errorf("keymaterial: public key must be %d bytes, got %d", KeySize, len(b))
	}
	var pk PublicKey
	copy(pk[:], b)
	return pk, nil
}

// Bytes returns the raw 32-byte public key, as persisted at pub_key.
func (p PublicKey) Bytes() []byte {
	return p[:]
}
