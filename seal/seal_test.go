package seal

import (
	"bytes"
	"testing"

	"github.com/blockvault/sealvault/digest"
	"github.com/blockvault/sealvault/keymaterial"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	kp, err := keymaterial.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	d, err := digest.Sum("sha256", plaintext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ciphertext, err := Seal(plaintext, d, kp.Public)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	recovered, err := Open(ciphertext, d, kp.Secret)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if !bytes.Equal(recovered, plaintext) {
		t.Errorf("recovered plaintext mismatch: got %q, want %q", recovered, plaintext)
	}
}

func TestSeal_DifferentCiphertextsSamePlaintext(t *testing.T) {
	kp, err := keymaterial.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plaintext := []byte("repeated payload")
	d, _ := digest.Sum("sha256", plaintext)

	c1, err := Seal(plaintext, d, kp.Public)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c2, err := Seal(plaintext, d, kp.Public)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bytes.Equal(c1, c2) {
		t.Errorf("two seals of the same plaintext must differ (fresh ephemeral key each time)")
	}

	// Both must still open to the same plaintext.
	p1, err := Open(c1, d, kp.Secret)
	if err != nil {
		t.Fatalf("Open c1 failed: %v", err)
	}
	p2, err := Open(c2, d, kp.Secret)
	if err != nil {
		t.Fatalf("Open c2 failed: %v", err)
	}
	if !bytes.Equal(p1, plaintext) || !bytes.Equal(p2, plaintext) {
		t.Errorf("both ciphertexts must decrypt to the original plaintext")
	}
}

func TestOpen_WrongSecretKeyFails(t *testing.T) {
	kp1, _ := keymaterial.Generate()
	kp2, _ := keymaterial.Generate()

	plaintext := []byte("sealed for kp1 only")
	d, _ := digest.Sum("sha256", plaintext)

	ciphertext, err := Seal(plaintext, d, kp1.Public)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = Open(ciphertext, d, kp2.Secret)
	if err == nil {
		t.Fatalf("expected Open with wrong secret key to fail")
	}
}

func TestOpen_TamperedCiphertextFails(t *testing.T) {
	kp, _ := keymaterial.Generate()

	plaintext := []byte("do not tamper with me")
	d, _ := digest.Sum("sha256", plaintext)

	ciphertext, err := Seal(plaintext, d, kp.Public)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tampered := append([]byte{}, ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := Open(tampered, d, kp.Secret); err == nil {
		t.Errorf("expected Open to fail on tampered ciphertext")
	}
}

func TestOpen_TooShortCiphertext(t *testing.T) {
	kp, _ := keymaterial.Generate()
	d, _ := digest.Sum("sha256", []byte("x"))

	if _, err := Open([]byte{1, 2, 3}, d, kp.Secret); err == nil {
		t.Errorf("expected error for too-short ciphertext")
	}
}
