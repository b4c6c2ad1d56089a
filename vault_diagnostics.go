package keylocker

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// This file holds diagnostic-only tooling built on AEAD ciphers. AEAD's
// fixed authentication tag would make every slot larger than its
// payload, which is exactly the structural tell the live Put/Get path
// forbids (spec §4.3) — so these constructions are never used to encrypt
// a real slot. They back a developer-facing check, on a disposable
// scratch buffer, that real authentication detects a tampered payload.
// Nothing in Put or Get calls into this file.

// aeadEngine is the diagnostic counterpart to streamEngine: authenticated
// rather than length-preserving.
type aeadEngine interface {
	Seal(nonce, plaintext []byte) ([]byte, error)
	Open(nonce, ciphertext []byte) ([]byte, error)
	NonceSize() int
}

type aesGCMDiagnosticEngine struct {
	aead cipher.AEAD
}

// newAESGCMDiagnosticEngine builds an AES-256-GCM engine for scratch use,
// grounded on the teacher's AESGCMEngine.
func newAESGCMDiagnosticEngine(key []byte) (*aesGCMDiagnosticEngine, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("keylocker: diagnostic aes-gcm requires a 32-byte key, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keylocker: diagnostic aes-gcm: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keylocker: diagnostic aes-gcm: %w", err)
	}
	return &aesGCMDiagnosticEngine{aead: aead}, nil
}

func (e *aesGCMDiagnosticEngine) NonceSize() int { return e.aead.NonceSize() }

func (e *aesGCMDiagnosticEngine) Seal(nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != e.NonceSize() {
		return nil, fmt.Errorf("keylocker: nonce must be %d bytes, got %d", e.NonceSize(), len(nonce))
	}
	return e.aead.Seal(nil, nonce, plaintext, nil), nil
}

func (e *aesGCMDiagnosticEngine) Open(nonce, ciphertext []byte) ([]byte, error) {
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("keylocker: diagnostic aes-gcm auth failed: %w", err)
	}
	return plaintext, nil
}

type chacha20Poly1305DiagnosticEngine struct {
	aead cipher.AEAD
}

// newChaCha20Poly1305DiagnosticEngine builds a ChaCha20-Poly1305 engine
// for scratch use, grounded on the teacher's ChaCha20Poly1305Engine.
func newChaCha20Poly1305DiagnosticEngine(key []byte) (*chacha20Poly1305DiagnosticEngine, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("keylocker: diagnostic chacha20-poly1305 requires a %d-byte key, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("keylocker: diagnostic chacha20-poly1305: %w", err)
	}
	return &chacha20Poly1305DiagnosticEngine{aead: aead}, nil
}

func (e *chacha20Poly1305DiagnosticEngine) NonceSize() int { return e.aead.NonceSize() }

func (e *chacha20Poly1305DiagnosticEngine) Seal(nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != e.NonceSize() {
		return nil, fmt.Errorf("keylocker: nonce must be %d bytes, got %d", e.NonceSize(), len(nonce))
	}
	return e.aead.Seal(nil, nonce, plaintext, nil), nil
}

func (e *chacha20Poly1305DiagnosticEngine) Open(nonce, ciphertext []byte) ([]byte, error) {
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("keylocker: diagnostic chacha20-poly1305 auth failed: %w", err)
	}
	return plaintext, nil
}

// CorruptEntry is a developer-facing diagnostic: it seals payload under a
// fresh random key with AES-256-GCM (or ChaCha20-Poly1305), flips the
// last byte of the tag, and reports whether Open rejected the result. It
// does not consult slot.go's truncated slotChecksum.
func CorruptEntry(payload []byte, useChaCha20 bool) (tamperDetected bool, err error) {
	var engine aeadEngine
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return false, fmt.Errorf("keylocker: generating diagnostic key: %w", err)
	}
	if useChaCha20 {
		key = key[:chacha20poly1305.KeySize]
		engine, err = newChaCha20Poly1305DiagnosticEngine(key)
	} else {
		engine, err = newAESGCMDiagnosticEngine(key)
	}
	if err != nil {
		return false, err
	}

	nonce := make([]byte, engine.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return false, fmt.Errorf("keylocker: generating diagnostic nonce: %w", err)
	}

	sealed, err := engine.Seal(nonce, payload)
	if err != nil {
		return false, err
	}
	// Flip a bit in the tag region to simulate tampering.
	sealed[len(sealed)-1] ^= 0xFF

	_, openErr := engine.Open(nonce, sealed)
	return openErr != nil, nil
}
